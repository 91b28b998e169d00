package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/proximity/internal/core"
	"github.com/dkeye/proximity/internal/domain"
)

var (
	ErrBanned     = errors.New("banned from this room")
	ErrRoomClosed = errors.New("room closed")
)

const DefaultGameEndTimeout = 10 * time.Minute

const (
	msgMaintenanceWarning = "AUProximity will be going into maintenance, you will not be able to start another game."
	msgMaintenanceClosed  = "Game closed for maintenance."
)

// Room is the live state of one upstream game session and the viewers watching it.
// Adapter facts and viewer commands are applied one at a time under mu.
type Room struct {
	identity       domain.SessionIdentity
	adapter        core.Adapter
	registry       *Registry
	gameEndTimeout time.Duration
	logger         zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	mu       sync.Mutex
	started  bool
	clients  []*Client
	bans     map[string]struct{}
	players  *playerTable
	state    domain.GameState
	flags    domain.GameFlags
	settings domain.GameSettings
	options  domain.HostOptions
	host     domain.ClientID
	// closed on every transition into the lobby, then replaced
	lobby chan struct{}
	done  chan struct{}
}

func newRoom(ctx context.Context, id domain.SessionIdentity, factory core.AdapterFactory, reg *Registry, gameEndTimeout time.Duration) *Room {
	if gameEndTimeout <= 0 {
		gameEndTimeout = DefaultGameEndTimeout
	}
	ctx, cancel := context.WithCancel(ctx)
	r := &Room{
		identity:       id,
		registry:       reg,
		gameEndTimeout: gameEndTimeout,
		logger: log.With().
			Str("module", "app.room").
			Str("game", id.String()).
			Str("backend", id.Type.String()).
			Logger(),
		ctx:      ctx,
		cancel:   cancel,
		bans:     make(map[string]struct{}),
		players:  newPlayerTable(),
		state:    domain.GameStateLobby,
		settings: domain.DefaultGameSettings(),
		options:  domain.DefaultHostOptions(),
		host:     domain.NoParticipant,
		lobby:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	r.adapter = factory.Build(id, r.handleFact)
	return r
}

func (r *Room) Identity() domain.SessionIdentity { return r.identity }

// Closed reports whether the room has been torn down.
func (r *Room) Closed() bool { return r.closed.Load() }

// Done is closed once the room is torn down.
func (r *Room) Done() <-chan struct{} { return r.done }

type RoomInfo struct {
	GameCode string `json:"gameCode"`
	Backend  string `json:"backend"`
	Target   string `json:"target,omitempty"`
	State    string `json:"state"`
	Clients  int    `json:"clients"`
	Players  int    `json:"players"`
}

func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomInfo{
		GameCode: r.identity.GameCode,
		Backend:  r.identity.Type.String(),
		Target:   r.identity.Discriminator(),
		State:    r.state.String(),
		Clients:  len(r.clients),
		Players:  len(r.players.order),
	}
}

// startLocked initializes the adapter in the background. A failure to connect is
// reported to viewers as a fatal error.
func (r *Room) startLocked() {
	if r.started {
		return
	}
	r.started = true
	go func() {
		if err := r.adapter.Initialize(r.ctx); err != nil {
			if r.ctx.Err() != nil {
				return
			}
			r.logger.Error().Err(err).Msg("failed to initialize backend")
			r.apply(core.ErrorFact{Message: "Could not connect to the game: " + err.Error(), Fatal: true})
			return
		}
		r.logger.Info().Msg("backend initialized")
	}()
}

// AddClient attaches c and brings it up to date. The roster is sent before anything
// else and c is only appended once every other viewer has been told about it.
func (r *Room) AddClient(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		return ErrRoomClosed
	}
	if _, banned := r.bans[c.Addr()]; banned {
		r.logger.Info().Str("sid", string(c.ID())).Str("addr", c.Addr()).Msg("rejected banned viewer")
		c.removeParticipant(c.ID(), true)
		return ErrBanned
	}

	name := c.Name()
	var player *domain.PlayerState
	if p := r.players.byName(name); p != nil {
		player = p
		c.bind(p.ClientID)
	}

	roster := make([]ViewerDTO, 0, len(r.clients))
	for _, other := range r.clients {
		roster = append(roster, ViewerDTO{UUID: other.ID(), Name: other.Name()})
	}
	c.syncAllViewers(roster)

	for _, other := range r.clients {
		if player != nil {
			other.addParticipant(c.ID(), name, *player)
			other.setPoseOf(c.ID(), player.Pose)
			other.setColorOf(c.ID(), player.Color)
		} else {
			other.addParticipant(c.ID(), name, domain.PlayerState{})
		}

		p := r.players.peek(other.Participant())
		c.setColorOf(other.ID(), p.Color)
		c.setPoseOf(other.ID(), p.Pose)
		c.setFlagsOf(other.ID(), p.Flags)
	}

	if player != nil {
		c.setPoseOf(c.ID(), player.Pose)
		c.setNameOf(c.ID(), player.Name)
		c.setColorOf(c.ID(), player.Color)
		c.setHatOf(c.ID(), player.Hat)
		c.setSkinOf(c.ID(), player.Skin)
	}

	c.setGameState(r.state)
	c.setGameFlags(r.flags)
	c.setSettings(r.settings)
	if player != nil && player.ClientID == r.host {
		c.setHost(c.ID())
	} else if host := r.clientFor(r.host); host != nil {
		c.setHost(host.ID())
	}
	c.setOptions(r.options)

	r.clients = append(r.clients, c)
	c.attach(r)
	r.startLocked()

	ev := r.logger.Info().Str("sid", string(c.ID())).Str("name", name).Int("clients", len(r.clients))
	if player != nil {
		ev = ev.Int32("participant", int32(player.ClientID))
	}
	ev.Msg("viewer joined")
	return nil
}

// RemoveClient detaches c, telling every viewer including c. The room is torn down
// once the last viewer leaves.
func (r *Room) RemoveClient(c *Client, ban bool) {
	r.mu.Lock()
	if !r.removeLocked(c, ban) {
		r.mu.Unlock()
		return
	}
	closing := len(r.clients) == 0 && r.teardownLocked()
	r.mu.Unlock()

	if closing {
		r.finish()
	}
}

func (r *Room) removeLocked(c *Client, ban bool) bool {
	idx := -1
	for i, cl := range r.clients {
		if cl == c {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	for _, cl := range r.clients {
		cl.removeParticipant(c.ID(), ban)
	}
	r.clients = append(r.clients[:idx], r.clients[idx+1:]...)
	c.detach(r)
	if ban {
		r.bans[c.Addr()] = struct{}{}
	}
	r.logger.Info().Str("sid", string(c.ID())).Bool("ban", ban).Int("clients", len(r.clients)).Msg("viewer removed")
	return true
}

// FindClient returns the attached viewer with the given id.
func (r *Room) FindClient(sid core.SessionID) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if c.ID() == sid {
			return c
		}
	}
	return nil
}

// IsHost reports whether c is bound to the participant currently hosting the game.
func (r *Room) IsHost(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := c.Participant()
	return p != domain.NoParticipant && p == r.host
}

// SetOptions replaces the host options and pushes them to every viewer. The host
// already has them unless includeHost is set.
func (r *Room) SetOptions(opts domain.HostOptions, includeHost bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.options = opts
	for _, c := range r.clients {
		if includeHost || c.Participant() != r.host {
			c.setOptions(opts)
		}
	}
}

// GracefulClose waits for a running game to end, up to the room's game end timeout,
// then closes the room with a fatal notice to every viewer.
func (r *Room) GracefulClose(ctx context.Context) {
	r.mu.Lock()
	if r.closed.Load() {
		r.mu.Unlock()
		return
	}
	var lobby <-chan struct{}
	if r.state != domain.GameStateLobby {
		r.broadcastError(msgMaintenanceWarning, false)
		lobby = r.lobby
	}
	r.mu.Unlock()

	if lobby != nil {
		r.logger.Info().Dur("timeout", r.gameEndTimeout).Msg("waiting for game to end")
		timer := time.NewTimer(r.gameEndTimeout)
		defer timer.Stop()
		select {
		case <-lobby:
		case <-timer.C:
			r.logger.Warn().Msg("game did not end in time, closing")
		case <-ctx.Done():
		case <-r.done:
			return
		}
	}

	r.mu.Lock()
	if r.closed.Load() {
		r.mu.Unlock()
		return
	}
	r.broadcastError(msgMaintenanceClosed, true)
	closing := r.teardownLocked()
	r.mu.Unlock()

	if closing {
		r.finish()
	}
}

// Close tears the room down immediately.
func (r *Room) Close() {
	r.mu.Lock()
	closing := r.teardownLocked()
	r.mu.Unlock()
	if closing {
		r.finish()
	}
}

// teardownLocked removes every remaining viewer and marks the room closed. It reports
// whether this call did the closing; the caller must then run finish without mu held.
func (r *Room) teardownLocked() bool {
	if r.closed.Load() {
		return false
	}
	for len(r.clients) > 0 {
		r.removeLocked(r.clients[0], false)
	}
	r.closed.Store(true)
	close(r.done)
	return true
}

func (r *Room) finish() {
	r.cancel()
	r.registry.removeRoom(r)
	r.adapter.Destroy()
	r.logger.Info().Msg("room closed")
}

// clientFor returns the viewer bound to participant id.
func (r *Room) clientFor(id domain.ClientID) *Client {
	if id == domain.NoParticipant {
		return nil
	}
	for _, c := range r.clients {
		if c.Participant() == id {
			return c
		}
	}
	return nil
}

func (r *Room) broadcastError(msg string, fatal bool) {
	for _, c := range r.clients {
		c.sendError(msg, fatal)
	}
}
