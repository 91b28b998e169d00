package app

import (
	"errors"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/proximity/internal/core"
	"github.com/dkeye/proximity/internal/domain"
	"github.com/dkeye/proximity/internal/metrics"
)

var (
	ErrJoinCooldown = errors.New("join attempted during cooldown")
	ErrNotHost      = errors.New("only the host can do that")
	ErrClosing      = errors.New("server is shutting down")
	ErrUnknownPeer  = errors.New("no such viewer in room")
)

const (
	msgJoinCooldown = "Already joining, please wait 5 seconds before pressing the join button again"
	msgMaintenance  = "AUProximity is currently undergoing maintenance, please try again in a few minutes."
	msgNotHost      = "Only the host can do that."
)

// maxMatchAttempts bounds re-matching when a room closes between Match and AddClient.
const maxMatchAttempts = 3

// Client is one connected viewer. Its transport is owned by the signal adapter.
type Client struct {
	id       core.SessionID
	addr     string
	conn     core.SignalConnection
	registry *Registry
	logger   zerolog.Logger

	mu          sync.Mutex
	name        string
	participant domain.ClientID
	room        *Room
}

func newClient(sid core.SessionID, addr string, conn core.SignalConnection, reg *Registry) *Client {
	return &Client{
		id:       sid,
		addr:     addr,
		conn:     conn,
		registry: reg,
		logger: log.With().
			Str("module", "app.client").
			Str("sid", string(sid)).
			Logger(),
	}
}

func (c *Client) ID() core.SessionID { return c.id }

// Addr is the network address bans are applied to.
func (c *Client) Addr() string { return c.addr }

func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// Participant is the in-game participant this viewer is bound to, or domain.NoParticipant.
func (c *Client) Participant() domain.ClientID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.participant
}

func (c *Client) Room() *Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Client) bind(id domain.ClientID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.participant = id
}

func (c *Client) attach(r *Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room = r
}

// detach clears the room back-reference and binding if they still point at r.
func (c *Client) detach(r *Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room == r {
		c.room = nil
		c.participant = domain.NoParticipant
	}
}

// Join leaves the current room, if any, and attaches to the room tracking identity.
func (c *Client) Join(name string, identity domain.SessionIdentity) error {
	if !c.registry.limiter.Allow(c.id) {
		c.reject("cooldown", msgJoinCooldown)
		return ErrJoinCooldown
	}
	if err := domain.ValidateUsername(name); err != nil {
		c.reject("bad_name", "Invalid name: "+err.Error())
		return err
	}
	id, err := identity.Normalize()
	if err != nil {
		c.reject("bad_identity", "Invalid game: "+err.Error())
		return err
	}

	c.Leave()

	if c.registry.IsClosing() {
		metrics.RejectedCommands.WithLabelValues("closing").Inc()
		c.sendError(msgMaintenance, true)
		return ErrClosing
	}

	c.mu.Lock()
	c.name = name
	c.mu.Unlock()

	for attempt := 0; attempt < maxMatchAttempts; attempt++ {
		room := c.registry.Match(id)
		err = room.AddClient(c)
		if errors.Is(err, ErrRoomClosed) {
			continue
		}
		if err != nil {
			return err
		}
		c.logger.Info().Str("game", id.String()).Str("backend", id.Type.String()).Str("name", name).Msg("joined room")
		return nil
	}
	c.sendError("Could not join the game, please try again.", false)
	return fmt.Errorf("join %s: %w", id, err)
}

// Leave detaches from the current room. It is a no-op outside a room.
func (c *Client) Leave() {
	c.mu.Lock()
	room := c.room
	c.name = ""
	c.mu.Unlock()

	if room == nil {
		return
	}
	room.RemoveClient(c, false)
	c.logger.Info().Str("game", room.Identity().String()).Msg("left room")
}

// SetHostOptions replaces the room's host options. Only the host may call it.
func (c *Client) SetHostOptions(opts domain.HostOptions) error {
	room := c.Room()
	if room == nil || !room.IsHost(c) {
		c.reject("not_host", msgNotHost)
		return ErrNotHost
	}
	room.SetOptions(opts, false)
	return nil
}

// Kick removes another viewer from the room, optionally banning their address.
func (c *Client) Kick(target core.SessionID, ban bool) error {
	room := c.Room()
	if room == nil || !room.IsHost(c) {
		c.reject("not_host", msgNotHost)
		return ErrNotHost
	}
	victim := room.FindClient(target)
	if victim == nil {
		c.reject("unknown_peer", "That viewer is no longer in the game.")
		return ErrUnknownPeer
	}
	c.logger.Info().Str("target", string(target)).Bool("ban", ban).Msg("removing viewer")
	room.RemoveClient(victim, ban)
	return nil
}

// Disconnect is called by the transport once the connection is gone.
func (c *Client) Disconnect() {
	c.Leave()
	c.registry.disconnect(c)
}

// BadCommand tells the viewer a command it sent could not be decoded.
func (c *Client) BadCommand(err error) {
	c.reject("bad_payload", "Invalid request: "+err.Error())
}

func (c *Client) reject(reason, msg string) {
	metrics.RejectedCommands.WithLabelValues(reason).Inc()
	c.sendError(msg, false)
}

func (c *Client) send(event string, data any) {
	frame, err := json.Marshal(outFrame{Type: event, Data: data})
	if err != nil {
		c.logger.Error().Err(err).Str("event", event).Msg("marshal frame")
		return
	}
	if err := c.conn.TrySend(frame); err != nil {
		switch c.registry.policy.OnBackPressure(c, event) {
		case DropFrame:
			metrics.DroppedFrames.Inc()
		case KickClient:
			c.logger.Warn().Err(err).Str("event", event).Msg("viewer backed up, closing connection")
			c.conn.Close()
		case NoAction:
		}
	}
}

func (c *Client) sendUUID() { c.send(EventSetUUID, c.id) }

func (c *Client) sendError(msg string, fatal bool) {
	c.send(EventError, errorData{Message: msg, Fatal: fatal})
}

func (c *Client) syncAllViewers(roster []ViewerDTO) {
	c.send(EventSyncAllViewers, roster)
}

func (c *Client) addParticipant(uuid core.SessionID, name string, p domain.PlayerState) {
	c.send(EventAddParticipant, addParticipantData{
		UUID:     uuid,
		Name:     name,
		Position: p.Pose,
		Flags:    p.Flags,
		Color:    p.Color,
	})
}

func (c *Client) removeParticipant(uuid core.SessionID, ban bool) {
	c.send(EventRemoveParticipant, removeParticipantData{UUID: uuid, Ban: ban})
}

func (c *Client) setPoseOf(uuid core.SessionID, pose domain.Pose) {
	c.send(EventSetPoseOf, poseOfData{UUID: uuid, Position: pose})
}

func (c *Client) setVentOf(uuid core.SessionID, vent int) {
	c.send(EventSetVentOf, ventOfData{UUID: uuid, VentID: vent})
}

func (c *Client) setNameOf(uuid core.SessionID, name string) {
	c.send(EventSetNameOf, nameOfData{UUID: uuid, Name: name})
}

func (c *Client) setColorOf(uuid core.SessionID, color domain.Color) {
	c.send(EventSetColorOf, colorOfData{UUID: uuid, Color: color})
}

func (c *Client) setHatOf(uuid core.SessionID, hat domain.Hat) {
	c.send(EventSetHatOf, hatOfData{UUID: uuid, Hat: hat})
}

func (c *Client) setSkinOf(uuid core.SessionID, skin domain.Skin) {
	c.send(EventSetSkinOf, skinOfData{UUID: uuid, Skin: skin})
}

func (c *Client) setFlagsOf(uuid core.SessionID, flags domain.PlayerFlags) {
	c.send(EventSetFlagsOf, flagsOfData{UUID: uuid, Flags: flags})
}

func (c *Client) setHost(uuid core.SessionID) {
	c.send(EventSetHost, hostData{UUID: uuid})
}

func (c *Client) setOptions(opts domain.HostOptions) {
	c.send(EventSetOptions, optionsData{Options: opts})
}

func (c *Client) setSettings(s domain.GameSettings) {
	c.send(EventSetSettings, settingsData{Settings: s})
}

func (c *Client) setGameState(s domain.GameState) {
	c.send(EventSetGameState, gameStateData{State: s})
}

func (c *Client) setGameFlags(flags domain.GameFlags) {
	c.send(EventSetGameFlags, gameFlagsData{Flags: flags})
}
