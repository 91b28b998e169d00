package app

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/proximity/internal/core"
	"github.com/dkeye/proximity/internal/domain"
	"github.com/dkeye/proximity/internal/metrics"
)

type Options struct {
	Policy         Policy
	JoinCooldown   time.Duration
	GameEndTimeout time.Duration
}

// Registry owns every live room and connected viewer of the process.
type Registry struct {
	factory        core.AdapterFactory
	policy         Policy
	limiter        *JoinLimiter
	gameEndTimeout time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	closing atomic.Bool

	mu      sync.RWMutex
	rooms   []*Room
	clients map[core.SessionID]*Client
}

func NewRegistry(factory core.AdapterFactory, opts Options) *Registry {
	if opts.Policy == nil {
		opts.Policy = SimplePolicy{}
	}
	if opts.JoinCooldown <= 0 {
		opts.JoinCooldown = DefaultJoinCooldown
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		factory:        factory,
		policy:         opts.Policy,
		limiter:        NewJoinLimiter(1, opts.JoinCooldown),
		gameEndTimeout: opts.GameEndTimeout,
		ctx:            ctx,
		cancel:         cancel,
		clients:        make(map[core.SessionID]*Client),
	}
}

// Connect registers a new viewer connection and tells it its id.
func (r *Registry) Connect(sid core.SessionID, addr string, conn core.SignalConnection) *Client {
	c := newClient(sid, addr, conn, r)

	r.mu.Lock()
	prev := r.clients[sid]
	r.clients[sid] = c
	r.mu.Unlock()

	if prev != nil {
		log.Warn().Str("module", "app.registry").Str("sid", string(sid)).Msg("replacing existing connection")
		prev.Leave()
		prev.conn.Close()
	} else {
		metrics.Clients.Inc()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("addr", addr).Msg("viewer connected")
	c.sendUUID()
	return c
}

func (r *Registry) Client(sid core.SessionID) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[sid]
	return c, ok
}

func (r *Registry) disconnect(c *Client) {
	r.mu.Lock()
	cur, ok := r.clients[c.ID()]
	if ok && cur == c {
		delete(r.clients, c.ID())
	}
	r.mu.Unlock()

	if ok && cur == c {
		metrics.Clients.Dec()
		r.limiter.Forget(c.ID())
		log.Info().Str("module", "app.registry").Str("sid", string(c.ID())).Msg("viewer disconnected")
	}
}

// Match returns the open room tracking identity, creating it if none exists. The new
// room's adapter is started when its first viewer is added.
func (r *Registry) Match(id domain.SessionIdentity) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, room := range r.rooms {
		if !room.Closed() && room.Identity().Matches(id) {
			return room
		}
	}
	room := newRoom(r.ctx, id, r.factory, r, r.gameEndTimeout)
	r.rooms = append(r.rooms, room)
	metrics.Rooms.WithLabelValues(id.Type.String()).Inc()
	log.Info().Str("module", "app.registry").Str("game", id.String()).Str("backend", id.Type.String()).Msg("created room")
	return room
}

func (r *Registry) removeRoom(room *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := slices.Index(r.rooms, room)
	if idx < 0 {
		return
	}
	r.rooms = slices.Delete(r.rooms, idx, idx+1)
	metrics.Rooms.WithLabelValues(room.Identity().Type.String()).Dec()
	log.Info().Str("module", "app.registry").Str("game", room.Identity().String()).Msg("removed room")
}

func (r *Registry) Rooms() []RoomInfo {
	r.mu.RLock()
	rooms := slices.Clone(r.rooms)
	r.mu.RUnlock()

	out := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Info())
	}
	return out
}

func (r *Registry) IsClosing() bool { return r.closing.Load() }

// Shutdown stops new joins and gracefully closes every room concurrently. It returns
// once every room is closed or ctx is done.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.closing.Store(true)

	r.mu.RLock()
	rooms := slices.Clone(r.rooms)
	r.mu.RUnlock()
	log.Info().Str("module", "app.registry").Int("rooms", len(rooms)).Msg("shutting down rooms")

	var wg conc.WaitGroup
	for _, room := range rooms {
		wg.Go(func() { room.GracefulClose(ctx) })
	}
	wg.Wait()
	r.cancel()
	return ctx.Err()
}
