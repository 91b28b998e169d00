package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/proximity/internal/core"
	"github.com/dkeye/proximity/internal/domain"
)

var ErrTrackerUnavailable = errors.New("public lobby tracking is not available on this server")

// LobbyTracker is the client library for the public matchmaking network. It joins the
// given lobby as a spectator, decodes the native protocol and pushes canonical facts
// into sink until stop is called.
type LobbyTracker interface {
	Track(ctx context.Context, region domain.Region, code string, sink core.FactSink) (stop func(), err error)
}

// PublicLobby follows a game hosted on the official servers through a LobbyTracker.
type PublicLobby struct {
	emitter
	identity domain.SessionIdentity
	tracker  LobbyTracker

	mu   sync.Mutex
	stop func()
}

func NewPublicLobby(id domain.SessionIdentity, tracker LobbyTracker, sink core.FactSink) *PublicLobby {
	logger := log.With().
		Str("module", "backend.public").
		Str("game", id.GameCode).
		Str("region", string(id.Region)).
		Logger()
	return &PublicLobby{
		emitter:  newEmitter(sink, logger),
		identity: id,
		tracker:  tracker,
	}
}

func (p *PublicLobby) Initialize(ctx context.Context) error {
	if p.tracker == nil {
		return ErrTrackerUnavailable
	}
	p.logger.Info().Msg("tracking public lobby")
	stop, err := p.tracker.Track(ctx, p.identity.Region, p.identity.GameCode, p.emit)
	if err != nil {
		return fmt.Errorf("track %s: %w", p.identity, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Destroyed() {
		stop()
		return nil
	}
	p.stop = stop
	return nil
}

func (p *PublicLobby) Destroy() {
	if !p.markDestroyed() {
		return
	}
	p.mu.Lock()
	stop := p.stop
	p.stop = nil
	p.mu.Unlock()
	if stop != nil {
		stop()
	}
	p.logger.Info().Msg("destroyed public lobby backend")
}
