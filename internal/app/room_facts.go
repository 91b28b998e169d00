package app

import (
	"github.com/dkeye/proximity/internal/core"
	"github.com/dkeye/proximity/internal/domain"
	"github.com/dkeye/proximity/internal/metrics"
)

// handleFact is the room's core.FactSink.
func (r *Room) handleFact(f core.Fact) {
	if r.adapter != nil && r.adapter.Destroyed() {
		return
	}
	r.apply(f)
}

func (r *Room) apply(f core.Fact) {
	metrics.Facts.WithLabelValues(f.Kind()).Inc()

	r.mu.Lock()
	if r.closed.Load() {
		r.mu.Unlock()
		return
	}
	closing := r.applyLocked(f)
	r.mu.Unlock()

	if closing {
		r.finish()
	}
}

// applyLocked mutates room state for one fact and fans the change out. It reports
// whether the fact closed the room.
func (r *Room) applyLocked(f core.Fact) bool {
	switch f := f.(type) {
	case core.PlayerPoseFact:
		r.players.get(f.ClientID).Pose = f.Pose
		if b := r.clientFor(f.ClientID); b != nil {
			for _, c := range r.clients {
				c.setPoseOf(b.ID(), f.Pose)
			}
		}

	case core.PlayerVentFact:
		r.players.get(f.ClientID).VentID = f.VentID
		if b := r.clientFor(f.ClientID); b != nil {
			for _, c := range r.clients {
				c.setVentOf(b.ID(), f.VentID)
			}
		}

	case core.PlayerNameFact:
		p := r.players.get(f.ClientID)
		p.Name = f.Name
		if r.clientFor(f.ClientID) == nil {
			if b := r.unboundByName(f.Name); b != nil {
				b.bind(f.ClientID)
				r.announceBinding(b, p)
			}
		}

	case core.PlayerColorFact:
		r.players.get(f.ClientID).Color = f.Color
		if b := r.clientFor(f.ClientID); b != nil {
			for _, c := range r.clients {
				c.setColorOf(b.ID(), f.Color)
			}
		}

	case core.PlayerHatFact:
		r.players.get(f.ClientID).Hat = f.Hat
		if b := r.clientFor(f.ClientID); b != nil {
			for _, c := range r.clients {
				c.setHatOf(b.ID(), f.Hat)
			}
		}

	case core.PlayerSkinFact:
		r.players.get(f.ClientID).Skin = f.Skin
		if b := r.clientFor(f.ClientID); b != nil {
			for _, c := range r.clients {
				c.setSkinOf(b.ID(), f.Skin)
			}
		}

	case core.PlayerFlagFact:
		p := r.players.get(f.ClientID)
		p.Flags.Set(f.Flag, f.Set)
		if b := r.clientFor(f.ClientID); b != nil {
			for _, c := range r.clients {
				c.setFlagsOf(b.ID(), p.Flags)
			}
		}

	case core.HostChangeFact:
		r.host = f.ClientID
		if b := r.clientFor(f.ClientID); b != nil {
			for _, c := range r.clients {
				c.setHost(b.ID())
			}
		}

	case core.GameStateFact:
		r.setState(f.State)

	case core.GameFlagFact:
		r.flags.Set(f.Flag, f.Set)
		for _, c := range r.clients {
			c.setGameFlags(r.flags)
		}

	case core.SettingsFact:
		r.settings = f.Settings
		for _, c := range r.clients {
			c.setSettings(r.settings)
		}

	case core.ErrorFact:
		r.logger.Warn().Str("error", f.Message).Bool("fatal", f.Fatal).Msg("backend error")
		r.broadcastError(f.Message, f.Fatal)
		if f.Fatal {
			return r.teardownLocked()
		}

	default:
		r.logger.Debug().Str("fact", f.Kind()).Msg("unhandled fact")
	}
	return false
}

func (r *Room) setState(state domain.GameState) {
	r.state = state
	lobby := state == domain.GameStateLobby
	if lobby {
		r.flags.Clear()
		r.players.each(func(p *domain.PlayerState) { p.Flags.Clear() })
		close(r.lobby)
		r.lobby = make(chan struct{})
	}
	r.logger.Info().Str("state", state.String()).Msg("game state changed")

	for _, c := range r.clients {
		c.setGameState(state)
		if lobby {
			c.setGameFlags(r.flags)
		}
		r.players.each(func(p *domain.PlayerState) {
			if b := r.clientFor(p.ClientID); b != nil {
				c.setFlagsOf(b.ID(), p.Flags)
			}
		})
	}
}

// unboundByName returns the first viewer without a participant whose display name
// matches name.
func (r *Room) unboundByName(name string) *Client {
	for _, c := range r.clients {
		if c.Participant() == domain.NoParticipant && domain.SameName(c.Name(), name) {
			return c
		}
	}
	return nil
}

// announceBinding catches every viewer up after b was bound to p late.
func (r *Room) announceBinding(b *Client, p *domain.PlayerState) {
	r.logger.Info().Str("sid", string(b.ID())).Int32("participant", int32(p.ClientID)).Msg("viewer bound to participant")
	for _, c := range r.clients {
		c.setPoseOf(b.ID(), p.Pose)
		c.setColorOf(b.ID(), p.Color)
		c.setFlagsOf(b.ID(), p.Flags)
	}
	b.setNameOf(b.ID(), p.Name)
	b.setHatOf(b.ID(), p.Hat)
	b.setSkinOf(b.ID(), p.Skin)
	if p.ClientID == r.host {
		for _, c := range r.clients {
			c.setHost(b.ID())
		}
	}
}
