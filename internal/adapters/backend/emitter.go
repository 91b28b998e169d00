// Package backend holds the upstream game-state adapters. Each adapter talks to one
// session of one source and reports it as core.Fact values.
package backend

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dkeye/proximity/internal/core"
	"github.com/dkeye/proximity/internal/domain"
)

// emitter is embedded by every adapter. It owns the destroyed flag and drops
// anything emitted after it is set.
type emitter struct {
	sink      core.FactSink
	destroyed atomic.Bool
	logger    zerolog.Logger
}

func newEmitter(sink core.FactSink, logger zerolog.Logger) emitter {
	if sink == nil {
		sink = func(core.Fact) {}
	}
	return emitter{sink: sink, logger: logger}
}

func (e *emitter) Destroyed() bool { return e.destroyed.Load() }

// markDestroyed reports whether this call flipped the flag.
func (e *emitter) markDestroyed() bool { return e.destroyed.CompareAndSwap(false, true) }

func (e *emitter) emit(f core.Fact) {
	if e.destroyed.Load() {
		e.logger.Debug().Str("fact", f.Kind()).Msg("dropping fact after destroy")
		return
	}
	e.sink(f)
}

func (e *emitter) emitPlayerPose(id domain.ClientID, pose domain.Pose) {
	e.emit(core.PlayerPoseFact{ClientID: id, Pose: pose})
}

func (e *emitter) emitPlayerVent(id domain.ClientID, vent int) {
	e.emit(core.PlayerVentFact{ClientID: id, VentID: vent})
}

func (e *emitter) emitPlayerName(id domain.ClientID, name string) {
	e.emit(core.PlayerNameFact{ClientID: id, Name: name})
}

func (e *emitter) emitPlayerColor(id domain.ClientID, color domain.Color) {
	e.emit(core.PlayerColorFact{ClientID: id, Color: color})
}

func (e *emitter) emitPlayerHat(id domain.ClientID, hat domain.Hat) {
	e.emit(core.PlayerHatFact{ClientID: id, Hat: hat})
}

func (e *emitter) emitPlayerSkin(id domain.ClientID, skin domain.Skin) {
	e.emit(core.PlayerSkinFact{ClientID: id, Skin: skin})
}

func (e *emitter) emitPlayerFlag(id domain.ClientID, flag domain.PlayerFlag, set bool) {
	e.emit(core.PlayerFlagFact{ClientID: id, Flag: flag, Set: set})
}

func (e *emitter) emitHostChange(id domain.ClientID) {
	e.emit(core.HostChangeFact{ClientID: id})
}

func (e *emitter) emitGameState(state domain.GameState) {
	e.emit(core.GameStateFact{State: state})
}

func (e *emitter) emitGameFlag(flag domain.GameFlag, set bool) {
	e.emit(core.GameFlagFact{Flag: flag, Set: set})
}

func (e *emitter) emitSettings(settings domain.GameSettings) {
	e.emit(core.SettingsFact{Settings: settings})
}

func (e *emitter) emitError(msg string, fatal bool) {
	e.emit(core.ErrorFact{Message: msg, Fatal: fatal})
}
