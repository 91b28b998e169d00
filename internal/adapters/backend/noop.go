package backend

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/proximity/internal/core"
)

// NoOp is used when no upstream source is configured. It never emits.
type NoOp struct {
	emitter
}

func NewNoOp(sink core.FactSink) *NoOp {
	return &NoOp{emitter: newEmitter(sink, log.With().Str("module", "backend.noop").Logger())}
}

func (n *NoOp) Initialize(context.Context) error { return nil }

func (n *NoOp) Destroy() { n.markDestroyed() }
