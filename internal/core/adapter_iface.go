package core

import (
	"context"

	"github.com/dkeye/proximity/internal/domain"
)

// Adapter connects to exactly one upstream game source and reports what happens in it as Facts.
type Adapter interface {
	// Initialize starts connecting to the upstream source. It may block on network I/O and
	// returns once the connection is established or has failed.
	Initialize(ctx context.Context) error
	// Destroy stops the connection. Safe to call more than once.
	Destroy()
	Destroyed() bool
}

// FactSink receives facts in the order the adapter produced them.
type FactSink func(Fact)

type AdapterFactory interface {
	Build(id domain.SessionIdentity, sink FactSink) Adapter
}
