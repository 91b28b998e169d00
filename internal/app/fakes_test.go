package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/proximity/internal/core"
	"github.com/dkeye/proximity/internal/domain"
)

var errFull = errors.New("backpressure")

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// fakeConn records every frame sent to a viewer.
type fakeConn struct {
	mu     sync.Mutex
	frames []frame
	full   bool
	closed bool
}

func (f *fakeConn) TrySend(data core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("connection closed")
	}
	if f.full {
		return errFull
	}
	var fr frame
	if err := json.Unmarshal(data, &fr); err != nil {
		return err
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) setFull(full bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.full = full
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

func (f *fakeConn) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.frames))
	for _, fr := range f.frames {
		out = append(out, fr.Type)
	}
	return out
}

// all decodes the data of every frame of the given type into a fresh T.
func all[T any](t *testing.T, f *fakeConn, event string) []T {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []T
	for _, fr := range f.frames {
		if fr.Type != event {
			continue
		}
		var v T
		require.NoError(t, json.Unmarshal(fr.Data, &v))
		out = append(out, v)
	}
	return out
}

// last decodes the most recent frame of the given type.
func last[T any](t *testing.T, f *fakeConn, event string) T {
	t.Helper()
	got := all[T](t, f, event)
	require.NotEmpty(t, got, "no %s frame", event)
	return got[len(got)-1]
}

type fakeAdapter struct {
	id       domain.SessionIdentity
	sink     core.FactSink
	initErr  error
	inits    atomic.Int32
	destroys atomic.Int32
	dead     atomic.Bool
}

func (a *fakeAdapter) Initialize(context.Context) error {
	a.inits.Add(1)
	return a.initErr
}

func (a *fakeAdapter) Destroy() {
	a.destroys.Add(1)
	a.dead.Store(true)
}

func (a *fakeAdapter) Destroyed() bool { return a.dead.Load() }

func (a *fakeAdapter) emit(f core.Fact) { a.sink(f) }

type fakeFactory struct {
	mu      sync.Mutex
	built   []*fakeAdapter
	initErr error
}

func (f *fakeFactory) Build(id domain.SessionIdentity, sink core.FactSink) core.Adapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &fakeAdapter{id: id, sink: sink, initErr: f.initErr}
	f.built = append(f.built, a)
	return a
}

func (f *fakeFactory) adapter(i int) *fakeAdapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.built[i]
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.built)
}

var customGame = domain.SessionIdentity{Type: domain.BackendCustomServer, GameCode: "ABCDE", IP: "1.2.3.4"}

func newTestRegistry(t *testing.T) (*Registry, *fakeFactory) {
	t.Helper()
	f := &fakeFactory{}
	return NewRegistry(f, Options{}), f
}

func connect(reg *Registry, sid, addr string) (*Client, *fakeConn) {
	conn := &fakeConn{}
	return reg.Connect(core.SessionID(sid), addr, conn), conn
}

func joinAs(t *testing.T, reg *Registry, sid, name string) (*Client, *fakeConn) {
	t.Helper()
	c, conn := connect(reg, sid, "10.0.0."+sid)
	require.NoError(t, c.Join(name, customGame))
	return c, conn
}

type uuidOnly struct {
	UUID core.SessionID `json:"uuid"`
}

type poseOf struct {
	UUID     core.SessionID `json:"uuid"`
	Position domain.Pose    `json:"position"`
}

type flagsOf struct {
	UUID  core.SessionID      `json:"uuid"`
	Flags []domain.PlayerFlag `json:"flags"`
}
