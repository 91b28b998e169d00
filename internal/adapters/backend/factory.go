package backend

import (
	"net"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/proximity/internal/core"
	"github.com/dkeye/proximity/internal/domain"
)

const (
	DefaultCustomServerPort = 22044
	DefaultDialTimeout      = 10 * time.Second
	DefaultMoveInterval     = 300 * time.Millisecond
	DefaultPingInterval     = 15 * time.Second

	writeWait = 5 * time.Second
)

// Options configures the network adapters. Zero values fall back to the defaults above.
type Options struct {
	Port         int
	DialTimeout  time.Duration
	MoveInterval time.Duration
	PingInterval time.Duration
	// Dialer overrides the websocket dialer, mostly for tests.
	Dialer  *websocket.Dialer
	Tracker LobbyTracker
}

func (o Options) dialer() *websocket.Dialer {
	if o.Dialer != nil {
		return o.Dialer
	}
	timeout := o.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	return &websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: timeout,
	}
}

func (o Options) moveInterval() time.Duration {
	if o.MoveInterval <= 0 {
		return DefaultMoveInterval
	}
	return o.MoveInterval
}

func (o Options) pingInterval() time.Duration {
	if o.PingInterval <= 0 {
		return DefaultPingInterval
	}
	return o.PingInterval
}

// hostPort keeps an explicit port in ip and otherwise appends port.
func hostPort(ip string, port int) string {
	if _, _, err := net.SplitHostPort(ip); err == nil {
		return ip
	}
	if port <= 0 {
		port = DefaultCustomServerPort
	}
	return net.JoinHostPort(ip, strconv.Itoa(port))
}

func deadline() time.Time { return time.Now().Add(writeWait) }

// Factory builds the adapter matching an identity's backend type.
type Factory struct {
	opts Options
}

func NewFactory(opts Options) *Factory {
	return &Factory{opts: opts}
}

var _ core.AdapterFactory = (*Factory)(nil)

func (f *Factory) Build(id domain.SessionIdentity, sink core.FactSink) core.Adapter {
	switch id.Type {
	case domain.BackendPublicLobby:
		return NewPublicLobby(id, f.opts.Tracker, sink)
	case domain.BackendCustomServer:
		return NewCustomServer(id, f.opts, sink)
	case domain.BackendImpostor:
		return NewImpostor(id, f.opts, sink)
	case domain.BackendNoOp:
		return NewNoOp(sink)
	default:
		log.Warn().Str("module", "backend").Str("backend", id.Type.String()).Msg("unknown backend type, using no-op")
		return NewNoOp(sink)
	}
}
