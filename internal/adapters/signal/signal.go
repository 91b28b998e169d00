package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/proximity/internal/app"
	"github.com/dkeye/proximity/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	errConnClosed   = errors.New("connection closed")
)

const (
	DefaultReadLimit  = 32768
	DefaultPingPeriod = 54 * time.Second

	sendBuffer = 64
	writeWait  = 5 * time.Second
)

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
}

// SignalWSController serves the viewer websocket and turns its commands into
// calls on the registry's clients.
type SignalWSController struct {
	Registry *app.Registry

	readLimit  int64
	pingPeriod time.Duration
	validate   *validator.Validate
}

func NewSignalWSController(reg *app.Registry, opts Options) *SignalWSController {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = DefaultReadLimit
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = DefaultPingPeriod
	}
	return &SignalWSController{
		Registry:   reg,
		readLimit:  opts.ReadLimit,
		pingPeriod: opts.PingPeriod,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// pongWait is how long a viewer may stay silent before its connection is dropped.
func (ctl *SignalWSController) pongWait() time.Duration {
	return ctl.pingPeriod * 10 / 9
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and registers a new viewer. Every connection gets
// a fresh id; the browser token is only carried for logs.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(uuid.NewString())
	logger := log.With().Str("module", "signal").Str("sid", string(sid)).Logger()
	logger.Info().Str("token", c.GetString("client_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error().Err(err).Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, sendBuffer),
	}
	client := ctl.Registry.Connect(sid, c.ClientIP(), conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, client, conn)
	}()
}
