package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/proximity/internal/core"
	"github.com/dkeye/proximity/internal/domain"
)

// SignalR JSON hub protocol framing.
const recordSeparator = 0x1e

const (
	hubInvocation = 1
	hubPing       = 6
	hubClose      = 7
)

// Relay hub methods.
const (
	hubTrackGame      = "TrackGame"
	hubHostChange     = "HostChange"
	hubSettingsUpdate = "SettingsUpdate"
	hubGameStarted    = "GameStarted"
	hubPlayerMove     = "PlayerMove"
	hubMeetingCalled  = "MeetingCalled"
	hubPlayerExiled   = "PlayerExiled"
	hubCommsSabotage  = "CommsSabotage"
	hubGameEnd        = "GameEnd"
)

var errHandshake = errors.New("signalr handshake rejected")

type hubMessage struct {
	Type      int               `json:"type"`
	Target    string            `json:"target,omitempty"`
	Arguments []json.RawMessage `json:"arguments,omitempty"`
	Error     string            `json:"error,omitempty"`
}

type hubCall struct {
	Type      int    `json:"type"`
	Target    string `json:"target"`
	Arguments []any  `json:"arguments"`
}

// Impostor follows a game on an Impostor server through its hosted SignalR relay.
// The relay identifies players by name only, so ids are assigned locally.
type Impostor struct {
	emitter
	identity     domain.SessionIdentity
	url          string
	dialer       *websocket.Dialer
	pingInterval time.Duration
	moves        *poseCoalescer

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc

	// owned by the read loop
	ids    map[string]domain.ClientID
	lastID domain.ClientID
}

func NewImpostor(id domain.SessionIdentity, opts Options, sink core.FactSink) *Impostor {
	addr := hostPort(id.IP, opts.Port)
	logger := log.With().
		Str("module", "backend.impostor").
		Str("game", id.GameCode).
		Str("addr", addr).
		Logger()
	im := &Impostor{
		emitter:      newEmitter(sink, logger),
		identity:     id,
		url:          "ws://" + addr + "/hub",
		dialer:       opts.dialer(),
		pingInterval: opts.pingInterval(),
		ids:          make(map[string]domain.ClientID),
	}
	im.moves = newPoseCoalescer(opts.moveInterval(), im.emitPlayerPose)
	return im
}

func (im *Impostor) Initialize(ctx context.Context) error {
	im.logger.Info().Str("url", im.url).Msg("connecting to impostor relay")
	conn, _, err := im.dialer.DialContext(ctx, im.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", im.url, err)
	}

	rest, err := handshake(conn)
	if err != nil {
		_ = conn.Close()
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	im.mu.Lock()
	if im.Destroyed() {
		im.mu.Unlock()
		cancel()
		_ = conn.Close()
		return nil
	}
	im.conn = conn
	im.cancel = cancel
	im.mu.Unlock()

	if err := im.write(hubCall{Type: hubInvocation, Target: hubTrackGame, Arguments: []any{im.identity.GameCode}}); err != nil {
		im.Destroy()
		return fmt.Errorf("track game: %w", err)
	}
	im.logger.Info().Msg("impostor backend initialized")

	for _, rec := range rest {
		im.handleRecord(rec)
	}
	go im.readLoop(loopCtx, conn)
	go im.pingLoop(loopCtx)
	return nil
}

func (im *Impostor) Destroy() {
	if !im.markDestroyed() {
		return
	}
	im.moves.Stop()

	im.mu.Lock()
	conn, cancel := im.conn, im.cancel
	im.conn, im.cancel = nil, nil
	im.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	im.logger.Info().Msg("destroyed impostor backend")
}

// handshake negotiates the JSON hub protocol and returns any records that arrived
// in the same frame as the handshake response.
func handshake(conn *websocket.Conn) ([][]byte, error) {
	req := append([]byte(`{"protocol":"json","version":1}`), recordSeparator)
	if err := conn.SetWriteDeadline(deadline()); err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
		return nil, fmt.Errorf("handshake: %w", err)
	}
	if err := conn.SetReadDeadline(deadline()); err != nil {
		return nil, err
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("handshake: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	records := splitRecords(data)
	if len(records) == 0 {
		return nil, errHandshake
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(records[0], &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", errHandshake, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", errHandshake, resp.Error)
	}
	return records[1:], nil
}

func splitRecords(data []byte) [][]byte {
	var out [][]byte
	for _, rec := range bytes.Split(data, []byte{recordSeparator}) {
		if len(bytes.TrimSpace(rec)) > 0 {
			out = append(out, rec)
		}
	}
	return out
}

func (im *Impostor) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, recordSeparator)

	im.mu.Lock()
	defer im.mu.Unlock()
	if im.conn == nil {
		return errors.New("connection closed")
	}
	if err := im.conn.SetWriteDeadline(deadline()); err != nil {
		return err
	}
	return im.conn.WriteMessage(websocket.TextMessage, data)
}

func (im *Impostor) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(im.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := im.write(hubMessage{Type: hubPing}); err != nil {
				im.logger.Debug().Err(err).Msg("ping failed")
				return
			}
		}
	}
}

func (im *Impostor) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if im.Destroyed() || ctx.Err() != nil {
				return
			}
			im.logger.Warn().Err(err).Msg("impostor relay connection lost")
			im.emitError("Lost connection to the Impostor server.", true)
			im.Destroy()
			return
		}
		for _, rec := range splitRecords(data) {
			im.handleRecord(rec)
		}
	}
}

func (im *Impostor) handleRecord(rec []byte) {
	var msg hubMessage
	if err := json.Unmarshal(rec, &msg); err != nil {
		im.logger.Warn().Err(err).Str("data", string(rec)).Msg("bad hub message")
		return
	}
	switch msg.Type {
	case hubInvocation:
		if err := im.dispatch(msg.Target, msg.Arguments); err != nil {
			im.logger.Warn().Err(err).Str("target", msg.Target).Msg("error in impostor backend")
		}
	case hubPing:
	case hubClose:
		im.logger.Warn().Str("error", msg.Error).Msg("relay closed the connection")
		im.emitError("The Impostor server closed the connection.", true)
		im.Destroy()
	default:
		im.logger.Debug().Int("type", msg.Type).Msg("ignoring hub message")
	}
}

func (im *Impostor) dispatch(target string, args []json.RawMessage) error {
	switch target {
	case hubHostChange:
		var name string
		if err := arg(args, 0, &name); err != nil {
			return err
		}
		im.logger.Info().Str("name", name).Msg("host changed")
		im.emitHostChange(im.clientID(name))

	case hubSettingsUpdate:
		settings := domain.DefaultGameSettings()
		if err := arg(args, 0, &settings); err != nil {
			return err
		}
		im.emitSettings(settings)

	case hubGameStarted:
		im.emitGameState(domain.GameStateGame)

	case hubPlayerMove:
		var name string
		var pose domain.Pose
		if err := arg(args, 0, &name); err != nil {
			return err
		}
		if err := arg(args, 1, &pose); err != nil {
			return err
		}
		im.moves.Push(im.clientID(name), pose)

	case hubMeetingCalled:
		im.emitGameState(domain.GameStateMeeting)

	case hubPlayerExiled:
		var name string
		if err := arg(args, 0, &name); err != nil {
			return err
		}
		im.emitPlayerFlag(im.clientID(name), domain.PlayerFlagIsDead, true)

	case hubCommsSabotage:
		var fix bool
		if err := arg(args, 0, &fix); err != nil {
			return err
		}
		if fix {
			im.logger.Info().Msg("communications repaired")
		} else {
			im.logger.Info().Msg("communications sabotaged")
		}
		im.emitGameFlag(domain.GameFlagCommsSabotaged, !fix)

	case hubGameEnd:
		im.logger.Info().Msg("game ended")
		im.emitGameState(domain.GameStateLobby)

	default:
		im.logger.Debug().Str("target", target).Msg("unknown hub method")
	}
	return nil
}

// clientID maps a relay player name to a stable local id, announcing new names.
func (im *Impostor) clientID(name string) domain.ClientID {
	if id, ok := im.ids[name]; ok {
		return id
	}
	im.lastID++
	id := im.lastID
	im.ids[name] = id
	im.emitPlayerName(id, name)
	return id
}

func arg(args []json.RawMessage, i int, v any) error {
	if i >= len(args) {
		return fmt.Errorf("missing argument %d", i)
	}
	return json.Unmarshal(args[i], v)
}
