package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/proximity/internal/core"
	"github.com/dkeye/proximity/internal/domain"
)

// CustomServer follows a game on a private server through the companion plugin's
// JSON-over-websocket feed.
type CustomServer struct {
	emitter
	identity domain.SessionIdentity
	url      string
	dialer   *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc

	// owned by the read loop
	gameCode int32
	players  map[domain.ClientID]*recordedPlayer
	settings domain.GameSettings
}

func NewCustomServer(id domain.SessionIdentity, opts Options, sink core.FactSink) *CustomServer {
	addr := hostPort(id.IP, opts.Port)
	logger := log.With().
		Str("module", "backend.custom").
		Str("game", id.GameCode).
		Str("addr", addr).
		Logger()
	return &CustomServer{
		emitter:  newEmitter(sink, logger),
		identity: id,
		url:      "ws://" + addr,
		dialer:   opts.dialer(),
		players:  make(map[domain.ClientID]*recordedPlayer),
		settings: domain.DefaultGameSettings(),
	}
}

func (c *CustomServer) Initialize(ctx context.Context) error {
	code, err := domain.GameCodeToInt(c.identity.GameCode)
	if err != nil {
		return fmt.Errorf("game code %q: %w", c.identity.GameCode, err)
	}
	c.gameCode = code

	c.logger.Info().Msg("connecting to custom server")
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	if c.Destroyed() {
		c.mu.Unlock()
		cancel()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	c.cancel = cancel
	c.mu.Unlock()

	if err := c.send(opHello, helloPayload{GameCode: code}); err != nil {
		c.Destroy()
		return fmt.Errorf("hello: %w", err)
	}
	c.logger.Info().Int32("code", code).Msg("socket open, sent hello")

	go c.readLoop(loopCtx, conn)
	return nil
}

func (c *CustomServer) Destroy() {
	if !c.markDestroyed() {
		return
	}
	c.mu.Lock()
	conn, cancel := c.conn, c.cancel
	c.conn, c.cancel = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline())
		_ = conn.Close()
	}
	c.logger.Info().Msg("destroyed custom server backend")
}

func (c *CustomServer) send(op string, payload any) error {
	d, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(envelope{Op: op, D: d})
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.New("connection closed")
	}
	if err := c.conn.SetWriteDeadline(deadline()); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *CustomServer) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.Destroyed() || ctx.Err() != nil {
				return
			}
			c.logger.Warn().Err(err).Msg("custom server connection lost")
			c.emitError("Lost connection to the custom server.", true)
			c.Destroy()
			return
		}
		c.handleMessage(data)
	}
}

func (c *CustomServer) handleMessage(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn().Err(err).Str("data", string(data)).Msg("bad websocket message")
		return
	}
	var code gameCodePayload
	if err := json.Unmarshal(env.D, &code); err != nil {
		c.logger.Warn().Err(err).Str("op", env.Op).Msg("bad message payload")
		return
	}
	if code.GameCode == nil || *code.GameCode != c.gameCode {
		return
	}
	if err := c.dispatch(env.Op, env.D); err != nil {
		c.logger.Warn().Err(err).Str("op", env.Op).Msg("error while processing websocket message")
	}
}

func (c *CustomServer) dispatch(op string, d json.RawMessage) error {
	switch op {
	case opError:
		var p errorPayload
		if err := json.Unmarshal(d, &p); err != nil {
			return err
		}
		c.logger.Error().Str("error", p.Error).Msg("custom server reported an error")
		c.emitError("The custom server reported an error: "+p.Error, true)
		c.Destroy()

	case opDestroy:
		c.logger.Info().Msg("the server destroyed the room")
		c.emitError("The game was closed by the server.", true)
		c.Destroy()

	case opHostUpdate:
		var p clientPayload
		if err := json.Unmarshal(d, &p); err != nil {
			return err
		}
		c.logger.Info().Str("player", c.fmtPlayer(p.ClientID)).Msg("host changed")
		c.emitHostChange(p.ClientID)

	case opPlayerMove:
		var p movePayload
		if err := json.Unmarshal(d, &p); err != nil {
			return err
		}
		c.logger.Trace().Str("player", c.fmtPlayer(p.ClientID)).Float64("x", p.X).Float64("y", p.Y).Msg("moved")
		c.emitPlayerPose(p.ClientID, domain.Pose{X: p.X, Y: p.Y})

	case opPlayerUpdate:
		var p playerUpdatePayload
		if err := json.Unmarshal(d, &p); err != nil {
			return err
		}
		c.updatePlayer(p)

	case opSettingsUpdate:
		var p settingsPayload
		if err := json.Unmarshal(d, &p); err != nil {
			return err
		}
		if p.Map != nil {
			c.settings.Map = *p.Map
		}
		if p.CrewmateVision != nil {
			c.settings.CrewmateVision = *p.CrewmateVision
		}
		c.logger.Info().Int("map", int(c.settings.Map)).Float64("vision", c.settings.CrewmateVision).Msg("settings updated")
		c.emitSettings(c.settings)

	case opGameStart:
		c.logger.Info().Msg("game started")
		c.emitGameState(domain.GameStateGame)

	case opGameEnd:
		c.logger.Info().Msg("game ended")
		c.emitGameState(domain.GameStateLobby)

	case opMeetingStart:
		c.logger.Info().Msg("meeting started")
		c.emitGameState(domain.GameStateMeeting)

	case opMeetingEnd:
		var p meetingEndPayload
		if err := json.Unmarshal(d, &p); err != nil {
			return err
		}
		if p.EjectedClientID != nil && *p.EjectedClientID != 0 {
			c.logger.Info().Str("player", c.fmtPlayer(*p.EjectedClientID)).Msg("voted off")
			c.emitPlayerFlag(*p.EjectedClientID, domain.PlayerFlagIsDead, true)
		} else {
			c.logger.Info().Msg("meeting ended, no one was voted off")
		}
		c.emitGameState(domain.GameStateGame)

	case opPlayerKill:
		var p clientPayload
		if err := json.Unmarshal(d, &p); err != nil {
			return err
		}
		c.logger.Info().Str("player", c.fmtPlayer(p.ClientID)).Msg("murdered")
		c.emitPlayerFlag(p.ClientID, domain.PlayerFlagIsDead, true)

	case opImpostorsUpdate:
		var p impostorsPayload
		if err := json.Unmarshal(d, &p); err != nil {
			return err
		}
		for id := range c.players {
			c.emitPlayerFlag(id, domain.PlayerFlagIsImpostor, false)
		}
		for _, id := range p.ClientIDs {
			c.logger.Info().Str("player", c.fmtPlayer(id)).Msg("made impostor")
			c.emitPlayerFlag(id, domain.PlayerFlagIsImpostor, true)
		}

	case opCamsPlayerJoin, opCamsPlayerLeave:
		var p clientPayload
		if err := json.Unmarshal(d, &p); err != nil {
			return err
		}
		on := op == opCamsPlayerJoin
		c.logger.Info().Str("player", c.fmtPlayer(p.ClientID)).Bool("on_cams", on).Msg("cameras")
		c.emitPlayerFlag(p.ClientID, domain.PlayerFlagOnCams, on)

	case opCommsSabotage:
		c.logger.Info().Msg("communications sabotaged")
		c.emitGameFlag(domain.GameFlagCommsSabotaged, true)

	case opCommsRepair:
		c.logger.Info().Msg("communications repaired")
		c.emitGameFlag(domain.GameFlagCommsSabotaged, false)

	case opPlayerVentEnter, opPlayerVentEnterLegacy:
		var p ventEnterPayload
		if err := json.Unmarshal(d, &p); err != nil {
			return err
		}
		c.logger.Debug().Str("player", c.fmtPlayer(p.ClientID)).Int("vent", p.VentID).Msg("entered vent")
		c.emitPlayerVent(p.ClientID, p.VentID)

	case opPlayerVentExit:
		var p clientPayload
		if err := json.Unmarshal(d, &p); err != nil {
			return err
		}
		c.logger.Debug().Str("player", c.fmtPlayer(p.ClientID)).Msg("exited vent")
		c.emitPlayerVent(p.ClientID, domain.NoVent)

	default:
		c.logger.Debug().Str("op", op).Msg("unknown op")
	}
	return nil
}

func (c *CustomServer) updatePlayer(p playerUpdatePayload) {
	player := c.player(p.ClientID)
	if p.Name != nil {
		player.name = *p.Name
		c.logger.Info().Str("player", c.fmtPlayer(p.ClientID)).Msg("set name")
		c.emitPlayerName(p.ClientID, player.name)
	}
	if p.Color != nil {
		player.color = *p.Color
		c.emitPlayerColor(p.ClientID, player.color)
	}
	if p.Hat != nil {
		c.emitPlayerHat(p.ClientID, *p.Hat)
	}
	if p.Skin != nil {
		c.emitPlayerSkin(p.ClientID, *p.Skin)
	}
}

func (c *CustomServer) player(id domain.ClientID) *recordedPlayer {
	if p, ok := c.players[id]; ok {
		return p
	}
	p := &recordedPlayer{color: domain.ColorNone}
	c.players[id] = p
	return p
}

func (c *CustomServer) fmtPlayer(id domain.ClientID) string {
	p := c.player(id)
	name := p.name
	if name == "" {
		name = "<No Name>"
	}
	if p.color == domain.ColorNone {
		return fmt.Sprintf("%s (%d)", name, id)
	}
	return fmt.Sprintf("%s (%d, color %d)", name, id, p.color)
}
