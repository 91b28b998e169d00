package signal

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/proximity/internal/app"
)

// Viewer command types.
const (
	cmdJoinSession       = "join-session"
	cmdLeaveSession      = "leave-session"
	cmdSetHostOptions    = "set-host-options"
	cmdRemoveParticipant = "remove-participant"
	cmdPing              = "ping"
)

// writePump is the only writer on the socket. It closes the connection on exit so
// the read pump unblocks.
func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, client *app.Client, c *WsSignalConn) {
	sid := string(client.ID())
	defer func() {
		log.Info().Str("module", "signal").Str("sid", sid).Msg("readPump closing")
		client.Disconnect()
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait()))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", sid).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("sid", sid).Msg("readPump read error")
				}
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait()))
			ctl.handleSignal(client, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(client *app.Client, c *WsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(client.ID())).Msg("bad json")
		client.BadCommand(err)
		return
	}

	switch env.Type {
	case cmdJoinSession:
		ctl.handleJoin(client, data)
	case cmdLeaveSession:
		ctl.handleLeave(client)
	case cmdSetHostOptions:
		ctl.handleSetHostOptions(client, data)
	case cmdRemoveParticipant:
		ctl.handleRemoveParticipant(client, data)
	case cmdPing:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

// decode unmarshals a command payload into v and validates it.
func (ctl *SignalWSController) decode(client *app.Client, data []byte, v any) bool {
	err := json.Unmarshal(data, v)
	if err == nil {
		err = ctl.validate.Struct(v)
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(client.ID())).Msg("bad payload")
		client.BadCommand(err)
		return false
	}
	return true
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
