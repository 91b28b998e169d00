package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/proximity/internal/app"
	"github.com/dkeye/proximity/internal/domain"
)

type joinPayload struct {
	Name    string                  `json:"name" validate:"required,max=64"`
	Backend *domain.SessionIdentity `json:"backend" validate:"required"`
}

func (ctl *SignalWSController) handleJoin(client *app.Client, data []byte) {
	var p joinPayload
	if !ctl.decode(client, data, &p) {
		return
	}
	log.Info().
		Str("module", "signal").
		Str("sid", string(client.ID())).
		Str("game", p.Backend.String()).
		Str("backend", p.Backend.Type.String()).
		Msg("join")
	// Join reports failures to the viewer itself.
	_ = client.Join(p.Name, *p.Backend)
}

// handleLeave detaches the viewer from its room; the connection stays open.
func (ctl *SignalWSController) handleLeave(client *app.Client) {
	log.Info().Str("module", "signal").Str("sid", string(client.ID())).Msg("leave")
	client.Leave()
}
