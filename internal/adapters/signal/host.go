package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/proximity/internal/app"
	"github.com/dkeye/proximity/internal/core"
	"github.com/dkeye/proximity/internal/domain"
)

type hostOptionsPayload struct {
	Options *domain.HostOptions `json:"options" validate:"required"`
}

func (ctl *SignalWSController) handleSetHostOptions(client *app.Client, data []byte) {
	var p hostOptionsPayload
	if !ctl.decode(client, data, &p) {
		return
	}
	if err := client.SetHostOptions(*p.Options); err == nil {
		log.Info().Str("module", "signal").Str("sid", string(client.ID())).Msg("host options updated")
	}
}

type removePayload struct {
	UUID string `json:"uuid" validate:"required"`
	Ban  bool   `json:"ban"`
}

func (ctl *SignalWSController) handleRemoveParticipant(client *app.Client, data []byte) {
	var p removePayload
	if !ctl.decode(client, data, &p) {
		return
	}
	_ = client.Kick(core.SessionID(p.UUID), p.Ban)
}
