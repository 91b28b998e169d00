package app

import (
	"github.com/dkeye/proximity/internal/core"
	"github.com/dkeye/proximity/internal/domain"
)

// Viewer-facing events. Every frame is {"type": <event>, "data": <payload>}.
const (
	EventSetUUID           = "set-uuid"
	EventSyncAllViewers    = "sync-all-viewers"
	EventAddParticipant    = "add-participant"
	EventRemoveParticipant = "remove-participant"
	EventSetPoseOf         = "set-pose-of"
	EventSetVentOf         = "set-vent-of"
	EventSetNameOf         = "set-name-of"
	EventSetColorOf        = "set-color-of"
	EventSetHatOf          = "set-hat-of"
	EventSetSkinOf         = "set-skin-of"
	EventSetHost           = "set-host"
	EventSetOptions        = "set-options"
	EventSetSettings       = "set-settings"
	EventSetGameState      = "set-game-state"
	EventSetGameFlags      = "set-game-flags"
	EventSetFlagsOf        = "set-flags-of"
	EventError             = "error"
)

type outFrame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ViewerDTO is one roster entry. Viewers only ever learn each other's connection ids.
type ViewerDTO struct {
	UUID core.SessionID `json:"uuid"`
	Name string         `json:"name"`
}

type addParticipantData struct {
	UUID     core.SessionID     `json:"uuid"`
	Name     string             `json:"name"`
	Position domain.Pose        `json:"position"`
	Flags    domain.PlayerFlags `json:"flags"`
	Color    domain.Color       `json:"color"`
}

type removeParticipantData struct {
	UUID core.SessionID `json:"uuid"`
	Ban  bool           `json:"ban"`
}

type poseOfData struct {
	UUID     core.SessionID `json:"uuid"`
	Position domain.Pose    `json:"position"`
}

type ventOfData struct {
	UUID   core.SessionID `json:"uuid"`
	VentID int            `json:"ventid"`
}

type nameOfData struct {
	UUID core.SessionID `json:"uuid"`
	Name string         `json:"name"`
}

type colorOfData struct {
	UUID  core.SessionID `json:"uuid"`
	Color domain.Color   `json:"color"`
}

type hatOfData struct {
	UUID core.SessionID `json:"uuid"`
	Hat  domain.Hat     `json:"hat"`
}

type skinOfData struct {
	UUID core.SessionID `json:"uuid"`
	Skin domain.Skin    `json:"skin"`
}

type flagsOfData struct {
	UUID  core.SessionID     `json:"uuid"`
	Flags domain.PlayerFlags `json:"flags"`
}

type hostData struct {
	UUID core.SessionID `json:"uuid"`
}

type optionsData struct {
	Options domain.HostOptions `json:"options"`
}

type settingsData struct {
	Settings domain.GameSettings `json:"settings"`
}

type gameStateData struct {
	State domain.GameState `json:"state"`
}

type gameFlagsData struct {
	Flags domain.GameFlags `json:"flags"`
}

type errorData struct {
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}
