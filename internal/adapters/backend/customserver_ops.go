package backend

import (
	json "github.com/goccy/go-json"

	"github.com/dkeye/proximity/internal/domain"
)

const (
	opHello           = "HELLO"
	opError           = "ERROR"
	opDestroy         = "DESTROY"
	opHostUpdate      = "HOST_UPDATE"
	opPlayerMove      = "PLAYER_MOVE"
	opPlayerUpdate    = "PLAYER_UPDATE"
	opSettingsUpdate  = "SETTINGS_UPDATE"
	opGameStart       = "GAME_START"
	opGameEnd         = "GAME_END"
	opMeetingStart    = "MEETING_START"
	opMeetingEnd      = "MEETING_END"
	opPlayerKill      = "PLAYER_KILL"
	opImpostorsUpdate = "IMPOSTORS_UPDATE"
	opCamsPlayerJoin  = "CAMS_PLAYER_JOIN"
	opCamsPlayerLeave = "CAMS_PLAYER_LEAVE"
	opCommsSabotage   = "COMMS_SABOTAGE"
	opCommsRepair     = "COMMS_REPAIR"
	opPlayerVentEnter = "PLAYER_VENT_ENTER"
	opPlayerVentExit  = "PLAYER_VENT_EXIT"

	// Older companion builds send the vent op with this spelling.
	opPlayerVentEnterLegacy = "PlAYER_VENT_ENTER"
)

type envelope struct {
	Op string          `json:"op"`
	D  json.RawMessage `json:"d"`
}

type gameCodePayload struct {
	GameCode *int32 `json:"gameCode"`
}

type helloPayload struct {
	GameCode int32 `json:"gameCode"`
}

type errorPayload struct {
	Error string `json:"error"`
}

type clientPayload struct {
	ClientID domain.ClientID `json:"clientId"`
}

type movePayload struct {
	ClientID domain.ClientID `json:"clientId"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
}

type playerUpdatePayload struct {
	ClientID domain.ClientID `json:"clientId"`
	Name     *string         `json:"name"`
	Color    *domain.Color   `json:"color"`
	Hat      *domain.Hat     `json:"hat"`
	Skin     *domain.Skin    `json:"skin"`
}

type settingsPayload struct {
	Map            *domain.GameMap `json:"map"`
	CrewmateVision *float64        `json:"crewmateVision"`
}

type meetingEndPayload struct {
	EjectedClientID *domain.ClientID `json:"ejectedClientId"`
}

type impostorsPayload struct {
	ClientIDs []domain.ClientID `json:"clientIds"`
}

type ventEnterPayload struct {
	ClientID domain.ClientID `json:"clientId"`
	VentID   int             `json:"ventId"`
}

// recordedPlayer is what the custom server has told us about a participant so far.
type recordedPlayer struct {
	name  string
	color domain.Color
}
