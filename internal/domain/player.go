package domain

// ClientID is the participant id assigned by the upstream game source.
type ClientID int32

// NoParticipant marks a viewer that is not bound to any in-game participant.
const NoParticipant ClientID = 0

type Pose struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type (
	Color int
	Hat   int
	Skin  int
)

const (
	ColorNone Color = -1
	HatNone   Hat   = 0
	SkinNone  Skin  = 0
)

const NoVent = -1

type PlayerFlag int

const (
	PlayerFlagIsDead PlayerFlag = iota
	PlayerFlagIsImpostor
	PlayerFlagOnCams
)

type PlayerFlags = FlagSet[PlayerFlag]

// PlayerState is the last known state of one in-game participant.
type PlayerState struct {
	ClientID ClientID    `json:"clientId"`
	Pose     Pose        `json:"position"`
	Name     string      `json:"name"`
	Color    Color       `json:"color"`
	Hat      Hat         `json:"hat"`
	Skin     Skin        `json:"skin"`
	Flags    PlayerFlags `json:"flags"`
	VentID   int         `json:"ventid"`
}

// NewPlayerState returns a participant with every attribute at its sentinel default.
func NewPlayerState(id ClientID) *PlayerState {
	return &PlayerState{
		ClientID: id,
		Color:    ColorNone,
		Hat:      HatNone,
		Skin:     SkinNone,
		VentID:   NoVent,
	}
}
