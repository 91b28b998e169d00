package domain

type GameState int

const (
	GameStateLobby GameState = iota
	GameStateGame
	GameStateMeeting
)

func (s GameState) String() string {
	switch s {
	case GameStateLobby:
		return "lobby"
	case GameStateGame:
		return "game"
	case GameStateMeeting:
		return "meeting"
	default:
		return "unknown"
	}
}

type GameFlag int

const (
	GameFlagCommsSabotaged GameFlag = iota
)

type GameFlags = FlagSet[GameFlag]

type GameMap int

const (
	MapTheSkeld GameMap = iota
	MapMiraHQ
	MapPolus
	MapDleksEht
	MapAirship
)

// GameSettings are the lobby settings that affect proximity.
type GameSettings struct {
	Map            GameMap `json:"map"`
	CrewmateVision float64 `json:"crewmateVision"`
}

func DefaultGameSettings() GameSettings {
	return GameSettings{Map: MapTheSkeld, CrewmateVision: 1}
}

// HostOptions are chosen by the host viewer and drive audio falloff on every client.
type HostOptions struct {
	Falloff               float64 `json:"falloff"`
	FalloffVision         bool    `json:"falloffVision"`
	Colliders             bool    `json:"colliders"`
	PaSystems             bool    `json:"paSystems"`
	CommsSabotage         bool    `json:"commsSabotage"`
	MeetingsCommsSabotage bool    `json:"meetingsCommsSabotage"`
}

func DefaultHostOptions() HostOptions {
	return HostOptions{
		Falloff:               4.5,
		PaSystems:             true,
		CommsSabotage:         true,
		MeetingsCommsSabotage: true,
	}
}
