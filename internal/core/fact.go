package core

import "github.com/dkeye/proximity/internal/domain"

// Fact is one canonical event emitted by an Adapter.
type Fact interface {
	// Kind names the fact for logs and metrics.
	Kind() string
	isFact()
}

type PlayerPoseFact struct {
	ClientID domain.ClientID
	Pose     domain.Pose
}

type PlayerVentFact struct {
	ClientID domain.ClientID
	VentID   int
}

type PlayerNameFact struct {
	ClientID domain.ClientID
	Name     string
}

type PlayerColorFact struct {
	ClientID domain.ClientID
	Color    domain.Color
}

type PlayerHatFact struct {
	ClientID domain.ClientID
	Hat      domain.Hat
}

type PlayerSkinFact struct {
	ClientID domain.ClientID
	Skin     domain.Skin
}

type PlayerFlagFact struct {
	ClientID domain.ClientID
	Flag     domain.PlayerFlag
	Set      bool
}

type HostChangeFact struct {
	ClientID domain.ClientID
}

type GameStateFact struct {
	State domain.GameState
}

type GameFlagFact struct {
	Flag domain.GameFlag
	Set  bool
}

type SettingsFact struct {
	Settings domain.GameSettings
}

// ErrorFact reports an upstream failure. Fatal errors end the session.
type ErrorFact struct {
	Message string
	Fatal   bool
}

func (PlayerPoseFact) Kind() string  { return "player_pose" }
func (PlayerVentFact) Kind() string  { return "player_vent" }
func (PlayerNameFact) Kind() string  { return "player_name" }
func (PlayerColorFact) Kind() string { return "player_color" }
func (PlayerHatFact) Kind() string   { return "player_hat" }
func (PlayerSkinFact) Kind() string  { return "player_skin" }
func (PlayerFlagFact) Kind() string  { return "player_flag" }
func (HostChangeFact) Kind() string  { return "host_change" }
func (GameStateFact) Kind() string   { return "game_state" }
func (GameFlagFact) Kind() string    { return "game_flag" }
func (SettingsFact) Kind() string    { return "settings" }
func (ErrorFact) Kind() string       { return "error" }

func (PlayerPoseFact) isFact()  {}
func (PlayerVentFact) isFact()  {}
func (PlayerNameFact) isFact()  {}
func (PlayerColorFact) isFact() {}
func (PlayerHatFact) isFact()   {}
func (PlayerSkinFact) isFact()  {}
func (PlayerFlagFact) isFact()  {}
func (HostChangeFact) isFact()  {}
func (GameStateFact) isFact()   {}
func (GameFlagFact) isFact()    {}
func (SettingsFact) isFact()    {}
func (ErrorFact) isFact()       {}
