package domain

import (
	"errors"
	"fmt"
	"strings"
)

type BackendType int

const (
	BackendNoOp BackendType = iota
	BackendPublicLobby
	BackendImpostor
	BackendCustomServer
)

func (t BackendType) String() string {
	switch t {
	case BackendNoOp:
		return "noop"
	case BackendPublicLobby:
		return "public_lobby"
	case BackendImpostor:
		return "impostor"
	case BackendCustomServer:
		return "custom_server"
	default:
		return fmt.Sprintf("backend(%d)", int(t))
	}
}

type Region string

const (
	RegionNorthAmerica Region = "NA"
	RegionEurope       Region = "EU"
	RegionAsia         Region = "AS"
)

var (
	ErrUnknownBackend = errors.New("unknown backend type")
	ErrMissingCode    = errors.New("game code empty")
	ErrUnknownRegion  = errors.New("unknown region")
	ErrMissingAddress = errors.New("server address empty")
)

// SessionIdentity names one upstream game session. Region is only meaningful for public
// lobbies and IP only for custom servers and Impostor relays.
type SessionIdentity struct {
	Type     BackendType `json:"backendType"`
	GameCode string      `json:"gameCode"`
	Region   Region      `json:"region,omitempty"`
	IP       string      `json:"ip,omitempty"`
}

// Normalize trims the identity and validates the fields its backend needs.
func (s SessionIdentity) Normalize() (SessionIdentity, error) {
	s.GameCode = strings.ToUpper(strings.TrimSpace(s.GameCode))
	s.IP = strings.TrimSpace(s.IP)
	s.Region = Region(strings.ToUpper(strings.TrimSpace(string(s.Region))))
	if s.GameCode == "" {
		return s, ErrMissingCode
	}
	switch s.Type {
	case BackendNoOp:
		s.Region, s.IP = "", ""
	case BackendPublicLobby:
		switch s.Region {
		case RegionNorthAmerica, RegionEurope, RegionAsia:
		default:
			return s, fmt.Errorf("%w: %q", ErrUnknownRegion, s.Region)
		}
		s.IP = ""
	case BackendImpostor, BackendCustomServer:
		if s.IP == "" {
			return s, ErrMissingAddress
		}
		s.Region = ""
	default:
		return s, fmt.Errorf("%w: %d", ErrUnknownBackend, int(s.Type))
	}
	return s, nil
}

// Discriminator is the backend-specific part of the identity.
func (s SessionIdentity) Discriminator() string {
	switch s.Type {
	case BackendPublicLobby:
		return string(s.Region)
	case BackendImpostor, BackendCustomServer:
		return s.IP
	default:
		return ""
	}
}

// Matches reports whether two identities address the same room.
func (s SessionIdentity) Matches(o SessionIdentity) bool {
	return s.Type == o.Type &&
		s.GameCode == o.GameCode &&
		s.Discriminator() == o.Discriminator()
}

func (s SessionIdentity) String() string {
	if d := s.Discriminator(); d != "" {
		return s.GameCode + "@" + d
	}
	return s.GameCode
}
