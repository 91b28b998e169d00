// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const (
	MaxUsernameLen = 36
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

// ValidateUsername checks a viewer display name before it is used for participant matching.
func ValidateUsername(username string) error {
	trimmed := strings.TrimSpace(username)
	if len(trimmed) == 0 {
		return ErrUsernameEmpty
	}
	if len(trimmed) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}

// SameName reports whether a viewer name and an in-game name refer to the same participant.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
