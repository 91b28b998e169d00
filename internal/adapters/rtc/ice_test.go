package rtc

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfiguration_Defaults(t *testing.T) {
	cfg := Configuration(nil)
	require.Len(t, cfg.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.ICEServers[0].URLs)
	assert.Empty(t, cfg.ICEServers[0].Username)
}

func TestConfiguration_TurnCredentials(t *testing.T) {
	cfg := Configuration([]ICEServer{
		{URLs: []string{"stun:stun.example.org"}},
		{},
		{URLs: []string{"turn:turn.example.org:3478"}, Username: "user", Credential: "secret"},
	})

	require.Len(t, cfg.ICEServers, 2)
	turn := cfg.ICEServers[1]
	assert.Equal(t, "user", turn.Username)
	assert.Equal(t, "secret", turn.Credential)
	assert.Equal(t, webrtc.ICECredentialTypePassword, turn.CredentialType)
}

func TestConfiguration_ServedShape(t *testing.T) {
	cfg := Configuration([]ICEServer{{URLs: []string{"turn:turn.example.org"}, Username: "u", Credential: "p"}})

	data, err := json.Marshal(cfg.ICEServers)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"urls":["turn:turn.example.org"]`)
	assert.Contains(t, string(data), `"credentialType"`)
}
