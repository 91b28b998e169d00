package rtc

import (
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// ICEServer is one configured STUN or TURN server.
type ICEServer struct {
	URLs       []string `mapstructure:"urls" json:"urls"`
	Username   string   `mapstructure:"username" json:"username,omitempty"`
	Credential string   `mapstructure:"credential" json:"credential,omitempty"`
}

// DefaultICEServers is used when nothing is configured.
func DefaultICEServers() []ICEServer {
	return []ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}
}

// Configuration is the peer connection configuration viewers use for their audio links.
// Its ICEServers are served as-is, so viewers receive pion's JSON shape including
// credentialType. Servers with no URLs are skipped.
func Configuration(servers []ICEServer) webrtc.Configuration {
	if len(servers) == 0 {
		servers = DefaultICEServers()
	}
	cfg := webrtc.Configuration{}
	for _, s := range servers {
		if len(s.URLs) == 0 {
			log.Warn().Str("module", "rtc").Msg("skipping ICE server without urls")
			continue
		}
		srv := webrtc.ICEServer{URLs: s.URLs}
		if s.Username != "" || s.Credential != "" {
			srv.Username = s.Username
			srv.Credential = s.Credential
			srv.CredentialType = webrtc.ICECredentialTypePassword
		}
		cfg.ICEServers = append(cfg.ICEServers, srv)
	}
	return cfg
}
