package api

import (
	"net/http"

	"github.com/seenimoa/filingwatch/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config   config.Config          `json:"config"`
	Settings []config.SettingStatus `json:"settings"`
}

// handleGetConfig returns the running configuration with the user agent
// replaced by its masked form.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	settings := config.CheckSettings(s.cfg)
	redacted := *s.cfg
	redacted.Edgar.UserAgent = ""
	for _, st := range settings {
		if st.Name == config.SettingUserAgent {
			redacted.Edgar.UserAgent = st.Masked
		}
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    ConfigResponse{Config: redacted, Settings: settings},
	})
}
