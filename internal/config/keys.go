package config

import "os"

// SettingSource represents where a setting comes from.
type SettingSource string

const (
	SourceEnv    SettingSource = "env"
	SourceConfig SettingSource = "config"
	SourceNone   SettingSource = "none"
)

// SettingUserAgent names the identifying User-Agent setting.
const SettingUserAgent = "EDGAR User-Agent"

// SettingStatus represents the status of a required setting.
type SettingStatus struct {
	Name   string        `json:"name"`
	Source SettingSource `json:"source"`
	IsSet  bool          `json:"is_set"`
	Masked string        `json:"masked,omitempty"` // e.g., "Acm...com"
}

// CheckSettings returns the status of settings the upstream requires.
func CheckSettings(cfg *Config) []SettingStatus {
	return []SettingStatus{
		checkSetting(SettingUserAgent, cfg.Edgar.UserAgent, envPrefix+"_EDGAR_USER_AGENT"),
	}
}

// checkSetting checks if a value is set and where it came from.
func checkSetting(name, value, envVar string) SettingStatus {
	status := SettingStatus{
		Name:  name,
		IsSet: value != "",
	}

	if value == "" {
		status.Source = SourceNone
		return status
	}
	if os.Getenv(envVar) != "" {
		status.Source = SourceEnv
	} else {
		status.Source = SourceConfig
	}
	status.Masked = mask(value)
	return status
}

// mask hides a value for display, showing only first 3 and last 3 chars.
func mask(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:3] + "..." + s[len(s)-3:]
}
