package zendeskproxy

import (
	"fmt"
	"strings"

	"github.com/GoCodeAlone/zendeskproxy/plugin"
	"github.com/GoCodeAlone/zendeskproxy/zendeskproxy/settings"
)

// Config is the typed view of the app's settings.
type Config struct {
	URL              string
	OAuthAccessToken string
	GroupIDMapping   map[string]int64
	RequestsPerHour  int
}

// Configured reports whether tickets can be sent to Zendesk.
func (c Config) Configured() bool {
	return c.URL != "" && c.OAuthAccessToken != ""
}

// ConfigFromSettings reads the app's settings. A group mapping with a
// non-numeric id is a configuration error.
func ConfigFromSettings(s *plugin.Settings) (Config, error) {
	cfg := Config{
		URL:              strings.TrimRight(s.String(settings.KeyURL), "/"),
		OAuthAccessToken: s.String(settings.KeyOAuthAccessToken),
		GroupIDMapping:   make(map[string]int64),
		RequestsPerHour:  settings.DefaultRequestsPerHour,
	}
	for group, v := range s.Map(settings.KeyGroupIDMapping) {
		id, ok := plugin.AsInt64(v)
		if !ok {
			return Config{}, fmt.Errorf("zendesk proxy: %s[%q] = %v is not a group id", settings.KeyGroupIDMapping, group, v)
		}
		cfg.GroupIDMapping[group] = id
	}
	if n, ok := s.Int(settings.KeyRequestsPerHour); ok && n > 0 {
		cfg.RequestsPerHour = n
	}
	return cfg, nil
}
