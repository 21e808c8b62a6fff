package settings

import "github.com/GoCodeAlone/zendeskproxy/plugin"

// Common sets the baseline: the proxy is present but unconfigured, so ticket
// requests are answered 503 until a deployed tier supplies credentials.
func Common(s *plugin.Settings) {
	s.Set(KeyURL, "")
	s.Set(KeyOAuthAccessToken, "")
	s.Set(KeyGroupIDMapping, map[string]any{})
	s.Set(KeyRequestsPerHour, DefaultRequestsPerHour)
}
