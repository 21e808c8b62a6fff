package settings

import "github.com/GoCodeAlone/zendeskproxy/plugin"

// AWS overlays values from the deployment's env and auth tokens.
func AWS(s *plugin.Settings) {
	if v, ok := s.EnvToken(KeyURL); ok {
		if url, ok := v.(string); ok {
			s.Set(KeyURL, url)
		}
	}

	token := ""
	if v, ok := s.AuthToken(KeyOAuthAccessToken); ok {
		token, _ = v.(string)
	}
	s.Set(KeyOAuthAccessToken, token)

	mapping := map[string]any{}
	if v, ok := s.EnvToken(KeyGroupIDMapping); ok {
		if m, ok := v.(map[string]any); ok {
			mapping = m
		}
	}
	s.Set(KeyGroupIDMapping, mapping)

	if v, ok := s.EnvToken(KeyRequestsPerHour); ok {
		if n, ok := plugin.AsInt64(v); ok && n > 0 {
			s.Set(KeyRequestsPerHour, int(n))
		}
	}
}
