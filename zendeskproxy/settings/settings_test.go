package settings

import (
	"testing"

	"github.com/GoCodeAlone/zendeskproxy/plugin"
)

func TestCommon(t *testing.T) {
	s := plugin.NewSettings(nil, nil)
	Common(s)

	if got := s.String(KeyURL); got != "" {
		t.Errorf("%s = %q, want empty", KeyURL, got)
	}
	if got := s.String(KeyOAuthAccessToken); got != "" {
		t.Errorf("%s = %q, want empty", KeyOAuthAccessToken, got)
	}
	if m := s.Map(KeyGroupIDMapping); m == nil || len(m) != 0 {
		t.Errorf("%s = %v, want empty map", KeyGroupIDMapping, m)
	}
	if n, ok := s.Int(KeyRequestsPerHour); !ok || n != DefaultRequestsPerHour {
		t.Errorf("%s = %d, %v", KeyRequestsPerHour, n, ok)
	}
}

func TestAWSOverlaysTokens(t *testing.T) {
	s := plugin.NewSettings(
		map[string]any{
			KeyURL:             "https://example.zendesk.com",
			KeyGroupIDMapping:  map[string]any{"billing": 360000001},
			KeyRequestsPerHour: 10,
		},
		map[string]any{KeyOAuthAccessToken: "s3cret"},
	)
	Common(s)
	AWS(s)

	if got := s.String(KeyURL); got != "https://example.zendesk.com" {
		t.Errorf("%s = %q", KeyURL, got)
	}
	if got := s.String(KeyOAuthAccessToken); got != "s3cret" {
		t.Errorf("%s = %q", KeyOAuthAccessToken, got)
	}
	if got := s.Map(KeyGroupIDMapping)["billing"]; got != 360000001 {
		t.Errorf("billing group = %v", got)
	}
	if n, _ := s.Int(KeyRequestsPerHour); n != 10 {
		t.Errorf("%s = %d", KeyRequestsPerHour, n)
	}
}

func TestAWSKeepsCommonURLWithoutToken(t *testing.T) {
	s := plugin.NewSettings(nil, nil)
	Common(s)
	s.Set(KeyURL, "https://fallback.zendesk.com")
	s.Set(KeyOAuthAccessToken, "stale")
	AWS(s)

	if got := s.String(KeyURL); got != "https://fallback.zendesk.com" {
		t.Errorf("%s should fall back to the current value, got %q", KeyURL, got)
	}
	if got := s.String(KeyOAuthAccessToken); got != "" {
		t.Errorf("%s should only come from auth tokens, got %q", KeyOAuthAccessToken, got)
	}
	if n, _ := s.Int(KeyRequestsPerHour); n != DefaultRequestsPerHour {
		t.Errorf("%s = %d", KeyRequestsPerHour, n)
	}
}
