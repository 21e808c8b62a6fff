package plugin

import (
	"slices"
	"testing"
)

func TestParseProjectType(t *testing.T) {
	tests := []struct {
		in   string
		want ProjectType
		ok   bool
	}{
		{"lms", ProjectTypeLMS, true},
		{"CMS", ProjectTypeCMS, true},
		{"lms.djangoapp", ProjectTypeLMS, true},
		{" cms.djangoapp ", ProjectTypeCMS, true},
		{"studio", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := ParseProjectType(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseProjectType(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseProjectType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseSettingsType(t *testing.T) {
	if st, err := ParseSettingsType("AWS"); err != nil || st != SettingsTypeAWS {
		t.Errorf("ParseSettingsType(AWS) = %q, %v", st, err)
	}
	if _, err := ParseSettingsType("devstack"); err == nil {
		t.Error("expected error for unknown settings type")
	}
}

func TestSettingsChainStartsWithCommon(t *testing.T) {
	for _, st := range SettingsTypes() {
		chain := SettingsChain(st)
		if len(chain) == 0 || chain[0] != SettingsTypeCommon {
			t.Errorf("SettingsChain(%q) = %v, want common first", st, chain)
		}
		if chain[len(chain)-1] != st {
			t.Errorf("SettingsChain(%q) = %v, want %q last", st, chain, st)
		}
	}
	if got := SettingsChain(SettingsTypeAWS); !slices.Equal(got, []SettingsType{SettingsTypeCommon, SettingsTypeAWS}) {
		t.Errorf("SettingsChain(aws) = %v", got)
	}
	if got := SettingsChain("bogus"); got != nil {
		t.Errorf("SettingsChain(bogus) = %v, want nil", got)
	}
}
