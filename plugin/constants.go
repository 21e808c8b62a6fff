package plugin

import (
	"fmt"
	"strings"
)

// ProjectType identifies a deployment variant of the host platform. Each
// variant mounts plugin apps and loads their settings independently.
type ProjectType string

const (
	ProjectTypeLMS ProjectType = "lms.djangoapp"
	ProjectTypeCMS ProjectType = "cms.djangoapp"
)

// ProjectTypes returns every known deployment variant in a fixed order.
func ProjectTypes() []ProjectType {
	return []ProjectType{ProjectTypeLMS, ProjectTypeCMS}
}

// Valid reports whether pt is one of the known deployment variants.
func (pt ProjectType) Valid() bool {
	for _, known := range ProjectTypes() {
		if pt == known {
			return true
		}
	}
	return false
}

// Short returns the variant without the ".djangoapp" suffix ("lms", "cms").
func (pt ProjectType) Short() string {
	return strings.TrimSuffix(string(pt), ".djangoapp")
}

// ParseProjectType accepts either the full value ("lms.djangoapp") or the
// short form ("lms"), case-insensitively.
func ParseProjectType(s string) (ProjectType, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, pt := range ProjectTypes() {
		if v == string(pt) || v == pt.Short() {
			return pt, nil
		}
	}
	return "", fmt.Errorf("unknown project type %q", s)
}

// SettingsType identifies a settings tier. Tiers are merged in the order
// returned by SettingsTypes.
type SettingsType string

const (
	SettingsTypeCommon SettingsType = "common"
	SettingsTypeAWS    SettingsType = "aws"
)

// SettingsTypes returns every known settings tier in merge order.
func SettingsTypes() []SettingsType {
	return []SettingsType{SettingsTypeCommon, SettingsTypeAWS}
}

// Valid reports whether st is one of the known settings tiers.
func (st SettingsType) Valid() bool {
	for _, known := range SettingsTypes() {
		if st == known {
			return true
		}
	}
	return false
}

// ParseSettingsType parses a settings tier name case-insensitively.
func ParseSettingsType(s string) (SettingsType, error) {
	v := SettingsType(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("unknown settings type %q", s)
	}
	return v, nil
}

// SettingsChain returns the tiers applied, in order, when the host runs with
// settings environment st. The common baseline always comes first.
func SettingsChain(st SettingsType) []SettingsType {
	switch st {
	case SettingsTypeCommon:
		return []SettingsType{SettingsTypeCommon}
	case SettingsTypeAWS:
		return []SettingsType{SettingsTypeCommon, SettingsTypeAWS}
	}
	return nil
}
