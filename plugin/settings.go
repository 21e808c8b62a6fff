package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"sync"
)

// ErrSettingsModuleNotFound is returned when a descriptor references a
// settings module the app does not provide.
var ErrSettingsModuleNotFound = errors.New("settings module not found")

// Settings is the effective host configuration that settings modules read
// and write. EnvTokens and AuthTokens hold the deployment's environment and
// secret values; modules for deployed tiers copy what they need out of them.
type Settings struct {
	mu         sync.RWMutex
	values     map[string]any
	envTokens  map[string]any
	authTokens map[string]any
}

// NewSettings creates empty settings backed by the given token maps. Nil
// maps are treated as empty.
func NewSettings(envTokens, authTokens map[string]any) *Settings {
	return &Settings{
		values:     make(map[string]any),
		envTokens:  maps.Clone(envTokens),
		authTokens: maps.Clone(authTokens),
	}
}

// Set stores a setting, replacing any previous value.
func (s *Settings) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get returns a setting and whether it has been set.
func (s *Settings) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// String returns a setting as a string, or "" if it is unset or not a string.
func (s *Settings) String(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// Int returns a setting as an int.
func (s *Settings) Int(key string) (int, bool) {
	v, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := AsInt64(v)
	return int(n), ok
}

// Map returns a setting as a map, or nil if it is unset or not a map.
func (s *Settings) Map(key string) map[string]any {
	v, _ := s.Get(key)
	m, _ := v.(map[string]any)
	return m
}

// EnvToken looks up a deployment environment value.
func (s *Settings) EnvToken(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.envTokens[key]
	return v, ok
}

// AuthToken looks up a deployment secret.
func (s *Settings) AuthToken(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.authTokens[key]
	return v, ok
}

// Keys returns the names of all settings, sorted.
func (s *Settings) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.values))
}

// AsInt64 converts the numeric forms produced by YAML and JSON decoding.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

// ApplySettings runs the settings modules declared by every registered app
// for project type pt, tier by tier as given by SettingsChain(st), and apps
// in registration order within a tier. It returns the fully qualified module
// paths in the order they were applied. A declared module the app does not
// provide stops the process of applying and is returned as an error.
func ApplySettings(s *Settings, registry *Registry, pt ProjectType, st SettingsType, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !pt.Valid() {
		return nil, fmt.Errorf("apply settings: unknown project type %q", pt)
	}
	chain := SettingsChain(st)
	if chain == nil {
		return nil, fmt.Errorf("apply settings: unknown settings type %q", st)
	}

	var applied []string
	for _, tier := range chain {
		for _, app := range registry.List() {
			d := app.Descriptor()
			sc, ok := d.Settings(pt, tier)
			if !ok {
				continue
			}
			fn, err := resolveSettingsModule(app, sc.RelativePath)
			if err != nil {
				return applied, fmt.Errorf("apply settings for %s/%s: %w", pt.Short(), tier, err)
			}
			fn(s)
			module := d.Name() + "." + sc.RelativePath
			applied = append(applied, module)
			logger.Debug("Applied plugin settings", "module", module, "project", pt.Short(), "tier", tier)
		}
	}
	return applied, nil
}

// CheckSettingsModules verifies that every settings module the app's
// descriptor references is provided by the app.
func CheckSettingsModules(app App) error {
	var errs []error
	for _, rel := range app.Descriptor().RelativePaths() {
		if _, err := resolveSettingsModule(app, rel); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func resolveSettingsModule(app App, relativePath string) (SettingsFunc, error) {
	fn, ok := app.SettingsModules()[relativePath]
	if !ok || fn == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrSettingsModuleNotFound, app.Descriptor().Name(), relativePath)
	}
	return fn, nil
}
