package plugin

import "net/http"

// SettingsFunc is a settings module: it reads and writes host settings.
type SettingsFunc func(s *Settings)

// App is a plugin app as seen by the host. The host reads Descriptor to
// decide what to mount and which settings modules to apply, then resolves
// those modules through SettingsModules and builds the URL table with URLs.
type App interface {
	Descriptor() *Descriptor

	// SettingsModules returns the app's settings modules keyed by the
	// relative path the descriptor refers to them by (e.g. "settings.common").
	SettingsModules() map[string]SettingsFunc

	// URLs builds the app's URL table. It is called after settings have
	// been applied. Paths it sees are relative to the mount prefix.
	URLs(s *Settings) (http.Handler, error)
}
