package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrDuplicateApp is returned when two apps claim the same identifier.
var ErrDuplicateApp = errors.New("app already registered")

// Registry holds the plugin apps installed in a host process. Apps are kept
// in registration order, which is the order the host mounts URLs and applies
// settings in.
type Registry struct {
	mu     sync.RWMutex
	apps   map[string]App
	order  []string
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		apps:   make(map[string]App),
		logger: logger,
	}
}

// Register adds an app, keyed by its descriptor name.
func (r *Registry) Register(app App) error {
	if app == nil {
		return fmt.Errorf("register: app is nil")
	}
	d := app.Descriptor()
	if d == nil {
		return fmt.Errorf("register: %w: descriptor is nil", ErrInvalidDescriptor)
	}
	name := d.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.apps[name]; exists {
		return fmt.Errorf("register %q: %w", name, ErrDuplicateApp)
	}
	r.apps[name] = app
	r.order = append(r.order, name)
	r.logger.Info("Plugin app registered", "app", name)
	return nil
}

// Get retrieves an app by name.
func (r *Registry) Get(name string) (App, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.apps[name]
	return app, ok
}

// List returns all registered apps in registration order.
func (r *Registry) List() []App {
	r.mu.RLock()
	defer r.mu.RUnlock()
	apps := make([]App, 0, len(r.order))
	for _, name := range r.order {
		apps = append(apps, r.apps[name])
	}
	return apps
}

// Descriptors returns the descriptors of all registered apps in
// registration order.
func (r *Registry) Descriptors() []*Descriptor {
	apps := r.List()
	out := make([]*Descriptor, 0, len(apps))
	for _, app := range apps {
		out = append(out, app.Descriptor())
	}
	return out
}
