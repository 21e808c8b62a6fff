package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
)

var (
	// ErrInvalidURLConfig is returned when an app's URL declaration cannot
	// be mounted: an empty or uncompilable regex.
	ErrInvalidURLConfig = errors.New("invalid url config")

	// ErrURLCollision is returned when an app's regex or namespace is
	// already claimed by a mounted app.
	ErrURLCollision = errors.New("url collision")
)

// Mount describes an app URL table mounted on the dispatcher.
type Mount struct {
	App       string `json:"app"`
	Namespace string `json:"namespace"`
	Regex     string `json:"regex"`
}

type mountEntry struct {
	Mount
	re      *regexp.Regexp
	handler http.Handler
}

// Dispatcher routes requests to app URL tables by matching each app's
// declared regex against the request path with its leading slash removed.
// Mounts are tried in the order they were added; the first match wins.
type Dispatcher struct {
	mu     sync.RWMutex
	mounts []*mountEntry
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher with no mounts.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger}
}

// Mount mounts app's URL table for project type pt. An app that declares no
// URLs for pt is skipped and reported as not mounted.
func (d *Dispatcher) Mount(app App, pt ProjectType, s *Settings) (bool, error) {
	desc := app.Descriptor()
	name := desc.Name()
	uc, ok := desc.URL(pt)
	if !ok {
		return false, nil
	}
	if uc.Regex == "" {
		return false, fmt.Errorf("mount %q for %s: %w: regex is empty", name, pt.Short(), ErrInvalidURLConfig)
	}
	re, err := regexp.Compile(uc.Regex)
	if err != nil {
		return false, fmt.Errorf("mount %q for %s: %w: %v", name, pt.Short(), ErrInvalidURLConfig, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, m := range d.mounts {
		if m.Regex == uc.Regex {
			return false, fmt.Errorf("mount %q for %s: %w: regex %q already mounted by %q", name, pt.Short(), ErrURLCollision, uc.Regex, m.App)
		}
		if uc.Namespace != "" && m.Namespace == uc.Namespace {
			return false, fmt.Errorf("mount %q for %s: %w: namespace %q already used by %q", name, pt.Short(), ErrURLCollision, uc.Namespace, m.App)
		}
	}

	handler, err := app.URLs(s)
	if err != nil {
		return false, fmt.Errorf("mount %q for %s: build url table: %w", name, pt.Short(), err)
	}
	if handler == nil {
		return false, fmt.Errorf("mount %q for %s: %w: url table is nil", name, pt.Short(), ErrInvalidURLConfig)
	}

	d.mounts = append(d.mounts, &mountEntry{
		Mount:   Mount{App: name, Namespace: uc.Namespace, Regex: uc.Regex},
		re:      re,
		handler: handler,
	})
	d.logger.Info("Plugin URLs mounted", "app", name, "project", pt.Short(), "regex", uc.Regex, "namespace", uc.Namespace)
	return true, nil
}

// MountAll mounts every registered app in registration order and stops at
// the first error.
func (d *Dispatcher) MountAll(registry *Registry, pt ProjectType, s *Settings) error {
	for _, app := range registry.List() {
		if _, err := d.Mount(app, pt, s); err != nil {
			return err
		}
	}
	return nil
}

// Mounts returns the mounted app URL tables in match order.
func (d *Dispatcher) Mounts() []Mount {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Mount, 0, len(d.mounts))
	for _, m := range d.mounts {
		out = append(out, m.Mount)
	}
	return out
}

// match returns the mount that serves path and the remainder passed on to
// the app's URL table.
func (d *Dispatcher) match(path string) (*mountEntry, string) {
	p := strings.TrimPrefix(path, "/")

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, m := range d.mounts {
		loc := m.re.FindStringIndex(p)
		if loc == nil {
			continue
		}
		return m, "/" + p[loc[1]:]
	}
	return nil, ""
}

// ServeHTTP dispatches to the matching app URL table with the matched
// prefix stripped, or responds 404.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m, rest := d.match(r.URL.Path)
	if m == nil {
		http.NotFound(w, r)
		return
	}

	r2 := new(http.Request)
	*r2 = *r
	r2.URL = new(url.URL)
	*r2.URL = *r.URL
	r2.URL.Path = rest
	r2.URL.RawPath = ""
	m.handler.ServeHTTP(w, r2)
}
