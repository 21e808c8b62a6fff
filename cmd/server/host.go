package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/GoCodeAlone/zendeskproxy/config"
	"github.com/GoCodeAlone/zendeskproxy/health"
	"github.com/GoCodeAlone/zendeskproxy/plugin"
)

// host owns the effective settings and mounted URL tables for one
// deployment variant. A reload builds a fresh dispatcher and swaps it in, so
// requests in flight finish on the tables they started with.
type host struct {
	project  plugin.ProjectType
	tier     plugin.SettingsType
	registry *plugin.Registry
	logger   *slog.Logger

	current atomic.Pointer[plugin.Dispatcher]
}

func newHost(registry *plugin.Registry, project plugin.ProjectType, tier plugin.SettingsType, logger *slog.Logger) *host {
	return &host{project: project, tier: tier, registry: registry, logger: logger}
}

// load applies every app's settings for tokens and mounts the URL tables.
// On error the previously loaded tables stay in service.
func (h *host) load(tokens *config.Tokens) error {
	if tokens == nil {
		tokens = config.EmptyTokens()
	}
	s := plugin.NewSettings(tokens.Env, tokens.Auth)
	applied, err := plugin.ApplySettings(s, h.registry, h.project, h.tier, h.logger)
	if err != nil {
		return err
	}

	disp := plugin.NewDispatcher(h.logger)
	if err := disp.MountAll(h.registry, h.project, s); err != nil {
		return err
	}
	h.current.Store(disp)
	h.logger.Info("Plugin apps loaded",
		"project", h.project.Short(),
		"settings", h.tier,
		"settings_modules", applied,
		"mounts", len(disp.Mounts()),
	)
	return nil
}

// loadTokensFile loads the tokens file at path and, when watch is set, then
// starts reloading on change. An empty path loads empty tokens.
func (h *host) loadTokensFile(path string, watch bool, opts ...config.WatcherOption) (*config.Watcher, error) {
	if path == "" {
		h.logger.Warn("No tokens file given, deployed settings will be empty", "env", config.PathEnvVar(h.project.Short()))
		return nil, h.load(nil)
	}

	source := config.NewFileSource(path)
	tokens, err := source.Load(context.Background())
	if err != nil {
		return nil, err
	}
	if err := h.load(tokens); err != nil {
		return nil, err
	}
	if !watch {
		return nil, nil
	}

	opts = append([]config.WatcherOption{config.WithWatchLogger(h.logger)}, opts...)
	w := config.NewWatcher(source, h.onTokensChange, opts...)
	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("watch tokens: %w", err)
	}
	return w, nil
}

// onTokensChange reloads after the tokens file changes.
func (h *host) onTokensChange(evt config.ChangeEvent) {
	if err := h.load(evt.Tokens); err != nil {
		h.logger.Error("Failed to reload plugin apps, keeping previous configuration", "source", evt.Source, "error", err)
	}
}

// Mounts implements plugin.MountLister.
func (h *host) Mounts() []plugin.Mount {
	disp := h.current.Load()
	if disp == nil {
		return nil
	}
	return disp.Mounts()
}

func (h *host) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	disp := h.current.Load()
	if disp == nil {
		http.Error(w, "plugin apps not loaded", http.StatusServiceUnavailable)
		return
	}
	disp.ServeHTTP(w, r)
}

// loadedCheck reports whether URL tables have been mounted.
func (h *host) loadedCheck(context.Context) health.Result {
	if h.current.Load() == nil {
		return health.Result{Status: health.StatusUnhealthy, Message: "plugin apps not loaded"}
	}
	return health.Result{Status: health.StatusHealthy}
}

// checkApps verifies every registered app provides the settings modules its
// descriptor declares.
func checkApps(registry *plugin.Registry) error {
	var errs []error
	for _, app := range registry.List() {
		if err := plugin.CheckSettingsModules(app); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("plugin apps are incomplete: %w", err)
	}
	return nil
}
