// Package zendeskproxy is the plugin app that proxies support tickets from
// the platform's front ends to Zendesk.
package zendeskproxy

import (
	"log/slog"
	"net/http"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GoCodeAlone/zendeskproxy/metrics"
	"github.com/GoCodeAlone/zendeskproxy/observability/tracing"
	"github.com/GoCodeAlone/zendeskproxy/plugin"
	"github.com/GoCodeAlone/zendeskproxy/ratelimit"
	"github.com/GoCodeAlone/zendeskproxy/zendeskproxy/settings"
)

// Name identifies the app among the host's installed apps.
const Name = "openedx.core.djangoapps.zendesk_proxy"

// RedisKeyPrefix namespaces the app's rate limit counters in Redis.
const RedisKeyPrefix = "zendesk_proxy:ratelimit:"

var descriptor = newDescriptor()

// Both variants declare the same routing and settings. They are kept as
// separate entries because each variant mounts the app independently.
func newDescriptor() *plugin.Descriptor {
	return plugin.MustDescriptor(plugin.DescriptorConfig{
		Name: Name,
		URLs: map[plugin.ProjectType]plugin.URLConfig{
			plugin.ProjectTypeCMS: {
				Namespace: "",
				Regex:     `^zendesk_proxy/`,
			},
			plugin.ProjectTypeLMS: {
				Namespace: "",
				Regex:     `^zendesk_proxy/`,
			},
		},
		Settings: map[plugin.ProjectType]map[plugin.SettingsType]plugin.SettingsConfig{
			plugin.ProjectTypeCMS: {
				plugin.SettingsTypeCommon: {RelativePath: "settings.common"},
				plugin.SettingsTypeAWS:    {RelativePath: "settings.aws"},
			},
			plugin.ProjectTypeLMS: {
				plugin.SettingsTypeCommon: {RelativePath: "settings.common"},
				plugin.SettingsTypeAWS:    {RelativePath: "settings.aws"},
			},
		},
	})
}

// Descriptor returns the app's plugin descriptor.
func Descriptor() *plugin.Descriptor { return descriptor }

// App is the zendesk proxy plugin app.
type App struct {
	logger     *slog.Logger
	metrics    *metrics.Collector
	limiter    ratelimit.Limiter
	redis      ratelimit.RedisClient
	clientKey  ratelimit.KeyFunc
	httpClient *http.Client

	configured atomic.Bool

	mu       sync.Mutex
	ownLimit *ratelimit.MemoryLimiter
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the app logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithMetrics records ticket and rate limit metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(a *App) { a.metrics = c }
}

// WithLimiter replaces the default in-memory per-IP limiter.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(a *App) { a.limiter = l }
}

// WithRedisLimiter shares the per-IP budget across processes through Redis.
// The budget is still read from the applied settings.
func WithRedisLimiter(client ratelimit.RedisClient) Option {
	return func(a *App) { a.redis = client }
}

// WithTrustedProxies keys the rate limit on the forwarded client address
// when a request arrives through one of the given proxies. Otherwise the
// peer address is used.
func WithTrustedProxies(trusted []netip.Prefix) Option {
	return func(a *App) { a.clientKey = ratelimit.ForwardedClientIP(trusted) }
}

// WithHTTPClient sets the client used to call Zendesk.
func WithHTTPClient(c *http.Client) Option {
	return func(a *App) { a.httpClient = c }
}

// New creates the app.
func New(opts ...Option) *App {
	a := &App{
		logger:     slog.Default(),
		httpClient: &http.Client{Timeout: 10 * time.Second, Transport: tracing.Transport(nil)},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Descriptor implements plugin.App.
func (a *App) Descriptor() *plugin.Descriptor { return descriptor }

// SettingsModules implements plugin.App.
func (a *App) SettingsModules() map[string]plugin.SettingsFunc {
	return map[string]plugin.SettingsFunc{
		"settings.common": settings.Common,
		"settings.aws":    settings.AWS,
	}
}

// URLs implements plugin.App. It reads the proxy configuration from s, so
// it must be called after settings are applied.
func (a *App) URLs(s *plugin.Settings) (http.Handler, error) {
	cfg, err := ConfigFromSettings(s)
	if err != nil {
		return nil, err
	}

	limiter := a.limiter
	switch {
	case limiter != nil:
	case a.redis != nil:
		limiter = ratelimit.NewRedisLimiterWithClient(ratelimit.RedisConfig{
			Prefix:   RedisKeyPrefix,
			Requests: cfg.RequestsPerHour,
			Period:   time.Hour,
		}, a.redis)
	default:
		limiter = a.defaultLimiter(cfg.RequestsPerHour)
	}

	a.configured.Store(cfg.Configured())
	client := NewClient(cfg, a.httpClient, a.logger, a.metrics)
	h := &handler{
		client:    client,
		logger:    a.logger,
		metrics:   a.metrics,
		clientKey: a.clientKey,
	}
	return h.routes(limiter), nil
}

// Configured reports whether the most recently built URL table has Zendesk
// credentials.
func (a *App) Configured() bool { return a.configured.Load() }

// Close releases resources the app created for itself.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ownLimit != nil {
		a.ownLimit.Stop()
		a.ownLimit = nil
	}
}

// defaultLimiter returns the app's in-memory limiter, created on first use.
// Later calls only resize it, so per-client budgets survive a reload.
func (a *App) defaultLimiter(perHour int) ratelimit.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ownLimit == nil {
		a.ownLimit = ratelimit.NewMemoryLimiter(perHour, time.Hour)
	} else {
		a.ownLimit.SetBudget(perHour, time.Hour)
	}
	return a.ownLimit
}
