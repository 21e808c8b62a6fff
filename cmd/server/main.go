package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoCodeAlone/zendeskproxy/config"
	"github.com/GoCodeAlone/zendeskproxy/health"
	"github.com/GoCodeAlone/zendeskproxy/metrics"
	"github.com/GoCodeAlone/zendeskproxy/observability/tracing"
	"github.com/GoCodeAlone/zendeskproxy/plugin"
	"github.com/GoCodeAlone/zendeskproxy/ratelimit"
	"github.com/GoCodeAlone/zendeskproxy/zendeskproxy"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

var (
	project        = flag.String("project", "lms", "Deployment variant to serve: lms or cms")
	settingsTy     = flag.String("settings", "aws", "Settings tier to apply: common or aws")
	tokensFile     = flag.String("config", "", "Path to the deployment tokens YAML file (default $LMS_CFG or $CMS_CFG)")
	addr           = flag.String("addr", ":8080", "HTTP listen address")
	redisAddr      = flag.String("redis-addr", "", "Redis address for a rate limit shared across processes")
	redisPassword  = flag.String("redis-password", "", "Redis password")
	trustedProxies = flag.String("trusted-proxies", "", "Comma separated proxy IPs or CIDRs whose X-Forwarded-For is trusted for rate limiting")
	otlpAddr       = flag.String("otlp-endpoint", "", "OTLP HTTP endpoint for traces (disabled when empty)")
	watch          = flag.Bool("watch", true, "Reload when the tokens file changes")
	describe       = flag.Bool("describe", false, "Print the installed plugin descriptors as YAML and exit")
)

// envOverrides maps environment variables to the flags they set.
var envOverrides = map[string]string{
	"ZENDESK_PROXY_PROJECT":         "project",
	"ZENDESK_PROXY_SETTINGS":        "settings",
	"ZENDESK_PROXY_CONFIG":          "config",
	"ZENDESK_PROXY_ADDR":            "addr",
	"ZENDESK_PROXY_REDIS_ADDR":      "redis-addr",
	"ZENDESK_PROXY_REDIS_PASSWORD":  "redis-password",
	"ZENDESK_PROXY_TRUSTED_PROXIES": "trusted-proxies",
	"OTEL_EXPORTER_OTLP_ENDPOINT":   "otlp-endpoint",
}

// applyEnvOverrides sets flags from the environment unless they were given
// explicitly on the command line.
func applyEnvOverrides() {
	visited := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { visited[f.Name] = true })
	for env, name := range envOverrides {
		if visited[name] {
			continue
		}
		if v := os.Getenv(env); v != "" {
			_ = flag.Set(name, v)
		}
	}
}

func main() {
	flag.Parse()
	applyEnvOverrides()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	pt, err := plugin.ParseProjectType(*project)
	if err != nil {
		log.Fatalf("Invalid -project: %v", err)
	}
	st, err := plugin.ParseSettingsType(*settingsTy)
	if err != nil {
		log.Fatalf("Invalid -settings: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tracer *tracing.Provider
	if *otlpAddr != "" {
		cfg := tracing.DefaultConfig()
		cfg.Endpoint = *otlpAddr
		tracer, err = tracing.NewProvider(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to set up tracing: %v", err)
		}
		logger.Info("Tracing enabled", "endpoint", *otlpAddr)
	}

	collector := metrics.NewCollector()
	opts := []zendeskproxy.Option{
		zendeskproxy.WithLogger(logger),
		zendeskproxy.WithMetrics(collector),
	}

	if *trustedProxies != "" {
		trusted, err := ratelimit.ParseTrustedProxies(*trustedProxies)
		if err != nil {
			log.Fatalf("Invalid -trusted-proxies: %v", err)
		}
		opts = append(opts, zendeskproxy.WithTrustedProxies(trusted))
	}

	var redisClient *redis.Client
	if *redisAddr != "" {
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		redisClient, err = ratelimit.ConnectRedis(pingCtx, &redis.Options{Addr: *redisAddr, Password: *redisPassword})
		pingCancel()
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		opts = append(opts, zendeskproxy.WithRedisLimiter(redisClient))
		logger.Info("Using Redis rate limiter", "addr", *redisAddr)
	}

	app := zendeskproxy.New(opts...)
	defer app.Close()

	registry := plugin.NewRegistry(logger)
	if err := registry.Register(app); err != nil {
		log.Fatalf("Failed to register plugin app: %v", err)
	}
	if err := checkApps(registry); err != nil {
		log.Fatal(err)
	}

	if *describe {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(registry.Descriptors()); err != nil {
			log.Fatalf("Failed to render descriptors: %v", err)
		}
		_ = enc.Close()
		return
	}

	h := newHost(registry, pt, st, logger)
	watcher, err := h.loadTokensFile(config.ResolvePath(*tokensFile, pt.Short()), *watch)
	if err != nil {
		log.Fatalf("Failed to load plugin apps: %v", err)
	}

	handler, checker := newServer(h, app, redisClient, collector)
	server := &http.Server{
		Addr:              *addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "addr", *addr, "project", pt.Short(), "settings", st)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	checker.SetStarted(true)
	fmt.Printf("Zendesk proxy started on %s\n", *addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	checker.SetStarted(false)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			log.Printf("Tokens watcher shutdown error: %v", err)
		}
	}
	if tracer != nil {
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Tracer shutdown error: %v", err)
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Printf("Redis close error: %v", err)
		}
	}

	fmt.Println("Shutdown complete")
}

// newServer builds the process's HTTP handler: health endpoints, metrics,
// plugin introspection and the mounted app URL tables, all traced.
func newServer(h *host, app *zendeskproxy.App, redisClient *redis.Client, collector *metrics.Collector) (http.Handler, *health.Checker) {
	checker := health.NewChecker()
	checker.RegisterCheck("plugins", h.loadedCheck)
	checker.RegisterCheck("zendesk", zendeskCheck(app))
	if redisClient != nil {
		checker.RegisterCheck("redis", redisCheck(redisClient))
	}

	mux := http.NewServeMux()
	checker.RegisterRoutes(mux)
	mux.Handle("GET /metrics", collector.Handler())
	plugin.NewRegistryHandler(h.registry, h).RegisterRoutes(mux)
	mux.Handle("/", h)
	return tracing.SpanMiddleware(mux), checker
}

// zendeskCheck reports degraded while the proxy has no Zendesk credentials,
// since every ticket request is then answered 503.
func zendeskCheck(app *zendeskproxy.App) health.Check {
	return func(context.Context) health.Result {
		if !app.Configured() {
			return health.Result{Status: health.StatusDegraded, Message: "zendesk credentials not configured"}
		}
		return health.Result{Status: health.StatusHealthy}
	}
}

func redisCheck(client *redis.Client) health.Check {
	return func(ctx context.Context) health.Result {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return health.Result{Status: health.StatusUnhealthy, Message: err.Error()}
		}
		return health.Result{Status: health.StatusHealthy}
	}
}
