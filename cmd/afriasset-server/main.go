package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/big14way/afri-asset/internal/core/service"
	"github.com/big14way/afri-asset/internal/events"
	"github.com/big14way/afri-asset/internal/infra/buildinfo"
	"github.com/big14way/afri-asset/internal/infra/confloader"
	"github.com/big14way/afri-asset/internal/infra/shutdown"
	"github.com/big14way/afri-asset/internal/server/config"
	"github.com/big14way/afri-asset/internal/server/httpserver"
	"github.com/big14way/afri-asset/internal/storage"
	"github.com/big14way/afri-asset/internal/telemetry/logger"
	"github.com/big14way/afri-asset/internal/telemetry/metric"
	"github.com/big14way/afri-asset/internal/telemetry/tracer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	info := buildinfo.Get()
	if *showVersion {
		fmt.Printf("afriasset-server %s (commit: %s, built: %s, %s)\n", info.Version, info.Commit, info.BuildTime, info.GoVersion)
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(log)

	log.Info("starting afriasset-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile,
		"storage_engine", cfg.Storage.Engine)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	ctx, stop := context.WithCancelCause(context.Background())
	defer stop(nil)

	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout, log)

	// Hooks run in reverse order of registration.
	shutdownTracer, err := tracer.Setup(ctx, cfg.TracerConfig(), info.Version)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	shutdownHandler.OnShutdown("tracer", shutdownTracer)

	store, err := storage.Open(cfg.StorageConfig(), log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	shutdownHandler.OnShutdown("storage", func(context.Context) error {
		return store.Close()
	})

	hub := events.NewHub()
	shutdownHandler.OnShutdown("event hub", func(context.Context) error {
		hub.Close()
		return nil
	})

	var publisher service.Publisher = hub
	if cfg.Events.LogEvents {
		publisher = events.Multi{hub, events.NewLogPublisher(log)}
	}

	var authz service.Authorizer = service.ContextAuthorizer{}
	if cfg.Security.InsecureSkipAuth {
		log.Warn("signature checks disabled: every principal is approved")
		authz = service.AllowAllAuthorizer{}
	}

	opts := []service.Option{
		service.WithPublisher(publisher),
		service.WithLogger(log),
	}

	var metrics *metric.Registry
	if cfg.Telemetry.Metrics.Enabled {
		metrics = metric.NewRegistry()
		opts = append(opts, service.WithObserver(metrics))
		if bs, ok := store.(*storage.BadgerStore); ok {
			bs.RegisterMetrics(metrics.Registerer())
		}
	}

	registry := service.NewRegistryService(store, authz, opts...)
	if metrics != nil {
		metrics.Registerer().MustRegister(metric.NewCollector(registry, hub.Len, hub.Dropped))
	}

	routerCfg := httpserver.DefaultRouterConfig()
	routerCfg.Registry = registry
	routerCfg.Events = hub
	routerCfg.Verifier = service.NewSignatureVerifier(cfg.SignatureVerifierConfig())
	routerCfg.Metrics = metrics
	routerCfg.MetricsPath = cfg.Telemetry.Metrics.Path
	routerCfg.Logger = log
	routerCfg.MaxBodyBytes = cfg.Server.HTTP.MaxBodyBytes
	routerCfg.RateLimitRPS = 0
	if rl := cfg.Server.HTTP.RateLimit; rl.Enabled {
		routerCfg.RateLimitRPS = rl.RPS
		routerCfg.RateLimitBurst = rl.Burst
	}
	routerCfg.CORSAllowedOrigins = cfg.Server.HTTP.CORSAllowedOrigins
	routerCfg.EnableAudit = cfg.Server.HTTP.Audit
	routerCfg.StreamBuffer = cfg.Events.StreamBuffer

	httpCfg := cfg.Server.HTTP
	httpServer := httpserver.New(httpCfg.Addr, httpserver.NewRouter(routerCfg), httpserver.Options{
		ReadTimeout:  httpCfg.ReadTimeout,
		WriteTimeout: httpCfg.WriteTimeout,
		IdleTimeout:  httpCfg.IdleTimeout,
		TLSCertFile:  httpCfg.TLSCertFile,
		TLSKeyFile:   httpCfg.TLSKeyFile,
	})
	// Open event streams end when the hub closes; Shutdown waits for them.
	httpServer.RegisterOnShutdown(hub.Close)
	shutdownHandler.OnShutdown("http server", httpServer.Shutdown)

	if *configFile != "" {
		watcher, err := watchConfig(*configFile, log)
		if err != nil {
			log.Warn("config reload disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	go func() {
		log.Info("HTTP server listening", "addr", httpCfg.Addr, "tls", httpServer.TLSEnabled())
		if err := httpServer.ListenAndServe(); err != nil {
			log.Error("HTTP server error", "error", err)
			stop(fmt.Errorf("http server: %w", err))
		}
	}()

	log.Info("server started, press Ctrl+C to stop")
	err = shutdownHandler.Wait(ctx)
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		err = errors.Join(cause, err)
	}
	if err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig layers defaults, the optional YAML file and environment
// variables, then validates the result.
func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	var opts []confloader.Option
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// watchConfig re-reads the config file on change and applies log.level.
// Other settings need a restart.
func watchConfig(path string, log *slog.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(path); err != nil {
		watcher.Stop()
		return nil, err
	}

	watcher.OnChange(func(string) {
		cfg, err := loadConfig(path)
		if err != nil {
			log.Warn("config reload failed", "path", path, "error", err)
			return
		}
		if cfg.Log.Level != logger.Level() && logger.SetLevel(cfg.Log.Level) {
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	watcher.StartAsync()
	return watcher, nil
}
