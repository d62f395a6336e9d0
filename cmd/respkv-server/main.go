package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/core/service"
	"github.com/yndnr/respkv/internal/infra/buildinfo"
	"github.com/yndnr/respkv/internal/infra/confloader"
	"github.com/yndnr/respkv/internal/infra/shutdown"
	"github.com/yndnr/respkv/internal/server/config"
	"github.com/yndnr/respkv/internal/server/httpserver"
	"github.com/yndnr/respkv/internal/server/redisserver"
	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/internal/telemetry/logger"
	"github.com/yndnr/respkv/internal/telemetry/metric"
	"github.com/yndnr/respkv/pkg/resp"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintln(c.App.Writer, buildinfo.String())
	}

	return &cli.App{
		Name:    "respkv-server",
		Usage:   "in-memory key-value server speaking RESP2",
		Version: buildinfo.Get().Version,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "TCP port to listen on",
				Value:   config.DefaultPort,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML configuration file",
				EnvVars: []string{"RESPKV_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level: debug, info, warn, error",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	configFile := c.String("config")
	loader := confloader.NewLoader(
		confloader.WithConfigFile(configFile),
		confloader.WithFlags(flagOverrides(c)),
	)

	cfg, err := loadConfig(loader.Load)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting respkv-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	var metrics *metric.Registry
	if cfg.Metrics.Enabled {
		metrics = metric.NewRegistry()
	}

	inst := service.NewInstance(
		service.WithDBOptions(memory.WithExpireHook(metrics.AddExpiredKeys)),
	)
	applySeed(inst, cfg.Seed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout, log)

	// Hooks run in reverse order: the listener closes before the sweeper
	// stops.
	expirer := memory.NewExpirer(inst.Registry(), cfg.Server.ExpireInterval, log.With("component", "expirer"))
	expirer.Start()
	shutdownHandler.OnShutdown("expirer", func(context.Context) error {
		expirer.Stop()
		return nil
	})

	srv := redisserver.New(serverConfig(cfg), inst, log.With("component", "redisserver"),
		redisserver.WithMetrics(metrics))
	if err := srv.Start(ctx); err != nil {
		return err
	}
	shutdownHandler.OnShutdown("redisserver", srv.Shutdown)

	if metrics != nil {
		if err := metrics.Register(metric.NewKeyspaceCollector(inst.Registry())); err != nil {
			return fmt.Errorf("register keyspace collector: %w", err)
		}
		httpSrv, err := startHTTP(cfg, metrics, inst, srv, shutdownHandler, log)
		if err != nil {
			_ = srv.Shutdown(ctx)
			return err
		}
		shutdownHandler.OnShutdown("httpserver", httpSrv.Shutdown)
	}

	if configFile != "" {
		stop, err := watchConfig(configFile, loader, log)
		if err != nil {
			log.Warn("config watch disabled", "path", configFile, "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error { return stop() })
		}
	}

	log.Info("server started", "address", srv.Addr().String())
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// flagOverrides returns the flags the user actually set, keyed by config path.
func flagOverrides(c *cli.Context) map[string]any {
	flags := make(map[string]any)
	if c.IsSet("port") {
		flags["server.port"] = c.Int("port")
	}
	if c.IsSet("log-level") {
		flags["log.level"] = c.String("log-level")
	}
	return flags
}

// loadConfig runs load (Loader.Load or Loader.Reload) over the defaults and
// verifies the result.
func loadConfig(load func(target any) error) (*config.ServerConfig, error) {
	cfg := config.Default()
	if err := load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func serverConfig(cfg *config.ServerConfig) *redisserver.Config {
	return &redisserver.Config{
		Address:        cfg.Server.Address(),
		IdleTimeout:    cfg.Server.IdleTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		ReadBufferSize: cfg.Server.ReadBuffer,
		RateLimit:      cfg.Server.RateLimit,
		NilReply:       redisserver.NilReply(strings.ToLower(cfg.Compat.NilReply)),
		DelReply:       redisserver.DelReply(strings.ToLower(cfg.Compat.DelReply)),
	}
}

// applySeed adds the configured seed entries to the CONFIG GET/SET map.
func applySeed(inst *service.Instance, seed map[string]string) {
	if len(seed) == 0 {
		return
	}
	pairs := make([]resp.Value, 0, 2*len(seed))
	for k, v := range seed {
		pairs = append(pairs, resp.BulkString(k), resp.BulkString(v))
	}
	inst.ConfigSet(pairs)
}

func startHTTP(
	cfg *config.ServerConfig,
	metrics *metric.Registry,
	inst *service.Instance,
	srv *redisserver.Server,
	sh *shutdown.Handler,
	log *slog.Logger,
) (*httpserver.Server, error) {
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Metrics:  metrics.Handler(),
		Keyspace: inst.Registry(),
		Ready:    srv.Running,
		Logger:   log.With("component", "httpserver"),
	})

	httpSrv := httpserver.New(cfg.Metrics.Addr, router)
	if err := httpSrv.Listen(); err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", cfg.Metrics.Addr, err)
	}

	go func() {
		log.Info("metrics server listening", "addr", httpSrv.Addr())
		if err := httpSrv.Serve(); err != nil {
			log.Error("metrics server error", "error", err)
			sh.Trigger("metrics server failed")
		}
	}()
	return httpSrv, nil
}

// watchConfig reloads the config file on change and applies log.level.
// Other settings need a restart.
func watchConfig(path string, loader *confloader.Loader, log *slog.Logger) (func() error, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}

	w.OnChange(func(string) {
		next, err := loadConfig(loader.Reload)
		if err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		if strings.EqualFold(next.Log.Level, logger.GetLevel()) {
			return
		}
		if err := logger.SetLevel(next.Log.Level); err != nil {
			log.Warn("config reload: bad log level", "level", next.Log.Level, "error", err)
			return
		}
		log.Info("log level changed", "level", next.Log.Level)
	})
	w.StartAsync()

	return w.Stop, nil
}
