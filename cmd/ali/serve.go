package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	goutils "github.com/jkaninda/go-utils"

	"github.com/ckaya/ali/internal/config"
	"github.com/ckaya/ali/internal/gateway"
	"github.com/ckaya/ali/internal/gateway/cli"
	"github.com/ckaya/ali/internal/gateway/httpapi"
	"github.com/ckaya/ali/internal/gateway/ws"
	"github.com/ckaya/ali/internal/ratelimit"
	"github.com/ckaya/ali/internal/scheduler"
)

var (
	serveConfigPath string
	servePort       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start in serve mode (HTTP API, WebSocket chat, scheduler)",
	RunE:  runServe,
}

func init() {
	// Register flags on both root and serve so that
	// `ali --config path` and `ali serve --config path` both work.
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVar(&serveConfigPath, "config", config.DefaultConfigPath(), "path to config file")
		cmd.Flags().StringVar(&servePort, "port", "", "override HTTP listen port (e.g. :8080)")
	}
}

// runServe starts Ali in serve mode: wakes the mind, starts the
// maintenance scheduler, then serves the HTTP and WebSocket gateways
// until a signal arrives.
func runServe(_ *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(goutils.Env("ALI_CONFIG", serveConfigPath))
	if err != nil {
		return err
	}

	// Apply CLI overrides.
	if servePort != "" {
		if cfg.Gateways.HTTP == nil {
			cfg.Gateways.HTTP = &config.HTTPGatewayConfig{}
		}
		cfg.Gateways.HTTP.ListenAddr = servePort
	}

	logger.Info("starting in serve mode", slog.String("config", serveConfigPath))

	sc, err := initShared(cfg, logger)
	if err != nil {
		return err
	}
	defer sc.Cleanup()

	// Signal-aware context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Maintenance scheduler (consolidation, reflection, emotion decay).
	if cfg.Scheduler != nil {
		var schedMetrics *scheduler.Metrics
		if sc.Obs != nil && sc.Obs.Metrics != nil {
			schedMetrics = scheduler.NewMetrics(sc.Obs.Metrics.Registry)
		}

		sched := scheduler.New(sc.Mind, cfg.Scheduler, schedMetrics, logger)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = sched.Stop(stopCtx)
		}()

		logger.Debug("scheduler initialized",
			slog.String("consolidation", cfg.Scheduler.Consolidation()),
			slog.String("reflection", cfg.Scheduler.Reflection()),
			slog.String("emotion_decay", cfg.Scheduler.EmotionDecay()),
		)
	}

	// Build enabled gateways.
	gateways := buildGateways(cfg, sc)
	if len(gateways) == 0 {
		return fmt.Errorf("no gateways enabled in config")
	}
	logger.Info("gateways configured", slog.Int("count", len(gateways)))

	// Start all gateways in goroutines.
	errs := make(chan error, len(gateways))
	for _, gw := range gateways {
		go func(g gateway.Gateway) {
			errs <- g.Start(ctx)
		}(gw)
	}

	// Wait for signal or first gateway error.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errs:
		if err != nil {
			logger.Error("gateway exited with error", slog.String("error", err.Error()))
		}
	}

	// Graceful shutdown with deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := len(gateways) - 1; i >= 0; i-- {
		if err := gateways[i].Stop(shutdownCtx); err != nil {
			logger.Error("stopping gateway", slog.String("error", err.Error()))
		}
	}

	// The mind signs off on what it has become before sleeping.
	if err := sc.Mind.SaveState(sc.DataDir); err != nil {
		logger.Error("saving state", slog.String("error", err.Error()))
	}

	return nil
}

// buildGateways creates all enabled gateways from config.
func buildGateways(cfg *config.Config, sc *SharedComponents) []gateway.Gateway {
	var gws []gateway.Gateway
	gwCfg := cfg.Gateways

	// Default to the console channel if no gateways section is configured.
	if gwCfg.HTTP == nil && gwCfg.WS == nil {
		gws = append(gws, cli.NewGateway(sc.Mind, "", sc.Logger))
		sc.Logger.Debug("gateway enabled", slog.String("type", "cli"), slog.String("reason", "default"))
		return gws
	}

	// WebSocket chat server.
	var wsServer *ws.Server
	if gwCfg.WS != nil {
		wsServer = ws.NewServer(sc.Mind, gwCfg.WS, sc.Logger)
		sc.Logger.Debug("websocket chat initialized", slog.String("path", gwCfg.WS.ChatPath()))
	}

	// HTTP API gateway.
	var httpGW *httpapi.Gateway
	if gwCfg.HTTP != nil {
		var limiter *ratelimit.Limiter
		if gwCfg.HTTP.RequestsPerMinute > 0 {
			limiter = ratelimit.NewLimiter(ratelimit.Config{
				RequestsPerMinute: gwCfg.HTTP.RequestsPerMinute,
			})
		}

		// Build API key → caller mapping from config + env override.
		apiKeys := gwCfg.HTTP.APIKeys
		if apiKeys == nil {
			apiKeys = make(map[string]string)
		}
		if envKeys := os.Getenv("ALI_API_KEYS"); envKeys != "" {
			for _, entry := range strings.Split(envKeys, ",") {
				parts := strings.SplitN(strings.TrimSpace(entry), ":", 2)
				if len(parts) == 2 {
					apiKeys[parts[0]] = parts[1]
				}
			}
		}

		httpCfg := httpapi.Config{
			ListenAddr:     gwCfg.HTTP.Addr(),
			EnableDocs:     gwCfg.HTTP.EnableDocs,
			APIKeys:        apiKeys,
			MaxRequestSize: gwCfg.HTTP.BodyLimit(),
		}
		if sc.Obs != nil {
			httpCfg.Metrics = sc.Obs.Metrics
			httpCfg.HealthChecker = sc.Obs.Health
			if sc.Obs.Metrics != nil {
				httpCfg.MetricsRegistry = sc.Obs.Metrics.Registry
			}
			if sc.Obs.Tracer != nil {
				httpCfg.Tracer = sc.Obs.Tracer.Tracer()
			}
			if cfg.Observability != nil && cfg.Observability.Metrics != nil {
				httpCfg.MetricsPath = cfg.Observability.Metrics.MetricsPath()
			}
		}
		httpGW = httpapi.NewGateway(httpCfg, sc.Mind, limiter, sc.Logger)
	}

	// Mount the WebSocket chat handler on the HTTP gateway if both are
	// enabled. Otherwise, start a standalone listener for the endpoint.
	if wsServer != nil {
		wsPath := gwCfg.WS.ChatPath()

		if httpGW != nil {
			httpGW.WithHandler(wsPath, wsServer.Handler())
			sc.Logger.Debug("websocket chat mounted on http gateway",
				slog.String("path", wsPath),
			)
		} else {
			gws = append(gws, newStandaloneWSGateway(wsServer, ":8081", wsPath, sc.Logger))
			sc.Logger.Debug("gateway enabled",
				slog.String("type", "websocket"),
				slog.String("path", wsPath),
			)
		}
	}

	if httpGW != nil {
		gws = append(gws, httpGW)
		sc.Logger.Debug("gateway enabled",
			slog.String("type", "http"),
			slog.String("addr", gwCfg.HTTP.Addr()),
			slog.Bool("websocket", wsServer != nil),
		)
	}

	return gws
}

// standaloneWSGateway wraps a ws.Server as a gateway.Gateway for cases
// where the HTTP gateway is not enabled and the WebSocket chat endpoint
// needs its own HTTP listener.
type standaloneWSGateway struct {
	wsServer   *ws.Server
	addr       string
	path       string
	logger     *slog.Logger
	httpServer *http.Server
}

func newStandaloneWSGateway(wsServer *ws.Server, addr, path string, logger *slog.Logger) *standaloneWSGateway {
	return &standaloneWSGateway{
		wsServer: wsServer,
		addr:     addr,
		path:     path,
		logger:   logger,
	}
}

func (g *standaloneWSGateway) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(g.path, g.wsServer.Handler())

	g.httpServer = &http.Server{
		Addr:              g.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	g.logger.Info("standalone websocket gateway starting", slog.String("addr", g.addr))
	if err := g.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("websocket gateway: %w", err)
	}
	return nil
}

func (g *standaloneWSGateway) Stop(ctx context.Context) error {
	if g.httpServer != nil {
		return g.httpServer.Shutdown(ctx)
	}
	return nil
}
