package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/relay/internal/config"
	"github.com/MrSnakeDoc/relay/internal/executor"
	"github.com/MrSnakeDoc/relay/internal/history"
	"github.com/MrSnakeDoc/relay/internal/httpserver"
	"github.com/MrSnakeDoc/relay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/relay/internal/logger"
	"github.com/MrSnakeDoc/relay/internal/relay"
	"github.com/MrSnakeDoc/relay/internal/scheduler"
	"github.com/MrSnakeDoc/relay/internal/store"
	"github.com/MrSnakeDoc/relay/internal/version"
)

// maxRelayBodyBytes caps the inbound relay payload.
const maxRelayBodyBytes = 10 << 20

type App struct {
	cfg    *config.Config
	logger logger.Logger
	server *httpserver.Server
	store  store.Store
	probe  *scheduler.StoreProbe
	relay  *relay.Service
}

// New connects the history store and wires the HTTP server. The store
// connection is the only step that can block.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	exec, err := executor.New(executor.Options{
		Timeout:          cfg.OutboundTimeout,
		MaxRedirects:     cfg.MaxRedirects,
		MaxResponseBytes: cfg.MaxResponseBytes,
		ProxyURL:         cfg.OutboundProxy,
		NoProxy:          cfg.NoProxy,
		SkipTLSVerify:    cfg.SkipTLSVerify,
	})
	if err != nil {
		return nil, fmt.Errorf("outbound executor: %w", err)
	}
	if cfg.SkipTLSVerify {
		log.Warn("upstream TLS verification disabled")
	}

	// Fail fast if the history backend is unavailable
	log.Infof("Opening %s history store", cfg.StoreDriver)
	st, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("history store: %w", err)
	}
	log.Info("History store initialized successfully")

	relaySvc := relay.New(exec, st, log, relay.Options{})
	historySvc := history.New(st, history.Options{
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	})
	probe := scheduler.NewStoreProbe(st, log, cfg.StoreProbeInterval)

	d := deps.Deps{
		Logger:       log,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		AllowedCIDRS: cfg.AllowedCIDRS,
		AllowedHosts: cfg.AllowedHosts,
		TrustProxy:   cfg.TrustProxy,
		StoreDriver:  cfg.StoreDriver,
		Relay:        relaySvc,
		History:      historySvc,
		StoreProbe:   probe,
		MaxBodyBytes: maxRelayBodyBytes,
	}

	return &App{
		cfg:    cfg,
		logger: log,
		server: httpserver.New(cfg, log, d),
		store:  st,
		probe:  probe,
		relay:  relaySvc,
	}, nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting relay v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.probe.Start(ctx)
	a.logger.Info("store probe started",
		logger.Duration("interval", a.cfg.StoreProbeInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	a.probe.Stop()

	if runErr == nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.server.Stop(shutdownCtx); err != nil {
			runErr = fmt.Errorf("failed to stop server: %w", err)
		}
	}

	// In-flight relays have finished (or timed out) by now, so their
	// history writes are done before the store goes away.
	if err := a.store.Close(); err != nil {
		a.logger.Warnf("failed to close history store: %v", err)
	} else {
		a.logger.Info("✅ History store closed cleanly")
	}

	st := a.relay.Stats()
	a.logger.Info("relay totals",
		logger.Int64("attempts", st.Attempts),
		logger.Int64("network_failures", st.NetworkFailures),
		logger.Int64("history_write_failures", st.HistoryWriteFailures),
		logger.Int64("canceled", st.Canceled))

	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ relay stopped cleanly")
	return nil
}
