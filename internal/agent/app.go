package agent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dmitrijs2005/sitemapkeeper/internal/agent/cachestore"
	"github.com/dmitrijs2005/sitemapkeeper/internal/agent/config"
	"github.com/dmitrijs2005/sitemapkeeper/internal/dbx"
	"github.com/dmitrijs2005/sitemapkeeper/internal/logging"
	"github.com/dmitrijs2005/sitemapkeeper/internal/updatechannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	channelBuffer   = 8
	shutdownTimeout = 5 * time.Second
)

// App runs the caching agent: it installs the configured version in the
// background and serves the proxy, the update channel, metrics and status
// on one listener.
type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	reg    *Registration
	server *http.Server

	// newAgent builds a fresh agent for version. A failed install leaves
	// its agent redundant, so every attempt needs a new one.
	newAgent func(version string) (*Agent, error)
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	origin, err := c.OriginURL()
	if err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}
	scope, err := c.ScopeURL()
	if err != nil {
		return nil, fmt.Errorf("scope: %w", err)
	}

	db, err := dbx.Open(ctx, c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := NewMetrics(registry)

	broker := updatechannel.NewBroker(channelBuffer, logging.Component(logger, "channel"))
	reg := NewRegistration(logging.Component(logger, "registration"))
	broker.SetListener(reg)

	network := http.DefaultTransport.(*http.Transport).Clone()
	network.ResponseHeaderTimeout = c.FetchTimeout

	cache := cachestore.NewSQLiteStorage(db)
	newAgent := func(version string) (*Agent, error) {
		opts := Options{
			Version:      version,
			Scope:        scope,
			Manifest:     c.Manifest,
			RootDocument: c.RootDocument,
		}
		return New(opts, cache, network, broker, metrics, logging.Component(logger, "agent"))
	}
	if _, err := newAgent(c.Version); err != nil {
		_ = db.Close()
		return nil, err
	}

	router := NewRouter(
		NewProxy(origin, reg.Transport(network), logging.Component(logger, "proxy")),
		updatechannel.NewHandler(broker, logging.Component(logger, "channel")),
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		StatusHandler(reg),
	)

	app := &App{
		config: c,
		logger: logger,
		db:     db,
		reg:    reg,
		server: &http.Server{
			Addr:              c.ListenAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		newAgent: newAgent,
	}
	if err := app.restoreInstalled(ctx, cache); err != nil {
		logger.Warn(ctx, "cached version not restored", "err", err)
	}
	return app, nil
}

// restoreInstalled reactivates the version a previous run left in the cache.
// The configured version wins when its cache exists; otherwise the one whose
// root document was stored last does.
func (app *App) restoreInstalled(ctx context.Context, cache cachestore.Storage) error {
	keys, err := cache.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list caches: %w", err)
	}

	var (
		best   *Agent
		stored time.Time
	)
	for _, k := range keys {
		version, ok := strings.CutPrefix(k, CachePrefix)
		if !ok || version == "" {
			continue
		}
		a, err := app.newAgent(version)
		if err != nil {
			return err
		}
		if version == app.config.Version {
			best = a
			break
		}
		var at time.Time
		if e, err := cache.Match(ctx, k, a.root); err == nil {
			at = e.StoredAt
		}
		if best == nil || at.After(stored) {
			best, stored = a, at
		}
	}
	if best == nil {
		return nil
	}
	return app.reg.Restore(ctx, best)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// install registers the configured version, retrying a failed install at
// most once per InstallRetry until one succeeds or ctx is done. Until then
// the version restored from the cache keeps serving, or, without one, the
// proxy passes requests straight to the network. A version restored at the
// configured tag is not installed again.
func (app *App) install(ctx context.Context) {
	if a := app.reg.Active(); a != nil && a.Version() == app.config.Version {
		app.logger.Info(ctx, "configured version already installed", "version", a.Version())
		return
	}
	limiter := rate.NewLimiter(rate.Every(app.config.InstallRetry), 1)
	for attempt := 1; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		a, err := app.newAgent(app.config.Version)
		if err != nil {
			app.logger.Error(ctx, "build agent", "err", err)
			return
		}
		err = app.reg.Register(ctx, a)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		app.logger.Warn(ctx, "install failed, previous state keeps serving", "attempt", attempt, "retry_in", app.config.InstallRetry.String(), "err", err)
	}
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	app.initSignalHandler(cancelFunc)

	app.logger.Info(ctx, "Starting agent...", "addr", app.config.ListenAddr, "version", app.config.Version, "origin", app.config.Origin)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.install(ctx)
		return nil
	})

	g.Go(func() error {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", app.config.ListenAddr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if cerr := app.db.Close(); cerr != nil && err == nil {
		err = cerr
	}
	app.logger.Info(context.Background(), "agent stopped")
	return err
}
