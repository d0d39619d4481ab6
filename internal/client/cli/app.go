package cli

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"os"
	"sync"

	"github.com/dmitrijs2005/sitemapkeeper/internal/client/activity"
	"github.com/dmitrijs2005/sitemapkeeper/internal/client/config"
	"github.com/dmitrijs2005/sitemapkeeper/internal/client/connectivity"
	"github.com/dmitrijs2005/sitemapkeeper/internal/client/services"
	"github.com/dmitrijs2005/sitemapkeeper/internal/client/store"
	"github.com/dmitrijs2005/sitemapkeeper/internal/logging"
	"github.com/dmitrijs2005/sitemapkeeper/internal/updatechannel"
)

// updateClient is the part of updatechannel.Client the app uses.
type updateClient interface {
	Send(ctx context.Context, msg updatechannel.Message) error
	Listen(ctx context.Context, fn func(updatechannel.Message)) error
	Close() error
}

// dialChannel is a test seam for updatechannel.Dial.
var dialChannel = func(ctx context.Context, url string) (updateClient, error) {
	c, err := updatechannel.Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type App struct {
	config    *config.Config
	accounts  services.AccountService
	workspace services.WorkspaceService
	transfer  services.TransferService
	monitor   *connectivity.Monitor
	logger    logging.Logger
	reader    *bufio.Reader
	out       io.Writer
	userName  string

	mu      sync.Mutex
	channel updateClient
	pending string
}

// NewApp builds the application over an opened and migrated database.
func NewApp(c *config.Config, db *sql.DB, logger logging.Logger) *App {
	monitor := connectivity.NewMonitor(&connectivity.HTTPProber{URL: c.ProbeURL}, logging.Component(logger, "connectivity"))
	deps := services.Deps{
		Store:    store.New(db, c.QuotaBytes, logging.Component(logger, "store")),
		Recorder: activity.New(c.AppVersion),
		ReadOnly: monitor,
		Logger:   logger,
	}
	a := &App{
		config:    c,
		accounts:  services.NewAccountService(deps),
		workspace: services.NewWorkspaceService(deps),
		transfer:  services.NewTransferService(deps, c.ExportDir),
		monitor:   monitor,
		logger:    logger,
		reader:    bufio.NewReader(os.Stdin),
		out:       os.Stdout,
	}
	monitor.OnChange(a.onConnectivityChange)
	return a
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

// Run starts the background watchers and the REPL. It blocks until the
// user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.monitor.Run(ctx, a.config.OnlineCheckInterval)
	if a.config.AgentChannelURL != "" {
		go a.watchUpdates(ctx)
	}
	a.Root(ctx)
}
