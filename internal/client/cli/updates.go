package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/sitemapkeeper/internal/client/connectivity"
	"github.com/dmitrijs2005/sitemapkeeper/internal/updatechannel"
)

const (
	OfflineBanner = "You are offline. All local features are available."
	OnlineBanner  = "Back online. Editing enabled."
)

// onConnectivityChange shows the banner and writes the audit line for the
// active account.
func (a *App) onConnectivityChange(ctx context.Context, s connectivity.State) {
	switch s {
	case connectivity.Offline:
		printlnFn(OfflineBanner)
	case connectivity.Online:
		printlnFn(OnlineBanner)
	default:
		return
	}
	if err := a.accounts.RecordConnectivity(ctx, s == connectivity.Offline); err != nil {
		a.logger.Warn(ctx, "record connectivity change", "err", err)
	}
}

// watchUpdates listens on the agent's update channel until ctx is done.
func (a *App) watchUpdates(ctx context.Context) {
	c, err := dialChannel(ctx, a.config.AgentChannelURL)
	if err != nil {
		a.logger.Warn(ctx, "update channel unavailable", "url", a.config.AgentChannelURL, "err", err)
		return
	}
	a.mu.Lock()
	a.channel = c
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.channel = nil
		a.mu.Unlock()
		_ = c.Close()
	}()

	if err := c.Listen(ctx, a.onUpdateMessage); err != nil && ctx.Err() == nil {
		a.logger.Warn(ctx, "update channel closed", "err", err)
	}
}

func (a *App) onUpdateMessage(msg updatechannel.Message) {
	if msg.Type != updatechannel.TypeUpdated {
		return
	}
	a.mu.Lock()
	a.pending = msg.Version
	a.mu.Unlock()
	printlnFn(fmt.Sprintf("Update available: version %s is ready. Type 'reload' to apply it.", msg.Version))
}

// Reload asks the agent to activate a waiting version and restarts the
// session so the new version is recorded.
func (a *App) Reload(ctx context.Context) error {
	a.mu.Lock()
	c, pending := a.channel, a.pending
	a.pending = ""
	a.mu.Unlock()

	if c != nil {
		if err := c.Send(ctx, updatechannel.SkipWaiting()); err != nil {
			return fmt.Errorf("notify agent: %w", err)
		}
	}
	if err := a.accounts.StartSession(ctx); err != nil {
		return err
	}
	if pending != "" {
		printlnFn("Reloaded with version", pending)
	} else {
		printlnFn("Reloaded")
	}
	return nil
}
