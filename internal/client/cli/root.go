package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sitemapkeeper/internal/client/connectivity"
	"github.com/dmitrijs2005/sitemapkeeper/internal/common"
)

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	if st := a.monitor.State(); st != connectivity.Unknown {
		s = s + st.String()
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root resumes a previous session, if any, and runs the REPL on a.reader.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to the Sitemap Generator CLI (type 'help' for commands)")

	if err := a.resume(ctx); err != nil && !errors.Is(err, common.ErrNoSession) {
		a.logger.Error(ctx, "resume session", "err", err)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}

// resume picks up the session left by a previous run.
func (a *App) resume(ctx context.Context) error {
	u, err := a.accounts.Current(ctx)
	if err != nil {
		return err
	}
	a.userName = u.Email
	printlnFn(fmt.Sprintf("Welcome back, %s", displayName(u.Name, u.Email)))
	return a.accounts.StartSession(ctx)
}

func displayName(name, email string) string {
	if name != "" {
		return name
	}
	return email
}
