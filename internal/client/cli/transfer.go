package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/sitemapkeeper/internal/client/services"
)

// Export writes one folder as xml, report or zip into the export directory.
func (a *App) Export(ctx context.Context, args []string) error {
	fi, err := parseIndex(args, 0, "folder")
	if err != nil {
		return err
	}
	kind := services.KindXML
	if len(args) > 1 {
		kind = services.ExportKind(strings.ToLower(args[1]))
	}
	path, err := a.transfer.Export(ctx, fi, kind)
	if err != nil {
		return err
	}
	printlnFn("Saved", path)
	return nil
}

func (a *App) RobotsDownload(ctx context.Context) error {
	path, err := a.transfer.ExportRobots(ctx)
	if err != nil {
		return err
	}
	printlnFn("Saved", path)
	return nil
}

// Backup writes the whole account as a JSON backup file.
func (a *App) Backup(ctx context.Context) error {
	path, err := a.transfer.ExportBackup(ctx)
	if err != nil {
		return err
	}
	printlnFn("Backup saved to", path)
	return nil
}

// Restore replaces the account data with a backup file's after
// confirmation.
func (a *App) Restore(ctx context.Context, args []string) error {
	path, err := argOrPrompt(a, args, "Path to backup file")
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	answer, err := getSimpleText(a.reader, "This replaces all current data of the account. Continue? (y/N)", a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		printlnFn("Restore cancelled")
		return nil
	}
	if err := a.transfer.ImportBackup(ctx, data); err != nil {
		return err
	}
	printlnFn("Backup restored")
	return nil
}

// Storage prints quota usage with a warning near the limit.
func (a *App) Storage(ctx context.Context) error {
	st, err := a.transfer.StorageStatus(ctx)
	if err != nil {
		return err
	}
	if st.Quota <= 0 {
		printlnFn(fmt.Sprintf("Storage used: %d bytes (no quota)", st.Used))
		return nil
	}
	printlnFn(fmt.Sprintf("Storage used: %d of %d bytes (%d%%)", st.Used, st.Quota, st.Percent))
	if st.Warning {
		printlnFn("Warning: storage is almost full. Export a backup and remove data you no longer need.")
	}
	return nil
}

// Log prints the activity log, most recent first.
func (a *App) Log(ctx context.Context) error {
	u, err := a.accounts.Current(ctx)
	if err != nil {
		return err
	}
	if len(u.Logs) == 0 {
		printlnFn("No activity yet.")
	}
	for _, l := range u.Logs {
		printlnFn(l)
	}
	return nil
}

// History prints the version history, most recent first.
func (a *App) History(ctx context.Context) error {
	u, err := a.accounts.Current(ctx)
	if err != nil {
		return err
	}
	if len(u.VersionHistory) == 0 {
		printlnFn("No version history yet.")
	}
	for _, ev := range u.VersionHistory {
		printlnFn(fmt.Sprintf("%s  %s  %s", ev.Time, ev.Version, ev.Action))
	}
	return nil
}
