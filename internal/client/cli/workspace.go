package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/sitemapkeeper/internal/client/services"
)

// parseIndex reads the 1-based position args[i] and returns it 0-based.
func parseIndex(args []string, i int, what string) (int, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing %s number", what)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s number %q", what, args[i])
	}
	return n - 1, nil
}

// Folders lists the folders with their entry counts.
func (a *App) Folders(ctx context.Context) error {
	folders, err := a.workspace.Folders(ctx)
	if err != nil {
		return err
	}
	if len(folders) == 0 {
		printlnFn("No folders yet. Create one with 'mkdir <name>'.")
		return nil
	}
	for i, f := range folders {
		printlnFn(fmt.Sprintf("%d. %s (%d entries)", i+1, f.Name, len(f.Files)))
	}
	return nil
}

func (a *App) Mkdir(ctx context.Context, args []string) error {
	name, err := argOrPrompt(a, args, "Folder name")
	if err != nil {
		return err
	}
	idx, err := a.workspace.CreateFolder(ctx, name)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Folder %d created: %s", idx+1, strings.TrimSpace(name)))
	return nil
}

// Show prints the entries of one folder.
func (a *App) Show(ctx context.Context, args []string) error {
	fi, err := parseIndex(args, 0, "folder")
	if err != nil {
		return err
	}
	folders, err := a.workspace.Folders(ctx)
	if err != nil {
		return err
	}
	if fi >= len(folders) {
		return fmt.Errorf("folder %d does not exist", fi+1)
	}
	f := folders[fi]
	printlnFn(fmt.Sprintf("Folder: %s", f.Name))
	if len(f.Files) == 0 {
		printlnFn("  (empty)")
	}
	for i, e := range f.Files {
		printlnFn(fmt.Sprintf("  %d. %s  priority=%s changefreq=%s lastmod=%s", i+1, e.URL, e.Priority, e.Changefreq, e.Lastmod))
	}
	return nil
}

// AddEntry appends an entry with default values to a folder.
func (a *App) AddEntry(ctx context.Context, args []string) error {
	fi, err := parseIndex(args, 0, "folder")
	if err != nil {
		return err
	}
	e, err := a.workspace.AddEntry(ctx, fi)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Entry added: %s (edit it with 'edit %d <entry>')", e.URL, fi+1))
	return nil
}

// EditEntry prompts for new values of one entry, offering the current ones
// as defaults.
func (a *App) EditEntry(ctx context.Context, args []string) error {
	fi, err := parseIndex(args, 0, "folder")
	if err != nil {
		return err
	}
	ei, err := parseIndex(args, 1, "entry")
	if err != nil {
		return err
	}
	folders, err := a.workspace.Folders(ctx)
	if err != nil {
		return err
	}
	if fi >= len(folders) || ei >= len(folders[fi].Files) {
		return fmt.Errorf("entry %d.%d does not exist", fi+1, ei+1)
	}
	cur := folders[fi].Files[ei]

	var edit services.EntryEdit
	if edit.URL, err = GetTextOr(a.reader, "URL", cur.URL, a.out); err != nil {
		return err
	}
	if edit.Priority, err = GetTextOr(a.reader, "Priority (0.1-1.0)", cur.Priority, a.out); err != nil {
		return err
	}
	if edit.Changefreq, err = GetTextOr(a.reader, "Change frequency", cur.Changefreq, a.out); err != nil {
		return err
	}

	e, err := a.workspace.EditEntry(ctx, fi, ei, edit)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Entry updated: %s (lastmod %s)", e.URL, e.Lastmod))
	return nil
}

// Robots prompts for the robots.txt directives, stores the result and
// prints it.
func (a *App) Robots(ctx context.Context) error {
	allow, err := GetTextOr(a.reader, "Allow", "/", a.out)
	if err != nil {
		return err
	}
	disallow, err := getSimpleText(a.reader, "Disallow (optional)", a.out)
	if err != nil {
		return err
	}
	sitemap, err := getSimpleText(a.reader, "Sitemap URL (optional)", a.out)
	if err != nil {
		return err
	}
	txt, err := a.workspace.GenerateRobots(ctx, allow, disallow, sitemap)
	if err != nil {
		return err
	}
	printlnFn(txt)
	return nil
}
