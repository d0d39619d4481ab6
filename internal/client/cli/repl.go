package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/sitemapkeeper/internal/common"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Profile(ctx context.Context) error
	Folders(ctx context.Context) error
	Mkdir(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	AddEntry(ctx context.Context, args []string) error
	EditEntry(ctx context.Context, args []string) error
	Passwd(ctx context.Context) error
	Photo(ctx context.Context, args []string) error
	Robots(ctx context.Context) error
	RobotsDownload(ctx context.Context) error
	Export(ctx context.Context, args []string) error
	Backup(ctx context.Context) error
	Restore(ctx context.Context, args []string) error
	Storage(ctx context.Context) error
	Log(ctx context.Context) error
	History(ctx context.Context) error
	Reload(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: register, login, exit"
	helpLoggedIn  = "Available commands: (l)ist, show <n>, mkdir <name>, add <n>, edit <n> <m>, " +
		"export <n> xml|report|zip, robots, robots-download, backup, restore <file>, " +
		"passwd, photo <file>, profile, storage, log, history, reload, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the sitemapkeeper CLI.
//
// It reads a line from reader, parses the first token as the command and
// the rest as arguments, and dispatches to methods on 'a'. The loop exits
// on EOF or when the user types "exit" or "quit".
//
// Errors returned by command handlers are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("sk %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}
		if err := dispatch(ctx, a, cmd, args); err != nil {
			printlnFn(describe(err))
		}
	}
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "help":
		if a.isLoggedIn() {
			printlnFn(helpLoggedIn)
		} else {
			printlnFn(helpLoggedOut)
		}
		return nil
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	}

	if !a.isLoggedIn() {
		if _, known := loggedInCommands[cmd]; known {
			printlnFn("Please log in first.")
			return nil
		}
		printlnFn("Unknown command:", cmd)
		return nil
	}

	switch cmd {
	case "logout":
		return a.Logout(ctx)
	case "profile", "whoami":
		return a.Profile(ctx)
	case "l", "list", "folders":
		return a.Folders(ctx)
	case "mkdir":
		return a.Mkdir(ctx, args)
	case "show":
		return a.Show(ctx, args)
	case "add":
		return a.AddEntry(ctx, args)
	case "edit":
		return a.EditEntry(ctx, args)
	case "passwd":
		return a.Passwd(ctx)
	case "photo":
		return a.Photo(ctx, args)
	case "robots":
		return a.Robots(ctx)
	case "robots-download":
		return a.RobotsDownload(ctx)
	case "export":
		return a.Export(ctx, args)
	case "backup":
		return a.Backup(ctx)
	case "restore":
		return a.Restore(ctx, args)
	case "storage":
		return a.Storage(ctx)
	case "log":
		return a.Log(ctx)
	case "history":
		return a.History(ctx)
	case "reload":
		return a.Reload(ctx)
	default:
		printlnFn("Unknown command:", cmd)
		return nil
	}
}

var loggedInCommands = map[string]struct{}{
	"logout": {}, "profile": {}, "whoami": {}, "l": {}, "list": {}, "folders": {},
	"mkdir": {}, "show": {}, "add": {}, "edit": {}, "passwd": {}, "photo": {},
	"robots": {}, "robots-download": {}, "export": {}, "backup": {}, "restore": {},
	"storage": {}, "log": {}, "history": {}, "reload": {},
}

// describe turns a command error into the line shown to the user.
func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrReadOnly):
		return "You are offline. This action is disabled in read-only mode."
	case errors.Is(err, common.ErrQuotaExceeded):
		return "Storage quota exceeded. Nothing was saved."
	case errors.Is(err, common.ErrInvalidBackup):
		return "Invalid backup file."
	case errors.Is(err, common.ErrRestoreFailed):
		return "Restore failed: the file is not a readable backup."
	case errors.Is(err, common.ErrNoSession):
		return "Please log in first."
	default:
		return "Error: " + err.Error()
	}
}
