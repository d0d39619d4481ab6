package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/sitemapkeeper/internal/client/services"
	"github.com/dmitrijs2005/sitemapkeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for the account details and creates the account. The
// new account is not logged in.
func (a *App) Register(ctx context.Context) error {
	var in services.NewAccount
	var err error

	if in.Name, err = getSimpleText(a.reader, "Full name", a.out); err != nil {
		return err
	}
	if in.Email, err = getSimpleText(a.reader, "Email", a.out); err != nil {
		return err
	}
	if in.DateOfBirth, err = getSimpleText(a.reader, "Date of birth (YYYY-MM-DD, optional)", a.out); err != nil {
		return err
	}
	if in.Password, err = getPassword("Password", a.out); err != nil {
		return err
	}
	if in.Confirm, err = getPassword("Confirm password", a.out); err != nil {
		return err
	}

	if err := a.accounts.Register(ctx, in); err != nil {
		switch {
		case errors.Is(err, common.ErrAlreadyExists):
			printlnFn("An account with this email already exists.")
			return nil
		case errors.Is(err, common.ErrInvalidPassword):
			printlnFn(fmt.Sprintf("Passwords must match and be at least %d characters.", services.MinPasswordLength))
			return nil
		}
		return err
	}
	printlnFn("Account created. You can log in now.")
	return nil
}

// Login prompts for credentials and starts a session on success.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword("Password", a.out)
	if err != nil {
		return err
	}

	if err := a.accounts.Login(ctx, email, password); err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			printlnFn("Invalid email or password.")
			return nil
		}
		return err
	}
	a.userName = strings.TrimSpace(email)
	if err := a.accounts.StartSession(ctx); err != nil {
		return err
	}
	printlnFn("Login successful")
	return nil
}

// Logout ends the session. The account data stays on disk.
func (a *App) Logout(ctx context.Context) error {
	if err := a.accounts.Logout(ctx); err != nil {
		return err
	}
	a.userName = ""
	printlnFn("Logged out")
	return nil
}

// Profile prints the active account's details.
func (a *App) Profile(ctx context.Context) error {
	u, err := a.accounts.Current(ctx)
	if err != nil {
		return err
	}
	dob := u.DateOfBirth
	if dob == "" {
		dob = "-"
	}
	photo := "not set"
	if u.Photo != "" {
		photo = "set"
	}
	printlnFn(fmt.Sprintf("Name:          %s\nEmail:         %s\nDate of birth: %s\nPhoto:         %s\nFolders:       %d",
		displayName(u.Name, u.Email), u.Email, dob, photo, len(u.Folders)))
	return nil
}

// Passwd changes the password of the active account.
func (a *App) Passwd(ctx context.Context) error {
	password, err := getPassword("New password", a.out)
	if err != nil {
		return err
	}
	confirm, err := getPassword("Confirm password", a.out)
	if err != nil {
		return err
	}
	if err := a.workspace.UpdatePassword(ctx, password, confirm); err != nil {
		if errors.Is(err, common.ErrInvalidPassword) {
			printlnFn(fmt.Sprintf("Passwords must match and be at least %d characters.", services.MinPasswordLength))
			return nil
		}
		return err
	}
	printlnFn("Password updated")
	return nil
}

// Photo sets the profile photo from an image file.
func (a *App) Photo(ctx context.Context, args []string) error {
	path, err := argOrPrompt(a, args, "Path to image file")
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := a.workspace.UpdatePhoto(ctx, data); err != nil {
		return err
	}
	printlnFn("Profile photo updated")
	return nil
}

// argOrPrompt joins args, or asks for the value when there are none.
func argOrPrompt(a *App, args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	return getSimpleText(a.reader, prompt, a.out)
}
