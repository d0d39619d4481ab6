package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/sitemapkeeper/internal/client/activity"
	"github.com/dmitrijs2005/sitemapkeeper/internal/client/models"
	"github.com/dmitrijs2005/sitemapkeeper/internal/common"
)

// NewAccount is the input of Register.
type NewAccount struct {
	Email       string
	Name        string
	DateOfBirth string
	Password    string
	Confirm     string
}

// AccountService manages identities and the device's single session.
//
// Contract:
//   - Register: create a record for a new identifier (not logged in yet).
//   - Login: verify the password digest and make the identity active.
//   - Logout: clear the active session.
//   - Current: the active user's record or common.ErrNoSession.
//   - StartSession: record "Session started" and an "App Loaded" event.
//   - RecordConnectivity: audit an online/offline transition.
type AccountService interface {
	Register(ctx context.Context, in NewAccount) error
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	Current(ctx context.Context) (*models.UserRecord, error)
	StartSession(ctx context.Context) error
	RecordConnectivity(ctx context.Context, offline bool) error
}

type accountService struct {
	core
}

func NewAccountService(d Deps) AccountService {
	return &accountService{core: newCore(d)}
}

func (s *accountService) Register(ctx context.Context, in NewAccount) error {
	email := strings.TrimSpace(in.Email)
	if err := checkNewPassword(in.Password, in.Confirm); err != nil {
		return err
	}
	if in.DateOfBirth != "" {
		if _, err := parseDate(in.DateOfBirth); err != nil {
			return validationError("date of birth %q: expected YYYY-MM-DD", in.DateOfBirth)
		}
	}

	u := &models.UserRecord{
		Email:          email,
		Name:           strings.TrimSpace(in.Name),
		DateOfBirth:    in.DateOfBirth,
		PasswordHash:   HashPassword(in.Password),
		Logs:           []string{},
		Folders:        []models.Folder{},
		Settings:       map[string]string{},
		VersionHistory: []models.VersionEvent{},
	}
	if err := models.Validate(u); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	s.recorder.Log(u, "Account created")

	for attempt := 1; ; attempt++ {
		st, err := s.store.Load(ctx)
		if err != nil {
			return err
		}
		if _, exists := st.Get(email); exists {
			return fmt.Errorf("%s: %w", email, common.ErrAlreadyExists)
		}
		st.Put(email, u)
		err = s.store.CompareAndSave(ctx, st)
		if err == nil {
			s.logger.Info(ctx, "account registered", "email", email)
			return nil
		}
		if attempt == maxUpdateAttempts || !isConflict(err) {
			return err
		}
	}
}

func (s *accountService) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	st, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	u, ok := st.Get(email)
	if !ok {
		return common.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(u.PasswordHash), []byte(HashPassword(password))) != 1 {
		return common.ErrUnauthorized
	}
	if err := s.store.SetActive(ctx, email); err != nil {
		return err
	}
	s.logger.Info(ctx, "logged in", "email", email)
	return nil
}

func (s *accountService) Logout(ctx context.Context) error {
	return s.store.ClearActive(ctx)
}

func (s *accountService) Current(ctx context.Context) (*models.UserRecord, error) {
	_, u, err := s.current(ctx)
	return u, err
}

func (s *accountService) StartSession(ctx context.Context) error {
	_, err := s.update(ctx, func(u *models.UserRecord) error {
		s.recorder.Log(u, "Session started")
		s.recorder.Event(u, activity.ActionAppLoaded)
		return nil
	})
	return err
}

// Audit lines for connectivity transitions.
const (
	OfflineAudit = "Offline mode: Read-only enabled"
	OnlineAudit  = "Online mode: Editing enabled"
)

// RecordConnectivity is a no-op without a session.
func (s *accountService) RecordConnectivity(ctx context.Context, offline bool) error {
	msg := OnlineAudit
	if offline {
		msg = OfflineAudit
	}
	_, err := s.update(ctx, func(u *models.UserRecord) error {
		s.recorder.Log(u, msg)
		return nil
	})
	if errors.Is(err, common.ErrNoSession) {
		return nil
	}
	return err
}
