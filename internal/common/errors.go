// Package common defines shared constants and sentinel errors used across
// client and agent layers of sitemapkeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
	ErrQuotaExceeded   = errors.New("storage quota exceeded")

	// Service-level errors.
	ErrNoSession       = errors.New("no active session")
	ErrUnauthorized    = errors.New("invalid credentials")
	ErrAlreadyExists   = errors.New("already exists")
	ErrReadOnly        = errors.New("offline: read-only mode")
	ErrValidation      = errors.New("validation error")
	ErrInvalidPassword = errors.New("password invalid or mismatch")

	// Backup import errors.
	ErrInvalidBackup = errors.New("invalid backup file")
	ErrRestoreFailed = errors.New("restore failed")

	// Caching agent lifecycle errors.
	ErrInstallFailed = errors.New("install failed")
	ErrInvalidState  = errors.New("invalid agent state")
)
