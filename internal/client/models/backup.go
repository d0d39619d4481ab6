package models

// Backup is the full-backup file format.
type Backup struct {
	AppVersion string      `json:"appVersion"`
	ExportedAt string      `json:"exportedAt"`
	UserData   *UserRecord `json:"userData"`
}
