package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/sitemapkeeper/internal/client/activity"
	"github.com/dmitrijs2005/sitemapkeeper/internal/client/export"
	"github.com/dmitrijs2005/sitemapkeeper/internal/client/models"
	"github.com/dmitrijs2005/sitemapkeeper/internal/client/store"
	"github.com/dmitrijs2005/sitemapkeeper/internal/common"
	"github.com/dmitrijs2005/sitemapkeeper/internal/filex"
)

// ExportKind selects the folder export format.
type ExportKind string

const (
	KindXML    ExportKind = "xml"
	KindReport ExportKind = "report"
	KindZip    ExportKind = "zip"
)

// StorageWarnPercent is the usage at which StorageStatus warns.
const StorageWarnPercent = 80

// StorageStatus describes quota usage.
type StorageStatus struct {
	store.Usage
	Percent int
	Warning bool
}

// TransferService writes exports and backups to the export directory and
// restores backups.
type TransferService interface {
	Export(ctx context.Context, folder int, kind ExportKind) (string, error)
	ExportRobots(ctx context.Context) (string, error)
	ExportBackup(ctx context.Context) (string, error)
	ImportBackup(ctx context.Context, data []byte) error
	StorageStatus(ctx context.Context) (StorageStatus, error)
}

type transferService struct {
	core
	exportDir string
}

func NewTransferService(d Deps, exportDir string) TransferService {
	return &transferService{core: newCore(d), exportDir: exportDir}
}

func (s *transferService) write(name string, data []byte) (string, error) {
	dir, err := filex.EnsureSubdDir(s.exportDir)
	if err != nil {
		return "", err
	}
	return filex.WriteFileAtomic(dir, name, data)
}

var pathSeparators = strings.NewReplacer("/", "_", `\`, "_")

// exportName turns a folder name into a file name inside the export
// directory. Separators become underscores so "a/b" exports as "a_b.xml".
func exportName(folder, ext string) string {
	return pathSeparators.Replace(folder) + ext
}

func (s *transferService) audit(ctx context.Context, msg string, action string) error {
	_, err := s.update(ctx, func(u *models.UserRecord) error {
		s.recorder.Log(u, msg)
		if action != "" {
			s.recorder.Event(u, action)
		}
		return nil
	})
	return err
}

func (s *transferService) Export(ctx context.Context, folder int, kind ExportKind) (string, error) {
	_, u, err := s.current(ctx)
	if err != nil {
		return "", err
	}
	f, err := folderAt(u, folder)
	if err != nil {
		return "", err
	}

	var (
		name, msg string
		data      []byte
	)
	switch kind {
	case KindXML:
		name, msg, data = exportName(f.Name, ".xml"), "XML exported", []byte(export.ToXML(*f))
	case KindReport:
		name, msg, data = exportName(f.Name, ".txt"), "Report exported", []byte(export.ToReport(*f).String())
	case KindZip:
		data, err = export.ToArchive(*f, u.Settings[RobotsSettingKey], s.now())
		if err != nil {
			return "", err
		}
		name, msg = exportName(f.Name, ".zip"), "ZIP exported"
	default:
		return "", validationError("unknown export type %q", kind)
	}

	path, err := s.write(name, data)
	if err != nil {
		return "", err
	}
	return path, s.audit(ctx, msg, "")
}

func (s *transferService) ExportRobots(ctx context.Context) (string, error) {
	_, u, err := s.current(ctx)
	if err != nil {
		return "", err
	}
	txt := u.Settings[RobotsSettingKey]
	if txt == "" {
		return "", fmt.Errorf("robots.txt: %w", common.ErrorNotFound)
	}
	path, err := s.write("robots.txt", []byte(txt))
	if err != nil {
		return "", err
	}
	return path, s.audit(ctx, "robots.txt downloaded", "")
}

func (s *transferService) ExportBackup(ctx context.Context) (string, error) {
	_, u, err := s.current(ctx)
	if err != nil {
		return "", err
	}
	now := s.now()
	data, err := export.ToFullBackup(u, s.recorder.Version(), now)
	if err != nil {
		return "", err
	}
	path, err := s.write(export.BackupFileName(now), data)
	if err != nil {
		return "", err
	}
	return path, s.audit(ctx, "Full backup exported", activity.ActionBackupExported)
}

// ImportBackup replaces the active record wholesale with the backup's. The
// identifier stays the active one whatever the backup says. On any
// parse or validation failure the store is not touched.
func (s *transferService) ImportBackup(ctx context.Context, data []byte) error {
	restored, err := export.ParseFullBackup(data)
	if err != nil {
		return err
	}
	_, err = s.update(ctx, func(u *models.UserRecord) error {
		email := u.Email
		*u = *restored.Clone()
		u.Email = email
		s.recorder.Log(u, "Backup imported")
		s.recorder.Event(u, activity.ActionBackupImported)
		return nil
	})
	if err == nil {
		s.logger.Info(ctx, "backup restored", "email", restored.Email)
	}
	return err
}

func (s *transferService) StorageStatus(ctx context.Context) (StorageStatus, error) {
	u, err := s.store.Usage(ctx)
	if err != nil {
		return StorageStatus{}, err
	}
	pct := u.Percent()
	return StorageStatus{Usage: u, Percent: pct, Warning: u.Quota > 0 && pct >= StorageWarnPercent}, nil
}
