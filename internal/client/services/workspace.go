package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/sitemapkeeper/internal/client/export"
	"github.com/dmitrijs2005/sitemapkeeper/internal/client/models"
	"github.com/dmitrijs2005/sitemapkeeper/internal/common"
	"github.com/gabriel-vasile/mimetype"
)

// RobotsSettingKey is where the last generated robots.txt is kept.
const RobotsSettingKey = "robots_txt"

// EntryEdit carries the user's edit of one sitemap entry. Empty Priority
// and Changefreq keep the current values.
type EntryEdit struct {
	URL        string
	Priority   string
	Changefreq string
}

// WorkspaceService edits the active user's folders, entries and settings.
// CreateFolder, UpdatePassword and GenerateRobots are refused with
// common.ErrReadOnly while offline.
type WorkspaceService interface {
	Folders(ctx context.Context) ([]models.Folder, error)
	CreateFolder(ctx context.Context, name string) (int, error)
	AddEntry(ctx context.Context, folder int) (models.SitemapEntry, error)
	EditEntry(ctx context.Context, folder, entry int, edit EntryEdit) (models.SitemapEntry, error)
	UpdatePassword(ctx context.Context, password, confirm string) error
	UpdatePhoto(ctx context.Context, image []byte) error
	GenerateRobots(ctx context.Context, allow, disallow, sitemapURL string) (string, error)
	Robots(ctx context.Context) (string, error)
}

type workspaceService struct {
	core
}

func NewWorkspaceService(d Deps) WorkspaceService {
	return &workspaceService{core: newCore(d)}
}

func (s *workspaceService) Folders(ctx context.Context) ([]models.Folder, error) {
	_, u, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return u.Folders, nil
}

func (s *workspaceService) CreateFolder(ctx context.Context, name string) (int, error) {
	if err := s.checkWritable(); err != nil {
		return 0, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, validationError("folder name is empty")
	}

	var idx int
	_, err := s.update(ctx, func(u *models.UserRecord) error {
		u.Folders = append(u.Folders, models.Folder{Name: name, Files: []models.SitemapEntry{}})
		idx = len(u.Folders) - 1
		s.recorder.Log(u, "Folder created: "+name)
		return nil
	})
	return idx, err
}

func folderAt(u *models.UserRecord, i int) (*models.Folder, error) {
	if i < 0 || i >= len(u.Folders) {
		return nil, fmt.Errorf("folder %d: %w", i+1, common.ErrorNotFound)
	}
	return &u.Folders[i], nil
}

func (s *workspaceService) AddEntry(ctx context.Context, folder int) (models.SitemapEntry, error) {
	var added models.SitemapEntry
	_, err := s.update(ctx, func(u *models.UserRecord) error {
		f, err := folderAt(u, folder)
		if err != nil {
			return err
		}
		added = models.NewEntry(s.now().UTC())
		f.Files = append(f.Files, added)
		s.recorder.Log(u, "Sitemap entry added")
		return nil
	})
	return added, err
}

func (s *workspaceService) EditEntry(ctx context.Context, folder, entry int, edit EntryEdit) (models.SitemapEntry, error) {
	url := strings.TrimSpace(edit.URL)
	if url == "" {
		return models.SitemapEntry{}, validationError("url is required")
	}
	priority := strings.TrimSpace(edit.Priority)
	if priority != "" && !models.ValidPriority(priority) {
		return models.SitemapEntry{}, validationError("priority %q must be between 0.1 and 1.0", priority)
	}
	freq := strings.TrimSpace(edit.Changefreq)
	if freq != "" && !slices.Contains(models.ChangeFrequencies, freq) {
		return models.SitemapEntry{}, validationError("changefreq %q must be one of %s", freq, strings.Join(models.ChangeFrequencies, ", "))
	}

	var updated models.SitemapEntry
	_, err := s.update(ctx, func(u *models.UserRecord) error {
		f, err := folderAt(u, folder)
		if err != nil {
			return err
		}
		if entry < 0 || entry >= len(f.Files) {
			return fmt.Errorf("entry %d: %w", entry+1, common.ErrorNotFound)
		}
		e := &f.Files[entry]
		e.URL = url
		if priority != "" {
			e.Priority = priority
		}
		if freq != "" {
			e.Changefreq = freq
		}
		e.Lastmod = s.today()
		updated = *e
		s.recorder.Log(u, "Sitemap entry updated")
		return nil
	})
	return updated, err
}

func (s *workspaceService) UpdatePassword(ctx context.Context, password, confirm string) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	if err := checkNewPassword(password, confirm); err != nil {
		return err
	}
	_, err := s.update(ctx, func(u *models.UserRecord) error {
		u.PasswordHash = HashPassword(password)
		s.recorder.Log(u, "Password updated")
		return nil
	})
	return err
}

// UpdatePhoto stores image as a data URI. Only image content is accepted.
func (s *workspaceService) UpdatePhoto(ctx context.Context, image []byte) error {
	mt := mimetype.Detect(image)
	if !strings.HasPrefix(mt.String(), "image/") {
		return validationError("photo must be an image, got %s", mt.String())
	}
	uri := "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(image)
	_, err := s.update(ctx, func(u *models.UserRecord) error {
		u.Photo = uri
		s.recorder.Log(u, "Profile photo updated")
		return nil
	})
	return err
}

func (s *workspaceService) GenerateRobots(ctx context.Context, allow, disallow, sitemapURL string) (string, error) {
	if err := s.checkWritable(); err != nil {
		return "", err
	}
	txt := export.ToRobotsText(strings.TrimSpace(allow), strings.TrimSpace(disallow), strings.TrimSpace(sitemapURL))
	_, err := s.update(ctx, func(u *models.UserRecord) error {
		if u.Settings == nil {
			u.Settings = map[string]string{}
		}
		u.Settings[RobotsSettingKey] = txt
		s.recorder.Log(u, "robots.txt generated")
		return nil
	})
	if err != nil {
		return "", err
	}
	return txt, nil
}

func (s *workspaceService) Robots(ctx context.Context) (string, error) {
	_, u, err := s.current(ctx)
	if err != nil {
		return "", err
	}
	return u.Settings[RobotsSettingKey], nil
}
