package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sitemapkeeper/internal/client/models"
)

// Archive entry names.
const (
	ArchiveSitemap = "sitemap.xml"
	ArchiveRobots  = "robots.txt"
	ArchiveReadme  = "README.txt"
)

const readmeTimeLayout = "2006-01-02 15:04:05"

// Readme is the summary file placed in every archive.
func Readme(f models.Folder, generated time.Time) string {
	return fmt.Sprintf("Sitemap Folder: %s\nGenerated: %s\nEntries: %d",
		f.Name, generated.Local().Format(readmeTimeLayout), len(f.Files))
}

// ToArchive bundles the sitemap XML of f, robotsText when non-empty, and a
// README into a zip file.
func ToArchive(f models.Folder, robotsText string, generated time.Time) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	files := []struct{ name, body string }{{ArchiveSitemap, ToXML(f)}}
	if robotsText != "" {
		files = append(files, struct{ name, body string }{ArchiveRobots, robotsText})
	}
	files = append(files, struct{ name, body string }{ArchiveReadme, Readme(f, generated)})

	for _, file := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     file.name,
			Method:   zip.Deflate,
			Modified: generated,
		})
		if err != nil {
			return nil, fmt.Errorf("add %s: %w", file.name, err)
		}
		if _, err := w.Write([]byte(file.body)); err != nil {
			return nil, fmt.Errorf("write %s: %w", file.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}
