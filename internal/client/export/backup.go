package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/sitemapkeeper/internal/client/models"
	"github.com/dmitrijs2005/sitemapkeeper/internal/common"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// BackupFileName is the download name for a backup taken at t.
func BackupFileName(t time.Time) string {
	return "sitemap-backup-" + strconv.FormatInt(t.UnixMilli(), 10) + ".json"
}

// ToFullBackup serializes u with the app version and export time as
// indented JSON.
func ToFullBackup(u *models.UserRecord, appVersion string, exportedAt time.Time) ([]byte, error) {
	b := models.Backup{
		AppVersion: appVersion,
		ExportedAt: exportedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		UserData:   u,
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize backup: %w", err)
	}
	return data, nil
}

//go:embed backup.schema.json
var backupSchemaJSON []byte

const backupSchemaURL = "https://sitemapkeeper.local/backup.schema.json"

var backupSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(backupSchemaJSON))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(backupSchemaURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(backupSchemaURL)
})

// ParseFullBackup decodes a backup into a new UserRecord.
//
// Text that is not JSON fails with common.ErrRestoreFailed. JSON that does
// not match backup.schema.json, or whose record does not validate, fails
// with common.ErrInvalidBackup. Nothing is returned on failure.
func ParseFullBackup(data []byte) (*models.UserRecord, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrRestoreFailed, err)
	}
	sch, err := backupSchema()
	if err != nil {
		return nil, fmt.Errorf("compile backup schema: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidBackup, err)
	}

	var b models.Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidBackup, err)
	}
	if b.UserData == nil {
		return nil, fmt.Errorf("%w: missing userData", common.ErrInvalidBackup)
	}
	if err := models.Validate(b.UserData); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidBackup, err)
	}
	return b.UserData, nil
}
