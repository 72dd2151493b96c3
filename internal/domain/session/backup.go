package session

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/chatdeck/chatdeck/internal/shared/paths"
	"github.com/chatdeck/chatdeck/internal/shared/utils"
)

// DefaultBackupPatterns selects what a session backup preserves:
// credentials and durable local state, not caches.
var DefaultBackupPatterns = []string{
	"cookies.json",
	"storage/**",
	"**/*.db",
}

// Backup archives the account's partition into a timestamped tar.gz
// under the backups directory and returns the archive path. Files are
// selected by the given glob patterns (DefaultBackupPatterns when nil).
func (p *Provider) Backup(accountID string, patterns []string) (string, error) {
	if err := utils.ValidateAccountID(accountID); err != nil {
		return "", err
	}
	if patterns == nil {
		patterns = DefaultBackupPatterns
	}

	dir := paths.ProfileDir(p.root, accountID)
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("nothing to back up for %s: %w", accountID, err)
	}

	stamp := time.Now().Format("20060102-150405")
	dest := paths.BackupFile(p.root, accountID, stamp)

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create backup archive: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	count := 0
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if !matchesAny(patterns, filepath.ToSlash(rel)) {
			return nil
		}
		if err := addToArchive(tw, path, rel); err != nil {
			return err
		}
		count++
		return nil
	})

	if err := tw.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if err := gz.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if walkErr != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to back up session data for %s: %w", accountID, walkErr)
	}

	p.logger.Info("session data backed up",
		zap.String("account_id", accountID),
		zap.String("archive", dest),
		zap.Int("files", count),
	)
	return dest, nil
}

func matchesAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func addToArchive(tw *tar.Writer, path, rel string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(rel)
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}
