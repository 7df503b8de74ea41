// Package backup snapshots a target file to a timestamped sibling before
// the patch engine mutates it. Backups accumulate across runs and are never
// read back automatically; restoring one is a manual copy.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/serious-angel/steam-client-custom-toasts/internal/logging"
)

// Suffix terminates every backup file name.
const Suffix = ".backup"

// timestamp returns an ISO-8601-like UTC timestamp with filesystem-safe
// separators. Millisecond precision keeps rapid consecutive runs from
// colliding, and the format sorts lexicographically.
func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15-04-05.000") + "Z"
}

// Create writes a byte-identical snapshot of path next to it, named
// <name>.<timestamp>.backup, and returns the backup path. The snapshot is
// taken at call time; later mutations of the original do not touch it.
func Create(path string) (string, error) {
	timer := logging.StartTimer(logging.CategoryBackup, "Create")
	defer timer.Stop()

	backupPath := fmt.Sprintf("%s.%s%s", path, timestamp(time.Now()), Suffix)

	logging.Backup("Creating backup: %s -> %s", path, backupPath)

	src, err := os.Open(path)
	if err != nil {
		logging.Get(logging.CategoryBackup).Error("Failed to open source for backup: %v", err)
		return "", fmt.Errorf("failed to open %s for backup: %w", path, err)
	}
	defer src.Close()

	srcInfo, _ := src.Stat()
	if srcInfo != nil {
		logging.BackupDebug("Source size: %d bytes", srcInfo.Size())
	}

	dst, err := os.OpenFile(backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		logging.Get(logging.CategoryBackup).Error("Failed to create backup file: %v", err)
		return "", fmt.Errorf("failed to create backup %s: %w", backupPath, err)
	}
	defer dst.Close()

	bytesCopied, err := io.Copy(dst, src)
	if err != nil {
		logging.Get(logging.CategoryBackup).Error("Failed to copy to backup: %v", err)
		return "", fmt.Errorf("failed to copy %s to backup: %w", path, err)
	}

	if err := dst.Sync(); err != nil {
		logging.Get(logging.CategoryBackup).Error("Failed to sync backup: %v", err)
		return "", fmt.Errorf("failed to sync backup %s: %w", backupPath, err)
	}

	logging.Backup("Backup created: %s (%d bytes)", backupPath, bytesCopied)
	return backupPath, nil
}

// List returns the accumulated backup paths for one target, oldest first.
// The timestamp format makes name order chronological.
func List(path string) ([]string, error) {
	dir := filepath.Dir(path)
	prefix := filepath.Base(path) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var backups []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, Suffix) {
			continue
		}
		backups = append(backups, filepath.Join(dir, name))
	}
	sort.Strings(backups)

	logging.BackupDebug("Found %d backup(s) for %s", len(backups), path)
	return backups, nil
}
