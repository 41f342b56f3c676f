package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	backupDirName  = "backups"
	backupExt      = ".db"
	backupMetaExt  = ".meta.json"
	backupTimeTmpl = "20060102-150405"
)

// Backup errors.
var (
	ErrBackupInMemory = errors.New("in-memory databases cannot be backed up")
	ErrBackupExists   = errors.New("backup already exists")
)

// backedUpTables are counted into every backup's metadata.
var backedUpTables = []string{"product_mappings", "brand_preferences", "preferences"}

// BackupInfo describes one database snapshot.
type BackupInfo struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	ID            string         `json:"id"`
	Label         string         `json:"label"`
	Path          string         `json:"-"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
}

// BackupDir returns where snapshots of this database are written.
func (s *SQLiteStorage) BackupDir() string {
	return filepath.Join(filepath.Dir(s.dbPath), backupDirName)
}

// Backup writes a consistent snapshot of the database next to it, tagged
// with label.
func (s *SQLiteStorage) Backup(ctx context.Context, label string) (*BackupInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if s.dbPath == ":memory:" {
		return nil, ErrBackupInMemory
	}
	if label == "" {
		label = "manual"
	}
	if strings.ContainsAny(label, `/\'";`) || strings.Contains(label, "..") {
		return nil, fmt.Errorf("invalid backup label %q", label)
	}

	dir := s.BackupDir()
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	now := time.Now()
	id := fmt.Sprintf("%s-%s", label, now.Format(backupTimeTmpl))
	dest, err := filepath.Abs(filepath.Join(dir, id+backupExt))
	if err != nil {
		return nil, err
	}
	if strings.ContainsAny(dest, `'";`) {
		return nil, fmt.Errorf("invalid backup path %q", dest)
	}
	if _, err := os.Stat(dest); err == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrBackupExists)
	}

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.rowCounts(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return nil, fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	// #nosec G202 - dest is built from a validated label and checked above
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO '"+dest+"'"); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}

	stat, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}

	info := &BackupInfo{
		ID:            id,
		Label:         label,
		Path:          dest,
		CreatedAt:     now,
		FileSize:      stat.Size(),
		SchemaVersion: version,
		RowCounts:     counts,
	}
	if err := writeBackupMeta(strings.TrimSuffix(dest, backupExt)+backupMetaExt, info); err != nil {
		if rmErr := os.Remove(dest); rmErr != nil {
			slog.Error("Failed to remove backup after metadata failure", "error", rmErr)
		}
		return nil, err
	}
	return info, nil
}

func (s *SQLiteStorage) rowCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(backedUpTables))
	for _, table := range backedUpTables {
		var n int
		// #nosec G202 - table names come from a fixed list
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			if strings.Contains(err.Error(), "no such table") {
				continue
			}
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// ListBackups returns the snapshots of this database, newest first.
// Snapshots with unreadable metadata are skipped.
func (s *SQLiteStorage) ListBackups(_ context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.BackupDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), backupMetaExt) {
			continue
		}
		metaPath := filepath.Join(s.BackupDir(), e.Name())
		info, err := readBackupMeta(metaPath)
		if err != nil {
			slog.Debug("Skipping unreadable backup metadata", "file", metaPath, "error", err)
			continue
		}
		info.Path = strings.TrimSuffix(metaPath, backupMetaExt) + backupExt
		backups = append(backups, *info)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// PruneBackups deletes all but the newest keep snapshots carrying label
// and returns how many were removed.
func (s *SQLiteStorage) PruneBackups(ctx context.Context, label string, keep int) (int, error) {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}

	removed, seen := 0, 0
	for _, b := range backups {
		if b.Label != label {
			continue
		}
		seen++
		if seen <= keep {
			continue
		}
		if err := os.Remove(b.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove backup %s: %w", b.ID, err)
		}
		_ = os.Remove(strings.TrimSuffix(b.Path, backupExt) + backupMetaExt)
		removed++
	}
	return removed, nil
}

func writeBackupMeta(path string, info *BackupInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write backup metadata: %w", err)
	}
	return nil
}

func readBackupMeta(path string) (*BackupInfo, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, err
	}
	var info BackupInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
