package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/grocer/internal/model"
)

func TestBackup(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	require.NoError(t, store.SaveMapping(ctx, "milk", model.CatalogProduct{ID: "1", Name: "Lucerne Whole Milk", Price: 4.99, InStock: true}, time.Now()))
	require.NoError(t, store.SetPreference(ctx, model.PriceSensitivityKey, "budget"))

	info, err := store.Backup(ctx, "pre-migrate")
	require.NoError(t, err)
	assert.Equal(t, "pre-migrate", info.Label)
	assert.Equal(t, ExpectedSchemaVersion, info.SchemaVersion)
	assert.Equal(t, 1, info.RowCounts["product_mappings"])
	assert.Equal(t, 1, info.RowCounts["preferences"])
	assert.Equal(t, 0, info.RowCounts["brand_preferences"])
	assert.Positive(t, info.FileSize)
	assert.FileExists(t, info.Path)

	// The snapshot is a usable database.
	snapshot, err := NewSQLiteStorage(info.Path)
	require.NoError(t, err)
	defer func() { _ = snapshot.Close() }()
	mapping, err := snapshot.GetMapping(ctx, "milk")
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, "Lucerne Whole Milk", mapping.Product.Name)
}

func TestBackup_Rejects(t *testing.T) {
	ctx := context.Background()

	mem, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = mem.Close() }()
	_, err = mem.Backup(ctx, "x")
	assert.ErrorIs(t, err, ErrBackupInMemory)

	store, cleanup := createTestStorage(t)
	defer cleanup()
	for _, label := range []string{"../escape", "a/b", "it's"} {
		_, err := store.Backup(ctx, label)
		assert.Error(t, err, label)
	}
}

func TestListAndPruneBackups(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestStorage(t)
	defer cleanup()

	backups, err := store.ListBackups(ctx)
	require.NoError(t, err)
	assert.Empty(t, backups)

	base := time.Now().Add(-time.Hour)
	for i, label := range []string{"auto", "auto", "auto", "manual"} {
		info := &BackupInfo{
			ID:        label + "-" + string(rune('a'+i)),
			Label:     label,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		stem := filepath.Join(store.BackupDir(), info.ID)
		require.NoError(t, os.MkdirAll(store.BackupDir(), 0750))
		require.NoError(t, os.WriteFile(stem+backupExt, []byte("db"), 0600))
		require.NoError(t, writeBackupMeta(stem+backupMetaExt, info))
	}
	require.NoError(t, os.WriteFile(filepath.Join(store.BackupDir(), "broken"+backupMetaExt), []byte("{"), 0600))

	backups, err = store.ListBackups(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 4)
	assert.Equal(t, "manual-d", backups[0].ID)
	assert.Equal(t, "auto-a", backups[3].ID)

	removed, err := store.PruneBackups(ctx, "auto", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	backups, err = store.ListBackups(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "auto-c", backups[1].ID)
	assert.NoFileExists(t, filepath.Join(store.BackupDir(), "auto-a"+backupExt))
}
