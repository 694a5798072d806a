package storage

import (
	"archive/zip"
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
	sqlitestore "keeper/internal/platform/storage/sqlite"
)

func TestBackupToZipContainsDatabase(t *testing.T) {
	dir := t.TempDir()
	db, err := sql.Open("sqlite", filepath.Join(dir, "live.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := sqlitestore.InitDB(db); err != nil {
		t.Fatalf("init db: %v", err)
	}

	path, err := BackupToZip(context.Background(), db, filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if filepath.Ext(path) != ".zip" {
		t.Fatalf("expected .zip suffix, got %q", path)
	}
	reader, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer reader.Close()
	if len(reader.File) != 1 || reader.File[0].Name != "keeper.db" {
		t.Fatalf("expected keeper.db entry, got %+v", reader.File)
	}
}
