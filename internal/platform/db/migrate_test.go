package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigration(t *testing.T, dir, name, sql string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// ── LoadMigrations ──

func TestLoadMigrationsOrdersByVersion(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0010_add_drafts.sql", "CREATE TABLE drafts ();")
	writeMigration(t, dir, "0001_init.sql", "CREATE TABLE centers ();")
	writeMigration(t, dir, "0002_profiles.sql", "CREATE TABLE profiles ();")

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}

	if len(migrations) != 3 {
		t.Fatalf("got %d migrations, want 3", len(migrations))
	}
	wantVersions := []int{1, 2, 10}
	for i, want := range wantVersions {
		if migrations[i].Version != want {
			t.Errorf("migrations[%d].Version = %d, want %d", i, migrations[i].Version, want)
		}
	}
	if migrations[2].Name != "0010_add_drafts.sql" {
		t.Errorf("Name = %q", migrations[2].Name)
	}
	if migrations[0].SQL != "CREATE TABLE centers ();" {
		t.Errorf("SQL not loaded: %q", migrations[0].SQL)
	}
}

func TestLoadMigrationsSkipsNonMigrations(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0001_init.sql", "SELECT 1;")
	writeMigration(t, dir, "README.md", "notes")
	writeMigration(t, dir, "notes.sql", "-- no version prefix")
	writeMigration(t, dir, "abc_stuff.sql", "-- non-numeric prefix")
	if err := os.Mkdir(filepath.Join(dir, "0002_nested.sql"), 0o755); err != nil {
		t.Fatal(err)
	}

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migrations) != 1 {
		t.Fatalf("got %d migrations, want only the numbered .sql file", len(migrations))
	}
	if migrations[0].Version != 1 {
		t.Errorf("Version = %d, want 1", migrations[0].Version)
	}
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	m := NewMigrator(nil, filepath.Join(t.TempDir(), "does-not-exist"))
	if _, err := m.LoadMigrations(); err == nil {
		t.Fatal("expected error for a missing migrations directory")
	}
}
