package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir failed validation: %v", err)
	}
}

func TestMigrationsCoverCoreTables(t *testing.T) {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	var combined strings.Builder
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		data, err := os.ReadFile(filepath.Join("migrations", e.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		combined.Write(data)
	}

	sql := combined.String()
	for _, table := range []string{
		"CREATE TABLE users",
		"CREATE TABLE languages",
		"CREATE TABLE jobs",
		"CREATE TABLE translator_assignments",
		"CREATE TABLE job_distances",
		"CREATE TABLE blacklists",
		"CREATE TABLE outbox_events",
		"CREATE TABLE outbox_dlq",
	} {
		if !strings.Contains(sql, table) {
			t.Fatalf("expected migrations to contain %q", table)
		}
	}

	if !strings.Contains(sql, "ux_assignments_active_per_job") {
		t.Fatal("expected partial unique index on active assignments")
	}
}
