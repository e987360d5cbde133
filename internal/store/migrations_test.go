package store

import (
	"strings"
	"testing"
)

// Every embedded migration must carry the goose directives and keep the
// persisted column set expected by the flat file format.
func TestMigrationFilesWellFormed(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("failed to read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no embedded migration files")
	}

	for _, entry := range entries {
		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			t.Fatalf("failed to read %s: %v", entry.Name(), err)
		}
		contentStr := string(content)

		for _, directive := range []string{
			"-- +goose Up",
			"-- +goose Down",
			"-- +goose StatementBegin",
			"-- +goose StatementEnd",
		} {
			if !strings.Contains(contentStr, directive) {
				t.Errorf("migration %s missing %q directive", entry.Name(), directive)
			}
		}
	}
}

func TestInitialMigrationDefinesExpectedColumns(t *testing.T) {
	content, err := migrationsFS.ReadFile("migrations/00001_create_tables.sql")
	if err != nil {
		t.Fatalf("failed to read initial migration: %v", err)
	}
	schema := string(content)

	for _, column := range []string{"name", "url", "current_price", "alert_price", "last_updated"} {
		if !strings.Contains(schema, column) {
			t.Errorf("products schema missing column %q", column)
		}
	}

	for _, column := range []string{"price", "timestamp"} {
		if !strings.Contains(schema, column) {
			t.Errorf("history schema missing column %q", column)
		}
	}
}
