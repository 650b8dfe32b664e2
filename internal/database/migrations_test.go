package database

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/nikhilbhutani/mediadesk/internal/config"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no migrations embedded")
	}
	sql, err := migrationFiles.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(sql), "processing_log") {
		t.Errorf("first migration does not create processing_log")
	}
}

func TestNewPoolWithoutURL(t *testing.T) {
	_, err := NewPool(context.Background(), config.DatabaseConfig{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}
