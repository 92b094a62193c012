package migrations

import (
	"io/fs"
	"testing"
)

func TestEmbeddedMigrations(t *testing.T) {
	names, err := fs.Glob(FS, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("no migration files embedded at FS root")
	}
	data, err := fs.ReadFile(FS, "00001_init.sql")
	if err != nil {
		t.Fatalf("read 00001_init.sql: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("00001_init.sql is empty")
	}
}
