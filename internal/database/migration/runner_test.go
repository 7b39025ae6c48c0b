package migration

import (
	"testing"
	"testing/fstest"
)

func TestLoad_OrdersAndChecksums(t *testing.T) {
	fsys := fstest.MapFS{
		"V2__add_index.sql": {Data: []byte("CREATE INDEX x ON t (a);")},
		"V1__init.sql":      {Data: []byte("CREATE TABLE t (a int);\n")},
		"README.md":         {Data: []byte("ignored")},
		"V3__notes.sql.bak": {Data: []byte("ignored")},
	}

	migs, err := Load(fsys)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(migs) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migs))
	}
	if migs[0].Version != 1 || migs[1].Version != 2 {
		t.Fatalf("expected versions 1,2 got %d,%d", migs[0].Version, migs[1].Version)
	}
	if migs[0].Name != "init" {
		t.Fatalf("expected name init, got %q", migs[0].Name)
	}
	if len(migs[0].Checksum) != 64 {
		t.Fatalf("expected sha256 hex checksum, got %q", migs[0].Checksum)
	}
}

func TestLoad_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"V1__a.sql": {Data: []byte("SELECT 1;")},
		"V1__b.sql": {Data: []byte("SELECT 2;")},
	}
	if _, err := Load(fsys); err == nil {
		t.Fatalf("expected duplicate version error")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	fsys := fstest.MapFS{
		"V1__empty.sql": {Data: []byte("  \n")},
	}
	if _, err := Load(fsys); err == nil {
		t.Fatalf("expected empty file error")
	}
}
