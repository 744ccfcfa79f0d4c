package store

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/chazu/blok/compiler"
	"github.com/chazu/blok/runtime"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "defs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func compileDef(t *testing.T, source string, explicit []string) *runtime.Definition {
	t.Helper()
	res, err := compiler.CompileBody(source, explicit)
	if err != nil {
		t.Fatalf("compile %q: %v", source, err)
	}
	return runtime.NewDefinition(res)
}

func TestStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)
	def := compileDef(t, "return a + b;", []string{"a", "b"})

	if err := s.Put(def); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !s.Has(def.Hash()) {
		t.Fatal("has = false after put")
	}

	loaded, err := s.Get(def.Hash())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Source() != def.Source() {
		t.Errorf("source = %q, want %q", loaded.Source(), def.Source())
	}
	if !reflect.DeepEqual(loaded.Declared(), def.Declared()) {
		t.Errorf("declared = %v, want %v", loaded.Declared(), def.Declared())
	}
	if loaded.Hash() != def.Hash() {
		t.Error("loaded definition fails content-address equality")
	}
}

func TestStoreGetMissing(t *testing.T) {
	s := openTestStore(t)
	var hash [32]byte
	hash[0] = 0xab

	if _, err := s.Get(hash); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if s.Has(hash) {
		t.Error("has = true for missing hash")
	}
}

func TestStorePutIdempotent(t *testing.T) {
	s := openTestStore(t)
	def := compileDef(t, "return 1;", nil)

	if err := s.Put(def); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := s.Put(def); err != nil {
		t.Fatalf("second put: %v", err)
	}

	n, err := s.Len()
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 1 {
		t.Errorf("len = %d, want 1", n)
	}
}

func TestStoreLen(t *testing.T) {
	s := openTestStore(t)

	n, err := s.Len()
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 0 {
		t.Errorf("len = %d, want 0 for empty store", n)
	}

	if err := s.Put(compileDef(t, "return 1;", nil)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(compileDef(t, "return 2;", nil)); err != nil {
		t.Fatalf("put: %v", err)
	}

	n, err = s.Len()
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 2 {
		t.Errorf("len = %d, want 2", n)
	}
}

func TestStorePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defs.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	def := compileDef(t, "return n * 2;", []string{"n"})
	if err := s.Put(def); err != nil {
		t.Fatalf("put: %v", err)
	}
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	loaded, err := s2.Get(def.Hash())
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if loaded.Source() != "return n * 2;" {
		t.Errorf("source = %q", loaded.Source())
	}
}

func TestStoreRejectsTamperedRow(t *testing.T) {
	s := openTestStore(t)
	def := compileDef(t, "return a;", []string{"a"})
	if err := s.Put(def); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Corrupt the stored capture set so the source no longer validates.
	hash := def.Hash()
	if _, err := s.db.Exec(
		"UPDATE definitions SET captures = json('[]') WHERE hash = ?", hash[:],
	); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	if _, err := s.Get(hash); err == nil {
		t.Fatal("expected re-validation to reject the tampered row")
	}
}
