package tokenstore

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestFileStore_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	s := NewFileStore(path)
	if s.Access() != "" || s.Refresh() != "" {
		t.Fatal("новое хранилище должно быть пустым")
	}
	if err := s.Save("acc1", "ref1"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if s.Access() != "acc1" || s.Refresh() != "ref1" {
		t.Errorf("got (%q, %q)", s.Access(), s.Refresh())
	}

	// Новый экземпляр читает тот же файл.
	s2 := NewFileStore(path)
	if s2.Access() != "acc1" || s2.Refresh() != "ref1" {
		t.Errorf("после перезагрузки: (%q, %q)", s2.Access(), s2.Refresh())
	}
}

func TestFileStore_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("права POSIX")
	}
	path := filepath.Join(t.TempDir(), "tokens.json")
	s := NewFileStore(path)
	if err := s.Save("a", "r"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("права файла = %o, want 600", perm)
	}
}

func TestFileStore_ClearIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	s := NewFileStore(path)
	s.Save("a", "r")
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.Access() != "" || s.Refresh() != "" {
		t.Error("после Clear токены должны быть пустыми")
	}
	// Повторный Clear без файла — не ошибка.
	if err := s.Clear(); err != nil {
		t.Errorf("повторный Clear: %v", err)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(path)
	if s.Access() != "" || s.Refresh() != "" {
		t.Error("битый файл должен читаться как пустое хранилище")
	}
	if err := s.Save("a", "r"); err != nil {
		t.Fatalf("Save поверх битого файла: %v", err)
	}
	if NewFileStore(path).Access() != "a" {
		t.Error("перезапись битого файла не сработала")
	}
}
