package fs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Run("Creates New File", func(t *testing.T) {
		tmpDir := t.TempDir()
		filename := filepath.Join(tmpDir, "test.md")
		content := []byte("hello atomic")

		if err := writeFileAtomic(filename, content, 0644); err != nil {
			t.Fatalf("writeFileAtomic failed: %v", err)
		}

		got, err := os.ReadFile(filename)
		if err != nil {
			t.Fatalf("Failed to read file: %v", err)
		}
		if string(got) != string(content) {
			t.Errorf("Expected content 'hello atomic', got '%s'", string(got))
		}
	})

	t.Run("Overwrites Existing File", func(t *testing.T) {
		tmpDir := t.TempDir()
		filename := filepath.Join(tmpDir, "test.md")

		if err := os.WriteFile(filename, []byte("initial"), 0644); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}

		newContent := []byte("overwritten")
		if err := writeFileAtomic(filename, newContent, 0644); err != nil {
			t.Fatalf("writeFileAtomic failed: %v", err)
		}

		got, err := os.ReadFile(filename)
		if err != nil {
			t.Fatalf("Failed to read file: %v", err)
		}
		if string(got) != string(newContent) {
			t.Errorf("Expected content 'overwritten', got '%s'", string(got))
		}
	})

	t.Run("Leaves No Temp Files", func(t *testing.T) {
		tmpDir := t.TempDir()
		if err := writeFileAtomic(filepath.Join(tmpDir, "a.md"), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		entries, err := os.ReadDir(tmpDir)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), TempFilePrefix) {
				t.Errorf("temp file left behind: %s", e.Name())
			}
		}
	})

	t.Run("Fails if Directory Missing", func(t *testing.T) {
		tmpDir := t.TempDir()
		filename := filepath.Join(tmpDir, "missing_folder", "test.md")

		if err := writeFileAtomic(filename, []byte("fail"), 0644); err == nil {
			t.Error("Expected error when directory is missing, got nil")
		}
	})
}

func TestCreateFileExclusive(t *testing.T) {
	t.Run("Creates New File", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "new.md")
		if err := createFileExclusive(filename, []byte("fresh"), 0644); err != nil {
			t.Fatalf("createFileExclusive failed: %v", err)
		}
		got, err := os.ReadFile(filename)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "fresh" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("Never Overwrites", func(t *testing.T) {
		tmpDir := t.TempDir()
		filename := filepath.Join(tmpDir, "taken.md")
		if err := os.WriteFile(filename, []byte("original"), 0644); err != nil {
			t.Fatal(err)
		}

		err := createFileExclusive(filename, []byte("intruder"), 0644)
		if !errors.Is(err, fs.ErrExist) {
			t.Fatalf("expected fs.ErrExist, got %v", err)
		}

		got, _ := os.ReadFile(filename)
		if string(got) != "original" {
			t.Errorf("existing file was modified: %q", got)
		}
		entries, _ := os.ReadDir(tmpDir)
		if len(entries) != 1 {
			t.Errorf("expected only the original file, found %d entries", len(entries))
		}
	})
}

func TestRenameNoReplace(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "src.md")
	dst := filepath.Join(tmpDir, "dst.md")

	if err := os.WriteFile(src, []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("b"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := renameNoReplace(src, dst); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected fs.ErrExist, got %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source should survive a refused rename: %v", err)
	}

	if err := os.Remove(dst); err != nil {
		t.Fatal(err)
	}
	if err := renameNoReplace(src, dst); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("source still present after rename")
	}

	if err := renameNoReplace(src, dst); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist for vanished source, got %v", err)
	}
}
