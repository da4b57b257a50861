package files

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		rel     string
		want    string
		wantErr bool
	}{
		{rel: "docs/a_original.md", want: filepath.Join(root, "docs", "a_original.md")},
		{rel: "./docs/../README.md", want: filepath.Join(root, "README.md")},
		{rel: "", wantErr: true},
		{rel: "../outside.md", wantErr: true},
		{rel: "docs/../../outside.md", wantErr: true},
		{rel: "/etc/passwd", wantErr: true},
	}
	for _, tt := range tests {
		got, err := Resolve(root, tt.rel)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("Resolve(%q) expected error, got %q", tt.rel, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", tt.rel, err)
		}
		if got != tt.want {
			t.Fatalf("Resolve(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

func TestReadIfExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")

	if _, ok, err := ReadIfExists(path); err != nil || ok {
		t.Fatalf("missing file: ok=%v err=%v", ok, err)
	}
	if err := os.WriteFile(path, []byte("Hello"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, ok, err := ReadIfExists(path)
	if err != nil || !ok {
		t.Fatalf("existing file: ok=%v err=%v", ok, err)
	}
	if string(data) != "Hello" {
		t.Fatalf("unexpected data %q", data)
	}
}

func TestAtomicWrite_CreatesParentsAndReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docs", "nested", "a_ja.md")

	if err := AtomicWrite(path, []byte("first\n"), 0644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := AtomicWrite(path, []byte("second\n"), 0644); err != nil {
		t.Fatalf("second write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "second\n" {
		t.Fatalf("unexpected content %q", data)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the target file, found %d entries", len(entries))
	}
}
