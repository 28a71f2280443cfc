package reader

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadSmallFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.txt")
	if err := os.WriteFile(path, []byte("hello\nworld\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	content, err := Read(path, -1)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	defer func() { _ = content.Close() }()
	if content.Text() != "hello\nworld\n" {
		t.Errorf("Text = %q", content.Text())
	}
	if content.mapped != nil {
		t.Error("small file should not be mapped")
	}
}

func TestReadLargeFileIsMapped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "large.txt")
	data := bytes.Repeat([]byte("0123456789abcdef\n"), (mmapThreshold/17)+2)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	content, err := Read(path, int64(len(data)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if content.mapped == nil {
		t.Error("file at threshold should be memory-mapped")
	}
	if !strings.HasPrefix(content.Text(), "0123456789abcdef") {
		t.Error("mapped content decodes wrong")
	}
	if err := content.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	// Close is idempotent.
	if err := content.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestReadRejectsNonUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "binary.bin")
	if err := os.WriteFile(path, []byte{0xff, 0xfe, 0x00, 0x80}, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Read(path, -1)
	if !errors.Is(err, ErrNotUTF8) {
		t.Fatalf("err = %v, want ErrNotUTF8", err)
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "nope"), -1); err == nil {
		t.Fatal("expected error for missing file")
	}
}
