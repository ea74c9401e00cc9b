package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

func TestSaveCreatesNestedKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	key := "signatures/q-1/abc.png"
	if err := s.Save(ctx, key, strings.NewReader("png-bytes")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save(ctx, key, strings.NewReader("png-bytes-v2")); err != nil {
		t.Fatalf("overwrite Save() error = %v", err)
	}

	rc, err := s.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	raw, _ := io.ReadAll(rc)
	if string(raw) != "png-bytes-v2" {
		t.Fatalf("unexpected content %q", raw)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "signatures", "q-1"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestOpenMissingObject(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.Open(context.Background(), "ledger/biz-1/missing.xlsx"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, key := range []string{"", "../outside", "/etc/passwd", "a/../../b"} {
		if err := s.Save(context.Background(), key, strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("Save(%q): expected ErrInvalidInput, got %v", key, err)
		}
	}
}
