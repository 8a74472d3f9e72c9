package dispensingparser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

// writeSource writes lines joined by \n to dir/name.
func writeSource(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	return writeRaw(t, dir, name, []byte(strings.Join(lines, "\n")+"\n"))
}

// writeLatin1 writes lines encoded as ISO-8859-1.
func writeLatin1(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	encoded, err := charmap.ISO8859_1.NewEncoder().String(strings.Join(lines, "\n") + "\n")
	if err != nil {
		t.Fatalf("failed to encode latin1 fixture: %v", err)
	}
	return writeRaw(t, dir, name, []byte(encoded))
}

func writeRaw(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", path, err)
	}
	return path
}

func floatPtr(v float64) *float64 {
	return &v
}
