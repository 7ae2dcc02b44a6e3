package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0}

// WriteImage writes a JPEG-looking file of roughly size bytes under dir and
// returns its path. A size <= len(header) writes just the header.
func WriteImage(t testing.TB, dir, name string, size int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	data := make([]byte, 0, max(size, len(jpegHeader)))
	data = append(data, jpegHeader...)
	for len(data) < size {
		data = append(data, 0x42)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
