package disk

import (
	"os"
	"testing"
)

// TestingNewFileDevice opens a FileBlockDevice backed by a fresh temp
// file, removing it when the test finishes — the same lifecycle as the
// teacher's test/utils.GetTempDbFile, just scoped to a BlockDevice
// instead of a whole pager.
func TestingNewFileDevice(t *testing.T) *FileBlockDevice {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "*.db")
	if err != nil {
		t.Fatal(err)
	}
	name := tmpfile.Name()
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Remove(name) })

	dev, err := NewFileBlockDevice(name, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { dev.Close() })
	return dev
}
