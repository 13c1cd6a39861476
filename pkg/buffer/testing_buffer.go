package buffer

import (
	"testing"

	"extendb/pkg/config"
	"extendb/pkg/disk"
	"extendb/pkg/replacer"
)

// TestingNewPool builds a BufferPool of poolSize frames over a fresh
// temp-file-backed device with an LRUReplacer, registering cleanup with
// t. Mirrors pkg/disk's TestingNewFileDevice naming convention.
func TestingNewPool(t *testing.T, poolSize int) *BufferPool {
	t.Helper()
	device := disk.TestingNewFileDevice(t)
	return New(device, poolSize, replacer.NewLRUReplacer(poolSize))
}

// TestingNewMemPool builds a BufferPool over an in-memory device of
// config.PageSize pages, for tests that want to avoid real disk I/O
// (e.g. most of the hash package's table tests).
func TestingNewMemPool(t *testing.T, poolSize int) *BufferPool {
	t.Helper()
	device := disk.NewMemBlockDevice(config.PageSize, 1, 0)
	return New(device, poolSize, replacer.NewLRUReplacer(poolSize))
}
