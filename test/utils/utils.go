package utils

import (
	"math/rand"
	"os"
	"testing"

	copy "github.com/otiai10/copy"

	"extendb/pkg/hash"
)

// Salt varies the values tests derive from their keys (key % Salt) from
// run to run, so successive runs don't rely on hardcoded values.
var Salt int64 = rand.Int63n(1000) + 1

// InsertEntry inserts (key, val) into table, failing the test if the
// operation errors or reports a duplicate.
func InsertEntry(t *testing.T, table *hash.HashTable[int64, int64], key, val int64) {
	t.Helper()
	ok, err := table.Insert(key, val)
	if err != nil {
		t.Errorf("Failed to insert (%d, %d) into the table: %s", key, val, err)
		return
	}
	if !ok {
		t.Errorf("Insert(%d, %d) reported a duplicate, want a fresh key", key, val)
	}
}

// CheckFindEntry verifies that key maps to exactly expectedVal in table,
// failing the test if it's missing or holds the wrong value.
func CheckFindEntry(t *testing.T, table *hash.HashTable[int64, int64], key, expectedVal int64) {
	t.Helper()
	values, found, err := table.GetValue(key)
	if err != nil {
		t.Errorf("Failed to look up key %d: %s", key, err)
		return
	}
	if !found || len(values) != 1 {
		t.Errorf("GetValue(%d) = (%v, %v), want ([%d], true)", key, values, found, expectedVal)
		return
	}
	if values[0] != expectedVal {
		t.Errorf("GetValue(%d) = %d, want %d", key, values[0], expectedVal)
	}
}

// SnapshotFile copies srcPath to a fresh temp file and returns its path,
// removing it when the test finishes. Used to capture a buffer pool's
// backing file before an eviction so its post-fetch bytes can be diffed
// against the pre-eviction copy (spec §8's flush/evict/refetch round-trip
// property).
func SnapshotFile(t *testing.T, srcPath string) string {
	t.Helper()
	dst, err := os.CreateTemp("", "extendb-snapshot-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dstPath := dst.Name()
	_ = dst.Close()
	t.Cleanup(func() { os.Remove(dstPath) })
	if err := copy.Copy(srcPath, dstPath); err != nil {
		t.Fatal(err)
	}
	return dstPath
}
