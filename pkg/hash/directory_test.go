package hash_test

import (
	"testing"

	"extendb/pkg/config"
	"extendb/pkg/hash"
)

func newTestDirectory(t *testing.T) *hash.DirectoryView {
	t.Helper()
	data := make([]byte, config.PageSize)
	dir := hash.NewDirectoryView(data)
	dir.Init(7)
	return dir
}

func TestDirectoryInitRoutesEverythingToInitialBucket(t *testing.T) {
	dir := newTestDirectory(t)
	if dir.GetGlobalDepth() != 0 {
		t.Fatalf("GetGlobalDepth() = %d, want 0", dir.GetGlobalDepth())
	}
	for i := uint32(0); i < config.DirectoryArraySize; i++ {
		if got := dir.GetBucketPageId(i); got != 7 {
			t.Fatalf("GetBucketPageId(%d) = %d, want 7", i, got)
		}
		if got := dir.GetLocalDepth(i); got != 0 {
			t.Fatalf("GetLocalDepth(%d) = %d, want 0", i, got)
		}
	}
}

func TestDirectoryGlobalDepthMaskAndSize(t *testing.T) {
	dir := newTestDirectory(t)
	dir.IncrGlobalDepth()
	dir.IncrGlobalDepth()
	if dir.GetGlobalDepth() != 2 {
		t.Fatalf("GetGlobalDepth() = %d, want 2", dir.GetGlobalDepth())
	}
	if dir.GetGlobalDepthMask() != 0b11 {
		t.Fatalf("GetGlobalDepthMask() = %b, want 11", dir.GetGlobalDepthMask())
	}
	if dir.Size() != 4 {
		t.Fatalf("Size() = %d, want 4", dir.Size())
	}
}

func TestDirectorySplitImageIndex(t *testing.T) {
	dir := newTestDirectory(t)
	dir.IncrLocalDepth(1) // local_depth[1] = 1
	if got := dir.GetSplitImageIndex(1); got != 0 {
		t.Fatalf("GetSplitImageIndex(1) = %d, want 0", got)
	}
	// local depth 0 has no split image distinct from itself.
	if got := dir.GetSplitImageIndex(4); got != 4 {
		t.Fatalf("GetSplitImageIndex(4) = %d, want 4 (local depth 0)", got)
	}
}

func TestDirectoryCanShrink(t *testing.T) {
	dir := newTestDirectory(t)
	dir.IncrGlobalDepth() // global depth 1, size 2
	if !dir.CanShrink() {
		t.Fatal("CanShrink() should be true: every live slot still has local depth 0 < 1")
	}
	dir.IncrLocalDepth(0)
	dir.IncrLocalDepth(1)
	if dir.CanShrink() {
		t.Fatal("CanShrink() should be false once a live slot's local depth reaches global depth")
	}
}

func TestDirectoryVerifyIntegrityCatchesIncoherence(t *testing.T) {
	dir := newTestDirectory(t)
	dir.IncrGlobalDepth() // size 2, local_depth[0]=local_depth[1]=0
	if err := dir.VerifyIntegrity(); err != nil {
		t.Fatalf("VerifyIntegrity() on a freshly grown directory = %v, want nil", err)
	}

	// Break coherence: slot 0 claims local depth 1 without a matching
	// split image, while still routing to the same bucket as slot 1.
	dir.IncrLocalDepth(0)
	if err := dir.VerifyIntegrity(); err == nil {
		t.Fatal("VerifyIntegrity() should catch a local-depth mismatch between slots sharing low bits")
	}
}
