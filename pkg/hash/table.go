package hash

import (
	"errors"
	"fmt"
	"sync"

	"extendb/pkg/buffer"
	"extendb/pkg/config"
	"extendb/pkg/kv"
)

// ErrDirectoryFull is returned by splitInsert if a split needs a global
// depth increment that CanIncrGlobalDepth refuses. splitInsert checks for
// a directory already at config.DirectoryArraySize slots before that and
// reports it as (false, nil), so Insert reports directory exhaustion as a
// false result rather than as this error.
var ErrDirectoryFull = errors.New("hash: directory has no room left to grow")

// HashTable is an extendible hash index whose directory and buckets are
// pages owned by a buffer.BufferPool. Grounded on
// original_source/src/container/hash/extendible_hash_table.cpp for the
// GetValue/Insert/SplitInsert/Remove/Merge control flow and split/merge
// bit arithmetic, translated from its reinterpret_cast-based page access
// to BucketView/DirectoryView per spec §9's design note.
type HashTable[K comparable, V comparable] struct {
	pool            *buffer.BufferPool
	traits          kv.Traits[K, V]
	directoryPageID config.PageID

	// tableLatch serializes SplitInsert/Merge (write mode) against
	// GetValue/Insert-fast-path/Remove (read mode), per spec §5's lock
	// order: table latch, then pool mutex, then replacer mutex.
	tableLatch sync.RWMutex
}

// New creates an empty hash table: one directory page at global depth 0
// routing every slot to one freshly allocated, empty bucket page.
func New[K comparable, V comparable](pool *buffer.BufferPool, traits kv.Traits[K, V]) (*HashTable[K, V], error) {
	bucketPage, err := pool.NewPage()
	if err != nil {
		return nil, fmt.Errorf("hash: allocating initial bucket page: %w", err)
	}
	NewBucketView(bucketPage.GetData(), traits).Init()
	bucketPageID := bucketPage.GetPageID()
	if err := pool.UnpinPage(bucketPageID, true); err != nil {
		return nil, err
	}

	dirPage, err := pool.NewPage()
	if err != nil {
		return nil, fmt.Errorf("hash: allocating directory page: %w", err)
	}
	NewDirectoryView(dirPage.GetData()).Init(bucketPageID)
	dirPageID := dirPage.GetPageID()
	if err := pool.UnpinPage(dirPageID, true); err != nil {
		return nil, err
	}

	return &HashTable[K, V]{pool: pool, traits: traits, directoryPageID: dirPageID}, nil
}

func (t *HashTable[K, V]) hashKey(key K) uint32 {
	return uint32(t.traits.Hash(key))
}

func (t *HashTable[K, V]) bucketIndex(key K, dir *DirectoryView) uint32 {
	return t.hashKey(key) & dir.GetGlobalDepthMask()
}

func (t *HashTable[K, V]) fetchDirectory() (*buffer.Page, *DirectoryView, error) {
	page, err := t.pool.FetchPage(t.directoryPageID)
	if err != nil {
		return nil, nil, err
	}
	return page, NewDirectoryView(page.GetData()), nil
}

func (t *HashTable[K, V]) fetchBucket(pageID config.PageID) (*buffer.Page, *BucketView[K, V], error) {
	page, err := t.pool.FetchPage(pageID)
	if err != nil {
		return nil, nil, err
	}
	return page, NewBucketView(page.GetData(), t.traits), nil
}

// GetGlobalDepth returns the directory's current global depth.
func (t *HashTable[K, V]) GetGlobalDepth() (uint32, error) {
	t.tableLatch.RLock()
	defer t.tableLatch.RUnlock()

	_, dir, err := t.fetchDirectory()
	if err != nil {
		return 0, err
	}
	depth := dir.GetGlobalDepth()
	t.pool.UnpinPage(t.directoryPageID, false)
	return depth, nil
}

// VerifyIntegrity checks the directory's coherence invariants (spec §3).
func (t *HashTable[K, V]) VerifyIntegrity() error {
	t.tableLatch.RLock()
	defer t.tableLatch.RUnlock()

	_, dir, err := t.fetchDirectory()
	if err != nil {
		return err
	}
	defer t.pool.UnpinPage(t.directoryPageID, false)
	return dir.VerifyIntegrity()
}

// GetValue returns every value associated with key, and whether any
// were found. Never fails: an absent key simply yields (nil, false).
func (t *HashTable[K, V]) GetValue(key K) ([]V, bool, error) {
	t.tableLatch.RLock()
	defer t.tableLatch.RUnlock()

	_, dir, err := t.fetchDirectory()
	if err != nil {
		return nil, false, err
	}
	bucketIdx := t.bucketIndex(key, dir)
	bucketPageID := dir.GetBucketPageId(bucketIdx)
	bucketPage, bucket, err := t.fetchBucket(bucketPageID)
	if err != nil {
		t.pool.UnpinPage(t.directoryPageID, false)
		return nil, false, err
	}

	bucketPage.RLock()
	var out []V
	found := bucket.GetValue(key, &out)
	bucketPage.RUnlock()

	t.pool.UnpinPage(bucketPageID, false)
	t.pool.UnpinPage(t.directoryPageID, false)
	return out, found, nil
}

// Insert adds (key, value), splitting buckets as needed. Returns false
// only if (key, value) is already present or the directory has no room
// left to grow (ErrDirectoryFull-adjacent "false" per spec §7 — a
// structural exhaustion is a boolean outcome, not an error).
func (t *HashTable[K, V]) Insert(key K, value V) (bool, error) {
	t.tableLatch.RLock()

	_, dir, err := t.fetchDirectory()
	if err != nil {
		t.tableLatch.RUnlock()
		return false, err
	}
	bucketIdx := t.bucketIndex(key, dir)
	bucketPageID := dir.GetBucketPageId(bucketIdx)
	bucketPage, bucket, err := t.fetchBucket(bucketPageID)
	if err != nil {
		t.pool.UnpinPage(t.directoryPageID, false)
		t.tableLatch.RUnlock()
		return false, err
	}

	bucketPage.WLock()
	ok := bucket.Insert(key, value)
	bucketPage.WUnlock()

	if ok {
		t.pool.UnpinPage(bucketPageID, true)
		t.pool.UnpinPage(t.directoryPageID, false)
		t.tableLatch.RUnlock()
		return true, nil
	}

	t.pool.UnpinPage(bucketPageID, false)
	t.pool.UnpinPage(t.directoryPageID, false)
	t.tableLatch.RUnlock()

	// A full bucket or a duplicate pair — let splitInsert decide which.
	return t.splitInsert(key, value)
}

// splitInsert handles the slow path of Insert under the table write
// latch: it re-validates the fast path's findings (the bucket may have
// moved under a concurrent split), and if the bucket is genuinely full,
// splits it before retrying the full Insert.
func (t *HashTable[K, V]) splitInsert(key K, value V) (bool, error) {
	t.tableLatch.Lock()

	_, dir, err := t.fetchDirectory()
	if err != nil {
		t.tableLatch.Unlock()
		return false, err
	}
	bucketIdx := t.bucketIndex(key, dir)
	bucketPageID := dir.GetBucketPageId(bucketIdx)
	_, bucket, err := t.fetchBucket(bucketPageID)
	if err != nil {
		t.pool.UnpinPage(t.directoryPageID, false)
		t.tableLatch.Unlock()
		return false, err
	}

	var existing []V
	bucket.GetValue(key, &existing)
	for _, v := range existing {
		if v == value {
			t.pool.UnpinPage(bucketPageID, false)
			t.pool.UnpinPage(t.directoryPageID, false)
			t.tableLatch.Unlock()
			return false, nil
		}
	}

	if !bucket.IsFull() {
		// A concurrent Remove made room; just insert directly.
		t.pool.UnpinPage(bucketPageID, false)
		t.pool.UnpinPage(t.directoryPageID, false)
		t.tableLatch.Unlock()
		return t.Insert(key, value)
	}

	if dir.Size() >= config.DirectoryArraySize {
		t.pool.UnpinPage(bucketPageID, false)
		t.pool.UnpinPage(t.directoryPageID, false)
		t.tableLatch.Unlock()
		return false, nil
	}

	newBucketPage, err := t.pool.NewPage()
	if err != nil {
		t.pool.UnpinPage(bucketPageID, false)
		t.pool.UnpinPage(t.directoryPageID, false)
		t.tableLatch.Unlock()
		return false, err
	}
	newBucketPageID := newBucketPage.GetPageID()
	newBucket := NewBucketView(newBucketPage.GetData(), t.traits)
	newBucket.Init()

	if dir.GetLocalDepth(bucketIdx) >= uint8(dir.GetGlobalDepth()) {
		if !dir.CanIncrGlobalDepth() {
			t.pool.UnpinPage(newBucketPageID, false)
			t.pool.DeletePage(newBucketPageID)
			t.pool.UnpinPage(bucketPageID, false)
			t.pool.UnpinPage(t.directoryPageID, false)
			t.tableLatch.Unlock()
			return false, ErrDirectoryFull
		}
		dir.IncrGlobalDepth()
	}
	localDepth := uint32(dir.GetLocalDepth(bucketIdx))
	globalDepth := dir.GetGlobalDepth()
	lowBits := bucketIdx & lowBitsMask(localDepth)
	for i := uint32(0); i < (uint32(1) << (globalDepth - localDepth)); i++ {
		idxToSplit := (i << localDepth) | lowBits
		dir.IncrLocalDepth(idxToSplit)
		if i&1 == 0 {
			dir.SetBucketPageId(idxToSplit, bucketPageID)
		} else {
			dir.SetBucketPageId(idxToSplit, newBucketPageID)
		}
	}

	// Redistribute: the old bucket was full, so every slot is live —
	// no need to check IsReadable while scanning it.
	for i := 0; i < bucket.Capacity(); i++ {
		k := bucket.KeyAt(i)
		v := bucket.ValueAt(i)
		targetIdx := t.hashKey(k) & dir.GetGlobalDepthMask()
		if dir.GetBucketPageId(targetIdx) == newBucketPageID {
			bucket.RemoveAt(i)
			newBucket.Insert(k, v)
		}
	}

	t.pool.UnpinPage(t.directoryPageID, true)
	t.pool.UnpinPage(bucketPageID, true)
	t.pool.UnpinPage(newBucketPageID, true)
	t.tableLatch.Unlock()

	// The original bucket has room now; retry the full insert, which may
	// itself trigger another split if redistribution was lopsided.
	return t.Insert(key, value)
}

// Remove deletes (key, value) if present, returning whether it was
// found, then folds any buckets the removal emptied.
func (t *HashTable[K, V]) Remove(key K, value V) (bool, error) {
	t.tableLatch.RLock()

	_, dir, err := t.fetchDirectory()
	if err != nil {
		t.tableLatch.RUnlock()
		return false, err
	}
	bucketIdx := t.bucketIndex(key, dir)
	bucketPageID := dir.GetBucketPageId(bucketIdx)
	bucketPage, bucket, err := t.fetchBucket(bucketPageID)
	if err != nil {
		t.pool.UnpinPage(t.directoryPageID, false)
		t.tableLatch.RUnlock()
		return false, err
	}

	bucketPage.WLock()
	ok := bucket.Remove(key, value)
	bucketPage.WUnlock()

	if !ok {
		t.pool.UnpinPage(bucketPageID, false)
		t.pool.UnpinPage(t.directoryPageID, false)
		t.tableLatch.RUnlock()
		return false, nil
	}

	t.pool.UnpinPage(bucketPageID, true)
	t.pool.UnpinPage(t.directoryPageID, false)
	t.tableLatch.RUnlock()

	if err := t.merge(key); err != nil {
		return true, err
	}
	return true, nil
}

// merge folds empty buckets into their split images, looping because a
// single removal can cascade across several depths. Idempotent: called
// after every successful Remove regardless of whether it actually
// emptied anything.
func (t *HashTable[K, V]) merge(key K) error {
	t.tableLatch.Lock()
	defer t.tableLatch.Unlock()

	_, dir, err := t.fetchDirectory()
	if err != nil {
		return err
	}
	dirtyDirectory := false

	for {
		bucketIdx := t.bucketIndex(key, dir)
		bucketPageID := dir.GetBucketPageId(bucketIdx)
		_, bucket, err := t.fetchBucket(bucketPageID)
		if err != nil {
			t.pool.UnpinPage(t.directoryPageID, dirtyDirectory)
			return err
		}
		bucketLocalDepth := dir.GetLocalDepth(bucketIdx)

		splitIdx := dir.GetSplitImageIndex(bucketIdx)
		splitPageID := dir.GetBucketPageId(splitIdx)
		_, splitBucket, err := t.fetchBucket(splitPageID)
		if err != nil {
			t.pool.UnpinPage(bucketPageID, false)
			t.pool.UnpinPage(t.directoryPageID, dirtyDirectory)
			return err
		}
		splitLocalDepth := dir.GetLocalDepth(splitIdx)

		if (!bucket.IsEmpty() && !splitBucket.IsEmpty()) ||
			bucketLocalDepth == 0 || splitLocalDepth == 0 || splitLocalDepth != bucketLocalDepth {
			t.pool.UnpinPage(bucketPageID, false)
			t.pool.UnpinPage(splitPageID, false)
			break
		}

		keepIdx, keepPageID, keepDepth := bucketIdx, bucketPageID, bucketLocalDepth
		dropPageID := splitPageID
		if bucket.IsEmpty() {
			keepIdx, keepPageID, keepDepth = splitIdx, splitPageID, splitLocalDepth
			dropPageID = bucketPageID
		}

		dirtyDirectory = true
		globalDepth := dir.GetGlobalDepth()
		localDepth := uint32(keepDepth) - 1
		lowBits := keepIdx & lowBitsMask(localDepth)
		for i := uint32(0); i < (uint32(1) << (globalDepth - localDepth)); i++ {
			idxToMerge := (i << localDepth) | lowBits
			dir.DecrLocalDepth(idxToMerge)
			dir.SetBucketPageId(idxToMerge, keepPageID)
		}
		if dir.CanShrink() {
			dir.DecrGlobalDepth()
		}

		t.pool.UnpinPage(bucketPageID, false)
		t.pool.UnpinPage(splitPageID, false)
		t.pool.DeletePage(dropPageID)
	}

	t.pool.UnpinPage(t.directoryPageID, dirtyDirectory)
	return nil
}
