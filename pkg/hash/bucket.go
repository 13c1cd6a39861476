// Package hash implements an extendible hash index whose directory and
// buckets are themselves pages owned by a buffer.BufferPool (spec
// components D, E, F). Grounded on original_source's
// hash_table_bucket_page.cpp / extendible_hash_table.cpp for the bit
// arithmetic, and on the teacher's pkg/hash for Go idiom (naming,
// latch discipline, error style) — the teacher's own HashBucket/HashTable
// keep their routing table as a plain in-memory slice rather than a page,
// so the directory type here is new, built directly off this package's
// binary-layout requirements rather than any single teacher file.
package hash

import (
	"fmt"

	"extendb/pkg/kv"
)

// BucketView interprets a page's raw bytes as a slotted array of
// (key, value) pairs plus two parallel occupied/readable bitmaps, packed
// as data_array | occupied_bits | readable_bits. It never copies or owns
// the bytes it's given — every method reads or writes directly through
// into the page's own buffer, which the caller must keep pinned and
// latched for the view's entire lifetime.
type BucketView[K comparable, V comparable] struct {
	traits   kv.Traits[K, V]
	data     []byte
	capacity int

	entrySize      int
	bitmapBytes    int
	occupiedOffset int
	readableOffset int
}

// NewBucketView constructs a view over data using traits' fixed-width
// codec, choosing the largest slot count that fits data_array plus both
// bitmaps within len(data). Panics if traits' encoders do not produce
// KeySize/ValueSize bytes, or if even a single slot cannot fit — both are
// caller-contract violations (a page too small for this key and value
// width), not recoverable conditions.
func NewBucketView[K comparable, V comparable](data []byte, traits kv.Traits[K, V]) *BucketView[K, V] {
	var zeroKey K
	var zeroValue V
	if len(traits.EncodeKey(zeroKey)) != traits.KeySize || len(traits.EncodeValue(zeroValue)) != traits.ValueSize {
		panic(fmt.Sprintf("hash: traits KeySize/ValueSize (%d/%d) do not match their encoders' output", traits.KeySize, traits.ValueSize))
	}
	entrySize := traits.EntrySize()
	capacity := bucketCapacity(len(data), entrySize)
	if capacity == 0 {
		panic(fmt.Sprintf("hash: page of %d bytes cannot hold even one %d-byte bucket slot", len(data), entrySize))
	}
	bitmapBytes := (capacity + 7) / 8
	return &BucketView[K, V]{
		traits:         traits,
		data:           data,
		capacity:       capacity,
		entrySize:      entrySize,
		bitmapBytes:    bitmapBytes,
		occupiedOffset: capacity * entrySize,
		readableOffset: capacity*entrySize + bitmapBytes,
	}
}

// bucketCapacity returns the largest slot count n such that
// n*entrySize + 2*ceil(n/8) <= pageLen.
func bucketCapacity(pageLen, entrySize int) int {
	capacity := pageLen / entrySize
	for capacity > 0 {
		bitmapBytes := (capacity + 7) / 8
		if capacity*entrySize+2*bitmapBytes <= pageLen {
			return capacity
		}
		capacity--
	}
	return 0
}

// Capacity returns BUCKET_ARRAY_SIZE for this view: the number of
// (key, value) slots the page holds.
func (b *BucketView[K, V]) Capacity() int {
	return b.capacity
}

// Init zeroes both bitmaps, marking every slot unoccupied and unreadable.
// Must be called once on a freshly allocated page before any other use.
func (b *BucketView[K, V]) Init() {
	for i := b.occupiedOffset; i < b.occupiedOffset+2*b.bitmapBytes; i++ {
		b.data[i] = 0
	}
}

func (b *BucketView[K, V]) slot(i int) []byte {
	return b.data[i*b.entrySize : (i+1)*b.entrySize]
}

// KeyAt returns the key stored at slot i, whether or not i is readable.
func (b *BucketView[K, V]) KeyAt(i int) K {
	return b.traits.DecodeKey(b.slot(i)[:b.traits.KeySize])
}

// ValueAt returns the value stored at slot i, whether or not i is readable.
func (b *BucketView[K, V]) ValueAt(i int) V {
	return b.traits.DecodeValue(b.slot(i)[b.traits.KeySize:])
}

func (b *BucketView[K, V]) setEntry(i int, key K, value V) {
	slot := b.slot(i)
	copy(slot[:b.traits.KeySize], b.traits.EncodeKey(key))
	copy(slot[b.traits.KeySize:], b.traits.EncodeValue(value))
}

// IsOccupied reports whether slot i has ever been written since Init —
// a tombstone marker, unaffected by RemoveAt.
func (b *BucketView[K, V]) IsOccupied(i int) bool {
	return b.testBit(b.occupiedOffset, i)
}

// SetOccupied marks slot i as having been written at least once.
func (b *BucketView[K, V]) SetOccupied(i int) {
	b.setBit(b.occupiedOffset, i)
}

// IsReadable reports whether slot i currently holds a live pair.
func (b *BucketView[K, V]) IsReadable(i int) bool {
	return b.testBit(b.readableOffset, i)
}

// SetReadable marks slot i as currently holding a live pair.
func (b *BucketView[K, V]) SetReadable(i int) {
	b.setBit(b.readableOffset, i)
}

func (b *BucketView[K, V]) clearReadable(i int) {
	b.data[b.readableOffset+i/8] &^= 1 << (i % 8)
}

func (b *BucketView[K, V]) testBit(base, i int) bool {
	return b.data[base+i/8]&(1<<(i%8)) != 0
}

func (b *BucketView[K, V]) setBit(base, i int) {
	b.data[base+i/8] |= 1 << (i % 8)
}

// GetValue appends to out every value whose readable slot's key equals
// key, and reports whether it found at least one. Scans every slot up to
// capacity, skipping slots that are not readable; there is deliberately
// no early break on !IsOccupied (original_source's early-break variant
// mishandles slot reuse after a RemoveAt).
func (b *BucketView[K, V]) GetValue(key K, out *[]V) bool {
	found := false
	for i := 0; i < b.capacity; i++ {
		if b.IsReadable(i) && b.traits.Equal(b.KeyAt(i), key) {
			*out = append(*out, b.ValueAt(i))
			found = true
		}
	}
	return found
}

// Insert writes (key, value) into the first non-readable slot, unless an
// identical (key, value) pair already occupies a readable slot, in which
// case it returns false without writing. Also returns false if every
// slot is readable (the bucket is full).
func (b *BucketView[K, V]) Insert(key K, value V) bool {
	firstFree := -1
	for i := 0; i < b.capacity; i++ {
		if b.IsReadable(i) {
			if b.traits.Equal(b.KeyAt(i), key) && b.ValueAt(i) == value {
				return false
			}
		} else if firstFree == -1 {
			firstFree = i
		}
	}
	if firstFree == -1 {
		return false
	}
	b.setEntry(firstFree, key, value)
	b.SetOccupied(firstFree)
	b.SetReadable(firstFree)
	return true
}

// RemoveAt clears slot i's readable bit, leaving its occupied bit (and
// its stale bytes) untouched — exactly spec §4.D's tombstone semantics.
func (b *BucketView[K, V]) RemoveAt(i int) {
	b.clearReadable(i)
}

// Remove clears the readable bit of the first slot whose key and value
// both match, reporting whether a removal occurred.
func (b *BucketView[K, V]) Remove(key K, value V) bool {
	for i := 0; i < b.capacity; i++ {
		if b.IsReadable(i) && b.traits.Equal(b.KeyAt(i), key) && b.ValueAt(i) == value {
			b.RemoveAt(i)
			return true
		}
	}
	return false
}

// NumReadable counts the set bits of the readable bitmap, ignoring any
// padding bits beyond capacity in the bitmap's final byte.
func (b *BucketView[K, V]) NumReadable() int {
	count := 0
	for i := 0; i < b.capacity; i++ {
		if b.IsReadable(i) {
			count++
		}
	}
	return count
}

// IsFull reports whether every slot is readable.
func (b *BucketView[K, V]) IsFull() bool {
	return b.NumReadable() == b.capacity
}

// IsEmpty reports whether no slot is readable.
func (b *BucketView[K, V]) IsEmpty() bool {
	return b.NumReadable() == 0
}
