// Package kv defines the opaque key/value contract that the hash index is
// built against: a fixed-width byte codec plus a total-order comparator
// and a hash function, all user-suppliable. The storage substrate never
// interprets a key or value beyond these operations (spec §6's
// "Key/value type contract").
package kv

// Traits bundles everything BucketView, DirectoryView, and HashTable need
// to treat K and V as opaque fixed-width values. KeySize and ValueSize
// must match the number of bytes EncodeKey/EncodeValue always produce —
// view constructors validate this at construction time rather than
// trusting it silently (spec §9's "assert alignment and size at
// construction time").
type Traits[K comparable, V comparable] struct {
	KeySize   int
	ValueSize int

	EncodeKey   func(K) []byte
	DecodeKey   func([]byte) K
	EncodeValue func(V) []byte
	DecodeValue func([]byte) V

	// Compare returns <0, 0, or >0 as a compares below, equal to, or
	// above b. Used only for equality in this index (no range scans),
	// but kept as a full comparator per spec §6 rather than a narrower
	// Equal func, so the same Traits value could serve a sorted index.
	Compare func(a, b K) int

	// Hash returns a 64-bit hash of key; HashTable downcasts it to 32
	// bits (spec §4.F).
	Hash func(key K) uint64
}

// EntrySize is the fixed width of one (key, value) pair as laid out in a
// bucket page's data array.
func (t Traits[K, V]) EntrySize() int {
	return t.KeySize + t.ValueSize
}

// Equal reports whether a and b compare equal under t.Compare.
func (t Traits[K, V]) Equal(a, b K) bool {
	return t.Compare(a, b) == 0
}
