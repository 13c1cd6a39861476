package kv

import (
	"encoding/binary"

	"github.com/cespare/xxhash"
	"github.com/spaolacci/murmur3"
)

// XxHash64 returns the xxHash hash of an 8-byte little-endian encoding of
// key. It is the default hasher wired into Int64Traits, matching the
// "64-bit hash... downcast to 32 bits" contract of spec §4.F/§6.
func XxHash64(key int64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(key))
	return xxhash.Sum64(buf[:])
}

// MurmurHash64 returns the MurmurHash3 hash of an 8-byte little-endian
// encoding of key. Offered as a pluggable alternative to XxHash64 — spec
// §6 treats the hash function as user-supplied and opaque, so callers
// that want a different collision/performance profile can swap it in
// without touching BucketView or DirectoryView.
func MurmurHash64(key int64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(key))
	return murmur3.Sum64(buf[:])
}
