package kv

import "encoding/binary"

// Int64Traits is the default Traits instantiation: 8-byte big-endian keys
// and values, compared numerically, hashed with XxHash64. Analogous to
// the teacher's hardcoded int64 entry.Entry, but expressed as one Traits
// value instead of being baked into every bucket/table method.
var Int64Traits = Traits[int64, int64]{
	KeySize:   8,
	ValueSize: 8,
	EncodeKey: encodeInt64,
	DecodeKey: decodeInt64,

	EncodeValue: encodeInt64,
	DecodeValue: decodeInt64,

	Compare: func(a, b int64) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	},
	Hash: func(key int64) uint64 { return XxHash64(key) },
}

func encodeInt64(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func decodeInt64(data []byte) int64 {
	return int64(binary.BigEndian.Uint64(data))
}
