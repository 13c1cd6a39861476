// Package config holds the tunables shared across the storage substrate:
// page size, default pool size, and extendible-hashing depth limits.
package config

// PageSize is the default size of a page read from or written to a
// BlockDevice, in bytes. Chosen to match directio's required alignment
// for O_DIRECT files on Linux.
const PageSize int64 = 4096

// DefaultPoolSize is the number of frames a BufferPool holds when no
// explicit size is requested.
const DefaultPoolSize = 64

// MaxDepth bounds both the global depth of a hash table's directory page
// and the local depth of any bucket. DirectoryArraySize is derived from it.
const MaxDepth = 9

// DirectoryArraySize is the number of slots a directory page reserves,
// regardless of the table's current global depth: 1 << MaxDepth.
const DirectoryArraySize = 1 << MaxDepth

// PageID identifies a page's stable position within a BlockDevice's file.
// Kept 32 bits wide so a full directory page (local depth array + bucket
// page id array) fits comfortably inside a single PageSize page.
type PageID = int32

// InvalidPageID is the sentinel page id meaning "no page" — never returned
// by a BlockDevice's AllocatePage.
const InvalidPageID PageID = -1

// FrameID identifies a slot in a BufferPool's frame array.
type FrameID = int
