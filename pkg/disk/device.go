// Package disk implements the block device collaborator the buffer pool
// reads and writes through: fixed-size pages addressed by a numeric id,
// with id allocation kept as a monotonic counter (spec §6, component A).
// The storage substrate never looks inside these bytes — that's the
// buffer pool's and hash index's job.
package disk

import "extendb/pkg/config"

// BlockDevice reads and writes fixed-size pages by numeric id, and hands
// out fresh ids on request. Implementations need not be safe for
// concurrent AllocatePage/DeallocatePage calls unless documented — the
// buffer pool that owns a BlockDevice already serializes access to it
// under its own pool mutex.
type BlockDevice interface {
	// ReadPage fills out (which must be exactly PageSize() bytes) with
	// the contents of pageID. Reading a page never written is defined
	// to zero-fill out.
	ReadPage(pageID config.PageID, out []byte) error

	// WritePage persists data (exactly PageSize() bytes) at pageID.
	WritePage(pageID config.PageID, data []byte) error

	// AllocatePage returns a fresh page id, advancing the device's
	// internal counter by stride (see BufferPool's striped mode,
	// spec §4.C) so that every id this device hands out satisfies
	// id % stride == offset.
	AllocatePage() config.PageID

	// DeallocatePage releases pageID back to the device. Ids are never
	// reused: FileBlockDevice treats it as an accounting no-op, matching
	// the teacher's own pager, which never shrinks its backing file on
	// delete; MemBlockDevice drops the page's stored bytes.
	DeallocatePage(pageID config.PageID) error

	// PageSize returns the fixed page size this device reads and
	// writes, in bytes.
	PageSize() int64

	// Close flushes and releases any OS resources the device holds.
	Close() error
}
