package buffer

import (
	"sync"
	"sync/atomic"

	"extendb/pkg/config"
)

// Page caches one page's worth of bytes in memory and carries the
// metadata the buffer pool needs to manage it — pin count, dirty flag,
// and its own reader/writer latch. Ported from the teacher's
// pager.Page, renamed to match buffer-pool terminology and stripped of
// the pager back-pointer (BufferPool now owns page-table bookkeeping
// directly, rather than routing every metadata mutation through the
// page).
type Page struct {
	pageID   config.PageID
	pinCount atomic.Int64
	dirty    bool
	rwlock   sync.RWMutex
	data     []byte
}

// GetPageID returns the page's stable identity, or config.InvalidPageID
// if this frame holds no live page.
func (p *Page) GetPageID() config.PageID {
	return p.pageID
}

// IsDirty reports whether the page's data has changed since it was last
// flushed to the block device.
func (p *Page) IsDirty() bool {
	return p.dirty
}

// SetDirty marks (or clears) the page's dirty flag directly. Most callers
// should instead pass isDirty=true to BufferPool.UnpinPage, but a caller
// that mutates page bytes without going through Update (e.g. a bitset
// view writing straight into the trailing bytes) must set this itself.
func (p *Page) SetDirty(dirty bool) {
	p.dirty = dirty
}

// GetData returns the page's raw byte buffer. The caller must hold at
// least a read latch (WLock/RLock) before touching it, and the page must
// be pinned for the duration.
func (p *Page) GetData() []byte {
	return p.data
}

// Update copies size bytes from data into the page at the given offset
// and marks the page dirty.
func (p *Page) Update(data []byte, offset, size int64) {
	p.dirty = true
	copy(p.data[offset:offset+size], data)
}

// PinCount returns the page's current pin count. Exposed for
// VerifyIntegrity and tests; ordinary callers should not need it.
func (p *Page) PinCount() int64 {
	return p.pinCount.Load()
}

// WLock acquires the page's write latch. Held only by callers (the hash
// index) around bucket/directory mutations — the buffer pool itself never
// takes this lock, per spec §4.C's "Per-page latches... held only by
// callers."
func (p *Page) WLock() { p.rwlock.Lock() }

// WUnlock releases the page's write latch.
func (p *Page) WUnlock() { p.rwlock.Unlock() }

// RLock acquires the page's read latch.
func (p *Page) RLock() { p.rwlock.RLock() }

// RUnlock releases the page's read latch.
func (p *Page) RUnlock() { p.rwlock.RUnlock() }
