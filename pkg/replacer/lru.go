package replacer

import (
	"sync"

	"extendb/pkg/config"
	"extendb/pkg/list"
)

// LRUReplacer evicts the least-recently-unpinned frame first. Ported from
// original_source/src/buffer/lru_replacer.cpp's list+map shape (a
// doubly-linked list ordered by recency, with a map from frame id to its
// list node for O(1) Pin/Unpin), using the teacher's own intrusive
// pkg/list instead of std::list/a raw container/list — giving that
// package a second, independent caller beyond the buffer pool's free
// list.
type LRUReplacer struct {
	mu       sync.Mutex
	capacity int
	order    *list.List[config.FrameID]
	nodes    map[config.FrameID]*list.Link[config.FrameID]
}

// NewLRUReplacer constructs a replacer that will track at most capacity
// frames at once — capacity should equal the buffer pool's frame count.
func NewLRUReplacer(capacity int) *LRUReplacer {
	return &LRUReplacer{
		capacity: capacity,
		order:    list.NewList[config.FrameID](),
		nodes:    make(map[config.FrameID]*list.Link[config.FrameID]),
	}
}

// Victim removes and returns the least-recently-unpinned frame.
func (r *LRUReplacer) Victim() (config.FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link := r.order.PeekTail()
	if link == nil {
		return 0, false
	}
	frameID := link.GetValue()
	link.PopSelf()
	delete(r.nodes, frameID)
	return frameID, true
}

// Pin removes frameID from the tracked set; a no-op if it isn't tracked.
func (r *LRUReplacer) Pin(frameID config.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.nodes[frameID]
	if !ok {
		return
	}
	link.PopSelf()
	delete(r.nodes, frameID)
}

// Unpin records frameID as the most-recently-unpinned frame, unless it's
// already tracked or the replacer is already at capacity.
func (r *LRUReplacer) Unpin(frameID config.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[frameID]; ok {
		return
	}
	if len(r.nodes) >= r.capacity {
		return
	}
	r.nodes[frameID] = r.order.PushHead(frameID)
}

// Size returns the number of frames currently tracked.
func (r *LRUReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}

var _ Replacer = (*LRUReplacer)(nil)
