// Package replacer selects eviction victims for the buffer pool among its
// currently-unpinned frames (spec §4.B, component B).
package replacer

import "extendb/pkg/config"

// Replacer tracks unpinned frames and picks one to evict when the pool
// needs space. Implementations must be safe for concurrent use; the
// buffer pool calls Pin/Unpin/Victim while holding its own pool mutex
// (spec §5's lock order: pool mutex before replacer mutex), so an
// implementation must never call back into the pool.
type Replacer interface {
	// Victim removes and returns the frame the policy selects for
	// eviction, or ok=false if no frame is currently tracked.
	Victim() (frameID config.FrameID, ok bool)

	// Pin removes frameID from the tracked set, if present. A frame
	// with pin_count > 0 must never be handed out as a victim (spec
	// §3's page invariant), so the buffer pool calls this as soon as a
	// frame's pin count goes above zero.
	Pin(frameID config.FrameID)

	// Unpin adds frameID to the tracked set as the most recently
	// released frame, unless it is already tracked or the replacer is
	// at capacity. The buffer pool calls this only when a frame's pin
	// count reaches exactly zero — never on every Unpin call — so a
	// frame is never double-inserted by a correct caller.
	Unpin(frameID config.FrameID)

	// Size returns the number of frames currently tracked.
	Size() int
}
