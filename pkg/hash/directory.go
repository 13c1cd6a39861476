package hash

import (
	"encoding/binary"
	"fmt"

	"extendb/pkg/config"
)

// directoryLayoutSize is the number of bytes a DirectoryView needs:
// a 4-byte global depth, then one byte of local depth and one
// config.PageID (4 bytes) per directory slot.
const directoryLayoutSize = 4 + config.DirectoryArraySize*(1+4)

// DirectoryView interprets a page's raw bytes as a hash table's routing
// directory: a global depth, and per-slot local depth and bucket page id
// arrays sized to config.DirectoryArraySize regardless of the table's
// current depth. New relative to the teacher, whose HashTable keeps this
// routing table as a plain heap slice never pinned or paged; sized so a
// full directory (global depth doubling via array append is impossible in
// a paged design) always fits within one buffer pool page, per spec §6's
// persisted layout.
type DirectoryView struct {
	data               []byte
	localDepthOffset   int
	bucketPageIDOffset int
}

// NewDirectoryView constructs a view over data, which must be at least
// directoryLayoutSize bytes.
func NewDirectoryView(data []byte) *DirectoryView {
	if len(data) < directoryLayoutSize {
		panic(fmt.Sprintf("hash: page of %d bytes cannot hold a %d-byte directory", len(data), directoryLayoutSize))
	}
	return &DirectoryView{
		data:               data,
		localDepthOffset:   4,
		bucketPageIDOffset: 4 + config.DirectoryArraySize,
	}
}

// Init resets the directory to its just-created state: global depth 0,
// every slot's local depth 0, and every slot routed to initialBucketPageID.
func (d *DirectoryView) Init(initialBucketPageID config.PageID) {
	d.setGlobalDepth(0)
	for i := 0; i < config.DirectoryArraySize; i++ {
		d.setLocalDepth(i, 0)
		d.SetBucketPageId(uint32(i), initialBucketPageID)
	}
}

func (d *DirectoryView) GetGlobalDepth() uint32 {
	return binary.LittleEndian.Uint32(d.data[0:4])
}

func (d *DirectoryView) setGlobalDepth(depth uint32) {
	binary.LittleEndian.PutUint32(d.data[0:4], depth)
}

// IncrGlobalDepth grows the directory by one bit, doubling it: each slot
// i of the current half is mirrored (bucket page id and local depth) into
// slot i+Size(). Callers must check CanIncrGlobalDepth first; this does
// not itself enforce MAX_DEPTH.
func (d *DirectoryView) IncrGlobalDepth() {
	size := d.Size()
	for i := uint32(0); i < size; i++ {
		d.setLocalDepth(int(i+size), d.GetLocalDepth(i))
		d.SetBucketPageId(i+size, d.GetBucketPageId(i))
	}
	d.setGlobalDepth(d.GetGlobalDepth() + 1)
}

// DecrGlobalDepth shrinks the directory by one bit. A no-op at depth 0.
func (d *DirectoryView) DecrGlobalDepth() {
	if gd := d.GetGlobalDepth(); gd > 0 {
		d.setGlobalDepth(gd - 1)
	}
}

// GetGlobalDepthMask returns (1<<global_depth) - 1.
func (d *DirectoryView) GetGlobalDepthMask() uint32 {
	return (uint32(1) << d.GetGlobalDepth()) - 1
}

// CanIncrGlobalDepth reports whether the directory has room to grow
// without exceeding config.MaxDepth.
func (d *DirectoryView) CanIncrGlobalDepth() bool {
	return d.GetGlobalDepth() < config.MaxDepth
}

func (d *DirectoryView) GetLocalDepth(i uint32) uint8 {
	return d.data[d.localDepthOffset+int(i)]
}

func (d *DirectoryView) setLocalDepth(i int, depth uint8) {
	d.data[d.localDepthOffset+i] = depth
}

// IncrLocalDepth increments slot i's local depth by one.
func (d *DirectoryView) IncrLocalDepth(i uint32) {
	d.setLocalDepth(int(i), d.GetLocalDepth(i)+1)
}

// DecrLocalDepth decrements slot i's local depth by one. A no-op if
// already zero.
func (d *DirectoryView) DecrLocalDepth(i uint32) {
	if ld := d.GetLocalDepth(i); ld > 0 {
		d.setLocalDepth(int(i), ld-1)
	}
}

// GetLocalDepthMask returns (1<<local_depth[i]) - 1.
func (d *DirectoryView) GetLocalDepthMask(i uint32) uint32 {
	return (uint32(1) << d.GetLocalDepth(i)) - 1
}

// GetBucketPageId returns the page id slot i currently routes to.
func (d *DirectoryView) GetBucketPageId(i uint32) config.PageID {
	off := d.bucketPageIDOffset + int(i)*4
	return config.PageID(binary.LittleEndian.Uint32(d.data[off : off+4]))
}

// SetBucketPageId routes slot i to id.
func (d *DirectoryView) SetBucketPageId(i uint32, id config.PageID) {
	off := d.bucketPageIDOffset + int(i)*4
	binary.LittleEndian.PutUint32(d.data[off:off+4], uint32(id))
}

// Size returns 1 << global_depth: the number of directory slots
// currently in use.
func (d *DirectoryView) Size() uint32 {
	return uint32(1) << d.GetGlobalDepth()
}

// GetSplitImageIndex returns the directory slot that pointed to the same
// bucket as i before its most recent split: i with bit (local_depth[i]-1)
// flipped. Defined as i itself when local_depth[i] is 0 (never split).
func (d *DirectoryView) GetSplitImageIndex(i uint32) uint32 {
	ld := d.GetLocalDepth(i)
	if ld == 0 {
		return i
	}
	return i ^ (uint32(1) << (ld - 1))
}

// CanShrink reports whether every live slot's local depth is strictly
// less than the global depth, i.e. halving the directory would still
// leave every bucket routable.
func (d *DirectoryView) CanShrink() bool {
	globalDepth := d.GetGlobalDepth()
	for j := uint32(0); j < d.Size(); j++ {
		if d.GetLocalDepth(j) >= uint8(globalDepth) {
			return false
		}
	}
	return true
}

// lowBitsMask returns a mask isolating the low `depth` bits of a value.
func lowBitsMask(depth uint32) uint32 {
	if depth >= 32 {
		return ^uint32(0)
	}
	return ^(^uint32(0) >> depth << depth)
}

// VerifyIntegrity asserts the directory coherence invariants of spec §3:
// every live slot's local depth is within the global depth, and every
// group of slots sharing the low local_depth bits of a representative
// slot agree on both bucket page id and local depth.
func (d *DirectoryView) VerifyIntegrity() error {
	globalDepth := d.GetGlobalDepth()
	size := d.Size()
	for j := uint32(0); j < size; j++ {
		ld := d.GetLocalDepth(j)
		if uint32(ld) > globalDepth {
			return fmt.Errorf("hash: directory slot %d has local depth %d exceeding global depth %d", j, ld, globalDepth)
		}
		mask := lowBitsMask(uint32(ld))
		low := j & mask
		for jp := uint32(0); jp < size; jp++ {
			if jp&mask != low {
				continue
			}
			if d.GetLocalDepth(jp) != ld {
				return fmt.Errorf("hash: directory slots %d and %d share low %d bits but differ in local depth", j, jp, ld)
			}
			if d.GetBucketPageId(jp) != d.GetBucketPageId(j) {
				return fmt.Errorf("hash: directory slots %d and %d share low %d bits but route to different buckets", j, jp, ld)
			}
		}
	}
	return nil
}
