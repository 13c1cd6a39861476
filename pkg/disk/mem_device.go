package disk

import (
	"sync"

	"extendb/pkg/config"
)

// MemBlockDevice is an in-memory BlockDevice, used in unit tests so the
// buffer pool and hash index tests don't pay real disk I/O — the same
// role the teacher's TestingNewBufferManager plays for ppdb's disk
// manager. It never needs directio alignment, so tests are free to use a
// page size smaller than PageSize to exercise small-bucket scenarios
// (spec §8's end-to-end scenario table uses BUCKET_ARRAY_SIZE=4).
type MemBlockDevice struct {
	mu         sync.Mutex
	pages      map[config.PageID][]byte
	nextPageID config.PageID
	stride     config.PageID
	pageSize   int64
}

// NewMemBlockDevice constructs an empty in-memory device with the given
// page size, striped exactly like FileBlockDevice.
func NewMemBlockDevice(pageSize int64, numInstances, instanceIndex int) *MemBlockDevice {
	return &MemBlockDevice{
		pages:      make(map[config.PageID][]byte),
		nextPageID: config.PageID(instanceIndex),
		stride:     config.PageID(numInstances),
		pageSize:   pageSize,
	}
}

// PageSize returns the device's fixed page size in bytes.
func (d *MemBlockDevice) PageSize() int64 {
	return d.pageSize
}

// ReadPage fills out with pageID's stored bytes, or zeroes if pageID was
// never written.
func (d *MemBlockDevice) ReadPage(pageID config.PageID, out []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if data, ok := d.pages[pageID]; ok {
		copy(out, data)
		return nil
	}
	for i := range out {
		out[i] = 0
	}
	return nil
}

// WritePage stores a copy of data under pageID.
func (d *MemBlockDevice) WritePage(pageID config.PageID, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	d.pages[pageID] = buf
	return nil
}

// AllocatePage returns the next id in this device's stride.
func (d *MemBlockDevice) AllocatePage() config.PageID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextPageID
	d.nextPageID += d.stride
	return id
}

// DeallocatePage drops pageID's stored bytes, if any.
func (d *MemBlockDevice) DeallocatePage(pageID config.PageID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pages, pageID)
	return nil
}

// Close is a no-op; there is nothing backing this device but heap memory.
func (d *MemBlockDevice) Close() error {
	return nil
}
