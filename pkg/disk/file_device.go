package disk

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ncw/directio"

	"extendb/pkg/config"
)

// FileBlockDevice backs pages with a single flat file, read and written
// through directio so pages stay DMA-aligned — ported from the teacher's
// pager.Open/fillPageFromDisk/FlushPage, but stripped of everything the
// buffer pool now owns (page table, pin counts, free/replacer lists).
type FileBlockDevice struct {
	file *os.File

	mu         sync.Mutex
	numPages   config.PageID // pages ever allocated, on disk or not yet flushed
	nextPageID config.PageID
	stride     config.PageID
	pageSize   int64
}

// NewFileBlockDevice opens (creating if necessary) a database file at
// filePath, striped for one of numInstances cooperating devices sharing
// disjoint page-id ranges (spec §4.C's "optional stripe mode"; pass
// numInstances=1, instanceIndex=0 for the common single-instance case).
func NewFileBlockDevice(filePath string, numInstances, instanceIndex int) (*FileBlockDevice, error) {
	if numInstances <= 0 {
		return nil, errors.New("numInstances must be positive")
	}
	if instanceIndex < 0 || instanceIndex >= numInstances {
		return nil, errors.New("instanceIndex out of range")
	}

	if idx := strings.LastIndex(filePath, "/"); idx != -1 {
		if err := os.MkdirAll(filePath[:idx], 0775); err != nil {
			return nil, err
		}
	}
	file, err := directio.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.Size()%config.PageSize != 0 {
		file.Close()
		return nil, errors.New("disk: backing file size is not a multiple of the page size")
	}

	dev := &FileBlockDevice{
		file:       file,
		numPages:   config.PageID(info.Size() / config.PageSize),
		nextPageID: config.PageID(instanceIndex),
		stride:     config.PageID(numInstances),
		pageSize:   config.PageSize,
	}
	return dev, nil
}

// PageSize returns the device's fixed page size in bytes.
func (d *FileBlockDevice) PageSize() int64 {
	return d.pageSize
}

// GetFileName returns the path of the device's backing file.
func (d *FileBlockDevice) GetFileName() string {
	return d.file.Name()
}

// ReadPage fills out with pageID's on-disk bytes, zero-filling past EOF —
// mirroring fillPageFromDisk's tolerance for io.EOF on a page that was
// allocated but never written.
func (d *FileBlockDevice) ReadPage(pageID config.PageID, out []byte) error {
	if _, err := d.file.Seek(int64(pageID)*d.pageSize, io.SeekStart); err != nil {
		return err
	}
	n, err := d.file.Read(out)
	if err != nil && err != io.EOF {
		return err
	}
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	return nil
}

// WritePage persists data at pageID.
func (d *FileBlockDevice) WritePage(pageID config.PageID, data []byte) error {
	_, err := d.file.WriteAt(data, int64(pageID)*d.pageSize)
	return err
}

// AllocatePage returns the next id in this device's stride and advances
// the counter — ported from BufferPoolManagerInstance::AllocatePage.
func (d *FileBlockDevice) AllocatePage() config.PageID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextPageID
	d.nextPageID += d.stride
	if id >= d.numPages {
		d.numPages = id + 1
	}
	return id
}

// DeallocatePage is an accounting no-op; ids are never reused, matching
// the teacher's pager, which never shrinks its backing file on delete.
func (d *FileBlockDevice) DeallocatePage(config.PageID) error {
	return nil
}

// Close releases the backing file. Callers are responsible for flushing
// any buffer pool built on top of this device first.
func (d *FileBlockDevice) Close() error {
	return d.file.Close()
}
