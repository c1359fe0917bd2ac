//go:build unix

// Package memmap maps buffer regions with mmap so a log buffer and its state
// buffer can be shared between a producer process and a scanner process.
// Anonymous mappings serve single-process use and tests; file-backed
// mappings are the cross-process path.
package memmap

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Region is an mmap'd byte region.
type Region struct {
	data []byte
	file *os.File // nil for anonymous mappings
}

// MapAnon maps an anonymous region of the given length.
func MapAnon(length int) (*Region, error) {
	if length <= 0 {
		return nil, fmt.Errorf("memmap: length must be positive: %d", length)
	}

	data, err := unix.Mmap(-1, 0, length,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("memmap: anonymous mmap of %d bytes: %w", length, err)
	}

	return &Region{data: data}, nil
}

// MapFile maps length bytes of the file at path, creating and sizing it
// when create is set. The mapping is shared, so stores are visible to other
// processes mapping the same file.
func MapFile(path string, length int, create bool) (*Region, error) {
	if length <= 0 {
		return nil, fmt.Errorf("memmap: length must be positive: %d", length)
	}

	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("memmap: open %s: %w", path, err)
	}

	if create {
		if err := file.Truncate(int64(length)); err != nil {
			file.Close()
			return nil, fmt.Errorf("memmap: truncate %s to %d bytes: %w", path, length, err)
		}
	}

	data, err := unix.Mmap(int(file.Fd()), 0, length,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("memmap: mmap %s: %w", path, err)
	}

	return &Region{data: data, file: file}, nil
}

// Bytes returns the mapped region. Valid until Close.
func (r *Region) Bytes() []byte {
	return r.data
}

// Len returns the mapped length in bytes.
func (r *Region) Len() int {
	return len(r.data)
}

// Sync flushes a file-backed region to its backing store.
func (r *Region) Sync() error {
	if r.file == nil {
		return nil
	}
	if err := unix.Msync(r.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("memmap: msync: %w", err)
	}
	return nil
}

// Close unmaps the region and closes any backing file.
func (r *Region) Close() error {
	if r.data == nil {
		return nil
	}

	err := unix.Munmap(r.data)
	r.data = nil

	if r.file != nil {
		if cerr := r.file.Close(); err == nil {
			err = cerr
		}
		r.file = nil
	}

	if err != nil {
		return fmt.Errorf("memmap: close: %w", err)
	}
	return nil
}
