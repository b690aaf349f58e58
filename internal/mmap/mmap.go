// Package mmap provides read-only memory mapping of snapshot files, so
// large bulk-loaded scenes can be decoded without an extra copy.
package mmap

import (
	"errors"
	"io"
	"os"
)

// ErrClosed is returned when a mapping is used after Close.
var ErrClosed = errors.New("mmap: closed")

// Mapping is a read-only memory-mapped file.
type Mapping struct {
	data   []byte
	closed bool
}

// Open maps the file at path into memory as read-only.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		return &Mapping{}, nil
	}

	data, err := osMap(f, int(size))
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data}, nil
}

// Bytes returns the mapped bytes. The slice is valid only until Close.
func (m *Mapping) Bytes() []byte {
	if m.closed {
		return nil
	}
	return m.data
}

// Size returns the size of the mapping in bytes.
func (m *Mapping) Size() int64 { return int64(len(m.data)) }

// ReadAt implements io.ReaderAt over the mapped bytes.
func (m *Mapping) ReadAt(p []byte, off int64) (int, error) {
	if m.closed {
		return 0, ErrClosed
	}
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the memory. Idempotent.
func (m *Mapping) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	return osUnmap(data)
}
