//go:build !windows

package fsutil

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

// MappedFile is a file mapped read-write into memory. The mapping is owned
// by one caller; Close flushes and releases it.
type MappedFile struct {
	f    *os.File
	data []byte
}

// MapFile opens path, grows it to size bytes and maps it.
func MapFile(path string, size int64) (*MappedFile, error) {
	if size <= 0 {
		return nil, xerrors.Errorf("cannot map %d bytes", size)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, xerrors.Errorf("opening %s: %w", path, err)
	}

	if err := Preallocate(f, size); err != nil {
		_ = f.Close()
		return nil, err
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, xerrors.Errorf("mmap %s: %w", path, err)
	}

	return &MappedFile{f: f, data: data}, nil
}

func (m *MappedFile) Bytes() []byte {
	return m.data
}

// Flush writes dirty pages back to the file.
func (m *MappedFile) Flush() error {
	if m.data == nil {
		return xerrors.New("flush of closed mapping")
	}
	if err := unix.Msync(m.data, unix.MS_SYNC); err != nil {
		return xerrors.Errorf("msync %s: %w", m.f.Name(), err)
	}
	return nil
}

// Close flushes, unmaps and closes the file. It is safe to call twice.
func (m *MappedFile) Close() error {
	if m.data == nil {
		return nil
	}

	flushErr := m.Flush()
	unmapErr := unix.Munmap(m.data)
	m.data = nil
	closeErr := m.f.Close()

	switch {
	case flushErr != nil:
		return flushErr
	case unmapErr != nil:
		return xerrors.Errorf("munmap: %w", unmapErr)
	case closeErr != nil:
		return xerrors.Errorf("closing mapped file: %w", closeErr)
	}
	return nil
}
