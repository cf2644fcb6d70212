//go:build !windows

package fsutil

import (
	"os"
	"syscall"

	"golang.org/x/xerrors"
)

type SizeInfo struct {
	// Logical is the apparent file length.
	Logical int64
	// OnDisk counts allocated blocks.
	OnDisk int64
}

// FileSize reports the apparent and allocated size of a sector file.
func FileSize(path string) (SizeInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return SizeInfo{}, os.ErrNotExist
		}
		return SizeInfo{}, xerrors.Errorf("stat %s: %w", path, err)
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return SizeInfo{}, xerrors.New("FileInfo.Sys of wrong type")
	}

	// NOTE: stat.Blocks is in 512B blocks, NOT in stat.Blksize
	return SizeInfo{
		Logical: info.Size(),
		OnDisk:  int64(stat.Blocks) * 512, // nolint NOTE: int64 cast is needed on osx
	}, nil
}
