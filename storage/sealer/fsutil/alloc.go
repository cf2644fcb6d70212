package fsutil

import (
	"os"

	"github.com/detailyang/go-fallocate"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"
)

var log = logging.Logger("fsutil")

// Preallocate grows f to size bytes. New space reads as zeros. Files that
// are already large enough are left alone.
func Preallocate(f *os.File, size int64) error {
	st, err := f.Stat()
	if err != nil {
		return xerrors.Errorf("stat %s: %w", f.Name(), err)
	}
	if st.Size() >= size {
		return nil
	}

	if err := fallocate.Fallocate(f, st.Size(), size-st.Size()); err != nil {
		log.Debugw("fallocate failed, extending with truncate", "file", f.Name(), "error", err)
		if err := f.Truncate(size); err != nil {
			return xerrors.Errorf("extending %s to %d bytes: %w", f.Name(), size, err)
		}
	}
	return nil
}
