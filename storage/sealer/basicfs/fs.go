package basicfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/go-proofs/fr32"
	"github.com/filecoin-project/go-proofs/storage/sealer/storiface"
)

type sectorFile struct {
	abi.SectorID
	storiface.SectorFileType
}

// Provider keeps sector files under Root, one directory per file type.
// Unsealed (staging) files hold fr32-padded client data; sealed files hold
// replicas.
type Provider struct {
	Root       string
	SectorSize abi.SectorSize

	lk         sync.Mutex
	waitSector map[sectorFile]chan struct{}
}

// AcquireSector returns the paths of the requested file types and holds an
// exclusive claim on them until done is called.
func (b *Provider) AcquireSector(ctx context.Context, id abi.SectorID, existing storiface.SectorFileType, allocate storiface.SectorFileType) (storiface.SectorPaths, func(), error) {
	for _, ft := range storiface.PathTypes {
		if err := os.Mkdir(filepath.Join(b.Root, ft.String()), 0755); err != nil && !os.IsExist(err) {
			return storiface.SectorPaths{}, nil, err
		}
	}

	done := func() {}

	out := storiface.SectorPaths{
		ID: id,
	}

	for _, fileType := range storiface.PathTypes {
		if !existing.Has(fileType) && !allocate.Has(fileType) {
			continue
		}

		b.lk.Lock()
		if b.waitSector == nil {
			b.waitSector = map[sectorFile]chan struct{}{}
		}
		ch, found := b.waitSector[sectorFile{id, fileType}]
		if !found {
			ch = make(chan struct{}, 1)
			b.waitSector[sectorFile{id, fileType}] = ch
		}
		b.lk.Unlock()

		select {
		case ch <- struct{}{}:
		case <-ctx.Done():
			done()
			return storiface.SectorPaths{}, nil, ctx.Err()
		}

		prevDone := done
		done = func() {
			prevDone()
			<-ch
		}

		path := filepath.Join(b.Root, fileType.String(), storiface.SectorName(id))
		storiface.SetPathByType(&out, fileType, path)

		if existing.Has(fileType) {
			if _, err := os.Stat(path); err != nil {
				done()
				if os.IsNotExist(err) {
					return storiface.SectorPaths{}, nil, xerrors.Errorf("%s %s: %w", fileType, storiface.SectorName(id), storiface.ErrSectorNotFound)
				}
				return storiface.SectorPaths{}, nil, err
			}
		}
	}

	return out, done, nil
}

func (b *Provider) newAccess(ctx context.Context, id abi.SectorID, ft storiface.SectorFileType) (string, error) {
	paths, done, err := b.AcquireSector(ctx, id, storiface.FTNone, ft)
	if err != nil {
		return "", xerrors.Errorf("acquiring %s sector: %w", ft, err)
	}
	defer done()

	path := storiface.PathByType(paths, ft)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", xerrors.Errorf("creating %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// List returns the sectors stored under each of the given file types.
func (b *Provider) List(ft storiface.SectorFileType) (map[storiface.SectorFileType][]abi.SectorID, error) {
	out := map[storiface.SectorFileType][]abi.SectorID{}
	for _, t := range ft.AllSet() {
		dir := filepath.Join(b.Root, t.String())
		ents, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, xerrors.Errorf("listing %s: %w", dir, err)
		}

		seen := map[abi.SectorID]struct{}{}
		for _, ent := range ents {
			if ent.IsDir() {
				continue
			}
			sid, err := storiface.ParseSectorID(ent.Name())
			if err != nil {
				return nil, xerrors.Errorf("parse sector id %s: %w", ent.Name(), err)
			}
			if _, ok := seen[sid]; ok {
				continue
			}
			seen[sid] = struct{}{}
			out[t] = append(out[t], sid)
		}
	}
	return out, nil
}

// NewStagingSectorAccess creates an empty unsealed file for id.
func (b *Provider) NewStagingSectorAccess(ctx context.Context, id abi.SectorID) (string, error) {
	return b.newAccess(ctx, id, storiface.FTUnsealed)
}

// NewSealedSectorAccess reserves the sealed path for id.
func (b *Provider) NewSealedSectorAccess(ctx context.Context, id abi.SectorID) (string, error) {
	return b.newAccess(ctx, id, storiface.FTSealed)
}

// Remove deletes every file of the sector.
func (b *Provider) Remove(ctx context.Context, id abi.SectorID) error {
	paths, done, err := b.AcquireSector(ctx, id, storiface.FTNone, storiface.FTUnsealed|storiface.FTSealed)
	if err != nil {
		return err
	}
	defer done()

	for _, p := range []string{paths.Unsealed, paths.Sealed} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return xerrors.Errorf("removing %s: %w", p, err)
		}
	}
	return nil
}

// MaxUnsealedBytes is the data capacity of one sector.
func (b *Provider) MaxUnsealedBytes() abi.UnpaddedPieceSize {
	return fr32.MaxUnpaddedSize(b.SectorSize)
}

// NumUnsealedBytes is the amount of client data stored in an unsealed file.
func (b *Provider) NumUnsealedBytes(access string) (abi.UnpaddedPieceSize, error) {
	st, err := os.Stat(access)
	if err != nil {
		return 0, xerrors.Errorf("stat %s: %w", access, err)
	}
	return abi.UnpaddedPieceSize(fr32.UnpaddedLen(uint64(st.Size()))), nil
}

func (b *Provider) readUnpadded(access string) ([]byte, error) {
	padded, err := os.ReadFile(access)
	if err != nil {
		return nil, xerrors.Errorf("reading %s: %w", access, err)
	}
	return fr32.UnpadBytes(padded), nil
}

func writePadded(access string, data []byte) error {
	if err := os.WriteFile(access, fr32.PadBytes(data), 0644); err != nil {
		return xerrors.Errorf("writing %s: %w", access, err)
	}
	return nil
}

// WriteAndPreprocess appends the data read from r to an unsealed file,
// padding it as it goes. A partially filled last word is re-padded together
// with the new bytes. It returns the number of bytes appended.
func (b *Provider) WriteAndPreprocess(access string, r io.Reader) (abi.UnpaddedPieceSize, error) {
	data, err := b.readUnpadded(access)
	if err != nil {
		return 0, err
	}

	capacity := uint64(b.MaxUnsealedBytes())
	if uint64(len(data)) > capacity {
		return 0, xerrors.Errorf("unsealed file %s already exceeds capacity", access)
	}

	// read one byte more than fits so oversized input is detected
	in, err := io.ReadAll(io.LimitReader(r, int64(capacity-uint64(len(data)))+1))
	if err != nil {
		return 0, xerrors.Errorf("reading piece data: %w", err)
	}
	if uint64(len(data)+len(in)) > capacity {
		return 0, xerrors.Errorf("writing %d bytes to %s with %d stored would exceed capacity %d", len(in), access, len(data), capacity)
	}

	if err := writePadded(access, append(data, in...)); err != nil {
		return 0, err
	}
	return abi.UnpaddedPieceSize(len(in)), nil
}

// TruncateUnsealed drops stored data beyond size unpadded bytes.
func (b *Provider) TruncateUnsealed(access string, size abi.UnpaddedPieceSize) error {
	data, err := b.readUnpadded(access)
	if err != nil {
		return err
	}
	if uint64(size) >= uint64(len(data)) {
		return nil
	}
	return writePadded(access, data[:size])
}

// ReadRaw returns n raw bytes of a sector file starting at offset.
func (b *Provider) ReadRaw(access string, offset storiface.PaddedByteIndex, n abi.PaddedPieceSize) ([]byte, error) {
	f, err := os.Open(access)
	if err != nil {
		return nil, xerrors.Errorf("opening %s: %w", access, err)
	}
	defer f.Close() //nolint:errcheck

	buf := make([]byte, n)
	read, err := f.ReadAt(buf, int64(offset))
	if err != nil && err != io.EOF {
		return nil, xerrors.Errorf("reading %s at %d: %w", access, offset, err)
	}
	return buf[:read], nil
}
