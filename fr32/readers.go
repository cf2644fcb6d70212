package fr32

import (
	"io"

	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"
)

// MTTresh is the largest amount of unpadded data a reader converts at once.
var MTTresh = uint64(32 << 20)

func bufChunks(total uint64) uint64 {
	chunks := total / UnpaddedChunk
	if limit := MTTresh / UnpaddedChunk; chunks > limit {
		chunks = limit
	}
	if chunks == 0 {
		chunks = 1
	}
	return chunks
}

type padReader struct {
	src io.Reader

	left uint64
	work []byte
	out  []byte
	pend []byte
}

// NewPadReader pads sz bytes read from src. sz must be a multiple of 127.
func NewPadReader(src io.Reader, sz abi.UnpaddedPieceSize) (io.Reader, error) {
	if sz == 0 || uint64(sz)%UnpaddedChunk != 0 {
		return nil, xerrors.Errorf("unpadded size %d is not a multiple of %d", sz, UnpaddedChunk)
	}

	chunks := bufChunks(uint64(sz))

	return &padReader{
		src:  src,
		left: uint64(sz),
		work: make([]byte, chunks*UnpaddedChunk),
		out:  make([]byte, chunks*PaddedChunk),
	}, nil
}

func (r *padReader) Read(p []byte) (int, error) {
	if len(r.pend) == 0 {
		if r.left == 0 {
			return 0, io.EOF
		}

		todo := uint64(len(r.work))
		if todo > r.left {
			todo = r.left
		}

		if _, err := io.ReadFull(r.src, r.work[:todo]); err != nil {
			return 0, xerrors.Errorf("reading unpadded data: %w", err)
		}
		r.left -= todo

		padded := r.out[:todo/UnpaddedChunk*PaddedChunk]
		Pad(r.work[:todo], padded)
		r.pend = padded
	}

	n := copy(p, r.pend)
	r.pend = r.pend[n:]
	return n, nil
}

type unpadReader struct {
	src io.Reader

	left uint64
	work []byte
	out  []byte
	pend []byte
}

// NewUnpadReader strips the padding from sz padded bytes read from src.
func NewUnpadReader(src io.Reader, sz abi.PaddedPieceSize) (io.Reader, error) {
	if sz == 0 || uint64(sz)%PaddedChunk != 0 {
		return nil, xerrors.Errorf("padded size %d is not a multiple of %d", sz, PaddedChunk)
	}

	chunks := bufChunks(uint64(sz) / PaddedChunk * UnpaddedChunk)

	return &unpadReader{
		src:  src,
		left: uint64(sz),
		work: make([]byte, chunks*PaddedChunk),
		out:  make([]byte, chunks*UnpaddedChunk),
	}, nil
}

func (r *unpadReader) Read(p []byte) (int, error) {
	if len(r.pend) == 0 {
		if r.left == 0 {
			return 0, io.EOF
		}

		todo := uint64(len(r.work))
		if todo > r.left {
			todo = r.left
		}

		if _, err := io.ReadFull(r.src, r.work[:todo]); err != nil {
			return 0, xerrors.Errorf("reading padded data: %w", err)
		}
		r.left -= todo

		unpadded := r.out[:todo/PaddedChunk*UnpaddedChunk]
		Unpad(r.work[:todo], unpadded)
		r.pend = unpadded
	}

	n := copy(p, r.pend)
	r.pend = r.pend[n:]
	return n, nil
}

// WriteUnpadded unpads the range [offset, offset+n) of the data stored in
// padded and writes it to w. The range is clipped to the data capacity of
// padded; the number of bytes written is returned.
func WriteUnpadded(w io.Writer, padded []byte, offset, n uint64) (uint64, error) {
	capacity := UnpaddedLen(uint64(len(padded)))
	if offset > capacity {
		return 0, xerrors.Errorf("offset %d beyond data capacity %d", offset, capacity)
	}

	end := offset + n
	if end > capacity || end < offset {
		end = capacity
	}
	if end == offset {
		return 0, nil
	}

	firstChunk := offset / UnpaddedChunk
	lastChunk := (end + UnpaddedChunk - 1) / UnpaddedChunk

	pStart := firstChunk * PaddedChunk
	pEnd := lastChunk * PaddedChunk
	if pEnd > uint64(len(padded)) {
		pEnd = uint64(len(padded))
	}

	data := UnpadBytes(padded[pStart:pEnd])
	rel := offset - firstChunk*UnpaddedChunk

	written, err := w.Write(data[rel : rel+(end-offset)])
	if err != nil {
		return uint64(written), xerrors.Errorf("writing unpadded range: %w", err)
	}

	return uint64(written), nil
}
