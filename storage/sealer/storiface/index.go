package storiface

import (
	"errors"

	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/go-proofs/fr32"
)

var ErrSectorNotFound = errors.New("sector not found")

// UnpaddedByteIndex is an offset into the data stored in a sector.
type UnpaddedByteIndex uint64

// Padded is the offset of the 128-byte chunk holding i. Only exact for
// multiples of 127.
func (i UnpaddedByteIndex) Padded() PaddedByteIndex {
	return PaddedByteIndex(abi.UnpaddedPieceSize(i).Padded())
}

func (i UnpaddedByteIndex) Valid() error {
	if i%fr32.UnpaddedChunk != 0 {
		return xerrors.Errorf("unpadded byte index must be a multiple of 127")
	}

	return nil
}

// PaddedByteIndex is an offset into the raw bytes of a sector file.
type PaddedByteIndex uint64
