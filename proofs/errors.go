package proofs

import "golang.org/x/xerrors"

var (
	// ErrInternalConsistency means a freshly sealed sector failed its own
	// verification. It signals a bug, never bad input; the proof is dropped.
	ErrInternalConsistency = xerrors.New("sealed sector failed self-verification")

	ErrSectorSize = xerrors.New("sector size does not match configuration")
)
