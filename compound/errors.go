package compound

import "golang.org/x/xerrors"

var (
	// ErrConfigMismatch means prover and verifier settings disagree.
	ErrConfigMismatch = xerrors.New("proof parameters do not match configuration")
	// ErrMalformedProof means the proof bytes have the wrong shape.
	ErrMalformedProof = xerrors.New("malformed proof")
	// ErrInsufficientChallenges means the parameters prove too few challenges.
	ErrInsufficientChallenges = xerrors.New("challenge requirements not satisfied")
)
