package drgraph

import (
	"math/bits"

	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-proofs/hasher"
)

var ErrInvalidParams = xerrors.New("invalid graph parameters")

// Params fixes the shape of a graph. Prover and verifier must agree on every
// field; Digest commits to all of them.
type Params struct {
	Nodes           uint64
	BaseDegree      int
	ExpansionDegree int
}

func (p Params) Validate() error {
	if p.Nodes < 2 || bits.OnesCount64(p.Nodes) != 1 {
		return xerrors.Errorf("node count %d must be a power of two >= 2: %w", p.Nodes, ErrInvalidParams)
	}
	if p.Nodes > 1<<40 {
		return xerrors.Errorf("node count %d too large: %w", p.Nodes, ErrInvalidParams)
	}
	if p.BaseDegree < 1 {
		return xerrors.Errorf("base degree %d must be positive: %w", p.BaseDegree, ErrInvalidParams)
	}
	if p.ExpansionDegree < 0 {
		return xerrors.Errorf("expansion degree %d must not be negative: %w", p.ExpansionDegree, ErrInvalidParams)
	}
	if p.BaseDegree >= 1<<8 || p.ExpansionDegree >= 1<<8 {
		return xerrors.Errorf("degree too large: %w", ErrInvalidParams)
	}
	return nil
}

// Degree is the maximum number of parents of any node.
func (p Params) Degree() int {
	return p.BaseDegree + p.ExpansionDegree
}

func (p Params) Digest() hasher.Domain {
	return hasher.Digest("drg-params",
		hasher.U64(p.Nodes),
		hasher.U64(uint64(p.BaseDegree)),
		hasher.U64(uint64(p.ExpansionDegree)),
	)
}
