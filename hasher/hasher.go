package hasher

import (
	"golang.org/x/xerrors"
)

// Hasher builds commitments over Domain elements.
type Hasher interface {
	Name() string
	// Node hashes two sibling nodes into their parent.
	Node(left, right Domain) Domain
	// Many hashes an ordered list of elements.
	Many(elems ...Domain) Domain
}

const (
	PoseidonName = "poseidon"
	Sha256Name   = "sha256"
	Blake2sName  = "blake2s"
)

// Default is the tree hasher used when none is configured.
const Default = PoseidonName

func ByName(name string) (Hasher, error) {
	switch name {
	case PoseidonName, "":
		return Poseidon{}, nil
	case Sha256Name:
		return Sha256{}, nil
	case Blake2sName:
		return Blake2s{}, nil
	default:
		return nil, xerrors.Errorf("unknown hasher %q", name)
	}
}
