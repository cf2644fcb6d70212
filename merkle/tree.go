// Package merkle builds binary commitment trees over 32-byte nodes.
package merkle

import (
	"math/bits"

	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-proofs/hasher"
)

var ErrLeafCount = xerrors.New("leaf count must be a power of two")

// Tree keeps every level so openings are cheap. levels[0] holds the leaves
// and the last level holds the root.
type Tree struct {
	h      hasher.Hasher
	levels [][]hasher.Domain
}

func New(h hasher.Hasher, leaves []hasher.Domain) (*Tree, error) {
	if len(leaves) == 0 || bits.OnesCount(uint(len(leaves))) != 1 {
		return nil, xerrors.Errorf("%d leaves: %w", len(leaves), ErrLeafCount)
	}

	t := &Tree{h: h}
	level := append([]hasher.Domain(nil), leaves...)
	t.levels = append(t.levels, level)

	for len(level) > 1 {
		next := make([]hasher.Domain, len(level)/2)
		for i := range next {
			next[i] = h.Node(level[2*i], level[2*i+1])
		}
		t.levels = append(t.levels, next)
		level = next
	}

	return t, nil
}

// FromData builds a tree whose leaves are the 32-byte nodes of data.
func FromData(h hasher.Hasher, data []byte) (*Tree, error) {
	if len(data)%hasher.DomainBytes != 0 {
		return nil, xerrors.Errorf("data length %d is not a multiple of %d", len(data), hasher.DomainBytes)
	}

	leaves := make([]hasher.Domain, len(data)/hasher.DomainBytes)
	for i := range leaves {
		d, err := hasher.DomainFromBytes(data[i*hasher.DomainBytes : (i+1)*hasher.DomainBytes])
		if err != nil {
			return nil, xerrors.Errorf("leaf %d: %w", i, err)
		}
		leaves[i] = d
	}

	return New(h, leaves)
}

func (t *Tree) Root() hasher.Domain {
	return t.levels[len(t.levels)-1][0]
}

// Depth is the number of siblings in an inclusion proof.
func (t *Tree) Depth() int {
	return len(t.levels) - 1
}

func (t *Tree) NumLeaves() uint64 {
	return uint64(len(t.levels[0]))
}

func (t *Tree) Leaf(i uint64) hasher.Domain {
	return t.levels[0][i]
}

func (t *Tree) Leaves() []hasher.Domain {
	return t.levels[0]
}

func (t *Tree) Hasher() hasher.Hasher {
	return t.h
}

func (t *Tree) Prove(i uint64) (Proof, error) {
	if i >= t.NumLeaves() {
		return Proof{}, xerrors.Errorf("leaf %d out of range [0, %d)", i, t.NumLeaves())
	}

	p := Proof{
		Index:    i,
		Leaf:     t.levels[0][i],
		Siblings: make([]hasher.Domain, t.Depth()),
	}

	idx := i
	for l := 0; l < t.Depth(); l++ {
		p.Siblings[l] = t.levels[l][idx^1]
		idx >>= 1
	}

	return p, nil
}
