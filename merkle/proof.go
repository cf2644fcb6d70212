package merkle

import (
	"encoding/binary"

	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-proofs/hasher"
)

var ErrProofLength = xerrors.New("wrong inclusion proof length")

// Proof opens one leaf. The path direction at each level is taken from the
// corresponding bit of Index.
type Proof struct {
	Index    uint64
	Leaf     hasher.Domain
	Siblings []hasher.Domain
}

// ProofLen is the encoded size of a proof for a tree of the given depth.
func ProofLen(depth int) int {
	return 8 + hasher.DomainBytes + hasher.DomainBytes*depth
}

// Root recomputes the root implied by the proof.
func (p Proof) Root(h hasher.Hasher) hasher.Domain {
	cur := p.Leaf
	idx := p.Index
	for _, s := range p.Siblings {
		if idx&1 == 0 {
			cur = h.Node(cur, s)
		} else {
			cur = h.Node(s, cur)
		}
		idx >>= 1
	}
	return cur
}

// Verify checks the proof against root. The index must fit in the tree.
func (p Proof) Verify(h hasher.Hasher, root hasher.Domain) bool {
	if len(p.Siblings) < 64 && p.Index>>uint(len(p.Siblings)) != 0 {
		return false
	}
	return p.Root(h) == root
}

// MarshalTo writes the proof into buf, which must be ProofLen(depth) long.
func (p Proof) MarshalTo(buf []byte) error {
	if len(buf) != ProofLen(len(p.Siblings)) {
		return xerrors.Errorf("buffer of %d bytes for depth %d: %w", len(buf), len(p.Siblings), ErrProofLength)
	}

	binary.LittleEndian.PutUint64(buf[:8], p.Index)
	copy(buf[8:], p.Leaf[:])
	off := 8 + hasher.DomainBytes
	for _, s := range p.Siblings {
		copy(buf[off:], s[:])
		off += hasher.DomainBytes
	}
	return nil
}

func (p Proof) Marshal() []byte {
	buf := make([]byte, ProofLen(len(p.Siblings)))
	_ = p.MarshalTo(buf)
	return buf
}

// UnmarshalProof decodes an untrusted proof. Non-canonical nodes fail with
// hasher.ErrNonCanonical.
func UnmarshalProof(buf []byte, depth int) (Proof, error) {
	if len(buf) != ProofLen(depth) {
		return Proof{}, xerrors.Errorf("got %d bytes for depth %d: %w", len(buf), depth, ErrProofLength)
	}

	p := Proof{
		Index:    binary.LittleEndian.Uint64(buf[:8]),
		Siblings: make([]hasher.Domain, depth),
	}

	var err error
	if p.Leaf, err = hasher.DomainFromBytes(buf[8 : 8+hasher.DomainBytes]); err != nil {
		return Proof{}, xerrors.Errorf("leaf: %w", err)
	}

	off := 8 + hasher.DomainBytes
	for i := range p.Siblings {
		if p.Siblings[i], err = hasher.DomainFromBytes(buf[off : off+hasher.DomainBytes]); err != nil {
			return Proof{}, xerrors.Errorf("sibling %d: %w", i, err)
		}
		off += hasher.DomainBytes
	}

	return p, nil
}
