package hasher

import (
	"golang.org/x/crypto/blake2s"
)

// Blake2s hashes with BLAKE2s-256 and truncates the digest into the field.
type Blake2s struct{}

var _ Hasher = Blake2s{}

func (Blake2s) Name() string {
	return Blake2sName
}

func (Blake2s) Node(left, right Domain) Domain {
	var buf [2 * DomainBytes]byte
	copy(buf[:DomainBytes], left[:])
	copy(buf[DomainBytes:], right[:])
	return TruncateDigest(blake2s.Sum256(buf[:]))
}

func (Blake2s) Many(elems ...Domain) Domain {
	h, err := blake2s.New256(nil)
	if err != nil {
		panic(err) // only fails for oversized keys
	}
	for _, e := range elems {
		_, _ = h.Write(e[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return TruncateDigest(out)
}
