package hasher

import (
	"github.com/minio/sha256-simd"
)

// Sha256 hashes with SHA-256 and truncates the digest into the field.
type Sha256 struct{}

var _ Hasher = Sha256{}

func (Sha256) Name() string {
	return Sha256Name
}

func (Sha256) Node(left, right Domain) Domain {
	var buf [2 * DomainBytes]byte
	copy(buf[:DomainBytes], left[:])
	copy(buf[DomainBytes:], right[:])
	return TruncateDigest(sha256.Sum256(buf[:]))
}

func (Sha256) Many(elems ...Domain) Domain {
	h := sha256.New()
	for _, e := range elems {
		_, _ = h.Write(e[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return TruncateDigest(out)
}
