// Package porep holds the identities and commitments shared by replication
// proofs.
package porep

import (
	"github.com/filecoin-project/go-proofs/hasher"
)

// SafeBytes is the widest byte string that always fits in a field element.
const SafeBytes = 31

type (
	ProverID [SafeBytes]byte
	SectorID [SafeBytes]byte
)

// PadSafe zero-extends a 31-byte value into a canonical domain element.
func PadSafe(b [SafeBytes]byte) hasher.Domain {
	var d hasher.Domain
	copy(d[:SafeBytes], b[:])
	return d
}

// ReplicaID binds a replica to its prover and sector.
func ReplicaID(prover ProverID, sector SectorID) hasher.Domain {
	p := PadSafe(prover)
	s := PadSafe(sector)
	return hasher.Digest("replica-id", p[:], s[:])
}

// Tau is the public commitment pair of a sealed sector.
type Tau struct {
	CommD hasher.Domain
	CommR hasher.Domain
}

// SectorIDFromUint64 encodes a sector number little-endian.
func SectorIDFromUint64(n uint64) SectorID {
	var s SectorID
	for i := 0; i < 8; i++ {
		s[i] = byte(n >> (8 * i))
	}
	return s
}
