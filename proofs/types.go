package proofs

import (
	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/go-proofs/hasher"
	"github.com/filecoin-project/go-proofs/porep"
)

// Commitment is a 32-byte Merkle root as exchanged with callers. It is
// validated as a field element before use.
type Commitment [32]byte

// ChallengeSeed is the PoSt randomness. Its top two bits are cleared
// before use.
type ChallengeSeed [32]byte

type (
	ProverID = porep.ProverID
	SectorID = porep.SectorID
)

// SectorIDFromNumber encodes a sector number as a field-safe sector id.
func SectorIDFromNumber(n abi.SectorNumber) SectorID {
	return porep.SectorIDFromUint64(uint64(n))
}

func commitmentFromDomain(d hasher.Domain) Commitment {
	return Commitment(d)
}

// Domain parses c as a canonical field element.
func (c Commitment) Domain() (hasher.Domain, error) {
	return hasher.DomainFromBytes(c[:])
}

type SealOutput struct {
	CommR     Commitment
	CommRStar Commitment
	CommD     Commitment
	Proof     []byte
}

// PoStInput names a sealed sector to prove. An empty SectorAccess marks a
// sector the prover could not read.
type PoStInput struct {
	SectorAccess string
	CommR        Commitment
}

func (i PoStInput) Faulty() bool {
	return i.SectorAccess == ""
}

type GeneratePoStOutput struct {
	// Proofs holds one proof per batch of SectorCount inputs.
	Proofs [][]byte
	Faults []uint64
}
