package vdfpost

import (
	"encoding/binary"

	"github.com/filecoin-project/go-proofs/hasher"
)

// CanonicalSeed clears the top bits of a raw challenge seed so it is always
// a valid field element.
func CanonicalSeed(seed [32]byte) hasher.Domain {
	return hasher.TruncateDigest(seed)
}

type Challenge struct {
	Sector uint64
	Leaf   uint64
}

func partitionSeed(seed hasher.Domain, partition int) hasher.Domain {
	return hasher.Digest("vdf-post-partition", seed[:], hasher.U64(uint64(partition)))
}

// Challenges derives the challenges of one epoch from its seed.
func Challenges(pp PublicParams, seed hasher.Domain, epoch int) []Challenge {
	out := make([]Challenge, pp.ChallengeCount)
	for i := range out {
		d := hasher.RawDigest("vdf-post-challenge", seed[:], hasher.U64(uint64(epoch)), hasher.U64(uint64(i)))
		out[i] = Challenge{
			Sector: binary.LittleEndian.Uint64(d[0:8]) % uint64(pp.SectorCount),
			Leaf:   binary.LittleEndian.Uint64(d[8:16]) % pp.Leaves(),
		}
	}
	return out
}

// vdfInput binds the epoch seed and the opened leaves.
func vdfInput(seed hasher.Domain, leaves []hasher.Domain) hasher.Domain {
	parts := make([][]byte, 0, len(leaves)+1)
	parts = append(parts, seed[:])
	for i := range leaves {
		parts = append(parts, leaves[i][:])
	}
	return hasher.Digest("vdf-post-x", parts...)
}
