// Package compound turns partitioned vanilla proofs into compound proofs.
// It owns partition bookkeeping and requirement checks; the succinct
// argument itself is provided by an Engine.
package compound

import (
	"context"

	"github.com/filecoin-project/go-proofs/hasher"
)

// Requirements are enforced by the verifier on top of proof validity.
type Requirements struct {
	MinimumChallenges int
}

// NoRequirements accepts any parameters.
var NoRequirements = Requirements{}

// Scheme is a vanilla proof protocol whose challenges can be split into
// independent partitions.
type Scheme[PP, PI, SI any] interface {
	Name() string
	// Digest commits to every public parameter that affects proofs.
	Digest(pp PP) hasher.Domain
	SectorSize(pp PP) uint64
	// PartitionProofLen is the exact vanilla proof size of one partition.
	PartitionProofLen(pp PP) int

	ProvePartition(ctx context.Context, pp PP, pub PI, priv SI, partition int) ([]byte, error)
	// VerifyPartition reports false for proofs that are well formed but
	// wrong and for untrusted values that fail to decode.
	VerifyPartition(ctx context.Context, pp PP, pub PI, proof []byte, partition int) (bool, error)

	SatisfiesRequirements(pp PP, req Requirements, partitions int) bool
}

// PublicParams are the vanilla parameters plus the partition count.
type PublicParams[PP any] struct {
	Vanilla    PP
	Partitions int
}
