package vdfpost

import (
	"context"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-proofs/compound"
	"github.com/filecoin-project/go-proofs/hasher"
	"github.com/filecoin-project/go-proofs/merkle"
)

var log = logging.Logger("vdfpost")

type PublicInputs struct {
	ChallengeSeed hasher.Domain
	Commitments   []hasher.Domain
	// Faults lists the sectors the prover declared unreadable.
	Faults []uint64
}

// PrivateInputs holds one tree per commitment. A nil tree marks a sector
// that could not be read.
type PrivateInputs struct {
	Trees []*merkle.Tree
}

type Scheme struct{}

var _ compound.Scheme[PublicParams, PublicInputs, PrivateInputs] = Scheme{}

func NewCompound(cache *compound.ParamCache) *compound.CompoundProof[PublicParams, PublicInputs, PrivateInputs] {
	return compound.New[PublicParams, PublicInputs, PrivateInputs](Scheme{}, cache)
}

func (Scheme) Name() string {
	return ProtocolName
}

func (Scheme) Digest(pp PublicParams) hasher.Domain {
	return pp.Digest()
}

func (Scheme) SectorSize(pp PublicParams) uint64 {
	return pp.SectorSize
}

func (Scheme) PartitionProofLen(pp PublicParams) int {
	return pp.PartitionProofLen()
}

func (Scheme) SatisfiesRequirements(pp PublicParams, req compound.Requirements, partitions int) bool {
	return partitions*pp.Epochs*pp.ChallengeCount >= req.MinimumChallenges
}

// ProvePartition runs the epoch chain of one partition. Every epoch writes
// the delay function output followed by the openings of its challenges.
func (Scheme) ProvePartition(ctx context.Context, pp PublicParams, pub PublicInputs, priv PrivateInputs, partition int) ([]byte, error) {
	if len(pub.Faults) > 0 {
		return nil, xerrors.Errorf("%d sectors declared faulty: %w", len(pub.Faults), ErrFaultsUnsupported)
	}
	if len(pub.Commitments) != pp.SectorCount || len(priv.Trees) != pp.SectorCount {
		return nil, xerrors.Errorf("got %d commitments and %d trees for %d sectors: %w",
			len(pub.Commitments), len(priv.Trees), pp.SectorCount, compound.ErrConfigMismatch)
	}
	for i, t := range priv.Trees {
		if t == nil {
			return nil, xerrors.Errorf("sector %d: %w", i, ErrFaultsUnsupported)
		}
		if t.Root() != pub.Commitments[i] {
			return nil, xerrors.Errorf("tree of sector %d does not match its commitment", i)
		}
	}

	openLen := merkle.ProofLen(pp.TreeDepth())
	out := make([]byte, 0, pp.PartitionProofLen())
	seed := partitionSeed(pub.ChallengeSeed, partition)

	for e := 0; e < pp.Epochs; e++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		challenges := Challenges(pp, seed, e)
		leaves := make([]hasher.Domain, len(challenges))
		openings := make([]byte, 0, len(challenges)*openLen)

		for i, c := range challenges {
			p, err := priv.Trees[c.Sector].Prove(c.Leaf)
			if err != nil {
				return nil, xerrors.Errorf("opening sector %d leaf %d: %w", c.Sector, c.Leaf, err)
			}
			leaves[i] = p.Leaf
			openings = append(openings, p.Marshal()...)
		}

		y, err := pp.VDF.Eval(vdfInput(seed, leaves))
		if err != nil {
			return nil, xerrors.Errorf("evaluating delay function in epoch %d: %w", e, err)
		}

		out = append(out, y[:]...)
		out = append(out, openings...)
		seed = y
	}

	log.Debugw("post partition proved", "partition", partition, "epochs", pp.Epochs)
	return out, nil
}

// VerifyPartition replays the epoch chain. Declared faults make the proof
// invalid since proofs always cover every sector.
func (Scheme) VerifyPartition(ctx context.Context, pp PublicParams, pub PublicInputs, proof []byte, partition int) (bool, error) {
	if len(pub.Commitments) != pp.SectorCount {
		return false, xerrors.Errorf("got %d commitments for %d sectors: %w", len(pub.Commitments), pp.SectorCount, compound.ErrConfigMismatch)
	}
	if len(pub.Faults) > 0 {
		log.Warnw("rejecting post with declared faults", "faults", pub.Faults)
		return false, nil
	}
	if len(proof) != pp.PartitionProofLen() {
		return false, nil
	}

	depth := pp.TreeDepth()
	openLen := merkle.ProofLen(depth)
	seed := partitionSeed(pub.ChallengeSeed, partition)
	off := 0

	for e := 0; e < pp.Epochs; e++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		y, err := hasher.DomainFromBytes(proof[off : off+hasher.DomainBytes])
		if err != nil {
			return false, nil
		}
		off += hasher.DomainBytes

		challenges := Challenges(pp, seed, e)
		leaves := make([]hasher.Domain, len(challenges))
		for i, c := range challenges {
			p, err := merkle.UnmarshalProof(proof[off:off+openLen], depth)
			off += openLen
			if err != nil {
				return false, nil
			}
			if p.Index != c.Leaf || !p.Verify(pp.Hasher, pub.Commitments[c.Sector]) {
				return false, nil
			}
			leaves[i] = p.Leaf
		}

		if !pp.VDF.Verify(vdfInput(seed, leaves), y) {
			return false, nil
		}
		seed = y
	}

	return true, nil
}
