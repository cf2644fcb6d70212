// Package vdfpost proves continued storage of sealed sectors. Each epoch
// opens leaves chosen by the current seed and feeds them through a delay
// function whose output seeds the next epoch, so the epochs of one proof
// cannot be computed in parallel.
package vdfpost

import (
	"math/bits"

	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-proofs/hasher"
	"github.com/filecoin-project/go-proofs/merkle"
	"github.com/filecoin-project/go-proofs/vdf"
)

const ProtocolName = "vdf-post"

var (
	// ErrFaultsUnsupported is returned when a proof is requested while a
	// sector cannot be read. Faulted sectors are not skipped.
	ErrFaultsUnsupported = xerrors.New("proving with faulted sectors is not supported")
)

type SetupParams struct {
	SectorSize     uint64
	SectorCount    int
	ChallengeCount int
	Epochs         int
	VDFRounds      int
	Hasher         string
}

type PublicParams struct {
	SectorSize     uint64
	SectorCount    int
	ChallengeCount int
	Epochs         int
	VDF            vdf.Sloth
	Hasher         hasher.Hasher
}

func Setup(sp SetupParams) (PublicParams, error) {
	leaves := sp.SectorSize / hasher.DomainBytes
	if sp.SectorSize%hasher.DomainBytes != 0 || leaves < 2 || bits.OnesCount64(leaves) != 1 {
		return PublicParams{}, xerrors.Errorf("sector size %d must be a power of two number of nodes", sp.SectorSize)
	}
	if sp.SectorCount < 1 || sp.ChallengeCount < 1 || sp.Epochs < 1 {
		return PublicParams{}, xerrors.Errorf("sector count (%d), challenge count (%d) and epochs (%d) must be positive", sp.SectorCount, sp.ChallengeCount, sp.Epochs)
	}
	if sp.VDFRounds < 0 {
		return PublicParams{}, xerrors.Errorf("negative vdf rounds %d", sp.VDFRounds)
	}

	h, err := hasher.ByName(sp.Hasher)
	if err != nil {
		return PublicParams{}, err
	}

	return PublicParams{
		SectorSize:     sp.SectorSize,
		SectorCount:    sp.SectorCount,
		ChallengeCount: sp.ChallengeCount,
		Epochs:         sp.Epochs,
		VDF: vdf.Sloth{
			Key:    hasher.Digest("vdf-post-sloth-key", hasher.U64(sp.SectorSize)),
			Rounds: sp.VDFRounds,
		},
		Hasher: h,
	}, nil
}

func (pp PublicParams) Leaves() uint64 {
	return pp.SectorSize / hasher.DomainBytes
}

func (pp PublicParams) TreeDepth() int {
	return bits.TrailingZeros64(pp.Leaves())
}

func (pp PublicParams) Digest() hasher.Domain {
	return hasher.Digest("vdf-post-params",
		hasher.U64(pp.SectorSize),
		hasher.U64(uint64(pp.SectorCount)),
		hasher.U64(uint64(pp.ChallengeCount)),
		hasher.U64(uint64(pp.Epochs)),
		pp.VDF.Key[:],
		hasher.U64(uint64(pp.VDF.Rounds)),
		[]byte(pp.Hasher.Name()),
	)
}

func (pp PublicParams) epochLen() int {
	return hasher.DomainBytes + pp.ChallengeCount*merkle.ProofLen(pp.TreeDepth())
}

func (pp PublicParams) PartitionProofLen() int {
	return pp.Epochs * pp.epochLen()
}
