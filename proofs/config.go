package proofs

import (
	"github.com/filecoin-project/go-state-types/abi"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-proofs/compound"
	"github.com/filecoin-project/go-proofs/config"
	"github.com/filecoin-project/go-proofs/drgraph"
	"github.com/filecoin-project/go-proofs/fr32"
	"github.com/filecoin-project/go-proofs/vde"
	"github.com/filecoin-project/go-proofs/vdfpost"
	"github.com/filecoin-project/go-proofs/zigzag"
)

type PoRepConfig struct {
	SectorSize        abi.SectorSize
	Partitions        int
	MinimumChallenges int

	Setup zigzag.SetupParams
}

type PoStConfig struct {
	SectorSize        abi.SectorSize
	Partitions        int
	MinimumChallenges int

	Setup vdfpost.SetupParams
}

// SectorClass fixes every protocol parameter for one sector size. Provers
// and verifiers must build it from identical settings.
type SectorClass struct {
	SectorSize abi.SectorSize

	PoRep PoRepConfig
	PoSt  PoStConfig

	_ struct{} // guard against nameless init
}

func NewSectorClass(ssize abi.SectorSize, cfg *config.Proofs) (SectorClass, error) {
	if err := cfg.Validate(); err != nil {
		return SectorClass{}, err
	}
	if ssize == 0 || uint64(ssize)%vde.NodeSize != 0 {
		return SectorClass{}, xerrors.Errorf("sector size %d is not a whole number of nodes: %w", ssize, ErrSectorSize)
	}

	porepCfg := PoRepConfig{
		SectorSize:        ssize,
		Partitions:        cfg.PoRep.Partitions,
		MinimumChallenges: cfg.PoRep.MinimumChallenges,
		Setup: zigzag.SetupParams{
			Graph: drgraph.Params{
				Nodes:           uint64(ssize) / vde.NodeSize,
				BaseDegree:      cfg.PoRep.BaseDegree,
				ExpansionDegree: cfg.PoRep.ExpansionDegree,
			},
			Layers:     cfg.PoRep.Layers,
			Challenges: cfg.PoRep.ChallengesPerPartition,
			Hasher:     cfg.Hasher,
		},
	}
	if _, err := zigzag.Setup(porepCfg.Setup); err != nil {
		return SectorClass{}, xerrors.Errorf("porep setup for %d byte sectors: %w", ssize, err)
	}

	postCfg := PoStConfig{
		SectorSize:        ssize,
		Partitions:        cfg.PoSt.Partitions,
		MinimumChallenges: cfg.PoSt.Partitions * cfg.PoSt.Epochs * cfg.PoSt.ChallengeCount,
		Setup: vdfpost.SetupParams{
			SectorSize:     uint64(ssize),
			SectorCount:    cfg.PoSt.SectorCount,
			ChallengeCount: cfg.PoSt.ChallengeCount,
			Epochs:         cfg.PoSt.Epochs,
			VDFRounds:      cfg.PoSt.VDFRounds,
			Hasher:         cfg.Hasher,
		},
	}
	if _, err := vdfpost.Setup(postCfg.Setup); err != nil {
		return SectorClass{}, xerrors.Errorf("post setup for %d byte sectors: %w", ssize, err)
	}

	return SectorClass{SectorSize: ssize, PoRep: porepCfg, PoSt: postCfg}, nil
}

// MaxUnsealedBytes is the data capacity of one sector.
func (sc SectorClass) MaxUnsealedBytes() abi.UnpaddedPieceSize {
	return fr32.MaxUnpaddedSize(sc.SectorSize)
}

type porepProof = compound.CompoundProof[zigzag.PublicParams, zigzag.PublicInputs, zigzag.PrivateInputs]
type postProof = compound.CompoundProof[vdfpost.PublicParams, vdfpost.PublicInputs, vdfpost.PrivateInputs]

// protocols holds the compound setups shared by sealing and verification.
type protocols struct {
	class SectorClass

	porep       *porepProof
	porepParams compound.PublicParams[zigzag.PublicParams]

	post       *postProof
	postParams compound.PublicParams[vdfpost.PublicParams]
}

func newProtocols(class SectorClass, cache *compound.ParamCache) (*protocols, error) {
	if cache == nil {
		return nil, xerrors.New("parameter cache is required")
	}

	zz, err := zigzag.Setup(class.PoRep.Setup)
	if err != nil {
		return nil, err
	}
	vp, err := vdfpost.Setup(class.PoSt.Setup)
	if err != nil {
		return nil, err
	}

	p := &protocols{
		class: class,
		porep: zigzag.NewCompound(cache),
		post:  vdfpost.NewCompound(cache),
	}

	if p.porepParams, err = p.porep.Setup(zz, class.PoRep.Partitions); err != nil {
		return nil, err
	}
	if p.postParams, err = p.post.Setup(vp, class.PoSt.Partitions); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *protocols) porepRequirements() compound.Requirements {
	return compound.Requirements{MinimumChallenges: p.class.PoRep.MinimumChallenges}
}

func (p *protocols) postRequirements() compound.Requirements {
	return compound.Requirements{MinimumChallenges: p.class.PoSt.MinimumChallenges}
}

// PoRepProofLen is the byte length of a seal proof.
func (p *protocols) PoRepProofLen() int {
	return p.porep.ProofLen(p.porepParams)
}

// PoStProofLen is the byte length of the proof of one PoSt batch.
func (p *protocols) PoStProofLen() int {
	return p.post.ProofLen(p.postParams)
}
