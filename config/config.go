// Package config holds the protocol settings shared by provers and
// verifiers. Both sides must load identical settings; every value feeds the
// parameter digests checked at verification time.
package config

import (
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-proofs/build"
	"github.com/filecoin-project/go-proofs/hasher"
)

// EnvPrefix prefixes environment overrides, e.g. PROOFS_POREP_LAYERS.
const EnvPrefix = "PROOFS"

type Proofs struct {
	// Hasher names the tree hash: poseidon, sha256 or blake2s.
	Hasher string

	PoRep PoRep
	PoSt  PoSt
}

type PoRep struct {
	Layers                 int `split_words:"true"`
	BaseDegree             int `split_words:"true"`
	ExpansionDegree        int `split_words:"true"`
	ChallengesPerPartition int `split_words:"true"`
	Partitions             int
	MinimumChallenges      int `split_words:"true"`
}

type PoSt struct {
	SectorCount    int `split_words:"true"`
	ChallengeCount int `split_words:"true"`
	Epochs         int
	VDFRounds      int `split_words:"true"`
	Partitions     int
}

func Default() *Proofs {
	return &Proofs{
		Hasher: hasher.Default,
		PoRep: PoRep{
			Layers:                 build.PoRepLayers,
			BaseDegree:             build.PoRepBaseDegree,
			ExpansionDegree:        build.PoRepExpansionDegree,
			ChallengesPerPartition: build.PoRepChallengesPerPartition,
			Partitions:             build.PoRepProofPartitions,
			MinimumChallenges:      build.PoRepMinimumChallenges,
		},
		PoSt: PoSt{
			SectorCount:    build.PoStSectorsCount,
			ChallengeCount: build.PoStChallengeCount,
			Epochs:         build.PoStEpochs,
			VDFRounds:      build.PoStVDFRounds,
			Partitions:     build.PoStProofPartitions,
		},
	}
}

func (c *Proofs) Validate() error {
	if _, err := hasher.ByName(c.Hasher); err != nil {
		return err
	}
	switch {
	case c.PoRep.Layers < 1:
		return xerrors.Errorf("porep layers must be positive, got %d", c.PoRep.Layers)
	case c.PoRep.BaseDegree < 1, c.PoRep.ExpansionDegree < 0:
		return xerrors.Errorf("invalid porep degrees %d/%d", c.PoRep.BaseDegree, c.PoRep.ExpansionDegree)
	case c.PoRep.ChallengesPerPartition < 1 || c.PoRep.Partitions < 1:
		return xerrors.New("porep challenges and partitions must be positive")
	case c.PoRep.Partitions*c.PoRep.ChallengesPerPartition < c.PoRep.MinimumChallenges:
		return xerrors.Errorf("%d partitions of %d challenges do not reach the minimum of %d",
			c.PoRep.Partitions, c.PoRep.ChallengesPerPartition, c.PoRep.MinimumChallenges)
	case c.PoSt.SectorCount < 1 || c.PoSt.ChallengeCount < 1 || c.PoSt.Epochs < 1 || c.PoSt.Partitions < 1:
		return xerrors.New("post sector count, challenge count, epochs and partitions must be positive")
	case c.PoSt.VDFRounds < 0:
		return xerrors.Errorf("negative vdf rounds %d", c.PoSt.VDFRounds)
	}
	return nil
}

// FromFile loads settings from a TOML file on top of def. A missing file
// yields def.
func FromFile(path string, def *Proofs) (*Proofs, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, xerrors.Errorf("expanding config path: %w", err)
	}

	file, err := os.Open(path)
	switch {
	case os.IsNotExist(err):
		if def == nil {
			return nil, xerrors.Errorf("couldn't load proofs config: %w", err)
		}
		return def, nil
	case err != nil:
		return nil, err
	}

	defer file.Close() //nolint:errcheck // The file is RO
	return FromReader(file, def)
}

func FromReader(reader io.Reader, def *Proofs) (*Proofs, error) {
	cfg := Default()
	if def != nil {
		cp := *def
		cfg = &cp
	}

	if _, err := toml.NewDecoder(reader).Decode(cfg); err != nil {
		return nil, xerrors.Errorf("decoding proofs config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides settings from PROOFS_* environment variables.
func ApplyEnv(cfg *Proofs) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return xerrors.Errorf("reading environment overrides: %w", err)
	}
	return nil
}

// Load reads path, applies the environment and validates the result.
func Load(path string) (*Proofs, error) {
	cfg, err := FromFile(path, Default())
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, xerrors.Errorf("invalid proofs config: %w", err)
	}
	return cfg, nil
}
