package build

import "github.com/filecoin-project/go-state-types/abi"

// Sector sizes of the supported sector classes.
const (
	TinySectorSize = abi.SectorSize(128)
	TestSectorSize = abi.SectorSize(1024)
	LiveSectorSize = abi.SectorSize(256 << 20)
)

// Protocol defaults.
const (
	PoRepLayers                 = 4
	PoRepBaseDegree             = 5
	PoRepExpansionDegree        = 8
	PoRepChallengesPerPartition = 6
	PoRepProofPartitions        = 2
	PoRepMinimumChallenges      = 12

	PoStSectorsCount    = 2
	PoStChallengeCount  = 2
	PoStEpochs          = 3
	PoStVDFRounds       = 1
	PoStProofPartitions = 1
)
