package storiface

import (
	"fmt"

	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"
)

const (
	FTUnsealed SectorFileType = 1 << iota
	FTSealed
	FTCache

	FileTypes = iota
)

var PathTypes = []SectorFileType{FTUnsealed, FTSealed, FTCache}

const (
	FTNone SectorFileType = 0
)

var FTAll = func() (out SectorFileType) {
	for _, pathType := range PathTypes {
		out |= pathType
	}
	return out
}()

type SectorFileType int

func TypeFromString(s string) (SectorFileType, error) {
	switch s {
	case "unsealed":
		return FTUnsealed, nil
	case "sealed":
		return FTSealed, nil
	case "cache":
		return FTCache, nil
	default:
		return 0, xerrors.Errorf("unknown sector file type '%s'", s)
	}
}

func (t SectorFileType) String() string {
	switch t {
	case FTUnsealed:
		return "unsealed"
	case FTSealed:
		return "sealed"
	case FTCache:
		return "cache"
	default:
		return fmt.Sprintf("<unknown %d %v>", t, (t & ((1 << FileTypes) - 1)).Strings())
	}
}

func (t SectorFileType) Strings() []string {
	var out []string
	for _, fileType := range PathTypes {
		if fileType&t == 0 {
			continue
		}

		out = append(out, fileType.String())
	}
	return out
}

func (t SectorFileType) AllSet() []SectorFileType {
	var out []SectorFileType
	for _, fileType := range PathTypes {
		if fileType&t == 0 {
			continue
		}

		out = append(out, fileType)
	}
	return out
}

func (t SectorFileType) Has(singleType SectorFileType) bool {
	return t&singleType == singleType
}

// SealSpaceUse is the disk space a seal needs for the given file types. The
// unsealed and sealed files hold one padded sector each; the cache holds
// nothing on disk.
func (t SectorFileType) SealSpaceUse(ssize abi.SectorSize) uint64 {
	var need uint64
	for _, pathType := range t.AllSet() {
		if pathType == FTCache {
			continue
		}
		need += uint64(ssize)
	}
	return need
}

type SectorPaths struct {
	ID abi.SectorID

	Unsealed string
	Sealed   string
	Cache    string
}

func ParseSectorID(baseName string) (abi.SectorID, error) {
	var n abi.SectorNumber
	var mid abi.ActorID
	read, err := fmt.Sscanf(baseName, "s-t0%d-%d", &mid, &n)
	if err != nil {
		return abi.SectorID{}, xerrors.Errorf("sscanf sector name ('%s'): %w", baseName, err)
	}

	if read != 2 {
		return abi.SectorID{}, xerrors.Errorf("parseSectorID expected to scan 2 values, got %d", read)
	}

	return abi.SectorID{
		Miner:  mid,
		Number: n,
	}, nil
}

func SectorName(sid abi.SectorID) string {
	return fmt.Sprintf("s-t0%d-%d", sid.Miner, sid.Number)
}

func PathByType(sps SectorPaths, fileType SectorFileType) string {
	switch fileType {
	case FTUnsealed:
		return sps.Unsealed
	case FTSealed:
		return sps.Sealed
	case FTCache:
		return sps.Cache
	}

	panic("requested unknown path type")
}

func SetPathByType(sps *SectorPaths, fileType SectorFileType, p string) {
	switch fileType {
	case FTUnsealed:
		sps.Unsealed = p
	case FTSealed:
		sps.Sealed = p
	case FTCache:
		sps.Cache = p
	}
}
