// Package proofs drives replication and storage proofs over sector files:
// sealing, seal verification, unsealing and proofs of spacetime.
package proofs

import (
	lru "github.com/hashicorp/golang-lru/v2"
	logging "github.com/ipfs/go-log/v2"

	"github.com/filecoin-project/go-proofs/compound"
	"github.com/filecoin-project/go-proofs/merkle"
)

var log = logging.Logger("proofs")

// TreeCacheSize bounds the number of sealed sector trees kept for PoSt.
var TreeCacheSize = 64

// Sealer seals, unseals and proves sectors of one sector class. It is safe
// for concurrent use; every call owns its own sector buffers.
type Sealer struct {
	*protocols

	verifier *Verifier
	trees    *lru.Cache[treeKey, *merkle.Tree]
}

func New(class SectorClass, cache *compound.ParamCache) (*Sealer, error) {
	p, err := newProtocols(class, cache)
	if err != nil {
		return nil, err
	}

	trees, err := lru.New[treeKey, *merkle.Tree](TreeCacheSize)
	if err != nil {
		return nil, err
	}

	return &Sealer{
		protocols: p,
		verifier:  &Verifier{protocols: p},
		trees:     trees,
	}, nil
}

func (sb *Sealer) Verifier() *Verifier {
	return sb.verifier
}

func (sb *Sealer) SectorClass() SectorClass {
	return sb.class
}

// Verifier checks seal and PoSt proofs. It never touches sector files.
type Verifier struct {
	*protocols
}

func NewVerifier(class SectorClass, cache *compound.ParamCache) (*Verifier, error) {
	p, err := newProtocols(class, cache)
	if err != nil {
		return nil, err
	}
	return &Verifier{protocols: p}, nil
}
