// Package zigzag implements layered replication: the sector is encoded
// several times over the same depth-robust graph, alternating the edge
// direction between layers, and every layer is committed to with a Merkle
// tree.
package zigzag

import (
	"math/bits"

	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-proofs/drgraph"
	"github.com/filecoin-project/go-proofs/hasher"
	"github.com/filecoin-project/go-proofs/merkle"
	"github.com/filecoin-project/go-proofs/vde"
)

type SetupParams struct {
	Graph  drgraph.Params
	Layers int
	// Challenges is the number of challenged nodes per layer in each partition.
	Challenges int
	Hasher     string
}

type PublicParams struct {
	Graph      drgraph.Params
	Layers     int
	Challenges int
	Hasher     hasher.Hasher
}

func Setup(sp SetupParams) (PublicParams, error) {
	if err := sp.Graph.Validate(); err != nil {
		return PublicParams{}, err
	}
	if sp.Layers < 1 {
		return PublicParams{}, xerrors.Errorf("layer count %d must be positive", sp.Layers)
	}
	if sp.Challenges < 1 {
		return PublicParams{}, xerrors.Errorf("challenge count %d must be positive", sp.Challenges)
	}

	h, err := hasher.ByName(sp.Hasher)
	if err != nil {
		return PublicParams{}, err
	}

	return PublicParams{
		Graph:      sp.Graph,
		Layers:     sp.Layers,
		Challenges: sp.Challenges,
		Hasher:     h,
	}, nil
}

func (pp PublicParams) SectorSize() uint64 {
	return pp.Graph.Nodes * vde.NodeSize
}

// TreeDepth is the height of every layer tree.
func (pp PublicParams) TreeDepth() int {
	return bits.TrailingZeros64(pp.Graph.Nodes)
}

func (pp PublicParams) Digest() hasher.Domain {
	gd := pp.Graph.Digest()
	return hasher.Digest("zigzag-params",
		gd[:],
		hasher.U64(uint64(pp.Layers)),
		hasher.U64(uint64(pp.Challenges)),
		[]byte(pp.Hasher.Name()),
	)
}

// openingsPerChallenge counts the replica node, every parent slot and the
// data node.
func (pp PublicParams) openingsPerChallenge() int {
	return 2 + pp.Graph.Degree()
}

func (pp PublicParams) PartitionProofLen() int {
	openings := pp.Layers * pp.Challenges * pp.openingsPerChallenge()
	return pp.Layers*hasher.DomainBytes + openings*merkle.ProofLen(pp.TreeDepth())
}
