package zigzag

import (
	"context"
	"encoding/binary"

	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-proofs/compound"
	"github.com/filecoin-project/go-proofs/drgraph"
	"github.com/filecoin-project/go-proofs/hasher"
	"github.com/filecoin-project/go-proofs/merkle"
	"github.com/filecoin-project/go-proofs/porep"
	"github.com/filecoin-project/go-proofs/vde"
)

const ProtocolName = "zigzag"

type PublicInputs struct {
	ReplicaID hasher.Domain
	Tau       porep.Tau
	CommRStar hasher.Domain
}

type PrivateInputs struct {
	Aux *Aux
}

// Challenge derives the j-th challenged node of a layer in a partition.
func Challenge(pp PublicParams, pub PublicInputs, layer, partition, j int) uint64 {
	d := hasher.Digest("zigzag-challenge",
		pub.ReplicaID[:],
		pub.Tau.CommR[:],
		pub.CommRStar[:],
		hasher.U64(uint64(layer)),
		hasher.U64(uint64(partition*pp.Challenges+j)),
	)
	return binary.LittleEndian.Uint64(d[:8]) % pp.Graph.Nodes
}

// Scheme is the layered PoRep as a compound.Scheme.
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
	return pp.SectorSize()
}

func (Scheme) PartitionProofLen(pp PublicParams) int {
	return pp.PartitionProofLen()
}

func (Scheme) SatisfiesRequirements(pp PublicParams, req compound.Requirements, partitions int) bool {
	return partitions*pp.Challenges >= req.MinimumChallenges
}

// ProvePartition writes the layer roots followed by, for every layer and
// challenge, the opening of the challenged replica node, one opening per
// parent slot (zero filled when unused) and the opening of the node in the
// layer input.
func (Scheme) ProvePartition(ctx context.Context, pp PublicParams, pub PublicInputs, priv PrivateInputs, partition int) ([]byte, error) {
	aux := priv.Aux
	if aux == nil || len(aux.Trees) != pp.Layers+1 {
		return nil, xerrors.New("private inputs do not hold a tree per layer")
	}

	g, err := drgraph.New(pp.Graph, pub.ReplicaID)
	if err != nil {
		return nil, err
	}

	out := make([]byte, pp.PartitionProofLen())
	off := 0
	for _, root := range aux.LayerRoots() {
		copy(out[off:], root[:])
		off += hasher.DomainBytes
	}

	openLen := merkle.ProofLen(pp.TreeDepth())
	parents := make([]uint64, 0, g.Degree())

	write := func(t *merkle.Tree, node uint64) error {
		p, err := t.Prove(node)
		if err != nil {
			return err
		}
		if err := p.MarshalTo(out[off : off+openLen]); err != nil {
			return err
		}
		off += openLen
		return nil
	}

	for l := 0; l < pp.Layers; l++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lg := drgraph.ForLayer(g, l)
		in, enc := aux.Trees[l], aux.Trees[l+1]

		for j := 0; j < pp.Challenges; j++ {
			c := Challenge(pp, pub, l, partition, j)

			if err := write(enc, c); err != nil {
				return nil, xerrors.Errorf("opening layer %d node %d: %w", l, c, err)
			}

			parents = lg.Parents(parents[:0], c)
			for _, p := range parents {
				if err := write(enc, p); err != nil {
					return nil, xerrors.Errorf("opening layer %d parent %d: %w", l, p, err)
				}
			}
			off += (g.Degree() - len(parents)) * openLen

			if err := write(in, c); err != nil {
				return nil, xerrors.Errorf("opening layer %d input node %d: %w", l, c, err)
			}
		}
	}

	return out, nil
}

// VerifyPartition re-derives every challenge and parent set, checks the
// openings against the layer roots and checks that each challenged node
// decodes to the opened input node.
func (Scheme) VerifyPartition(ctx context.Context, pp PublicParams, pub PublicInputs, proof []byte, partition int) (bool, error) {
	if len(proof) != pp.PartitionProofLen() {
		return false, nil
	}

	g, err := drgraph.New(pp.Graph, pub.ReplicaID)
	if err != nil {
		return false, err
	}

	roots := make([]hasher.Domain, pp.Layers)
	off := 0
	for i := range roots {
		r, err := hasher.DomainFromBytes(proof[off : off+hasher.DomainBytes])
		if err != nil {
			return false, nil
		}
		roots[i] = r
		off += hasher.DomainBytes
	}

	if roots[pp.Layers-1] != pub.Tau.CommR {
		return false, nil
	}
	if CommRStar(pp.Hasher, pub.ReplicaID, roots) != pub.CommRStar {
		return false, nil
	}

	h := pp.Hasher
	depth := pp.TreeDepth()
	openLen := merkle.ProofLen(depth)

	// read parses the next opening and checks that it opens node under root
	read := func(node uint64, root hasher.Domain) (hasher.Domain, bool) {
		p, err := merkle.UnmarshalProof(proof[off:off+openLen], depth)
		off += openLen
		if err != nil {
			return hasher.Domain{}, false
		}
		if p.Index != node || !p.Verify(h, root) {
			return hasher.Domain{}, false
		}
		return p.Leaf, true
	}

	parents := make([]uint64, 0, g.Degree())
	for l := 0; l < pp.Layers; l++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		lg := drgraph.ForLayer(g, l)
		encRoot := roots[l]
		inRoot := pub.Tau.CommD
		if l > 0 {
			inRoot = roots[l-1]
		}

		for j := 0; j < pp.Challenges; j++ {
			c := Challenge(pp, pub, l, partition, j)

			encNode, ok := read(c, encRoot)
			if !ok {
				return false, nil
			}

			parents = lg.Parents(parents[:0], c)
			vals := make([]hasher.Domain, len(parents))
			for i, p := range parents {
				if vals[i], ok = read(p, encRoot); !ok {
					return false, nil
				}
			}
			unused := (g.Degree() - len(parents)) * openLen
			if !allZero(proof[off : off+unused]) {
				return false, nil
			}
			off += unused

			inNode, ok := read(c, inRoot)
			if !ok {
				return false, nil
			}

			dec, err := vde.DecodeNode(encNode, vde.KDF(pub.ReplicaID, vals...))
			if err != nil || dec != inNode {
				return false, nil
			}
		}
	}

	return true, nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
