package zigzag

import (
	"context"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-proofs/drgraph"
	"github.com/filecoin-project/go-proofs/hasher"
	"github.com/filecoin-project/go-proofs/merkle"
	"github.com/filecoin-project/go-proofs/porep"
	"github.com/filecoin-project/go-proofs/vde"
)

var log = logging.Logger("zigzag")

// Aux holds the trees built while replicating. Trees[0] commits to the
// original data and Trees[l] to the output of layer l.
type Aux struct {
	Trees []*merkle.Tree
}

// LayerRoots returns the roots of every encoded layer, the last one being
// CommR.
func (a *Aux) LayerRoots() []hasher.Domain {
	out := make([]hasher.Domain, 0, len(a.Trees)-1)
	for _, t := range a.Trees[1:] {
		out = append(out, t.Root())
	}
	return out
}

// CommRStar commits to the replica id and all layer roots in order.
func CommRStar(h hasher.Hasher, replicaID hasher.Domain, layerRoots []hasher.Domain) hasher.Domain {
	elems := make([]hasher.Domain, 0, len(layerRoots)+1)
	elems = append(elems, replicaID)
	elems = append(elems, layerRoots...)
	return h.Many(elems...)
}

// Replicate encodes data in place through every layer. On error the
// contents of data are undefined and nothing is committed.
func Replicate(ctx context.Context, pp PublicParams, replicaID hasher.Domain, data []byte) (porep.Tau, hasher.Domain, *Aux, error) {
	if uint64(len(data)) != pp.SectorSize() {
		return porep.Tau{}, hasher.Domain{}, nil, xerrors.Errorf("replicating %d bytes with %d-byte sectors: %w", len(data), pp.SectorSize(), vde.ErrDataSizeMismatch)
	}

	g, err := drgraph.New(pp.Graph, replicaID)
	if err != nil {
		return porep.Tau{}, hasher.Domain{}, nil, err
	}

	dataTree, err := merkle.FromData(pp.Hasher, data)
	if err != nil {
		return porep.Tau{}, hasher.Domain{}, nil, xerrors.Errorf("building data tree: %w", err)
	}

	aux := &Aux{Trees: []*merkle.Tree{dataTree}}

	for l := 0; l < pp.Layers; l++ {
		if err := ctx.Err(); err != nil {
			return porep.Tau{}, hasher.Domain{}, nil, err
		}

		if err := vde.Encode(drgraph.ForLayer(g, l), replicaID, data); err != nil {
			return porep.Tau{}, hasher.Domain{}, nil, xerrors.Errorf("encoding layer %d: %w", l, err)
		}

		tree, err := merkle.FromData(pp.Hasher, data)
		if err != nil {
			return porep.Tau{}, hasher.Domain{}, nil, xerrors.Errorf("building tree for layer %d: %w", l, err)
		}
		aux.Trees = append(aux.Trees, tree)

		log.Debugw("layer encoded", "layer", l, "root", tree.Root().String())
	}

	tau := porep.Tau{
		CommD: dataTree.Root(),
		CommR: aux.Trees[pp.Layers].Root(),
	}

	return tau, CommRStar(pp.Hasher, replicaID, aux.LayerRoots()), aux, nil
}

// ExtractAll decodes a replica back to the original data, peeling layers
// in reverse order.
func ExtractAll(pp PublicParams, replicaID hasher.Domain, replica []byte) ([]byte, error) {
	if uint64(len(replica)) != pp.SectorSize() {
		return nil, xerrors.Errorf("extracting %d bytes with %d-byte sectors: %w", len(replica), pp.SectorSize(), vde.ErrDataSizeMismatch)
	}

	g, err := drgraph.New(pp.Graph, replicaID)
	if err != nil {
		return nil, err
	}

	data := replica
	for l := pp.Layers - 1; l >= 0; l-- {
		data, err = vde.Decode(drgraph.ForLayer(g, l), replicaID, data)
		if err != nil {
			return nil, xerrors.Errorf("decoding layer %d: %w", l, err)
		}
	}

	return data, nil
}
