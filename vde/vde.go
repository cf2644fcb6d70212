// Package vde encodes sector data along a depth-robust graph. Each node is
// combined in the field with a key derived from the replica id and the
// already-encoded values of its parents.
package vde

import (
	"golang.org/x/xerrors"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/filecoin-project/go-proofs/drgraph"
	"github.com/filecoin-project/go-proofs/hasher"
)

const NodeSize = hasher.DomainBytes

var ErrDataSizeMismatch = xerrors.New("data size does not match graph size")

// KDF derives the encoding key of a node.
func KDF(replicaID hasher.Domain, parents ...hasher.Domain) hasher.Domain {
	parts := make([][]byte, 0, len(parents)+1)
	parts = append(parts, replicaID[:])
	for i := range parents {
		parts = append(parts, parents[i][:])
	}
	return hasher.Digest("drg-kdf", parts...)
}

// EncodeNode returns data + key.
func EncodeNode(data, key hasher.Domain) (hasher.Domain, error) {
	d, err := data.Fr()
	if err != nil {
		return hasher.Domain{}, err
	}
	k, err := key.Fr()
	if err != nil {
		return hasher.Domain{}, err
	}

	var out fr.Element
	out.Add(&d, &k)
	return hasher.DomainFromFr(out), nil
}

// DecodeNode returns enc - key.
func DecodeNode(enc, key hasher.Domain) (hasher.Domain, error) {
	e, err := enc.Fr()
	if err != nil {
		return hasher.Domain{}, err
	}
	k, err := key.Fr()
	if err != nil {
		return hasher.Domain{}, err
	}

	var out fr.Element
	out.Sub(&e, &k)
	return hasher.DomainFromFr(out), nil
}

// NodeAt reads node i from a buffer of 32-byte nodes.
func NodeAt(buf []byte, i uint64) hasher.Domain {
	var d hasher.Domain
	copy(d[:], buf[i*NodeSize:(i+1)*NodeSize])
	return d
}

func checkSize(g drgraph.Graph, buf []byte) error {
	if uint64(len(buf)) != g.Size()*NodeSize {
		return xerrors.Errorf("buffer of %d bytes for %d nodes: %w", len(buf), g.Size(), ErrDataSizeMismatch)
	}
	return nil
}

// Key computes the key of node from the encoded values in replica.
func Key(g drgraph.Graph, replicaID hasher.Domain, replica []byte, node uint64, scratch []uint64) hasher.Domain {
	parents := g.Parents(scratch[:0], node)

	vals := make([]hasher.Domain, len(parents))
	for i, p := range parents {
		vals[i] = NodeAt(replica, p)
	}
	return KDF(replicaID, vals...)
}

// Encode replaces data with its encoding, node by node in step order.
func Encode(g drgraph.Graph, replicaID hasher.Domain, data []byte) error {
	if err := checkSize(g, data); err != nil {
		return err
	}

	scratch := make([]uint64, 0, g.Degree())
	for i := uint64(0); i < g.Size(); i++ {
		node := g.Step(i)

		key := Key(g, replicaID, data, node, scratch)
		enc, err := EncodeNode(NodeAt(data, node), key)
		if err != nil {
			return xerrors.Errorf("encoding node %d: %w", node, err)
		}
		copy(data[node*NodeSize:], enc[:])
	}

	return nil
}

// Decode returns the plaintext of replica in a new buffer. Keys only depend
// on encoded values so nodes are independent and may be decoded in any order.
func Decode(g drgraph.Graph, replicaID hasher.Domain, replica []byte) ([]byte, error) {
	if err := checkSize(g, replica); err != nil {
		return nil, err
	}

	out := make([]byte, len(replica))
	scratch := make([]uint64, 0, g.Degree())
	for node := uint64(0); node < g.Size(); node++ {
		dec, err := decodeBlock(g, replicaID, replica, node, scratch)
		if err != nil {
			return nil, err
		}
		copy(out[node*NodeSize:], dec[:])
	}

	return out, nil
}

// DecodeBlock extracts a single node without decoding the whole replica.
func DecodeBlock(g drgraph.Graph, replicaID hasher.Domain, replica []byte, node uint64) (hasher.Domain, error) {
	if err := checkSize(g, replica); err != nil {
		return hasher.Domain{}, err
	}
	if node >= g.Size() {
		return hasher.Domain{}, xerrors.Errorf("node %d out of range [0, %d)", node, g.Size())
	}
	return decodeBlock(g, replicaID, replica, node, make([]uint64, 0, g.Degree()))
}

func decodeBlock(g drgraph.Graph, replicaID hasher.Domain, replica []byte, node uint64, scratch []uint64) (hasher.Domain, error) {
	key := Key(g, replicaID, replica, node, scratch)
	dec, err := DecodeNode(NodeAt(replica, node), key)
	if err != nil {
		return hasher.Domain{}, xerrors.Errorf("decoding node %d: %w", node, err)
	}
	return dec, nil
}
