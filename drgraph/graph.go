// Package drgraph derives depth-robust parent sets for sequential encoding.
// Graphs are never materialized; parents are recomputed on demand from the
// node index and the graph seed.
package drgraph

import (
	"math/bits"
	"sort"

	"github.com/filecoin-project/go-proofs/feistel"
	"github.com/filecoin-project/go-proofs/hasher"
)

// Graph is a DAG whose nodes are encoded in the order given by Step. Every
// parent of the node at step i is at a step below i.
type Graph interface {
	Size() uint64
	// Degree is the maximum number of parents.
	Degree() int
	// Parents appends the sorted parents of node to dst.
	Parents(dst []uint64, node uint64) []uint64
	// Step returns the node encoded at position i.
	Step(i uint64) uint64
	Forward() bool
	Params() Params
	Seed() hasher.Domain
}

// sampling attempts per base parent before the deterministic fill
const maxAttempts = 8

// BucketGraph combines bucket-sampled base edges with Feistel expansion edges.
type BucketGraph struct {
	params Params
	seed   hasher.Domain

	prf     feistel.PRF
	expKeys feistel.Keys
}

var _ Graph = (*BucketGraph)(nil)

func New(params Params, seed hasher.Domain) (*BucketGraph, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &BucketGraph{
		params:  params,
		seed:    seed,
		prf:     feistel.NewPRF(append([]byte("drg-base"), seed[:]...)),
		expKeys: feistel.DeriveKeys(append([]byte("drg-expansion"), seed[:]...)),
	}, nil
}

func (g *BucketGraph) Size() uint64 {
	return g.params.Nodes
}

func (g *BucketGraph) Degree() int {
	return g.params.Degree()
}

func (g *BucketGraph) Params() Params {
	return g.params
}

func (g *BucketGraph) Seed() hasher.Domain {
	return g.seed
}

func (g *BucketGraph) Step(i uint64) uint64 {
	return i
}

func (g *BucketGraph) Forward() bool {
	return true
}

func (g *BucketGraph) Parents(dst []uint64, node uint64) []uint64 {
	if node == 0 || node >= g.params.Nodes {
		return dst
	}

	start := len(dst)
	dst = g.baseParents(dst, node)
	dst = g.expansionParents(dst, start, node)

	out := dst[start:]
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return dst
}

func (g *BucketGraph) baseParents(dst []uint64, v uint64) []uint64 {
	m := uint64(g.params.BaseDegree)
	want := m
	if v < want {
		want = v
	}

	start := len(dst)
	dst = append(dst, v-1)

	for k := uint64(1); k < m && uint64(len(dst)-start) < want; k++ {
		metaIdx := v*m + k
		logi := uint64(bits.Len64(metaIdx) - 1)

		for attempt := uint64(0); attempt < maxAttempts; attempt++ {
			r := g.prf.Eval(v<<20 | k<<12 | attempt)

			j := (r & 0xffffffff) % logi
			jj := uint64(1) << (j + 1)
			if jj > metaIdx {
				jj = metaIdx
			}
			lo := jj >> 1
			if lo < 2 {
				lo = 2
			}
			back := lo + (r>>32)%(jj+1-lo)

			p := (metaIdx - back) / m
			if p >= v || contains(dst[start:], p) {
				continue
			}
			dst = append(dst, p)
			break
		}
	}

	for cand := v - 1; uint64(len(dst)-start) < want && cand > 0; cand-- {
		if !contains(dst[start:], cand-1) {
			dst = append(dst, cand-1)
		}
	}

	return dst
}

func (g *BucketGraph) expansionParents(dst []uint64, start int, v uint64) []uint64 {
	e := uint64(g.params.ExpansionDegree)
	if e == 0 {
		return dst
	}

	n := g.params.Nodes * e
	for k := uint64(0); k < e; k++ {
		p := feistel.Permute(n, v*e+k, g.expKeys) / e
		if p >= v || contains(dst[start:], p) {
			continue
		}
		dst = append(dst, p)
	}
	return dst
}

func contains(s []uint64, x uint64) bool {
	for _, y := range s {
		if y == x {
			return true
		}
	}
	return false
}

// reversed walks a graph backwards: node x of the view is node n-1-x of the
// underlying graph, and it is encoded at step n-1-x.
type reversed struct {
	g Graph
}

// Reversed returns the view of g with every edge direction flipped.
func Reversed(g Graph) Graph {
	if r, ok := g.(reversed); ok {
		return r.g
	}
	return reversed{g: g}
}

func (r reversed) Size() uint64        { return r.g.Size() }
func (r reversed) Degree() int         { return r.g.Degree() }
func (r reversed) Params() Params      { return r.g.Params() }
func (r reversed) Seed() hasher.Domain { return r.g.Seed() }
func (r reversed) Forward() bool       { return !r.g.Forward() }

func (r reversed) Step(i uint64) uint64 {
	return r.g.Size() - 1 - r.g.Step(i)
}

func (r reversed) Parents(dst []uint64, node uint64) []uint64 {
	n := r.g.Size()
	start := len(dst)
	dst = r.g.Parents(dst, n-1-node)

	out := dst[start:]
	for i := range out {
		out[i] = n - 1 - out[i]
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return dst
}

// ForLayer returns the graph used for the given layer: forward on even
// layers and reversed on odd ones.
func ForLayer(g Graph, layer int) Graph {
	if layer%2 == 1 {
		return Reversed(g)
	}
	return g
}
