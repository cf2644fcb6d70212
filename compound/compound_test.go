package compound

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/go-proofs/hasher"
)

type toyParams struct {
	Challenges int
	Size       uint64
}

type toyPub struct {
	Value hasher.Domain
}

type toyScheme struct{}

func (toyScheme) Name() string { return "toy" }

func (toyScheme) Digest(pp toyParams) hasher.Domain {
	return hasher.Digest("toy", hasher.U64(uint64(pp.Challenges)), hasher.U64(pp.Size))
}

func (toyScheme) SectorSize(pp toyParams) uint64 { return pp.Size }

func (toyScheme) PartitionProofLen(toyParams) int { return hasher.DomainBytes }

func (toyScheme) ProvePartition(_ context.Context, _ toyParams, pub toyPub, _ struct{}, k int) ([]byte, error) {
	d := hasher.Digest("toy-proof", pub.Value[:], hasher.U64(uint64(k)))
	return d[:], nil
}

func (s toyScheme) VerifyPartition(ctx context.Context, pp toyParams, pub toyPub, proof []byte, k int) (bool, error) {
	want, _ := s.ProvePartition(ctx, pp, pub, struct{}{}, k)
	return string(want) == string(proof), nil
}

func (toyScheme) SatisfiesRequirements(pp toyParams, req Requirements, partitions int) bool {
	return pp.Challenges*partitions >= req.MinimumChallenges
}

type countingEngine struct {
	TransparentEngine
	builds atomic.Int32
}

func (e *countingEngine) GenerateParams(id ParamsID, d hasher.Domain) (*Params, error) {
	e.builds.Add(1)
	return e.TransparentEngine.GenerateParams(id, d)
}

func newToy() (*CompoundProof[toyParams, toyPub, struct{}], *countingEngine) {
	eng := &countingEngine{}
	return New[toyParams, toyPub, struct{}](toyScheme{}, NewParamCache(eng)), eng
}

func TestProveVerify(t *testing.T) {
	ctx := context.Background()
	cp, _ := newToy()

	pp, err := cp.Setup(toyParams{Challenges: 3, Size: 128}, 2)
	require.NoError(t, err)

	pub := toyPub{Value: hasher.Digest("x")}
	proof, err := cp.Prove(ctx, pp, pub, struct{}{})
	require.NoError(t, err)
	require.Equal(t, 2, proof.Len())

	raw := proof.Bytes()
	require.Len(t, raw, cp.ProofLen(pp))

	parsed, err := cp.ParseProof(pp, raw)
	require.NoError(t, err)

	ok, err := cp.Verify(ctx, pp, pub, parsed, Requirements{MinimumChallenges: 6})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = cp.Verify(ctx, pp, toyPub{Value: hasher.Digest("y")}, parsed, Requirements{MinimumChallenges: 6})
	require.NoError(t, err)
	require.False(t, ok)

	// swapped partitions carry the wrong index
	swapped := &MultiProof{Partitions: [][]byte{parsed.Partitions[1], parsed.Partitions[0]}}
	ok, err = cp.Verify(ctx, pp, pub, swapped, NoRequirements)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMalformedProof(t *testing.T) {
	ctx := context.Background()
	cp, _ := newToy()

	pp, err := cp.Setup(toyParams{Challenges: 3, Size: 128}, 2)
	require.NoError(t, err)

	pub := toyPub{Value: hasher.Digest("x")}
	proof, err := cp.Prove(ctx, pp, pub, struct{}{})
	require.NoError(t, err)
	raw := proof.Bytes()

	_, err = cp.ParseProof(pp, raw[:len(raw)-1])
	require.ErrorIs(t, err, ErrMalformedProof)

	_, err = NewMultiProofFromBytes(raw, 3, len(raw)/2)
	require.ErrorIs(t, err, ErrMalformedProof)

	short := &MultiProof{Partitions: proof.Partitions[:1]}
	ok, err := cp.Verify(ctx, pp, pub, short, NoRequirements)
	require.NoError(t, err)
	require.False(t, ok)

	truncated := &MultiProof{Partitions: [][]byte{proof.Partitions[0], proof.Partitions[1][:10]}}
	ok, err = cp.Verify(ctx, pp, pub, truncated, NoRequirements)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInsufficientChallenges(t *testing.T) {
	cp, _ := newToy()

	pp, err := cp.Setup(toyParams{Challenges: 3, Size: 128}, 2)
	require.NoError(t, err)

	_, err = cp.Verify(context.Background(), pp, toyPub{}, &MultiProof{}, Requirements{MinimumChallenges: 7})
	require.ErrorIs(t, err, ErrInsufficientChallenges)

	_, err = cp.Setup(toyParams{}, 0)
	require.Error(t, err)
}

func TestParamCacheSingleFlight(t *testing.T) {
	cp, eng := newToy()

	pp, err := cp.Setup(toyParams{Challenges: 1, Size: 128}, 4)
	require.NoError(t, err)

	var wg sync.WaitGroup
	params := make([]*Params, 16)
	for i := range params {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := cp.Params(pp)
			require.NoError(t, err)
			params[i] = p
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), eng.builds.Load())
	require.Equal(t, 1, cp.Cache.Len())
	for _, p := range params {
		require.Same(t, params[0], p)
	}
}

func TestParamCacheMismatch(t *testing.T) {
	cache := NewParamCache(TransparentEngine{})
	id := ParamsID{Protocol: "toy", SectorSize: 128, Partitions: 1}

	_, err := cache.Get(id, hasher.Digest("a"))
	require.NoError(t, err)

	_, err = cache.Get(id, hasher.Digest("b"))
	require.ErrorIs(t, err, ErrConfigMismatch)
}

func TestParseProofConfigMismatch(t *testing.T) {
	ctx := context.Background()
	cp, _ := newToy()

	pp, err := cp.Setup(toyParams{Challenges: 3, Size: 128}, 2)
	require.NoError(t, err)
	proof, err := cp.Prove(ctx, pp, toyPub{Value: hasher.Digest("x")}, struct{}{})
	require.NoError(t, err)

	other, err := cp.Setup(toyParams{Challenges: 4, Size: 128}, 2)
	require.NoError(t, err)
	_, err = cp.ParseProof(other, proof.Bytes())
	require.ErrorIs(t, err, ErrConfigMismatch)

	// a bad length under mismatched settings still reports the mismatch
	_, err = cp.ParseProof(other, proof.Bytes()[1:])
	require.ErrorIs(t, err, ErrConfigMismatch)
}
