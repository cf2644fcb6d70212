package zigzag

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/go-proofs/compound"
	"github.com/filecoin-project/go-proofs/drgraph"
	"github.com/filecoin-project/go-proofs/fr32"
	"github.com/filecoin-project/go-proofs/hasher"
	"github.com/filecoin-project/go-proofs/porep"
	"github.com/filecoin-project/go-proofs/vde"
)

func testPublicParams(t *testing.T, nodes uint64) PublicParams {
	pp, err := Setup(SetupParams{
		Graph:      drgraph.Params{Nodes: nodes, BaseDegree: 5, ExpansionDegree: 8},
		Layers:     4,
		Challenges: 3,
		Hasher:     hasher.Sha256Name,
	})
	require.NoError(t, err)
	return pp
}

func testData(seed int64, size uint64) []byte {
	raw := make([]byte, size/fr32.PaddedChunk*fr32.UnpaddedChunk)
	rand.New(rand.NewSource(seed)).Read(raw)

	out := make([]byte, size)
	fr32.Pad(raw, out)
	return out
}

func TestReplicateExtract(t *testing.T) {
	pp := testPublicParams(t, 32)
	replicaID := porep.ReplicaID(porep.ProverID{1}, porep.SectorIDFromUint64(1))

	data := testData(1, pp.SectorSize())
	orig := append([]byte(nil), data...)

	tau, commRStar, aux, err := Replicate(context.Background(), pp, replicaID, data)
	require.NoError(t, err)
	require.Len(t, aux.Trees, pp.Layers+1)
	require.Equal(t, aux.Trees[pp.Layers].Root(), tau.CommR)
	require.Equal(t, aux.Trees[0].Root(), tau.CommD)
	require.Equal(t, CommRStar(pp.Hasher, replicaID, aux.LayerRoots()), commRStar)
	require.NotEqual(t, orig, data)

	extracted, err := ExtractAll(pp, replicaID, data)
	require.NoError(t, err)
	require.Equal(t, orig, extracted)
}

func TestReplicateBinding(t *testing.T) {
	pp := testPublicParams(t, 32)
	ctx := context.Background()
	rid := porep.ReplicaID(porep.ProverID{1}, porep.SectorIDFromUint64(1))

	base := testData(2, pp.SectorSize())
	tau, _, _, err := Replicate(ctx, pp, rid, append([]byte(nil), base...))
	require.NoError(t, err)

	changed := append([]byte(nil), base...)
	changed[100] ^= 1
	tau2, _, _, err := Replicate(ctx, pp, rid, changed)
	require.NoError(t, err)
	require.NotEqual(t, tau.CommD, tau2.CommD)
	require.NotEqual(t, tau.CommR, tau2.CommR)

	other := porep.ReplicaID(porep.ProverID{1}, porep.SectorIDFromUint64(2))
	tau3, _, _, err := Replicate(ctx, pp, other, append([]byte(nil), base...))
	require.NoError(t, err)
	require.Equal(t, tau.CommD, tau3.CommD)
	require.NotEqual(t, tau.CommR, tau3.CommR)
}

func TestReplicateSizeMismatch(t *testing.T) {
	pp := testPublicParams(t, 32)

	_, _, _, err := Replicate(context.Background(), pp, hasher.Domain{}, make([]byte, 100))
	require.ErrorIs(t, err, vde.ErrDataSizeMismatch)

	_, err = ExtractAll(pp, hasher.Domain{}, make([]byte, 100))
	require.ErrorIs(t, err, vde.ErrDataSizeMismatch)
}

func sealForTest(t *testing.T, pp PublicParams) (PublicInputs, PrivateInputs) {
	rid := porep.ReplicaID(porep.ProverID{9}, porep.SectorIDFromUint64(3))
	data := testData(3, pp.SectorSize())

	tau, commRStar, aux, err := Replicate(context.Background(), pp, rid, data)
	require.NoError(t, err)

	return PublicInputs{ReplicaID: rid, Tau: tau, CommRStar: commRStar}, PrivateInputs{Aux: aux}
}

func TestCompoundProveVerify(t *testing.T) {
	ctx := context.Background()
	pp := testPublicParams(t, 32)
	pub, priv := sealForTest(t, pp)

	cp := NewCompound(compound.NewParamCache(compound.TransparentEngine{}))
	cpp, err := cp.Setup(pp, 2)
	require.NoError(t, err)

	proof, err := cp.Prove(ctx, cpp, pub, priv)
	require.NoError(t, err)

	req := compound.Requirements{MinimumChallenges: 6}

	ok, err := cp.Verify(ctx, cpp, pub, proof, req)
	require.NoError(t, err)
	require.True(t, ok)

	swapped := pub
	swapped.Tau.CommR, swapped.Tau.CommD = pub.Tau.CommD, pub.Tau.CommR
	ok, err = cp.Verify(ctx, cpp, swapped, proof, req)
	require.NoError(t, err)
	require.False(t, ok)

	wrongStar := pub
	wrongStar.CommRStar = hasher.Digest("nope")
	ok, err = cp.Verify(ctx, cpp, wrongStar, proof, req)
	require.NoError(t, err)
	require.False(t, ok)

	wrongReplica := pub
	wrongReplica.ReplicaID = porep.ReplicaID(porep.ProverID{9}, porep.SectorIDFromUint64(4))
	ok, err = cp.Verify(ctx, cpp, wrongReplica, proof, req)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = cp.Verify(ctx, cpp, pub, proof, compound.Requirements{MinimumChallenges: 7})
	require.ErrorIs(t, err, compound.ErrInsufficientChallenges)
}

func TestTamperedProof(t *testing.T) {
	ctx := context.Background()
	pp := testPublicParams(t, 16)
	pub, priv := sealForTest(t, pp)

	raw, err := Scheme{}.ProvePartition(ctx, pp, pub, priv, 0)
	require.NoError(t, err)
	require.Len(t, raw, pp.PartitionProofLen())

	ok, err := Scheme{}.VerifyPartition(ctx, pp, pub, raw, 0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Scheme{}.VerifyPartition(ctx, pp, pub, raw, 1)
	require.NoError(t, err)
	require.False(t, ok, "challenges are bound to the partition index")

	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 20; i++ {
		bad := append([]byte(nil), raw...)
		pos := rng.Intn(len(bad))
		bad[pos] ^= 0x01

		ok, err := Scheme{}.VerifyPartition(ctx, pp, pub, bad, 0)
		require.NoError(t, err)
		require.False(t, ok, "flipped byte %d", pos)
	}

	ok, err = Scheme{}.VerifyPartition(ctx, pp, pub, raw[:len(raw)-1], 0)
	require.NoError(t, err)
	require.False(t, ok)
}
