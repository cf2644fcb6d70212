package proofs

import (
	"bytes"
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-proofs/build"
	"github.com/filecoin-project/go-proofs/compound"
	"github.com/filecoin-project/go-proofs/config"
	"github.com/filecoin-project/go-proofs/hasher"
	"github.com/filecoin-project/go-proofs/storage/sealer/basicfs"
	"github.com/filecoin-project/go-proofs/storage/sealer/storiface"
	"github.com/filecoin-project/go-proofs/vdfpost"
)

type seal struct {
	id     abi.SectorID
	prover ProverID
	sector SectorID

	staged  string
	sealed  string
	written []byte
	out     SealOutput
}

func testSealer(t *testing.T, ssize abi.SectorSize, hasherName string) *Sealer {
	cfg := config.Default()
	cfg.Hasher = hasherName

	class, err := NewSectorClass(ssize, cfg)
	require.NoError(t, err)

	sb, err := New(class, compound.NewParamCache(compound.TransparentEngine{}))
	require.NoError(t, err)
	return sb
}

func newProvider(t *testing.T, ssize abi.SectorSize) *basicfs.Provider {
	return &basicfs.Provider{Root: t.TempDir(), SectorSize: ssize}
}

func stageSector(t *testing.T, sp *basicfs.Provider, num abi.SectorNumber, data []byte) *seal {
	ctx := context.Background()
	s := &seal{
		id:      abi.SectorID{Miner: 1000, Number: num},
		prover:  ProverID{0xca, 0xfe},
		sector:  SectorIDFromNumber(num),
		written: data,
	}

	var err error
	s.staged, err = sp.NewStagingSectorAccess(ctx, s.id)
	require.NoError(t, err)
	s.sealed, err = sp.NewSealedSectorAccess(ctx, s.id)
	require.NoError(t, err)

	n, err := sp.WriteAndPreprocess(s.staged, bytes.NewReader(data))
	require.NoError(t, err)
	require.EqualValues(t, len(data), n)
	return s
}

func randomData(seed int64, n int) []byte {
	out := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(out)
	return out
}

func (s *seal) run(t *testing.T, sb *Sealer) {
	var err error
	s.out, err = sb.Seal(context.Background(), s.staged, s.sealed, s.prover, s.sector)
	require.NoError(t, err)
	require.Len(t, s.out.Proof, sb.PoRepProofLen())
}

func (s *seal) verify(t *testing.T, v *Verifier) {
	ok, err := v.VerifySeal(context.Background(), s.out.CommR, s.out.CommD, s.out.CommRStar, s.prover, s.sector, s.out.Proof)
	require.NoError(t, err)
	require.True(t, ok, "proof for sector %d should verify", s.id.Number)
}

func (s *seal) unseal(t *testing.T, sb *Sealer, offset, n uint64) []byte {
	out := filepath.Join(t.TempDir(), "unsealed")
	written, err := sb.GetUnsealedRange(context.Background(), s.sealed, out, s.prover, s.sector, storiface.UnpaddedByteIndex(offset), abi.UnpaddedPieceSize(n))
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.EqualValues(t, len(got), written)
	return got
}

func TestSealTinySector(t *testing.T) {
	sb := testSealer(t, build.TinySectorSize, hasher.Default)
	sp := newProvider(t, build.TinySectorSize)

	require.EqualValues(t, 127, sb.class.MaxUnsealedBytes())

	s := stageSector(t, sp, 1, randomData(1, 127))
	s.run(t, sb)
	s.verify(t, sb.Verifier())

	require.Equal(t, s.written, s.unseal(t, sb, 0, 127))
}

func TestSealSwappedCommitmentsFail(t *testing.T) {
	sb := testSealer(t, build.TinySectorSize, hasher.Sha256Name)
	sp := newProvider(t, build.TinySectorSize)

	s := stageSector(t, sp, 2, randomData(2, 127))
	s.run(t, sb)

	v := sb.Verifier()
	ctx := context.Background()

	ok, err := v.VerifySeal(ctx, s.out.CommD, s.out.CommRStar, s.out.CommR, s.prover, s.sector, s.out.Proof)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = v.VerifySeal(ctx, s.out.CommR, s.out.CommD, s.out.CommRStar, s.prover, SectorIDFromNumber(3), s.out.Proof)
	require.NoError(t, err)
	require.False(t, ok, "proof is bound to the sector id")

	ok, err = v.VerifySeal(ctx, s.out.CommR, s.out.CommD, s.out.CommRStar, s.prover, s.sector, s.out.Proof[1:])
	require.NoError(t, err)
	require.False(t, ok, "truncated proof")

	bad := s.out.CommR
	bad[31] = 0xff
	ok, err = v.VerifySeal(ctx, bad, s.out.CommD, s.out.CommRStar, s.prover, s.sector, s.out.Proof)
	require.NoError(t, err)
	require.False(t, ok, "non-canonical commitment")

	tampered := append([]byte(nil), s.out.Proof...)
	tampered[len(tampered)/2] ^= 1
	ok, err = v.VerifySeal(ctx, s.out.CommR, s.out.CommD, s.out.CommRStar, s.prover, s.sector, tampered)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSealAndUnsealRanges(t *testing.T) {
	ssize := build.TestSectorSize
	sb := testSealer(t, ssize, hasher.Sha256Name)
	sp := newProvider(t, ssize)

	capacity := int(sb.class.MaxUnsealedBytes())
	require.Equal(t, 1016, capacity)

	for i, size := range []int{capacity, capacity - 5} {
		s := stageSector(t, sp, abi.SectorNumber(10+i), randomData(int64(i), size))
		s.run(t, sb)
		s.verify(t, sb.Verifier())

		require.Equal(t, s.written, s.unseal(t, sb, 0, uint64(size)))
		require.Equal(t, s.written[100:400], s.unseal(t, sb, 100, 300))
		require.Equal(t, s.written[size-3:], s.unseal(t, sb, uint64(size-3), 3))
	}
}

func TestSealRejectsOversizedInput(t *testing.T) {
	sb := testSealer(t, build.TinySectorSize, hasher.Sha256Name)
	dir := t.TempDir()

	in := filepath.Join(dir, "staged")
	out := filepath.Join(dir, "sealed")
	require.NoError(t, os.WriteFile(in, make([]byte, 256), 0644))

	_, err := sb.Seal(context.Background(), in, out, ProverID{1}, SectorIDFromNumber(1))
	require.ErrorIs(t, err, ErrSectorSize)

	_, err = os.Stat(out)
	require.True(t, os.IsNotExist(err), "partial output is removed")
}

func TestSealRemovesOutputOnEncodingFailure(t *testing.T) {
	sb := testSealer(t, build.TinySectorSize, hasher.Sha256Name)
	dir := t.TempDir()

	// unpadded bytes do not form canonical field elements
	in := filepath.Join(dir, "staged")
	out := filepath.Join(dir, "sealed")
	require.NoError(t, os.WriteFile(in, bytes.Repeat([]byte{0xff}, 128), 0644))

	_, err := sb.Seal(context.Background(), in, out, ProverID{1}, SectorIDFromNumber(1))
	require.Error(t, err)

	_, err = os.Stat(out)
	require.True(t, os.IsNotExist(err))
}

type brokenProver struct {
	compound.TransparentEngine
}

func (brokenProver) Prove(*compound.Params, int, []byte) ([]byte, error) {
	return nil, xerrors.New("backend down")
}

type rejectingVerifier struct {
	compound.TransparentEngine
}

func (rejectingVerifier) Verify(*compound.Params, int, []byte, func([]byte) (bool, error)) (bool, error) {
	return false, nil
}

func sealerWithEngine(t *testing.T, engine compound.Engine) *Sealer {
	cfg := config.Default()
	cfg.Hasher = hasher.Sha256Name

	class, err := NewSectorClass(build.TinySectorSize, cfg)
	require.NoError(t, err)
	sb, err := New(class, compound.NewParamCache(engine))
	require.NoError(t, err)
	return sb
}

func TestSealKeepsReplicaWhenProvingFails(t *testing.T) {
	sb := sealerWithEngine(t, brokenProver{})
	sp := newProvider(t, build.TinySectorSize)
	s := stageSector(t, sp, 1, randomData(11, 127))

	out, err := sb.Seal(context.Background(), s.staged, s.sealed, s.prover, s.sector)
	require.ErrorContains(t, err, "backend down")
	require.Equal(t, SealOutput{}, out)

	st, err := os.Stat(s.sealed)
	require.NoError(t, err)
	require.EqualValues(t, build.TinySectorSize, st.Size())
}

func TestSealSelfVerifyFailure(t *testing.T) {
	sb := sealerWithEngine(t, rejectingVerifier{})
	sp := newProvider(t, build.TinySectorSize)
	s := stageSector(t, sp, 1, randomData(12, 127))

	out, err := sb.Seal(context.Background(), s.staged, s.sealed, s.prover, s.sector)
	require.ErrorIs(t, err, ErrInternalConsistency)
	require.Equal(t, SealOutput{}, out)
	require.Nil(t, out.Proof)

	// the replica was committed before proving
	_, err = os.Stat(s.sealed)
	require.NoError(t, err)
}

func TestConcurrentSeals(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping concurrent seals in short mode")
	}

	ssize := build.TestSectorSize
	sb := testSealer(t, ssize, hasher.Sha256Name)
	sp := newProvider(t, ssize)

	const n = 4
	seals := make([]*seal, n)
	for i := range seals {
		seals[i] = stageSector(t, sp, abi.SectorNumber(100+i), randomData(int64(100+i), 500+i*100))
	}

	var wg sync.WaitGroup
	outs := make([]SealOutput, n)
	errs := make([]error, n)
	for i := range seals {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := seals[i]
			outs[i], errs[i] = sb.Seal(context.Background(), s.staged, s.sealed, s.prover, s.sector)
		}(i)
	}
	wg.Wait()

	// separately built verifier sharing no state with the sealer
	v, err := NewVerifier(sb.class, compound.NewParamCache(compound.TransparentEngine{}))
	require.NoError(t, err)

	for i, s := range seals {
		require.NoError(t, errs[i])
		s.out = outs[i]
		s.verify(t, v)
	}
}

func TestPoSt(t *testing.T) {
	ssize := build.TestSectorSize
	sb := testSealer(t, ssize, hasher.Sha256Name)
	sp := newProvider(t, ssize)

	s := stageSector(t, sp, 1, randomData(7, 900))
	s.run(t, sb)

	ctx := context.Background()
	seed := ChallengeSeed{1, 2, 3}

	inputs := []PoStInput{
		{SectorAccess: s.sealed, CommR: s.out.CommR},
		{SectorAccess: s.sealed, CommR: s.out.CommR},
	}
	commRs := []Commitment{s.out.CommR, s.out.CommR}

	out, err := sb.GeneratePoSt(ctx, seed, inputs)
	require.NoError(t, err)
	require.Len(t, out.Proofs, 1)
	require.Empty(t, out.Faults)
	require.Len(t, out.Proofs[0], sb.PoStProofLen())

	v := sb.Verifier()

	ok, err := v.VerifyPoSt(ctx, commRs, seed, out.Proofs, nil)
	require.NoError(t, err)
	require.True(t, ok)

	mutated := seed
	mutated[0] ^= 0xff
	ok, err = v.VerifyPoSt(ctx, commRs, mutated, out.Proofs, nil)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = v.VerifyPoSt(ctx, commRs, seed, out.Proofs, []uint64{1})
	require.NoError(t, err)
	require.False(t, ok, "declared faults never verify")

	ok, err = v.VerifyPoSt(ctx, commRs, seed, append(out.Proofs, out.Proofs[0]), nil)
	require.NoError(t, err)
	require.False(t, ok, "wrong batch count")
}

func TestPoStBatches(t *testing.T) {
	ssize := build.TestSectorSize
	sb := testSealer(t, ssize, hasher.Sha256Name)
	sp := newProvider(t, ssize)

	var inputs []PoStInput
	var commRs []Commitment
	for i := 0; i < 3; i++ {
		s := stageSector(t, sp, abi.SectorNumber(20+i), randomData(int64(20+i), 300))
		s.run(t, sb)
		inputs = append(inputs, PoStInput{SectorAccess: s.sealed, CommR: s.out.CommR})
		commRs = append(commRs, s.out.CommR)
	}

	ctx := context.Background()
	seed := ChallengeSeed{9}

	out, err := sb.GeneratePoSt(ctx, seed, inputs)
	require.NoError(t, err)
	require.Len(t, out.Proofs, 2)

	ok, err := sb.Verifier().VerifyPoSt(ctx, commRs, seed, out.Proofs, nil)
	require.NoError(t, err)
	require.True(t, ok)

	// batches are order sensitive
	swapped := []Commitment{commRs[1], commRs[0], commRs[2]}
	ok, err = sb.Verifier().VerifyPoSt(ctx, swapped, seed, out.Proofs, nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPoStFaultsUnsupported(t *testing.T) {
	sb := testSealer(t, build.TestSectorSize, hasher.Sha256Name)

	_, err := sb.GeneratePoSt(context.Background(), ChallengeSeed{}, []PoStInput{{CommR: Commitment{1}}})
	require.ErrorIs(t, err, vdfpost.ErrFaultsUnsupported)
}

func TestPoStCommRMismatch(t *testing.T) {
	ssize := build.TestSectorSize
	sb := testSealer(t, ssize, hasher.Sha256Name)
	sp := newProvider(t, ssize)

	s := stageSector(t, sp, 1, randomData(3, 100))
	s.run(t, sb)

	_, err := sb.GeneratePoSt(context.Background(), ChallengeSeed{}, []PoStInput{{SectorAccess: s.sealed, CommR: s.out.CommD}})
	require.Error(t, err)
}

func TestSpread(t *testing.T) {
	require.Nil(t, spread([]int{}, 2))
	require.Equal(t, [][]int{{1, 2}, {3, 3}}, spread([]int{1, 2, 3}, 2))
	require.Equal(t, [][]int{{1, 2, 3}}, spread([]int{1, 2, 3}, 3))
	require.Equal(t, [][]int{{1, 1, 1}}, spread([]int{1}, 3))
}

func TestConfigMismatch(t *testing.T) {
	ctx := context.Background()
	cache := compound.NewParamCache(compound.TransparentEngine{})

	cfg := config.Default()
	cfg.Hasher = hasher.Sha256Name
	class, err := NewSectorClass(build.TestSectorSize, cfg)
	require.NoError(t, err)
	sb, err := New(class, cache)
	require.NoError(t, err)

	sp := newProvider(t, build.TestSectorSize)
	s := stageSector(t, sp, 1, randomData(5, 127))
	s.run(t, sb)

	post, err := sb.GeneratePoSt(ctx, ChallengeSeed{3}, []PoStInput{{SectorAccess: s.sealed, CommR: s.out.CommR}})
	require.NoError(t, err)

	verifierWith := func(mutate func(c *config.Proofs)) *Verifier {
		c := *cfg
		mutate(&c)
		other, err := NewSectorClass(build.TestSectorSize, &c)
		require.NoError(t, err)
		v, err := NewVerifier(other, cache)
		require.NoError(t, err)
		return v
	}

	for name, mutate := range map[string]func(c *config.Proofs){
		"base degree":      func(c *config.Proofs) { c.PoRep.BaseDegree++ },
		"expansion degree": func(c *config.Proofs) { c.PoRep.ExpansionDegree++ },
	} {
		v := verifierWith(mutate)
		ok, err := v.VerifySeal(ctx, s.out.CommR, s.out.CommD, s.out.CommRStar, s.prover, s.sector, s.out.Proof)
		require.ErrorIs(t, err, compound.ErrConfigMismatch, name)
		require.False(t, ok, name)
	}

	v := verifierWith(func(c *config.Proofs) { c.PoSt.VDFRounds++ })
	ok, err := v.VerifyPoSt(ctx, []Commitment{s.out.CommR}, ChallengeSeed{3}, post.Proofs, nil)
	require.ErrorIs(t, err, compound.ErrConfigMismatch)
	require.False(t, ok)
}

