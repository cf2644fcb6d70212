package proofs

import (
	"context"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"go.opencensus.io/tag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-proofs/compound"
	"github.com/filecoin-project/go-proofs/hasher"
	"github.com/filecoin-project/go-proofs/merkle"
	"github.com/filecoin-project/go-proofs/metrics"
	"github.com/filecoin-project/go-proofs/vdfpost"
)

// treeKey identifies one version of a sealed sector file.
type treeKey struct {
	path  string
	size  int64
	mtime int64
}

// spread splits items into batches of n, repeating the last item to fill
// the final batch.
func spread[T any](items []T, n int) [][]T {
	batches := lo.Chunk(items, n)
	if len(batches) == 0 {
		return nil
	}

	last := batches[len(batches)-1]
	if len(last) < n {
		padded := make([]T, n)
		copy(padded, last)
		for i := len(last); i < n; i++ {
			padded[i] = last[len(last)-1]
		}
		batches[len(batches)-1] = padded
	}
	return batches
}

// runBatches calls fn for every batch in parallel and collects all errors.
func runBatches(n int, fn func(i int) error) error {
	errs := make([]error, n)

	var eg errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			errs[i] = fn(i)
			return nil
		})
	}
	_ = eg.Wait()

	var merr *multierror.Error
	for i, err := range errs {
		if err != nil {
			merr = multierror.Append(merr, xerrors.Errorf("batch %d: %w", i, err))
		}
	}
	return merr.ErrorOrNil()
}

// GeneratePoSt proves possession of every input sector. Inputs are split
// into batches of the configured sector count, each proved independently;
// proofs come back in input order. Faulted sectors are not supported.
func (sb *Sealer) GeneratePoSt(ctx context.Context, seed ChallengeSeed, inputs []PoStInput) (GeneratePoStOutput, error) {
	ctx, _ = tag.New(ctx, tag.Upsert(metrics.SectorSize, sb.class.SectorSize.ShortString()))
	stop := metrics.Timer(ctx, metrics.PoStGenerateDuration)

	out, err := sb.generatePoSt(ctx, seed, inputs)
	if err != nil {
		metrics.RecordFailure(ctx, vdfpost.ProtocolName, "generate")
		return GeneratePoStOutput{}, err
	}

	log.Infow("generated post", "sectors", len(inputs), "batches", len(out.Proofs), "took", stop())
	return out, nil
}

func (sb *Sealer) generatePoSt(ctx context.Context, seed ChallengeSeed, inputs []PoStInput) (GeneratePoStOutput, error) {
	if len(inputs) == 0 {
		return GeneratePoStOutput{}, xerrors.New("no sectors to prove")
	}

	faulty := lo.FilterMap(inputs, func(in PoStInput, i int) (uint64, bool) {
		return uint64(i), in.Faulty()
	})
	if len(faulty) > 0 {
		return GeneratePoStOutput{}, xerrors.Errorf("sectors %v have no access: %w", faulty, vdfpost.ErrFaultsUnsupported)
	}

	challengeSeed := vdfpost.CanonicalSeed(seed)
	batches := spread(inputs, sb.postParams.Vanilla.SectorCount)
	proofs := make([][]byte, len(batches))

	err := runBatches(len(batches), func(b int) error {
		pub := vdfpost.PublicInputs{ChallengeSeed: challengeSeed}
		priv := vdfpost.PrivateInputs{}

		for _, in := range batches[b] {
			commR, err := in.CommR.Domain()
			if err != nil {
				return xerrors.Errorf("commR of %s: %w", in.SectorAccess, err)
			}

			tree, err := sb.sectorTree(in.SectorAccess)
			if err != nil {
				return err
			}
			if tree.Root() != commR {
				return xerrors.Errorf("sealed sector %s does not match commR %s", in.SectorAccess, commR)
			}

			pub.Commitments = append(pub.Commitments, commR)
			priv.Trees = append(priv.Trees, tree)
		}

		mp, err := sb.post.Prove(ctx, sb.postParams, pub, priv)
		if err != nil {
			return err
		}
		proofs[b] = mp.Bytes()
		return nil
	})
	if err != nil {
		return GeneratePoStOutput{}, err
	}

	return GeneratePoStOutput{Proofs: proofs, Faults: []uint64{}}, nil
}

// sectorTree builds, or fetches from cache, the Merkle tree of a sealed
// sector.
func (sb *Sealer) sectorTree(path string) (*merkle.Tree, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, xerrors.Errorf("stat sealed sector: %w", err)
	}

	key := treeKey{path: path, size: st.Size(), mtime: st.ModTime().UnixNano()}
	if t, ok := sb.trees.Get(key); ok {
		return t, nil
	}

	ssize := int64(sb.class.SectorSize)
	if st.Size() < ssize {
		return nil, xerrors.Errorf("sealed sector %s is %d bytes, expected %d: %w", path, st.Size(), ssize, ErrSectorSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("opening sealed sector: %w", err)
	}
	defer f.Close() //nolint:errcheck

	data := make([]byte, ssize)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, xerrors.Errorf("reading sealed sector: %w", err)
	}

	tree, err := merkle.FromData(sb.postParams.Vanilla.Hasher, data)
	if err != nil {
		return nil, xerrors.Errorf("building tree for %s: %w", path, err)
	}

	sb.trees.Add(key, tree)
	return tree, nil
}

// VerifyPoSt checks the batch proofs produced by GeneratePoSt. Faults are
// indices into commRs; a proof with declared faults never verifies.
func (v *Verifier) VerifyPoSt(ctx context.Context, commRs []Commitment, seed ChallengeSeed, proofs [][]byte, faults []uint64) (bool, error) {
	ctx, _ = tag.New(ctx, tag.Upsert(metrics.SectorSize, v.class.SectorSize.ShortString()))
	defer metrics.Timer(ctx, metrics.PoStVerifyDuration)()

	ok, err := v.verifyPoSt(ctx, commRs, seed, proofs, faults)
	switch {
	case err != nil:
		metrics.RecordFailure(ctx, vdfpost.ProtocolName, "verify")
	case !ok:
		metrics.RecordRejected(ctx, vdfpost.ProtocolName)
	}
	return ok, err
}

func (v *Verifier) verifyPoSt(ctx context.Context, commRs []Commitment, seed ChallengeSeed, proofs [][]byte, faults []uint64) (bool, error) {
	if _, err := v.post.Params(v.postParams); err != nil {
		return false, xerrors.Errorf("post params: %w", err)
	}
	if len(commRs) == 0 {
		return false, nil
	}

	commitments := make([]hasher.Domain, len(commRs))
	for i, c := range commRs {
		d, err := c.Domain()
		if err != nil {
			log.Debugw("rejecting post with non-canonical commR", "sector", i, "error", err)
			return false, nil
		}
		commitments[i] = d
	}
	for _, f := range faults {
		if f >= uint64(len(commRs)) {
			return false, nil
		}
	}

	n := v.postParams.Vanilla.SectorCount
	batches := spread(commitments, n)
	if len(proofs) != len(batches) {
		return false, nil
	}

	challengeSeed := vdfpost.CanonicalSeed(seed)
	valid := make([]bool, len(batches))

	err := runBatches(len(batches), func(b int) error {
		mp, err := v.post.ParseProof(v.postParams, proofs[b])
		if xerrors.Is(err, compound.ErrMalformedProof) {
			// valid[b] stays false
			return nil
		}
		if err != nil {
			return err
		}

		first, end := uint64(b*n), uint64((b+1)*n)
		pub := vdfpost.PublicInputs{
			ChallengeSeed: challengeSeed,
			Commitments:   batches[b],
		}
		for _, f := range faults {
			if f >= first && f < end {
				pub.Faults = append(pub.Faults, f-first)
			}
		}

		ok, err := v.post.Verify(ctx, v.postParams, pub, mp, v.postRequirements())
		if err != nil {
			return err
		}
		valid[b] = ok
		return nil
	})
	if err != nil {
		return false, err
	}

	for b, ok := range valid {
		if !ok {
			log.Debugw("post batch rejected", "batch", b)
			return false, nil
		}
	}
	return true, nil
}
