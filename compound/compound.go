package compound

import (
	"context"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

var log = logging.Logger("compound")

// CompoundProof drives a Scheme through an Engine.
type CompoundProof[PP, PI, SI any] struct {
	Scheme Scheme[PP, PI, SI]
	Cache  *ParamCache
}

func New[PP, PI, SI any](scheme Scheme[PP, PI, SI], cache *ParamCache) *CompoundProof[PP, PI, SI] {
	return &CompoundProof[PP, PI, SI]{Scheme: scheme, Cache: cache}
}

func (c *CompoundProof[PP, PI, SI]) Setup(vanilla PP, partitions int) (PublicParams[PP], error) {
	if partitions < 1 {
		return PublicParams[PP]{}, xerrors.Errorf("%s: partition count %d must be positive: %w", c.Scheme.Name(), partitions, ErrConfigMismatch)
	}
	return PublicParams[PP]{Vanilla: vanilla, Partitions: partitions}, nil
}

func (c *CompoundProof[PP, PI, SI]) ParamsID(pp PublicParams[PP]) ParamsID {
	return ParamsID{
		Protocol:   c.Scheme.Name(),
		SectorSize: c.Scheme.SectorSize(pp.Vanilla),
		Partitions: pp.Partitions,
	}
}

// Params fetches the key material for pp from the cache.
func (c *CompoundProof[PP, PI, SI]) Params(pp PublicParams[PP]) (*Params, error) {
	return c.Cache.Get(c.ParamsID(pp), c.Scheme.Digest(pp.Vanilla))
}

// PartitionLen is the byte size of one partition proof.
func (c *CompoundProof[PP, PI, SI]) PartitionLen(pp PublicParams[PP]) int {
	return c.Cache.Engine().ProofLen(c.Scheme.PartitionProofLen(pp.Vanilla))
}

// ProofLen is the byte size of a whole serialized proof.
func (c *CompoundProof[PP, PI, SI]) ProofLen(pp PublicParams[PP]) int {
	return pp.Partitions * c.PartitionLen(pp)
}

// ParseProof splits untrusted bytes into partitions. The parameters for pp
// are resolved first so a settings disagreement surfaces as
// ErrConfigMismatch rather than as a length error.
func (c *CompoundProof[PP, PI, SI]) ParseProof(pp PublicParams[PP], b []byte) (*MultiProof, error) {
	if _, err := c.Params(pp); err != nil {
		return nil, err
	}
	return NewMultiProofFromBytes(b, pp.Partitions, c.PartitionLen(pp))
}

// Prove proves every partition in parallel.
func (c *CompoundProof[PP, PI, SI]) Prove(ctx context.Context, pp PublicParams[PP], pub PI, priv SI) (*MultiProof, error) {
	params, err := c.Params(pp)
	if err != nil {
		return nil, err
	}

	engine := c.Cache.Engine()
	vanillaLen := c.Scheme.PartitionProofLen(pp.Vanilla)
	out := &MultiProof{Partitions: make([][]byte, pp.Partitions)}

	eg, ectx := errgroup.WithContext(ctx)
	for k := 0; k < pp.Partitions; k++ {
		k := k
		eg.Go(func() error {
			vanilla, err := c.Scheme.ProvePartition(ectx, pp.Vanilla, pub, priv, k)
			if err != nil {
				return xerrors.Errorf("proving %s partition %d: %w", c.Scheme.Name(), k, err)
			}
			if len(vanilla) != vanillaLen {
				return xerrors.Errorf("%s partition %d: proof is %d bytes, expected %d", c.Scheme.Name(), k, len(vanilla), vanillaLen)
			}

			proof, err := engine.Prove(params, k, vanilla)
			if err != nil {
				return xerrors.Errorf("engine proving partition %d: %w", k, err)
			}
			out.Partitions[k] = proof
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	log.Debugw("compound proof generated", "scheme", c.Scheme.Name(), "partitions", pp.Partitions)
	return out, nil
}

// Verify checks the requirements, the proof shape and every partition.
// Malformed proofs are rejected before the engine sees them.
func (c *CompoundProof[PP, PI, SI]) Verify(ctx context.Context, pp PublicParams[PP], pub PI, proof *MultiProof, req Requirements) (bool, error) {
	if !c.Scheme.SatisfiesRequirements(pp.Vanilla, req, pp.Partitions) {
		return false, xerrors.Errorf("%s with %d partitions: %w", c.Scheme.Name(), pp.Partitions, ErrInsufficientChallenges)
	}

	params, err := c.Params(pp)
	if err != nil {
		return false, err
	}

	if proof == nil || proof.Len() != pp.Partitions {
		return false, nil
	}
	partLen := c.PartitionLen(pp)
	for _, p := range proof.Partitions {
		if len(p) != partLen {
			return false, nil
		}
	}

	engine := c.Cache.Engine()
	valid := make([]bool, pp.Partitions)

	eg, ectx := errgroup.WithContext(ctx)
	for k := 0; k < pp.Partitions; k++ {
		k := k
		eg.Go(func() error {
			ok, err := engine.Verify(params, k, proof.Partitions[k], func(vanilla []byte) (bool, error) {
				return c.Scheme.VerifyPartition(ectx, pp.Vanilla, pub, vanilla, k)
			})
			if err != nil {
				return xerrors.Errorf("verifying %s partition %d: %w", c.Scheme.Name(), k, err)
			}
			valid[k] = ok
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return false, err
	}

	for k, ok := range valid {
		if !ok {
			log.Debugw("partition rejected", "scheme", c.Scheme.Name(), "partition", k)
			return false, nil
		}
	}
	return true, nil
}
