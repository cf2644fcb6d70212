package proofs

import (
	"context"

	"go.opencensus.io/tag"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-proofs/compound"
	"github.com/filecoin-project/go-proofs/metrics"
	"github.com/filecoin-project/go-proofs/porep"
	"github.com/filecoin-project/go-proofs/zigzag"
)

// VerifySeal checks a seal proof against its commitments. Malformed
// commitments or proofs yield false; errors are reserved for configuration
// problems such as mismatched parameters.
func (v *Verifier) VerifySeal(ctx context.Context, commR, commD, commRStar Commitment, prover ProverID, sector SectorID, proof []byte) (bool, error) {
	ctx, _ = tag.New(ctx, tag.Upsert(metrics.SectorSize, v.class.SectorSize.ShortString()))
	defer metrics.Timer(ctx, metrics.VerifySealDuration)()

	ok, err := v.verifySeal(ctx, commR, commD, commRStar, prover, sector, proof)
	switch {
	case err != nil:
		metrics.RecordFailure(ctx, zigzag.ProtocolName, "verify")
	case !ok:
		metrics.RecordRejected(ctx, zigzag.ProtocolName)
	}
	return ok, err
}

func (v *Verifier) verifySeal(ctx context.Context, commR, commD, commRStar Commitment, prover ProverID, sector SectorID, proof []byte) (bool, error) {
	if _, err := v.porep.Params(v.porepParams); err != nil {
		return false, xerrors.Errorf("seal params: %w", err)
	}

	r, errR := commR.Domain()
	d, errD := commD.Domain()
	rs, errRS := commRStar.Domain()
	if errR != nil || errD != nil || errRS != nil {
		log.Debugw("rejecting seal with non-canonical commitment", "commR", errR, "commD", errD, "commRStar", errRS)
		return false, nil
	}

	mp, err := v.porep.ParseProof(v.porepParams, proof)
	if err != nil {
		if xerrors.Is(err, compound.ErrMalformedProof) {
			log.Debugw("rejecting malformed seal proof", "len", len(proof), "expected", v.PoRepProofLen())
			return false, nil
		}
		return false, err
	}

	pub := zigzag.PublicInputs{
		ReplicaID: porep.ReplicaID(prover, sector),
		Tau:       porep.Tau{CommD: d, CommR: r},
		CommRStar: rs,
	}

	return v.porep.Verify(ctx, v.porepParams, pub, mp, v.porepRequirements())
}
