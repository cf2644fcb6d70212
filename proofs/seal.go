package proofs

import (
	"context"
	"io"
	"os"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-proofs/hasher"
	"github.com/filecoin-project/go-proofs/metrics"
	"github.com/filecoin-project/go-proofs/porep"
	"github.com/filecoin-project/go-proofs/storage/sealer/fsutil"
	"github.com/filecoin-project/go-proofs/zigzag"
)

type SealState int

const (
	SealStart SealState = iota
	SealCopyInput
	SealPadToSectorSize
	SealMapForInPlaceEncode
	SealReplicate
	SealFlushAndCommit
	SealProve
	SealSelfVerify
	SealDone
	SealFailed
)

var sealStateNames = map[SealState]string{
	SealStart:               "Start",
	SealCopyInput:           "CopyInput",
	SealPadToSectorSize:     "PadToSectorSize",
	SealMapForInPlaceEncode: "MapForInPlaceEncode",
	SealReplicate:           "Replicate",
	SealFlushAndCommit:      "FlushAndCommit",
	SealProve:               "Prove",
	SealSelfVerify:          "SelfVerify",
	SealDone:                "Done",
	SealFailed:              "Failed",
}

func (s SealState) String() string {
	if n, ok := sealStateNames[s]; ok {
		return n
	}
	return "Unknown"
}

// sealJob carries one Seal call through the state machine.
type sealJob struct {
	sb *Sealer

	inPath, outPath string
	prover          ProverID
	sector          SectorID
	replicaID       hasher.Domain

	replica   *fsutil.MappedFile
	committed bool

	tau       porep.Tau
	commRStar hasher.Domain
	aux       *zigzag.Aux
	proof     []byte
}

var sealHandlers = []func(j *sealJob, ctx context.Context) (SealState, error){
	SealStart:               (*sealJob).start,
	SealCopyInput:           (*sealJob).copyInput,
	SealPadToSectorSize:     (*sealJob).padToSectorSize,
	SealMapForInPlaceEncode: (*sealJob).mapReplica,
	SealReplicate:           (*sealJob).replicate,
	SealFlushAndCommit:      (*sealJob).flushAndCommit,
	SealProve:               (*sealJob).prove,
	SealSelfVerify:          (*sealJob).selfVerify,
}

// Seal replicates the staged, fr32 padded sector at inPath into outPath
// and proves the replication. The output is removed if sealing fails
// before the replica is committed; once committed it is kept even if
// proving fails. A returned proof always passes VerifySeal.
func (sb *Sealer) Seal(ctx context.Context, inPath, outPath string, prover ProverID, sector SectorID) (SealOutput, error) {
	ctx, _ = tag.New(ctx, tag.Upsert(metrics.SectorSize, sb.class.SectorSize.ShortString()))
	stop := metrics.Timer(ctx, metrics.SealDuration)

	j := &sealJob{
		sb:        sb,
		inPath:    inPath,
		outPath:   outPath,
		prover:    prover,
		sector:    sector,
		replicaID: porep.ReplicaID(prover, sector),
	}

	state := SealStart
	var err error
	for state != SealDone {
		log.Debugw("seal state", "out", outPath, "state", state)
		sctx, _ := tag.New(ctx, tag.Upsert(metrics.SealState, state.String()))
		stats.Record(sctx, metrics.SealStateTransitions.M(1))

		var next SealState
		next, err = sealHandlers[state](j, ctx)
		if err != nil {
			err = xerrors.Errorf("seal %s: %w", state, err)
			j.fail(ctx, state)
			break
		}
		state = next
	}
	if err != nil {
		return SealOutput{}, err
	}

	took := stop()
	log.Infow("sector sealed", "out", outPath, "size", sb.class.SectorSize, "took", took)

	return SealOutput{
		CommR:     commitmentFromDomain(j.tau.CommR),
		CommRStar: commitmentFromDomain(j.commRStar),
		CommD:     commitmentFromDomain(j.tau.CommD),
		Proof:     j.proof,
	}, nil
}

func (j *sealJob) fail(ctx context.Context, state SealState) {
	sctx, _ := tag.New(ctx, tag.Upsert(metrics.SealState, SealFailed.String()))
	stats.Record(sctx, metrics.SealStateTransitions.M(1))
	metrics.RecordFailure(ctx, zigzag.ProtocolName, state.String())

	if j.replica != nil {
		if err := j.replica.Close(); err != nil {
			log.Warnw("releasing replica buffer", "out", j.outPath, "error", err)
		}
		j.replica = nil
	}

	if j.committed {
		log.Warnw("seal failed after commit, keeping replica", "out", j.outPath, "state", state)
		return
	}
	if err := os.Remove(j.outPath); err != nil && !os.IsNotExist(err) {
		log.Errorw("removing partial replica", "out", j.outPath, "error", err)
	}
}

func (j *sealJob) start(ctx context.Context) (SealState, error) {
	if j.inPath == j.outPath {
		return SealFailed, xerrors.New("input and output paths must differ")
	}
	return SealCopyInput, nil
}

func (j *sealJob) copyInput(ctx context.Context) (SealState, error) {
	in, err := os.Open(j.inPath)
	if err != nil {
		return SealFailed, xerrors.Errorf("opening staged sector: %w", err)
	}
	defer in.Close() //nolint:errcheck

	st, err := in.Stat()
	if err != nil {
		return SealFailed, err
	}
	ssize := int64(j.sb.class.SectorSize)
	if st.Size() > ssize {
		return SealFailed, xerrors.Errorf("staged sector is %d bytes, larger than %d: %w", st.Size(), ssize, ErrSectorSize)
	}

	out, err := os.OpenFile(j.outPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return SealFailed, xerrors.Errorf("creating replica: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return SealFailed, xerrors.Errorf("copying staged sector: %w", err)
	}
	if err := out.Close(); err != nil {
		return SealFailed, xerrors.Errorf("closing replica: %w", err)
	}

	return SealPadToSectorSize, nil
}

// padToSectorSize zero extends the copy; zero bytes are valid padded data.
func (j *sealJob) padToSectorSize(ctx context.Context) (SealState, error) {
	f, err := os.OpenFile(j.outPath, os.O_RDWR, 0644)
	if err != nil {
		return SealFailed, err
	}
	if err := fsutil.Preallocate(f, int64(j.sb.class.SectorSize)); err != nil {
		_ = f.Close()
		return SealFailed, err
	}
	if err := f.Close(); err != nil {
		return SealFailed, err
	}

	if si, err := fsutil.FileSize(j.outPath); err == nil {
		log.Debugw("replica allocated", "out", j.outPath, "logical", si.Logical, "onDisk", si.OnDisk)
	}
	return SealMapForInPlaceEncode, nil
}

func (j *sealJob) mapReplica(ctx context.Context) (SealState, error) {
	m, err := fsutil.MapFile(j.outPath, int64(j.sb.class.SectorSize))
	if err != nil {
		return SealFailed, err
	}
	j.replica = m
	return SealReplicate, nil
}

func (j *sealJob) replicate(ctx context.Context) (SealState, error) {
	start := time.Now()

	tau, commRStar, aux, err := zigzag.Replicate(ctx, j.sb.porepParams.Vanilla, j.replicaID, j.replica.Bytes())
	if err != nil {
		return SealFailed, err
	}
	j.tau, j.commRStar, j.aux = tau, commRStar, aux

	log.Debugw("sector replicated", "out", j.outPath, "took", time.Since(start))
	return SealFlushAndCommit, nil
}

func (j *sealJob) flushAndCommit(ctx context.Context) (SealState, error) {
	err := j.replica.Close()
	j.replica = nil
	if err != nil {
		return SealFailed, xerrors.Errorf("flushing replica: %w", err)
	}
	j.committed = true
	return SealProve, nil
}

func (j *sealJob) prove(ctx context.Context) (SealState, error) {
	pub := zigzag.PublicInputs{
		ReplicaID: j.replicaID,
		Tau:       j.tau,
		CommRStar: j.commRStar,
	}

	mp, err := j.sb.porep.Prove(ctx, j.sb.porepParams, pub, zigzag.PrivateInputs{Aux: j.aux})
	if err != nil {
		return SealFailed, err
	}
	j.proof = mp.Bytes()
	return SealSelfVerify, nil
}

func (j *sealJob) selfVerify(ctx context.Context) (SealState, error) {
	ok, err := j.sb.verifier.VerifySeal(ctx,
		commitmentFromDomain(j.tau.CommR),
		commitmentFromDomain(j.tau.CommD),
		commitmentFromDomain(j.commRStar),
		j.prover, j.sector, j.proof)
	if err != nil {
		return SealFailed, xerrors.Errorf("verifying fresh proof: %w", err)
	}
	if !ok {
		log.Errorw("fresh seal proof does not verify", "out", j.outPath, "commR", j.tau.CommR.String())
		j.proof = nil
		return SealFailed, ErrInternalConsistency
	}
	return SealDone, nil
}
