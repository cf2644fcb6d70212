package proofs

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/filecoin-project/go-state-types/abi"
	"go.opencensus.io/tag"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-proofs/fr32"
	"github.com/filecoin-project/go-proofs/metrics"
	"github.com/filecoin-project/go-proofs/porep"
	"github.com/filecoin-project/go-proofs/storage/sealer/storiface"
	"github.com/filecoin-project/go-proofs/zigzag"
)

// GetUnsealedRange decodes the whole sealed sector and writes the unpadded
// bytes [offset, offset+n) to outPath. The range is clipped to the sector
// capacity; the number of bytes written is returned.
func (sb *Sealer) GetUnsealedRange(ctx context.Context, sealedPath, outPath string, prover ProverID, sector SectorID, offset storiface.UnpaddedByteIndex, n abi.UnpaddedPieceSize) (abi.UnpaddedPieceSize, error) {
	ctx, _ = tag.New(ctx, tag.Upsert(metrics.SectorSize, sb.class.SectorSize.ShortString()))
	defer metrics.Timer(ctx, metrics.UnsealDuration)()

	written, err := sb.getUnsealedRange(sealedPath, outPath, prover, sector, offset, n)
	if err != nil {
		metrics.RecordFailure(ctx, zigzag.ProtocolName, "unseal")
		return 0, err
	}

	log.Infow("unsealed range", "sealed", sealedPath, "offset", offset, "written", written)
	return written, nil
}

func (sb *Sealer) getUnsealedRange(sealedPath, outPath string, prover ProverID, sector SectorID, offset storiface.UnpaddedByteIndex, n abi.UnpaddedPieceSize) (abi.UnpaddedPieceSize, error) {
	ssize := uint64(sb.class.SectorSize)

	in, err := os.Open(sealedPath)
	if err != nil {
		return 0, xerrors.Errorf("opening sealed sector: %w", err)
	}
	defer in.Close() //nolint:errcheck

	replica := make([]byte, ssize)
	if _, err := io.ReadFull(in, replica); err != nil {
		return 0, xerrors.Errorf("reading sealed sector (want %d bytes): %w", ssize, err)
	}

	data, err := zigzag.ExtractAll(sb.porepParams.Vanilla, porep.ReplicaID(prover, sector), replica)
	if err != nil {
		return 0, xerrors.Errorf("extracting sector: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return 0, xerrors.Errorf("creating output: %w", err)
	}

	bw := bufio.NewWriter(out)
	written, err := fr32.WriteUnpadded(bw, data, uint64(offset), uint64(n))
	if err != nil {
		_ = out.Close()
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		_ = out.Close()
		return 0, xerrors.Errorf("flushing output: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, xerrors.Errorf("closing output: %w", err)
	}

	return abi.UnpaddedPieceSize(written), nil
}
