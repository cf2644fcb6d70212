package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/go-units"
	"github.com/dustin/go-humanize"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"
	"go.opencensus.io/stats/view"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-proofs/compound"
	"github.com/filecoin-project/go-proofs/config"
	"github.com/filecoin-project/go-proofs/metrics"
	"github.com/filecoin-project/go-proofs/proofs"
	"github.com/filecoin-project/go-proofs/storage/sealer/basicfs"
	"github.com/filecoin-project/go-proofs/storage/sealer/storiface"
)

type BenchResults struct {
	SectorSize abi.SectorSize

	SealingResults []SealingResult

	PostGenerate time.Duration
	PostVerify   time.Duration
}

type SealingResult struct {
	AddPiece time.Duration
	Seal     time.Duration
	Verify   time.Duration
	Unseal   time.Duration
}

var sealingCmd = &cli.Command{
	Name:  "sealing",
	Usage: "Benchmark seal, unseal and PoSt",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "storage-dir",
			Value: "~/.proofs-bench",
			Usage: "path to the storage directory that will store sectors long term",
		},
		&cli.StringFlag{
			Name:  "sector-size",
			Value: "1KiB",
			Usage: "size of the sectors in bytes, i.e. 256MiB",
		},
		&cli.IntFlag{
			Name:  "num-sectors",
			Value: 1,
			Usage: "number of sectors to seal",
		},
		&cli.BoolFlag{
			Name:  "json-out",
			Usage: "output results in json format",
		},
		&cli.BoolFlag{
			Name:  "skip-unseal",
			Usage: "skip the unseal portion of the benchmark",
		},
		&cli.BoolFlag{
			Name:  "skip-post",
			Usage: "skip the PoSt portion of the benchmark",
		},
		&cli.BoolFlag{
			Name:  "keep-sectors",
			Usage: "keep the bench directory with its sectors after the run",
		},
		&cli.StringFlag{
			Name:  "metrics-listen",
			Usage: "serve prometheus metrics on this address while the benchmark runs, i.e. :6688",
		},
	},
	Action: func(c *cli.Context) error {
		ctx := c.Context
		if err := view.Register(metrics.DefaultViews...); err != nil {
			return xerrors.Errorf("registering metric views: %w", err)
		}
		metrics.RecordInfo(ctx)

		if addr := c.String("metrics-listen"); addr != "" {
			stop, err := serveMetrics(addr)
			if err != nil {
				return err
			}
			defer stop()
		}

		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}

		sectorSizeInt, err := units.RAMInBytes(c.String("sector-size"))
		if err != nil {
			return err
		}
		sectorSize := abi.SectorSize(sectorSizeInt)

		class, err := proofs.NewSectorClass(sectorSize, cfg)
		if err != nil {
			return err
		}

		sdir, err := homedir.Expand(c.String("storage-dir"))
		if err != nil {
			return err
		}
		if err := os.MkdirAll(sdir, 0775); err != nil {
			return err
		}
		tsdir, err := os.MkdirTemp(sdir, "bench")
		if err != nil {
			return err
		}
		defer func() {
			if c.Bool("keep-sectors") {
				log.Infow("keeping bench sectors", "dir", tsdir)
				return
			}
			if err := os.RemoveAll(tsdir); err != nil {
				log.Warnw("remove all", "error", err)
			}
		}()

		sb, err := proofs.New(class, compound.NewParamCache(compound.TransparentEngine{}))
		if err != nil {
			return err
		}
		sp := &basicfs.Provider{Root: tsdir, SectorSize: sectorSize}

		need := (storiface.FTUnsealed | storiface.FTSealed).SealSpaceUse(sectorSize) * uint64(c.Int("num-sectors"))
		log.Infow("benchmark storage", "dir", tsdir, "need", humanize.IBytes(need))

		bo := BenchResults{SectorSize: sectorSize}
		var postInputs []proofs.PoStInput
		var commRs []proofs.Commitment

		for i := 1; i <= c.Int("num-sectors"); i++ {
			res, in, err := runSeal(ctx, sb, sp, abi.SectorNumber(i), c.Bool("skip-unseal"))
			if err != nil {
				return xerrors.Errorf("sector %d: %w", i, err)
			}
			bo.SealingResults = append(bo.SealingResults, res)
			postInputs = append(postInputs, in)
			commRs = append(commRs, in.CommR)
		}

		if !c.Bool("skip-post") {
			var seed proofs.ChallengeSeed
			_, _ = rand.Read(seed[:])

			log.Info("Generating PoSt")
			start := time.Now()
			out, err := sb.GeneratePoSt(ctx, seed, postInputs)
			if err != nil {
				return xerrors.Errorf("generating post: %w", err)
			}
			generated := time.Now()

			ok, err := sb.Verifier().VerifyPoSt(ctx, commRs, seed, out.Proofs, out.Faults)
			if err != nil {
				return xerrors.Errorf("verifying post: %w", err)
			}
			if !ok {
				log.Error("post verification failed")
			}

			bo.PostGenerate = generated.Sub(start)
			bo.PostVerify = time.Since(generated)
		}

		return printResults(c.App.Writer, bo, c.Bool("json-out"))
	},
}

func runSeal(ctx context.Context, sb *proofs.Sealer, sp *basicfs.Provider, num abi.SectorNumber, skipUnseal bool) (SealingResult, proofs.PoStInput, error) {
	var res SealingResult

	id := abi.SectorID{Miner: 1000, Number: num}
	prover := proofs.ProverID{0xbe, 0x4c}
	sector := proofs.SectorIDFromNumber(num)

	staged, err := sp.NewStagingSectorAccess(ctx, id)
	if err != nil {
		return res, proofs.PoStInput{}, err
	}
	sealed, err := sp.NewSealedSectorAccess(ctx, id)
	if err != nil {
		return res, proofs.PoStInput{}, err
	}

	log.Infow("Writing piece into sector", "sector", num)
	start := time.Now()
	dataSize := sp.MaxUnsealedBytes()
	if _, err := sp.WriteAndPreprocess(staged, io.LimitReader(rand.Reader, int64(dataSize))); err != nil {
		return res, proofs.PoStInput{}, xerrors.Errorf("writing piece: %w", err)
	}
	addPiece := time.Now()

	log.Infow("Sealing sector", "sector", num)
	out, err := sb.Seal(ctx, staged, sealed, prover, sector)
	if err != nil {
		return res, proofs.PoStInput{}, err
	}
	sealDone := time.Now()

	ok, err := sb.Verifier().VerifySeal(ctx, out.CommR, out.CommD, out.CommRStar, prover, sector, out.Proof)
	if err != nil {
		return res, proofs.PoStInput{}, err
	}
	if !ok {
		return res, proofs.PoStInput{}, xerrors.New("seal proof did not verify")
	}
	verified := time.Now()

	res.AddPiece = addPiece.Sub(start)
	res.Seal = sealDone.Sub(addPiece)
	res.Verify = verified.Sub(sealDone)

	if !skipUnseal {
		outPath := filepath.Join(filepath.Dir(sealed), fmt.Sprintf("%s.unsealed", storiface.SectorName(id)))
		if _, err := sb.GetUnsealedRange(ctx, sealed, outPath, prover, sector, 0, dataSize); err != nil {
			return res, proofs.PoStInput{}, xerrors.Errorf("unsealing: %w", err)
		}
		res.Unseal = time.Since(verified)
	}

	return res, proofs.PoStInput{SectorAccess: sealed, CommR: out.CommR}, nil
}

func printResults(w io.Writer, bo BenchResults, jsonOut bool) error {
	if jsonOut {
		data, err := json.MarshalIndent(bo, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	ssize := uint64(bo.SectorSize)
	fmt.Fprintf(w, "results (%s)\n", humanize.IBytes(ssize))
	for i, r := range bo.SealingResults {
		fmt.Fprintf(w, "sector %d: addPiece: %s (%s)\n", i+1, r.AddPiece, bps(ssize, r.AddPiece))
		fmt.Fprintf(w, "sector %d: seal: %s (%s)\n", i+1, r.Seal, bps(ssize, r.Seal))
		fmt.Fprintf(w, "sector %d: verify: %s\n", i+1, r.Verify)
		if r.Unseal > 0 {
			fmt.Fprintf(w, "sector %d: unseal: %s (%s)\n", i+1, r.Unseal, bps(ssize, r.Unseal))
		}
	}
	if bo.PostGenerate > 0 {
		total := ssize * uint64(len(bo.SealingResults))
		fmt.Fprintf(w, "generate post: %s (%s)\n", bo.PostGenerate, bps(total, bo.PostGenerate))
		fmt.Fprintf(w, "verify post: %s\n", bo.PostVerify)
	}
	return nil
}

func bps(data uint64, d time.Duration) string {
	if d <= 0 {
		return "n/a"
	}
	return humanize.IBytes(uint64(float64(data)/d.Seconds())) + "/s"
}
