package metrics

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"

	"github.com/filecoin-project/go-proofs/build"
)

// Distributions
var workMillisecondsDistribution = view.Distribution(
	0.1, 0.5, 1, 2, 5, 10, 20, 50, 100, 200, 500, // test sectors
	1000, 2000, 5000, 10_000, 30_000, 60_000, 2*60_000, 5*60_000, 10*60_000, 30*60_000, // small sectors
	60*60_000, 2*60*60_000, 4*60*60_000, 8*60*60_000, // live sectors
)

// Tags
var (
	Version, _     = tag.NewKey("version")
	Commit, _      = tag.NewKey("commit")
	FailureType, _ = tag.NewKey("failure_type")

	SectorSize, _ = tag.NewKey("sector_size")
	Protocol, _   = tag.NewKey("protocol")
	SealState, _  = tag.NewKey("seal_state")
)

// Measures
var (
	Info = stats.Int64("info", "Arbitrary counter to tag build info to", stats.UnitDimensionless)

	SealDuration         = stats.Float64("proofs/seal_ms", "Duration of a full seal", stats.UnitMilliseconds)
	VerifySealDuration   = stats.Float64("proofs/verify_seal_ms", "Duration of seal verification", stats.UnitMilliseconds)
	UnsealDuration       = stats.Float64("proofs/unseal_ms", "Duration of unsealing a range", stats.UnitMilliseconds)
	PoStGenerateDuration = stats.Float64("proofs/post_generate_ms", "Duration of PoSt generation", stats.UnitMilliseconds)
	PoStVerifyDuration   = stats.Float64("proofs/post_verify_ms", "Duration of PoSt verification", stats.UnitMilliseconds)

	SealStateTransitions = stats.Int64("proofs/seal_state_transitions", "Counter of seal state transitions", stats.UnitDimensionless)
	ProofFailures        = stats.Int64("proofs/failures", "Counter of failed proof operations", stats.UnitDimensionless)
	ProofsRejected       = stats.Int64("proofs/rejected", "Counter of proofs that failed verification", stats.UnitDimensionless)
)

var (
	InfoView = &view.View{
		Name:        "info",
		Description: "Proofs library information",
		Measure:     Info,
		Aggregation: view.LastValue(),
		TagKeys:     []tag.Key{Version, Commit},
	}
	SealDurationView = &view.View{
		Measure:     SealDuration,
		Aggregation: workMillisecondsDistribution,
		TagKeys:     []tag.Key{SectorSize},
	}
	VerifySealDurationView = &view.View{
		Measure:     VerifySealDuration,
		Aggregation: workMillisecondsDistribution,
		TagKeys:     []tag.Key{SectorSize},
	}
	UnsealDurationView = &view.View{
		Measure:     UnsealDuration,
		Aggregation: workMillisecondsDistribution,
		TagKeys:     []tag.Key{SectorSize},
	}
	PoStGenerateDurationView = &view.View{
		Measure:     PoStGenerateDuration,
		Aggregation: workMillisecondsDistribution,
		TagKeys:     []tag.Key{SectorSize},
	}
	PoStVerifyDurationView = &view.View{
		Measure:     PoStVerifyDuration,
		Aggregation: workMillisecondsDistribution,
		TagKeys:     []tag.Key{SectorSize},
	}
	SealStateTransitionsView = &view.View{
		Measure:     SealStateTransitions,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{SealState},
	}
	ProofFailuresView = &view.View{
		Measure:     ProofFailures,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Protocol, FailureType},
	}
	ProofsRejectedView = &view.View{
		Measure:     ProofsRejected,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Protocol},
	}
)

// DefaultViews is an array of OpenCensus views for metric gathering purposes
var DefaultViews = []*view.View{
	InfoView,
	SealDurationView,
	VerifySealDurationView,
	UnsealDurationView,
	PoStGenerateDurationView,
	PoStVerifyDurationView,
	SealStateTransitionsView,
	ProofFailuresView,
	ProofsRejectedView,
}

// SinceInMilliseconds returns the duration of time since the provide time as a float64.
func SinceInMilliseconds(startTime time.Time) float64 {
	return float64(time.Since(startTime).Microseconds()) / 1000
}

// Timer is a function stopwatch, calling it starts the timer,
// calling the returned function will record the duration.
func Timer(ctx context.Context, m *stats.Float64Measure) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		stats.Record(ctx, m.M(SinceInMilliseconds(start)))
		return time.Since(start)
	}
}

// RecordFailure counts a failed operation of protocol.
func RecordFailure(ctx context.Context, protocol, failureType string) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{
		tag.Upsert(Protocol, protocol),
		tag.Upsert(FailureType, failureType),
	}, ProofFailures.M(1))
}

// RecordRejected counts a proof that did not verify.
func RecordRejected(ctx context.Context, protocol string) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(Protocol, protocol)}, ProofsRejected.M(1))
}

// RecordInfo tags the info measure with the build version.
func RecordInfo(ctx context.Context) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{
		tag.Upsert(Version, build.BuildVersion),
		tag.Upsert(Commit, build.CurrentCommit),
	}, Info.M(1))
}
