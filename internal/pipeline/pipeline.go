// Package pipeline runs the end-to-end wallet scoring batch:
//
//	records → normalize → aggregate → population stats → score → rank
//
// Population statistics are a barrier: every wallet's features are extracted
// before any wallet is scored, so each score sees the complete population.
// Per-wallet work before and after the barrier is parallel but order-preserving,
// which keeps a run deterministic for a given input.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/iter"

	"github.com/rewired-gh/credscore/internal/features"
	"github.com/rewired-gh/credscore/internal/logger"
	"github.com/rewired-gh/credscore/internal/models"
	"github.com/rewired-gh/credscore/internal/normalize"
	"github.com/rewired-gh/credscore/internal/observability"
	"github.com/rewired-gh/credscore/internal/payload"
	"github.com/rewired-gh/credscore/internal/scoring"
)

// Stage names used for timing.
const (
	StageNormalize = "normalize"
	StageAggregate = "aggregate"
	StageStats     = "stats"
	StageScore     = "score"
	StageRank      = "rank"
)

// Options configures a Pipeline. A zero Model means scoring.DefaultModel;
// Workers <= 0 means GOMAXPROCS; Metrics may be nil.
type Options struct {
	Model   scoring.Model
	Workers int
	Metrics *observability.Metrics
}

// Pipeline scores a batch of raw transactions.
type Pipeline struct {
	model      scoring.Model
	workers    int
	aggregator *features.Aggregator
	metrics    *observability.Metrics
}

// Result is everything a run produced. Features, Normalized and Scored are
// index-aligned in wallet first-seen order; Ranked is sorted by score.
type Result struct {
	RunID          uuid.UUID
	StartedAt      time.Time
	Duration       time.Duration
	Transactions   []models.NormalizedTransaction
	Features       []models.WalletFeatures
	Stats          scoring.PopulationStats
	Normalized     []scoring.Vector
	Scored         []models.ScoredWallet
	Ranked         []models.ScoredWallet
	PayloadMethods map[payload.Method]int
	StageDurations map[string]time.Duration
}

// New creates a Pipeline, validating the scoring model.
func New(opts Options) (*Pipeline, error) {
	model := opts.Model
	if len(model.Weights) == 0 {
		model = scoring.DefaultModel()
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring model: %w", err)
	}

	return &Pipeline{
		model:      model,
		workers:    opts.Workers,
		aggregator: features.NewAggregator(opts.Workers),
		metrics:    opts.Metrics,
	}, nil
}

// Run executes every stage over records. The context is checked between
// stages; a cancelled run returns ctx.Err() and no partial result.
func (p *Pipeline) Run(ctx context.Context, records []models.RawTransaction) (res *Result, err error) {
	res = &Result{
		RunID:          uuid.New(),
		StartedAt:      time.Now(),
		PayloadMethods: make(map[payload.Method]int),
		StageDurations: make(map[string]time.Duration),
	}
	log := logger.Get().With().Str("run_id", res.RunID.String()).Logger()

	defer func() {
		res.Duration = time.Since(res.StartedAt)
		if p.metrics != nil {
			p.metrics.RecordRun(err, time.Now())
		}
		if err != nil {
			res = nil
		}
	}()

	log.Info().Int("records", len(records)).Msg("Starting scoring run")

	stage := func(name string, fn func()) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		fn()
		d := time.Since(start)
		res.StageDurations[name] = d
		if p.metrics != nil {
			p.metrics.ObserveStage(name, d)
		}
		log.Debug().Str("stage", name).Dur("duration", d).Msg("Stage complete")
		return nil
	}

	if err = stage(StageNormalize, func() {
		res.Transactions = p.normalize(records, res.PayloadMethods)
	}); err != nil {
		return
	}
	if n := res.PayloadMethods[payload.MethodRecovered]; n > 0 {
		log.Warn().Int("count", n).Msg("Some payloads were not valid object literals and were recovered by pattern matching")
	}

	if err = stage(StageAggregate, func() {
		res.Features = p.aggregator.Aggregate(res.Transactions)
	}); err != nil {
		return
	}

	var scorer *scoring.Scorer
	if err = stage(StageStats, func() {
		scorer = scoring.NewScorer(p.model, scoring.ComputeStats(p.model, res.Features))
		res.Stats = scorer.Stats()
	}); err != nil {
		return
	}
	for _, feature := range p.model.Features() {
		r := res.Stats[feature]
		log.Debug().Str("feature", string(feature)).Float64("min", r.Min).Float64("max", r.Max).Msg("Population range")
	}

	if err = stage(StageScore, func() {
		res.Normalized, res.Scored = p.score(scorer, res.Features)
	}); err != nil {
		return
	}

	if err = stage(StageRank, func() {
		res.Ranked = scoring.Rank(res.Scored)
	}); err != nil {
		return
	}

	if p.metrics != nil {
		p.metrics.RecordsProcessed.Add(float64(len(records)))
		p.metrics.WalletsScored.Set(float64(len(res.Scored)))
		for _, s := range res.Scored {
			p.metrics.ScoreDistribution.Observe(float64(s.CreditScore))
		}
		for method, n := range res.PayloadMethods {
			p.metrics.PayloadDecodes.WithLabelValues(method.String()).Add(float64(n))
		}
	}

	log.Info().
		Int("transactions", len(res.Transactions)).
		Int("wallets", len(res.Scored)).
		Dur("elapsed", time.Since(res.StartedAt)).
		Msg("Scoring run complete")
	return
}

func (p *Pipeline) normalize(records []models.RawTransaction, methods map[payload.Method]int) []models.NormalizedTransaction {
	out := make([]models.NormalizedTransaction, len(records))
	for i, rec := range records {
		pl, method := payload.Decode(rec.ActionData)
		methods[method]++
		if method == payload.MethodRecovered {
			logger.Debug("Recovered payload for wallet %s (tx %s)", rec.UserWallet, rec.TxHash)
		}
		out[i] = normalize.Transaction(rec, pl)
	}
	return out
}

func (p *Pipeline) score(scorer *scoring.Scorer, wallets []models.WalletFeatures) ([]scoring.Vector, []models.ScoredWallet) {
	type scored struct {
		vec    scoring.Vector
		wallet models.ScoredWallet
	}

	mapper := iter.Mapper[models.WalletFeatures, scored]{MaxGoroutines: p.workers}
	results := mapper.Map(wallets, func(f *models.WalletFeatures) scored {
		vec := scorer.Normalize(f)
		return scored{
			vec: vec,
			wallet: models.ScoredWallet{
				UserWallet:  f.UserWallet,
				CreditScore: p.model.Score(vec),
			},
		}
	})

	vectors := make([]scoring.Vector, len(results))
	scoredWallets := make([]models.ScoredWallet, len(results))
	for i, r := range results {
		vectors[i] = r.vec
		scoredWallets[i] = r.wallet
	}
	return vectors, scoredWallets
}
