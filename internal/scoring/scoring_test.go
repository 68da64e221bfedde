package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/credscore/internal/models"
)

func TestDefaultModel(t *testing.T) {
	m := DefaultModel()
	require.NoError(t, m.Validate())
	require.Len(t, m.Weights, 9)

	lo, hi := m.CompositeRange()
	assert.InDelta(t, -0.65, lo, 1e-12)
	assert.InDelta(t, 0.90, hi, 1e-12)

	risk := map[Feature]bool{}
	for _, w := range m.Weights {
		if w.Risk {
			risk[w.Feature] = true
		}
	}
	assert.Equal(t, map[Feature]bool{
		FeatureLiquidationCount:     true,
		FeatureNetBorrowedUSD:       true,
		FeatureBorrowToDepositRatio: true,
	}, risk)
}

func TestModelValidate(t *testing.T) {
	tests := []struct {
		name    string
		model   Model
		wantErr bool
	}{
		{"empty", Model{}, true},
		{"unknown feature", Model{Weights: []Weight{{Feature: "nope", Weight: 1}}}, true},
		{"duplicate feature", Model{Weights: []Weight{{Feature: FeatureAvgTxPerDay, Weight: 1}, {Feature: FeatureAvgTxPerDay, Weight: 1}}}, true},
		{"negative weight", Model{Weights: []Weight{{Feature: FeatureAvgTxPerDay, Weight: -1}}}, true},
		{"single feature", Model{Weights: []Weight{{Feature: FeatureAvgTxPerDay, Weight: 1}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.model.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Model.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func wallet(id string, mutate func(w *models.WalletFeatures)) models.WalletFeatures {
	w := models.WalletFeatures{
		UserWallet:         id,
		TotalTransactions:  1,
		UniqueActions:      1,
		DaysActive:         1,
		FirstTxDate:        time.Date(2021, 8, 1, 0, 0, 0, 0, time.UTC),
		LastTxDate:         time.Date(2021, 8, 1, 0, 0, 0, 0, time.UTC),
		AvgTxPerDay:        1,
		RepayToBorrowRatio: 1.0,
	}
	mutate(&w)
	return w
}

func TestComputeStats_Overrides(t *testing.T) {
	wallets := []models.WalletFeatures{
		wallet("a", func(w *models.WalletFeatures) {
			w.RepayToBorrowRatio = 0.4
			w.BorrowToDepositRatio = 0.5
		}),
		wallet("b", func(w *models.WalletFeatures) {
			w.RepayToBorrowRatio = 0.8
			w.BorrowToDepositRatio = 2.0
		}),
	}

	stats := ComputeStats(DefaultModel(), wallets)
	assert.Equal(t, Range{Min: 0, Max: 1}, stats[FeatureRepayToBorrowRatio])
	assert.Equal(t, Range{Min: 0, Max: 2}, stats[FeatureBorrowToDepositRatio])

	// Observed max above 1 is kept.
	wallets[1].RepayToBorrowRatio = 3.0
	stats = ComputeStats(DefaultModel(), wallets)
	assert.Equal(t, Range{Min: 0, Max: 3}, stats[FeatureRepayToBorrowRatio])
}

func TestComputeStats_PlainRanges(t *testing.T) {
	wallets := []models.WalletFeatures{
		wallet("a", func(w *models.WalletFeatures) { w.NetBorrowedUSD = -500; w.LiquidationCount = 0 }),
		wallet("b", func(w *models.WalletFeatures) { w.NetBorrowedUSD = 250; w.LiquidationCount = 3 }),
		wallet("c", func(w *models.WalletFeatures) { w.NetBorrowedUSD = 0; w.LiquidationCount = 1 }),
	}
	stats := ComputeStats(DefaultModel(), wallets)
	assert.Equal(t, Range{Min: -500, Max: 250}, stats[FeatureNetBorrowedUSD])
	assert.Equal(t, Range{Min: 0, Max: 3}, stats[FeatureLiquidationCount])
	assert.Len(t, stats, 9)
}

func TestComputeStats_NoWallets(t *testing.T) {
	stats := ComputeStats(DefaultModel(), nil)
	assert.Len(t, stats, 9)
	assert.Equal(t, Range{}, stats[FeatureTotalDepositedUSD])
	assert.Equal(t, Range{Min: 0, Max: 1}, stats[FeatureRepayToBorrowRatio])
}

func TestNormalize_DegeneratePopulation(t *testing.T) {
	wallets := []models.WalletFeatures{
		wallet("a", func(w *models.WalletFeatures) { w.TotalDepositedUSD = 700 }),
		wallet("b", func(w *models.WalletFeatures) { w.TotalDepositedUSD = 700 }),
		wallet("c", func(w *models.WalletFeatures) { w.TotalDepositedUSD = 700 }),
	}
	m := DefaultModel()
	stats := ComputeStats(m, wallets)

	for i := range wallets {
		v := stats.Normalize(m, &wallets[i])
		assert.Equal(t, 0.0, v[FeatureTotalDepositedUSD])
		for feature, x := range v {
			assert.False(t, math.IsNaN(x), "feature %s is NaN", feature)
		}
	}
}

func TestNormalize_OverrideCanYieldValuesBelowObservedMin(t *testing.T) {
	m := DefaultModel()
	stats := PopulationStats{FeatureRepayToBorrowRatio: {Min: 0, Max: 1}}
	f := wallet("a", func(w *models.WalletFeatures) { w.RepayToBorrowRatio = 0.25 })

	v := stats.Normalize(m, &f)
	assert.InDelta(t, 0.25, v[FeatureRepayToBorrowRatio], 1e-12)
	// Features without stats collapse to a degenerate zero range.
	assert.Equal(t, 0.0, v[FeatureTotalRepaidUSD])
}

func TestScore_Bounds(t *testing.T) {
	m := DefaultModel()
	allMerit := Vector{}
	allRisk := Vector{}
	for _, w := range m.Weights {
		if w.Risk {
			allRisk[w.Feature] = 1
		} else {
			allMerit[w.Feature] = 1
		}
	}

	best := m.Score(allMerit)
	assert.GreaterOrEqual(t, best, 999)
	assert.LessOrEqual(t, best, 1000)
	assert.Equal(t, 0, m.Score(allRisk))

	// Unclamped inputs outside [0,1] are clamped at the end.
	huge := Vector{}
	negative := Vector{}
	for _, w := range m.Weights {
		if w.Risk {
			negative[w.Feature] = 5
		} else {
			huge[w.Feature] = 5
		}
	}
	assert.Equal(t, 1000, m.Score(huge))
	assert.Equal(t, 0, m.Score(negative))
}

func TestScore_Truncates(t *testing.T) {
	m := Model{Weights: []Weight{{Feature: FeatureAvgTxPerDay, Weight: 1}}}
	assert.Equal(t, 999, m.Score(Vector{FeatureAvgTxPerDay: 0.9999}))
	assert.Equal(t, 0, m.Score(Vector{FeatureAvgTxPerDay: 0.0009}))
	assert.Equal(t, 500, m.Score(Vector{FeatureAvgTxPerDay: 0.5}))
}

func TestScore_EmptyRangeIsMidpoint(t *testing.T) {
	m := Model{Weights: []Weight{{Feature: FeatureAvgTxPerDay, Weight: 0}}}
	assert.Equal(t, 500, m.Score(Vector{FeatureAvgTxPerDay: 1}))
}

func TestScore_NaNIsZero(t *testing.T) {
	m := Model{Weights: []Weight{{Feature: FeatureAvgTxPerDay, Weight: 1}}}
	assert.Equal(t, 0, m.Score(Vector{FeatureAvgTxPerDay: math.NaN()}))
}

func TestScorer_DepositorBeatsLiquidatedWallet(t *testing.T) {
	a := wallet("A", func(w *models.WalletFeatures) {
		w.TotalTransactions = 2
		w.UniqueActions = 2
		w.AvgTxPerDay = 2
		w.TotalDepositedUSD = 1000
		w.TotalRepaidUSD = 1000
		w.NetBorrowedUSD = -1000
	})
	b := wallet("B", func(w *models.WalletFeatures) {
		w.LiquidationCount = 1
	})

	m := DefaultModel()
	scorer := NewScorer(m, ComputeStats(m, []models.WalletFeatures{a, b}))

	sa := scorer.Score(&a)
	sb := scorer.Score(&b)
	assert.Equal(t, 935, sa.CreditScore)
	assert.Equal(t, 225, sb.CreditScore)
	assert.Greater(t, sa.CreditScore, sb.CreditScore)
}

func TestScorer_Deterministic(t *testing.T) {
	wallets := []models.WalletFeatures{
		wallet("a", func(w *models.WalletFeatures) { w.TotalDepositedUSD = 10; w.ActivitySpanDays = 4 }),
		wallet("b", func(w *models.WalletFeatures) { w.TotalBorrowedUSD = 30; w.NetBorrowedUSD = 30 }),
		wallet("c", func(w *models.WalletFeatures) { w.TotalRepaidUSD = 5; w.LiquidationCount = 2 }),
	}
	m := DefaultModel()
	first := make([]int, len(wallets))
	for run := 0; run < 5; run++ {
		scorer := NewScorer(m, ComputeStats(m, wallets))
		for i := range wallets {
			s := scorer.Score(&wallets[i])
			require.NoError(t, s.Validate())
			if run == 0 {
				first[i] = s.CreditScore
				continue
			}
			assert.Equal(t, first[i], s.CreditScore)
		}
	}
}

func TestRank_StableDescending(t *testing.T) {
	in := []models.ScoredWallet{
		{UserWallet: "a", CreditScore: 500},
		{UserWallet: "b", CreditScore: 900},
		{UserWallet: "c", CreditScore: 500},
		{UserWallet: "d", CreditScore: 100},
		{UserWallet: "e", CreditScore: 900},
		{UserWallet: "f", CreditScore: 500},
	}

	got := Rank(in)
	want := []string{"b", "e", "a", "c", "f", "d"}
	require.Len(t, got, len(want))
	for i, w := range want {
		assert.Equal(t, w, got[i].UserWallet, "position %d", i)
	}

	// Input is not reordered.
	assert.Equal(t, "a", in[0].UserWallet)
}

func TestRank_Empty(t *testing.T) {
	got := Rank(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
