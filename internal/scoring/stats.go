package scoring

import (
	"math"

	"github.com/rewired-gh/credscore/internal/models"
)

// Range is the observed [Min, Max] of one feature across the wallet population.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// PopulationStats maps each model feature to its population range. It is built
// once per run and only read afterwards.
type PopulationStats map[Feature]Range

// Vector holds a wallet's normalized feature values.
type Vector map[Feature]float64

// ComputeStats computes per-feature min/max over wallets and applies the fixed
// ratio overrides:
//
//	repay_to_borrow_ratio:   min = 0, max = max(1, observed max)
//	borrow_to_deposit_ratio: min = 0
func ComputeStats(m Model, wallets []models.WalletFeatures) PopulationStats {
	stats := make(PopulationStats, len(m.Weights))

	for _, feature := range m.Features() {
		r := Range{Min: math.Inf(1), Max: math.Inf(-1)}
		for i := range wallets {
			v, _ := Value(&wallets[i], feature)
			r.Min = math.Min(r.Min, v)
			r.Max = math.Max(r.Max, v)
		}
		if len(wallets) == 0 {
			r = Range{}
		}
		stats[feature] = r
	}

	if r, ok := stats[FeatureRepayToBorrowRatio]; ok {
		r.Min = 0.0
		r.Max = math.Max(1.0, r.Max)
		stats[FeatureRepayToBorrowRatio] = r
	}
	if r, ok := stats[FeatureBorrowToDepositRatio]; ok {
		r.Min = 0.0
		stats[FeatureBorrowToDepositRatio] = r
	}

	return stats
}

// Normalize min-max scales every model feature of f. A degenerate range
// (Max == Min) yields 0. Values are not clamped.
func (s PopulationStats) Normalize(m Model, f *models.WalletFeatures) Vector {
	v := make(Vector, len(m.Weights))
	for _, feature := range m.Features() {
		x, _ := Value(f, feature)
		r := s[feature]
		if r.Max == r.Min {
			v[feature] = 0
			continue
		}
		v[feature] = (x - r.Min) / (r.Max - r.Min)
	}
	return v
}
