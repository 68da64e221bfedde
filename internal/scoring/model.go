// Package scoring turns wallet feature vectors into bounded credit scores.
//
// Scoring is a weighted min-max model over nine features:
//
//	composite = Σ merit_w × norm(x) − Σ risk_w × norm(x)
//	score     = ⌊1000 × clamp((composite − minC) / (maxC − minC), 0, 1)⌋
//
// where norm(x) = (x − min) / (max − min) over the wallet population and
// [minC, maxC] = [−Σ risk_w, Σ merit_w] is the model's theoretical range, not the
// observed one. Population statistics couple every wallet together, so they are
// computed once (ComputeStats) before any wallet is scored (NewScorer).
package scoring

import (
	"errors"
	"fmt"

	"github.com/rewired-gh/credscore/internal/models"
)

// Feature names a scored wallet feature.
type Feature string

const (
	FeatureTotalRepaidUSD       Feature = "total_repaid_usd"
	FeatureRepayToBorrowRatio   Feature = "repay_to_borrow_ratio"
	FeatureTotalDepositedUSD    Feature = "total_deposited_usd"
	FeatureActivitySpanDays     Feature = "activity_span_days"
	FeatureAvgTxPerDay          Feature = "avg_tx_per_day"
	FeatureUniqueActions        Feature = "unique_actions"
	FeatureLiquidationCount     Feature = "liquidation_count"
	FeatureNetBorrowedUSD       Feature = "net_borrowed_usd"
	FeatureBorrowToDepositRatio Feature = "borrow_to_deposit_ratio"
)

// Weight is one entry of the model table. Risk weights subtract from the composite.
type Weight struct {
	Feature Feature
	Weight  float64
	Risk    bool
}

// Model is the immutable weight table shared by normalization and scoring.
// Weights are applied in table order.
type Model struct {
	Weights []Weight
}

// DefaultModel returns the fixed heuristic credit model.
func DefaultModel() Model {
	return Model{
		Weights: []Weight{
			{Feature: FeatureTotalRepaidUSD, Weight: 0.25},
			{Feature: FeatureRepayToBorrowRatio, Weight: 0.30},
			{Feature: FeatureTotalDepositedUSD, Weight: 0.15},
			{Feature: FeatureActivitySpanDays, Weight: 0.10},
			{Feature: FeatureAvgTxPerDay, Weight: 0.05},
			{Feature: FeatureUniqueActions, Weight: 0.05},

			{Feature: FeatureLiquidationCount, Weight: 0.50, Risk: true},
			{Feature: FeatureNetBorrowedUSD, Weight: 0.10, Risk: true},
			{Feature: FeatureBorrowToDepositRatio, Weight: 0.05, Risk: true},
		},
	}
}

// Validate checks that the table is non-empty, weights are non-negative and
// every feature appears once and is known.
func (m Model) Validate() error {
	if len(m.Weights) == 0 {
		return errors.New("model must contain at least one weight")
	}
	seen := make(map[Feature]bool, len(m.Weights))
	for _, w := range m.Weights {
		if _, err := Value(&models.WalletFeatures{}, w.Feature); err != nil {
			return err
		}
		if seen[w.Feature] {
			return fmt.Errorf("duplicate feature %q", w.Feature)
		}
		seen[w.Feature] = true
		if w.Weight < 0 {
			return fmt.Errorf("weight for %q must not be negative", w.Feature)
		}
	}
	return nil
}

// Features returns the model's features in table order.
func (m Model) Features() []Feature {
	out := make([]Feature, len(m.Weights))
	for i, w := range m.Weights {
		out[i] = w.Feature
	}
	return out
}

// CompositeRange returns the theoretical [min, max] of the signed composite:
// every risk feature at 1 and merit at 0, and the reverse.
func (m Model) CompositeRange() (float64, float64) {
	var merit, risk float64
	for _, w := range m.Weights {
		if w.Risk {
			risk += w.Weight
		} else {
			merit += w.Weight
		}
	}
	return -risk, merit
}

// Value reads feature from f.
func Value(f *models.WalletFeatures, feature Feature) (float64, error) {
	switch feature {
	case FeatureTotalRepaidUSD:
		return f.TotalRepaidUSD, nil
	case FeatureRepayToBorrowRatio:
		return f.RepayToBorrowRatio, nil
	case FeatureTotalDepositedUSD:
		return f.TotalDepositedUSD, nil
	case FeatureActivitySpanDays:
		return float64(f.ActivitySpanDays), nil
	case FeatureAvgTxPerDay:
		return f.AvgTxPerDay, nil
	case FeatureUniqueActions:
		return float64(f.UniqueActions), nil
	case FeatureLiquidationCount:
		return float64(f.LiquidationCount), nil
	case FeatureNetBorrowedUSD:
		return f.NetBorrowedUSD, nil
	case FeatureBorrowToDepositRatio:
		return f.BorrowToDepositRatio, nil
	}
	return 0, fmt.Errorf("unknown feature %q", feature)
}
