package scoring

import (
	"math"
	"sort"

	"github.com/rewired-gh/credscore/internal/models"
)

// Composite returns Σ merit × v − Σ risk × v over the model table.
func (m Model) Composite(v Vector) float64 {
	var c float64
	for _, w := range m.Weights {
		if w.Risk {
			c -= v[w.Feature] * w.Weight
		} else {
			c += v[w.Feature] * w.Weight
		}
	}
	return c
}

// Score maps a normalized vector to an integer in [0, 1000]. The composite is
// rescaled over the model's theoretical range (midpoint 0.5 if that range is
// empty), clamped to [0, 1], multiplied by 1000 and truncated.
func (m Model) Score(v Vector) int {
	lo, hi := m.CompositeRange()

	unit := 0.5
	if span := hi - lo; span != 0 {
		unit = (m.Composite(v) - lo) / span
	}
	if math.IsNaN(unit) {
		unit = 0
	}
	unit = math.Max(0.0, math.Min(1.0, unit))

	return int(unit * models.MaxCreditScore)
}

// Scorer scores wallets against fixed population statistics.
type Scorer struct {
	model Model
	stats PopulationStats
}

// NewScorer binds a model to completed population statistics.
func NewScorer(m Model, stats PopulationStats) *Scorer {
	return &Scorer{model: m, stats: stats}
}

// Stats returns the population statistics the scorer was built with.
func (s *Scorer) Stats() PopulationStats {
	return s.stats
}

// Normalize returns the normalized feature vector for f.
func (s *Scorer) Normalize(f *models.WalletFeatures) Vector {
	return s.stats.Normalize(s.model, f)
}

// Score computes f's credit score.
func (s *Scorer) Score(f *models.WalletFeatures) models.ScoredWallet {
	return models.ScoredWallet{
		UserWallet:  f.UserWallet,
		CreditScore: s.model.Score(s.Normalize(f)),
	}
}

// Rank returns a copy of scored sorted by CreditScore descending. Equal scores
// keep their input order.
func Rank(scored []models.ScoredWallet) []models.ScoredWallet {
	ranked := make([]models.ScoredWallet, len(scored))
	copy(ranked, scored)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CreditScore > ranked[j].CreditScore
	})
	return ranked
}
