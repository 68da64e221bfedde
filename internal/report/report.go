// Package report summarizes and renders the credit score distribution.
//
// The distribution is a fixed-range histogram over [0, 1000] with an overlaid
// Gaussian kernel density estimate (Scott's rule bandwidth) scaled to counts,
// so both can be drawn on the same axis.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rewired-gh/credscore/internal/models"
	"github.com/rewired-gh/credscore/internal/scoring"
)

// Title is the heading of a rendered distribution.
const Title = "Distribution of Wallet Credit Scores (0-1000)"

// Summary holds descriptive statistics of a set of scores.
type Summary struct {
	Count    int
	Mean     float64
	Median   float64
	Min      int
	Max      int
	Top      []models.ScoredWallet
	Duration time.Duration // zero when not produced by a run
}

// Summarize computes summary statistics and the topK highest-scored wallets.
// Ties keep input order.
func Summarize(scores []models.ScoredWallet, topK int) Summary {
	s := Summary{Count: len(scores)}
	if len(scores) == 0 {
		return s
	}

	values := make([]int, len(scores))
	sum := 0.0
	for i, w := range scores {
		values[i] = w.CreditScore
		sum += float64(w.CreditScore)
	}
	sort.Ints(values)

	s.Mean = sum / float64(len(values))
	s.Min = values[0]
	s.Max = values[len(values)-1]
	mid := len(values) / 2
	if len(values)%2 == 1 {
		s.Median = float64(values[mid])
	} else {
		s.Median = float64(values[mid-1]+values[mid]) / 2
	}

	if topK > 0 {
		ranked := scoring.Rank(scores)
		if topK < len(ranked) {
			ranked = ranked[:topK]
		}
		s.Top = ranked
	}
	return s
}

// Histogram is a fixed-width binning of scores over [0, 1000].
// The last bin is closed on the right so a perfect score is counted.
type Histogram struct {
	Edges    []float64 // len(Counts)+1
	Counts   []int
	BinWidth float64
}

// NewHistogram bins scores into bins equal-width bins.
func NewHistogram(scores []models.ScoredWallet, bins int) Histogram {
	if bins < 1 {
		bins = 1
	}
	lo, hi := float64(models.MinCreditScore), float64(models.MaxCreditScore)
	width := (hi - lo) / float64(bins)

	h := Histogram{
		Edges:    make([]float64, bins+1),
		Counts:   make([]int, bins),
		BinWidth: width,
	}
	for i := range h.Edges {
		h.Edges[i] = lo + float64(i)*width
	}
	h.Edges[bins] = hi

	for _, s := range scores {
		// Integer arithmetic keeps exact edges (e.g. 100 with 30 bins) in the upper bin.
		i := (s.CreditScore - models.MinCreditScore) * bins / (models.MaxCreditScore - models.MinCreditScore)
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		h.Counts[i]++
	}
	return h
}

// Centers returns the midpoint of every bin.
func (h Histogram) Centers() []float64 {
	c := make([]float64, len(h.Counts))
	for i := range c {
		c[i] = (h.Edges[i] + h.Edges[i+1]) / 2
	}
	return c
}

// ScottBandwidth returns the Gaussian kernel bandwidth for values: the sample
// standard deviation times n^(-1/5). It is 0 when fewer than two values exist
// or all values are equal.
func ScottBandwidth(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	std := math.Sqrt(ss / float64(n-1))
	return std * math.Pow(float64(n), -0.2)
}

// KDE evaluates a Gaussian kernel density estimate of values at points,
// scaled by scale. It returns nil when no bandwidth can be estimated.
func KDE(values, points []float64, scale float64) []float64 {
	bw := ScottBandwidth(values)
	if bw == 0 {
		return nil
	}

	norm := scale / (float64(len(values)) * bw * math.Sqrt(2*math.Pi))
	out := make([]float64, len(points))
	for i, x := range points {
		var sum float64
		for _, v := range values {
			z := (x - v) / bw
			sum += math.Exp(-0.5 * z * z)
		}
		out[i] = sum * norm
	}
	return out
}

// Distribution is a complete score report.
type Distribution struct {
	Summary   Summary
	Histogram Histogram
	// Density is the KDE at each bin center, scaled to expected bin counts.
	// Nil when the scores have no spread.
	Density []float64
}

// Build computes the distribution report for scores.
func Build(scores []models.ScoredWallet, bins, topK int) Distribution {
	h := NewHistogram(scores, bins)

	values := make([]float64, len(scores))
	for i, s := range scores {
		values[i] = float64(s.CreditScore)
	}

	return Distribution{
		Summary:   Summarize(scores, topK),
		Histogram: h,
		Density:   KDE(values, h.Centers(), float64(len(values))*h.BinWidth),
	}
}

// Render writes d as a text chart. width is the length of the longest bar.
func Render(w io.Writer, d Distribution, width int) error {
	if width < 1 {
		width = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n", Title, strings.Repeat("=", len(Title)))

	s := d.Summary
	fmt.Fprintf(&b, "Wallets: %s\n", humanize.Comma(int64(s.Count)))
	if s.Count > 0 {
		fmt.Fprintf(&b, "Mean: %.1f  Median: %.1f  Min: %d  Max: %d\n", s.Mean, s.Median, s.Min, s.Max)
	}
	if s.Duration > 0 {
		fmt.Fprintf(&b, "Run time: %s\n", s.Duration.Round(time.Millisecond))
	}
	b.WriteString("\n")

	maxCount := 0
	for _, c := range d.Histogram.Counts {
		maxCount = max(maxCount, c)
	}
	for _, v := range d.Density {
		maxCount = max(maxCount, int(math.Ceil(v)))
	}

	for i, c := range d.Histogram.Counts {
		bar := 0
		if maxCount > 0 {
			bar = int(math.Round(float64(c) / float64(maxCount) * float64(width)))
		}
		line := []rune(strings.Repeat("#", bar) + strings.Repeat(" ", width-bar))

		kdeCol := ""
		if d.Density != nil {
			pos := int(math.Round(d.Density[i] / float64(maxCount) * float64(width)))
			pos = min(max(pos, 1), width) - 1
			line[pos] = '*'
			kdeCol = fmt.Sprintf("  kde %.1f", d.Density[i])
		}

		fmt.Fprintf(&b, "%4.0f-%4.0f |%s| %s%s\n",
			d.Histogram.Edges[i], d.Histogram.Edges[i+1], string(line), humanize.Comma(int64(c)), kdeCol)
	}

	if len(s.Top) > 0 {
		fmt.Fprintf(&b, "\nTop %d wallets:\n", len(s.Top))
		for i, t := range s.Top {
			fmt.Fprintf(&b, "%s %s  %d\n", humanize.Ordinal(i+1), t.UserWallet, t.CreditScore)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
