package report

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/credscore/internal/models"
)

func scores(values ...int) []models.ScoredWallet {
	out := make([]models.ScoredWallet, len(values))
	for i, v := range values {
		out[i] = models.ScoredWallet{UserWallet: string(rune('a' + i)), CreditScore: v}
	}
	return out
}

func TestSummarize(t *testing.T) {
	s := Summarize(scores(500, 900, 100, 900), 2)

	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 600.0, s.Mean, 1e-9)
	assert.InDelta(t, 700.0, s.Median, 1e-9)
	assert.Equal(t, 100, s.Min)
	assert.Equal(t, 900, s.Max)
	assert.Equal(t, []models.ScoredWallet{
		{UserWallet: "b", CreditScore: 900},
		{UserWallet: "d", CreditScore: 900},
	}, s.Top)
}

func TestSummarize_OddMedianAndLargeTopK(t *testing.T) {
	s := Summarize(scores(3, 1, 2), 10)
	assert.InDelta(t, 2.0, s.Median, 1e-9)
	assert.Len(t, s.Top, 3)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, 5)
	assert.Equal(t, 0, s.Count)
	assert.Zero(t, s.Mean)
	assert.Empty(t, s.Top)
}

func TestNewHistogram(t *testing.T) {
	h := NewHistogram(scores(0, 33, 34, 100, 999, 1000), 30)

	require.Len(t, h.Counts, 30)
	require.Len(t, h.Edges, 31)
	assert.InDelta(t, 1000.0/30, h.BinWidth, 1e-9)
	assert.Equal(t, 0.0, h.Edges[0])
	assert.Equal(t, 1000.0, h.Edges[30])

	assert.Equal(t, 2, h.Counts[0], "0 and 33 share the first bin")
	assert.Equal(t, 1, h.Counts[1])
	assert.Equal(t, 1, h.Counts[3], "100 sits on an edge and belongs to the upper bin")
	assert.Equal(t, 2, h.Counts[29], "1000 is counted in the last bin")

	total := 0
	for _, c := range h.Counts {
		total += c
	}
	assert.Equal(t, 6, total)
}

func TestNewHistogram_Centers(t *testing.T) {
	h := NewHistogram(nil, 4)
	assert.Equal(t, []float64{125, 375, 625, 875}, h.Centers())
}

func TestScottBandwidth(t *testing.T) {
	assert.Zero(t, ScottBandwidth(nil))
	assert.Zero(t, ScottBandwidth([]float64{5}))
	assert.Zero(t, ScottBandwidth([]float64{5, 5, 5}))

	// sample std of {1,2,3,4} is sqrt(5/3)
	want := math.Sqrt(5.0/3.0) * math.Pow(4, -0.2)
	assert.InDelta(t, want, ScottBandwidth([]float64{1, 2, 3, 4}), 1e-12)
}

func TestKDE_IntegratesToScale(t *testing.T) {
	values := []float64{400, 450, 500, 520, 610}
	var points []float64
	for x := -500.0; x <= 1500; x += 1 {
		points = append(points, x)
	}

	density := KDE(values, points, 1)
	require.Len(t, density, len(points))

	var area float64
	for _, d := range density {
		area += d
	}
	assert.InDelta(t, 1.0, area, 1e-3)
}

func TestKDE_NoSpread(t *testing.T) {
	assert.Nil(t, KDE([]float64{500, 500}, []float64{500}, 1))
}

func TestBuild(t *testing.T) {
	d := Build(scores(100, 200, 300, 900), 10, 3)

	assert.Equal(t, 4, d.Summary.Count)
	assert.Len(t, d.Summary.Top, 3)
	require.Len(t, d.Density, 10)

	// Scaled to counts: the curve carries at most the number of wallets, less
	// the tails that fall outside [0, 1000].
	var area float64
	for _, v := range d.Density {
		assert.GreaterOrEqual(t, v, 0.0)
		area += v
	}
	assert.Greater(t, area, 2.0)
	assert.Less(t, area, 4.0)
}

func TestRender(t *testing.T) {
	d := Build(scores(100, 200, 300, 900, 950), 10, 2)
	d.Summary.Duration = 1500 * time.Millisecond

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, d, 20))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, Title+"\n"))
	assert.Contains(t, out, "Wallets: 5")
	assert.Contains(t, out, "Min: 100  Max: 950")
	assert.Contains(t, out, "Run time: 1.5s")
	assert.Contains(t, out, "   0- 100 |")
	assert.Contains(t, out, " 900-1000 |")
	assert.Contains(t, out, "kde ")
	assert.Contains(t, out, "Top 2 wallets:")
	assert.Contains(t, out, "1st e  950")
	assert.Contains(t, out, "2nd d  900")
}

func TestRender_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Build(nil, 30, 5), 50))

	out := buf.String()
	assert.Contains(t, out, "Wallets: 0")
	assert.NotContains(t, out, "Mean:")
	assert.NotContains(t, out, "kde")
}
