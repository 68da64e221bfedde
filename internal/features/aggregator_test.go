package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/credscore/internal/models"
)

var day0 = time.Date(2021, 8, 17, 9, 0, 0, 0, time.UTC)

func tx(wallet, action string, at time.Time, usd float64) models.NormalizedTransaction {
	return models.NormalizedTransaction{
		RawTransaction: models.RawTransaction{
			UserWallet: wallet,
			Action:     action,
			Timestamp:  at,
		},
		USDValue: usd,
	}
}

func TestGroup_FirstSeenOrder(t *testing.T) {
	txs := []models.NormalizedTransaction{
		tx("b", models.ActionDeposit, day0, 1),
		tx("a", models.ActionDeposit, day0, 2),
		tx("b", models.ActionBorrow, day0, 3),
		tx("c", models.ActionRepay, day0, 4),
		tx("a", models.ActionRepay, day0, 5),
	}

	groups := Group(txs)
	require.Len(t, groups, 3)
	assert.Equal(t, "b", groups[0].UserWallet)
	assert.Equal(t, "a", groups[1].UserWallet)
	assert.Equal(t, "c", groups[2].UserWallet)

	require.Len(t, groups[0].Transactions, 2)
	assert.Equal(t, 1.0, groups[0].Transactions[0].USDValue)
	assert.Equal(t, 3.0, groups[0].Transactions[1].USDValue)
}

func TestExtract_FullWallet(t *testing.T) {
	txs := []models.NormalizedTransaction{
		tx("w", models.ActionDeposit, day0, 1000),
		tx("w", models.ActionBorrow, day0.Add(2*time.Hour), 400),
		tx("w", models.ActionRepay, day0.Add(26*time.Hour), 100),
		tx("w", models.ActionRedeem, day0.Add(3*24*time.Hour+time.Hour), 50),
		tx("w", models.ActionLiquidation, day0.Add(3*24*time.Hour+2*time.Hour), 999),
		tx("w", "Deposit", day0.Add(3*24*time.Hour+3*time.Hour), 10000),
	}

	f := Extract("w", txs)
	require.NoError(t, f.Validate())

	assert.Equal(t, 6, f.TotalTransactions)
	assert.Equal(t, 6, f.UniqueActions, "differently cased kinds count as distinct actions")
	assert.Equal(t, 3, f.DaysActive)
	assert.Equal(t, day0, f.FirstTxDate)
	assert.Equal(t, day0.Add(3*24*time.Hour+3*time.Hour), f.LastTxDate)
	assert.Equal(t, 3, f.ActivitySpanDays)
	assert.InDelta(t, 2.0, f.AvgTxPerDay, 1e-12)
	assert.Equal(t, 1000.0, f.TotalDepositedUSD, "'Deposit' is not a recognized kind")
	assert.Equal(t, 400.0, f.TotalBorrowedUSD)
	assert.Equal(t, 100.0, f.TotalRepaidUSD)
	assert.Equal(t, 50.0, f.TotalRedeemedUSD)
	assert.Equal(t, 1, f.LiquidationCount)
	assert.Equal(t, 300.0, f.NetBorrowedUSD)
	assert.InDelta(t, 0.4, f.BorrowToDepositRatio, 1e-12)
	assert.InDelta(t, 0.25, f.RepayToBorrowRatio, 1e-12)
}

func TestExtract_DefaultGuards(t *testing.T) {
	t.Run("no borrows means fully repaid", func(t *testing.T) {
		f := Extract("w", []models.NormalizedTransaction{
			tx("w", models.ActionDeposit, day0, 100),
			tx("w", models.ActionRepay, day0, 50),
		})
		assert.Equal(t, 1.0, f.RepayToBorrowRatio)
		assert.Equal(t, -50.0, f.NetBorrowedUSD)
	})

	t.Run("no deposits means zero leverage", func(t *testing.T) {
		f := Extract("w", []models.NormalizedTransaction{
			tx("w", models.ActionBorrow, day0, 100),
		})
		assert.Equal(t, 0.0, f.BorrowToDepositRatio)
		assert.Equal(t, 0.0, f.RepayToBorrowRatio)
	})

	t.Run("single active day averages to the transaction count", func(t *testing.T) {
		f := Extract("w", []models.NormalizedTransaction{
			tx("w", models.ActionDeposit, day0, 1),
			tx("w", models.ActionDeposit, day0.Add(time.Hour), 1),
			tx("w", models.ActionDeposit, day0.Add(5*time.Hour), 1),
		})
		assert.Equal(t, 1, f.DaysActive)
		assert.Equal(t, 0, f.ActivitySpanDays)
		assert.Equal(t, 3.0, f.AvgTxPerDay)
	})

	t.Run("no transactions", func(t *testing.T) {
		f := Extract("w", nil)
		assert.Equal(t, 0, f.DaysActive)
		assert.Equal(t, 0.0, f.AvgTxPerDay)
		assert.Equal(t, 1.0, f.RepayToBorrowRatio)
		assert.Equal(t, 0.0, f.BorrowToDepositRatio)
	})
}

func TestExtract_SpanIsWholeDays(t *testing.T) {
	// 47 hours apart spans three calendar days but only one whole day.
	f := Extract("w", []models.NormalizedTransaction{
		tx("w", models.ActionDeposit, time.Date(2021, 8, 1, 0, 30, 0, 0, time.UTC), 1),
		tx("w", models.ActionDeposit, time.Date(2021, 8, 2, 23, 30, 0, 0, time.UTC), 1),
	})
	assert.Equal(t, 1, f.ActivitySpanDays)
	assert.Equal(t, 2, f.DaysActive)
}

func TestExtract_OutOfOrderTimestamps(t *testing.T) {
	f := Extract("w", []models.NormalizedTransaction{
		tx("w", models.ActionDeposit, day0.Add(48*time.Hour), 1),
		tx("w", models.ActionDeposit, day0, 1),
		tx("w", models.ActionDeposit, day0.Add(24*time.Hour), 1),
	})
	assert.Equal(t, day0, f.FirstTxDate)
	assert.Equal(t, day0.Add(48*time.Hour), f.LastTxDate)
	assert.Equal(t, 2, f.ActivitySpanDays)
}

func TestExtract_CalendarDaysInUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	// Same UTC day, different local days.
	f := Extract("w", []models.NormalizedTransaction{
		tx("w", models.ActionDeposit, time.Date(2021, 8, 1, 23, 0, 0, 0, loc), 1),
		tx("w", models.ActionDeposit, time.Date(2021, 8, 2, 1, 0, 0, 0, loc), 1),
	})
	assert.Equal(t, 1, f.DaysActive)
}

func TestAggregate(t *testing.T) {
	var txs []models.NormalizedTransaction
	wallets := []string{"w3", "w1", "w2", "w0"}
	for i, w := range wallets {
		for j := 0; j <= i; j++ {
			txs = append(txs, tx(w, models.ActionDeposit, day0.Add(time.Duration(j)*24*time.Hour), 10))
		}
	}

	for _, workers := range []int{0, 1, 3} {
		got := NewAggregator(workers).Aggregate(txs)
		require.Len(t, got, len(wallets))
		for i, w := range wallets {
			assert.Equal(t, w, got[i].UserWallet)
			assert.Equal(t, i+1, got[i].TotalTransactions)
			assert.Equal(t, float64(10*(i+1)), got[i].TotalDepositedUSD)
		}
	}
}

func TestAggregate_Empty(t *testing.T) {
	got := NewAggregator(2).Aggregate(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
