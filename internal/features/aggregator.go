// Package features groups normalized transactions by wallet and derives the
// per-wallet behavioral feature vector used for scoring.
//
// Extraction for one wallet depends only on that wallet's transactions, so the
// Aggregator fans wallets out over a bounded worker pool while keeping output in
// first-seen wallet order.
package features

import (
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/rewired-gh/credscore/internal/models"
)

// WalletTransactions is one wallet's transactions in input order.
type WalletTransactions struct {
	UserWallet   string
	Transactions []models.NormalizedTransaction
}

// Group partitions txs by wallet. Wallets appear in the order they were first seen.
func Group(txs []models.NormalizedTransaction) []WalletTransactions {
	index := make(map[string]int)
	var groups []WalletTransactions

	for _, tx := range txs {
		i, ok := index[tx.UserWallet]
		if !ok {
			i = len(groups)
			index[tx.UserWallet] = i
			groups = append(groups, WalletTransactions{UserWallet: tx.UserWallet})
		}
		groups[i].Transactions = append(groups[i].Transactions, tx)
	}
	return groups
}

// Extract computes the feature vector for a single wallet.
//
// Guards: avg_tx_per_day is 0 with no active days, repay_to_borrow_ratio is 1.0
// with nothing borrowed, borrow_to_deposit_ratio is 0 with nothing deposited.
func Extract(wallet string, txs []models.NormalizedTransaction) models.WalletFeatures {
	f := models.WalletFeatures{
		UserWallet:        wallet,
		TotalTransactions: len(txs),
	}

	actions := make(map[string]struct{})
	days := make(map[string]struct{})

	for i, tx := range txs {
		actions[tx.Action] = struct{}{}
		ts := tx.Timestamp.UTC()
		days[ts.Format(time.DateOnly)] = struct{}{}

		if i == 0 || ts.Before(f.FirstTxDate) {
			f.FirstTxDate = ts
		}
		if i == 0 || ts.After(f.LastTxDate) {
			f.LastTxDate = ts
		}

		switch tx.Action {
		case models.ActionDeposit:
			f.TotalDepositedUSD += tx.USDValue
		case models.ActionBorrow:
			f.TotalBorrowedUSD += tx.USDValue
		case models.ActionRepay:
			f.TotalRepaidUSD += tx.USDValue
		case models.ActionRedeem:
			f.TotalRedeemedUSD += tx.USDValue
		case models.ActionLiquidation:
			f.LiquidationCount++
		}
	}

	f.UniqueActions = len(actions)
	f.DaysActive = len(days)
	f.ActivitySpanDays = int(f.LastTxDate.Sub(f.FirstTxDate) / (24 * time.Hour))

	if f.DaysActive > 0 {
		f.AvgTxPerDay = float64(f.TotalTransactions) / float64(f.DaysActive)
	}

	f.NetBorrowedUSD = f.TotalBorrowedUSD - f.TotalRepaidUSD

	if f.TotalDepositedUSD > 0 {
		f.BorrowToDepositRatio = f.TotalBorrowedUSD / f.TotalDepositedUSD
	}

	f.RepayToBorrowRatio = 1.0
	if f.TotalBorrowedUSD > 0 {
		f.RepayToBorrowRatio = f.TotalRepaidUSD / f.TotalBorrowedUSD
	}

	return f
}

// Aggregator extracts feature vectors for every wallet in a transaction set.
type Aggregator struct {
	workers int
}

// NewAggregator creates an Aggregator. workers <= 0 uses GOMAXPROCS.
func NewAggregator(workers int) *Aggregator {
	return &Aggregator{workers: workers}
}

// Aggregate returns one feature vector per distinct wallet, in first-seen order.
func (a *Aggregator) Aggregate(txs []models.NormalizedTransaction) []models.WalletFeatures {
	groups := Group(txs)
	if len(groups) == 0 {
		return []models.WalletFeatures{}
	}

	mapper := iter.Mapper[WalletTransactions, models.WalletFeatures]{MaxGoroutines: a.workers}
	return mapper.Map(groups, func(g *WalletTransactions) models.WalletFeatures {
		return Extract(g.UserWallet, g.Transactions)
	})
}
