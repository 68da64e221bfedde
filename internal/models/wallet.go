package models

import (
	"errors"
	"time"
)

// WalletFeatures is the behavioral feature vector derived from one wallet's full
// transaction history. It is built once per wallet and never mutated afterwards.
type WalletFeatures struct {
	UserWallet           string    `json:"userWallet"`
	TotalTransactions    int       `json:"total_transactions"`
	UniqueActions        int       `json:"unique_actions"`
	DaysActive           int       `json:"days_active"`
	FirstTxDate          time.Time `json:"first_tx_date"`
	LastTxDate           time.Time `json:"last_tx_date"`
	ActivitySpanDays     int       `json:"activity_span_days"`
	AvgTxPerDay          float64   `json:"avg_tx_per_day"`
	TotalDepositedUSD    float64   `json:"total_deposited_usd"`
	TotalBorrowedUSD     float64   `json:"total_borrowed_usd"`
	TotalRepaidUSD       float64   `json:"total_repaid_usd"`
	TotalRedeemedUSD     float64   `json:"total_redeemed_usd"`
	LiquidationCount     int       `json:"liquidation_count"`
	NetBorrowedUSD       float64   `json:"net_borrowed_usd"`        // borrowed - repaid
	BorrowToDepositRatio float64   `json:"borrow_to_deposit_ratio"` // 0 when nothing deposited
	RepayToBorrowRatio   float64   `json:"repay_to_borrow_ratio"`   // 1.0 when nothing borrowed
}

// Validate checks the structural invariants of a feature vector.
func (w *WalletFeatures) Validate() error {
	if w.UserWallet == "" {
		return errors.New("user wallet must not be empty")
	}
	if w.TotalTransactions < 1 {
		return errors.New("total transactions must be at least 1")
	}
	if w.UniqueActions < 1 || w.UniqueActions > w.TotalTransactions {
		return errors.New("unique actions must be between 1 and total transactions")
	}
	if w.DaysActive < 1 || w.DaysActive > w.TotalTransactions {
		return errors.New("days active must be between 1 and total transactions")
	}
	if w.LastTxDate.Before(w.FirstTxDate) {
		return errors.New("last tx date must be >= first tx date")
	}
	if w.ActivitySpanDays < 0 {
		return errors.New("activity span must not be negative")
	}
	if w.LiquidationCount < 0 || w.LiquidationCount > w.TotalTransactions {
		return errors.New("liquidation count must be between 0 and total transactions")
	}
	return nil
}
