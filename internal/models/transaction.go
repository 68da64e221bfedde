// Package models defines the core domain entities for the credscore application.
// These models represent lending-protocol transactions, per-wallet behavioral features,
// and the final wallet credit scores.
//
// Terminology (matching the protocol export's own naming):
//   - Wallet: the userWallet address all transactions are grouped by.
//   - Action: the protocol call recorded for a transaction (deposit, borrow, ...).
//   - Action data: the loosely structured payload attached to each transaction.
package models

import (
	"errors"
	"time"
)

// Recognized action kinds. Matching is exact and case-sensitive; anything else is
// carried through as-is and only contributes to activity counts.
const (
	ActionDeposit     = "deposit"
	ActionBorrow      = "borrow"
	ActionRepay       = "repay"
	ActionRedeem      = "redeemunderlying"
	ActionLiquidation = "liquidationcall"
)

// RawTransaction is a single record as read from the input source.
// ActionData holds the embedded payload text verbatim; an empty string means absent.
type RawTransaction struct {
	UserWallet string    `json:"userWallet"`
	Action     string    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
	ActionData string    `json:"actionData,omitempty"`
	TxHash     string    `json:"txHash,omitempty"`
	Network    string    `json:"network,omitempty"`
	Protocol   string    `json:"protocol,omitempty"`
}

// Validate checks the fields every downstream stage relies on.
func (t *RawTransaction) Validate() error {
	if t.UserWallet == "" {
		return errors.New("user wallet must not be empty")
	}
	if t.Timestamp.IsZero() {
		return errors.New("timestamp must be set")
	}
	return nil
}

// NormalizedTransaction is a RawTransaction with its payload resolved into a USD value.
type NormalizedTransaction struct {
	RawTransaction
	AssetSymbol   string  `json:"assetSymbol"`
	Amount        float64 `json:"amount"`        // raw on-chain units, unscaled
	AssetPriceUSD float64 `json:"assetPriceUSD"` // 0 when the payload carried no price
	USDValue      float64 `json:"usd_value"`
}
