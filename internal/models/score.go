package models

import (
	"errors"
	"fmt"
)

// Score bounds for a wallet credit score.
const (
	MinCreditScore = 0
	MaxCreditScore = 1000
)

// ScoredWallet is the terminal output record: a wallet and its credit score.
type ScoredWallet struct {
	UserWallet  string `json:"userWallet"`
	CreditScore int    `json:"credit_score"`
}

// Validate checks that the wallet is named and the score is within bounds
func (s *ScoredWallet) Validate() error {
	if s.UserWallet == "" {
		return errors.New("user wallet must not be empty")
	}
	if s.CreditScore < MinCreditScore || s.CreditScore > MaxCreditScore {
		return fmt.Errorf("credit score must be between %d and %d", MinCreditScore, MaxCreditScore)
	}
	return nil
}
