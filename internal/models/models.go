// Package models contains the domain models for the titan trading client.
package models

import "time"

// StoredCredentials is the durable copy of the authenticated session:
// the credential pair plus the identity label and cash balance that seed
// the in-memory session at startup. A row is either fully populated or
// absent; partial credentials are never persisted.
type StoredCredentials struct {
	AccessToken  string
	RefreshToken string
	Username     string
	Cash         float64
}

// Trade sides recorded in the local journal.
const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// TradeRecord is a locally journaled, server-confirmed trade.
type TradeRecord struct {
	ID         int64     `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Quantity   float64   `json:"quantity"`
	CashAfter  float64   `json:"cash_after"`
	Message    string    `json:"message,omitempty"` // Server confirmation text.
	ExecutedAt time.Time `json:"executed_at"`
}
