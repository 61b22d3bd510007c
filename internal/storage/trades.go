package storage

import (
	"fmt"

	"github.com/adirathodd/titan-trading/internal/models"
)

// TradeJournal records server-confirmed trades locally so the stock view
// can show recent activity without another round trip.
type TradeJournal struct {
	db *DB
}

// NewTradeJournal creates a new TradeJournal.
func NewTradeJournal(db *DB) *TradeJournal {
	return &TradeJournal{db: db}
}

// Record inserts a confirmed trade and returns its ID.
func (j *TradeJournal) Record(trade *models.TradeRecord) (int64, error) {
	result, err := j.db.Exec(`
		INSERT INTO trades (symbol, side, quantity, cash_after, message)
		VALUES (?, ?, ?, ?, ?)
	`, trade.Symbol, trade.Side, trade.Quantity, trade.CashAfter, trade.Message)
	if err != nil {
		return 0, fmt.Errorf("recording trade: %w", err)
	}
	return result.LastInsertId()
}

// Recent returns the most recent trades for a symbol, newest first.
func (j *TradeJournal) Recent(symbol string, limit int) ([]*models.TradeRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := j.db.Query(`
		SELECT id, symbol, side, quantity, cash_after, COALESCE(message, ''), executed_at
		FROM trades
		WHERE symbol = ?
		ORDER BY executed_at DESC, id DESC
		LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("listing trades: %w", err)
	}
	defer rows.Close()

	var trades []*models.TradeRecord
	for rows.Next() {
		t := &models.TradeRecord{}
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Side, &t.Quantity, &t.CashAfter, &t.Message, &t.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Clear removes all journaled trades. Used on logout so a shared machine
// keeps no trading history.
func (j *TradeJournal) Clear() error {
	_, err := j.db.Exec(`DELETE FROM trades`)
	if err != nil {
		return fmt.Errorf("clearing trades: %w", err)
	}
	return nil
}
