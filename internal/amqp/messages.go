package amqp

import (
	"encoding/json"
	"time"
)

// MonthClosedMessage announces a committed close-out. Consumers get the
// totals that were folded into savings plus the archive row counts.
type MonthClosedMessage struct {
	UserID           int64     `json:"user_id"`
	Month            string    `json:"month"`
	IncomeCents      int64     `json:"income_cents"`
	ExpenseCents     int64     `json:"expense_cents"`
	NetCents         int64     `json:"net_cents"`
	ArchivedIncomes  int64     `json:"archived_incomes"`
	ArchivedExpenses int64     `json:"archived_expenses"`
	SavingsUpdated   bool      `json:"savings_updated"`
	Timestamp        time.Time `json:"timestamp"`
}

// LedgerResetMessage announces a committed fresh start.
type LedgerResetMessage struct {
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (m *MonthClosedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (m *LedgerResetMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MonthClosedMessageFromJSON decodes a month-closed event.
func MonthClosedMessageFromJSON(data []byte) (*MonthClosedMessage, error) {
	var msg MonthClosedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// LedgerResetMessageFromJSON decodes a ledger-reset event.
func LedgerResetMessageFromJSON(data []byte) (*LedgerResetMessage, error) {
	var msg LedgerResetMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
