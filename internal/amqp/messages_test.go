package amqp

import (
	"testing"
	"time"
)

func TestMonthClosedMessageRoundTrip(t *testing.T) {
	msg := &MonthClosedMessage{
		UserID:           7,
		Month:            "2024-06",
		IncomeCents:      300000,
		ExpenseCents:     125000,
		NetCents:         175000,
		ArchivedIncomes:  2,
		ArchivedExpenses: 5,
		SavingsUpdated:   true,
		Timestamp:        time.Date(2024, 6, 30, 23, 59, 0, 0, time.UTC),
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := MonthClosedMessageFromJSON(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Month != "2024-06" || got.NetCents != 175000 || !got.SavingsUpdated {
		t.Errorf("round trip lost fields: %+v", got)
	}
}

func TestLedgerResetMessageRoundTrip(t *testing.T) {
	msg := &LedgerResetMessage{UserID: 9, Timestamp: time.Now().UTC()}
	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := LedgerResetMessageFromJSON(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.UserID != 9 {
		t.Errorf("user id = %d", got.UserID)
	}
}

func TestMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := MonthClosedMessageFromJSON([]byte("{")); err == nil {
		t.Error("malformed JSON should fail to decode")
	}
}
