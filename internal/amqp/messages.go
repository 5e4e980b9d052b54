package amqp

import (
	"encoding/json"
	"time"

	"coinpurse/internal/core"
)

// BalanceRecordedMessage announces that a batch of balances landed in a
// period. It carries the full rows so the worker can export history without
// a database round trip.
type BalanceRecordedMessage struct {
	PeriodID   int64             `json:"period_id"`
	PeriodName string            `json:"period_name"`
	Balances   []RecordedBalance `json:"balances"`
	Timestamp  time.Time         `json:"timestamp"`
}

// RecordedBalance is one balance row inside a BalanceRecordedMessage.
type RecordedBalance struct {
	AccountID   int64     `json:"account_id"`
	AmountCents int64     `json:"amount_cents"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// NewBalanceRecordedMessage builds the message for an upserted batch
func NewBalanceRecordedMessage(period core.Period, balances []core.Balance) *BalanceRecordedMessage {
	msg := &BalanceRecordedMessage{
		PeriodID:   period.ID,
		PeriodName: period.Name,
		Timestamp:  time.Now(),
	}
	for _, b := range balances {
		msg.Balances = append(msg.Balances, RecordedBalance{
			AccountID:   b.AccountID,
			AmountCents: b.Amount.Cents,
			RecordedAt:  b.UpdatedAt,
		})
	}
	return msg
}

// ToJSON converts the message to JSON bytes
func (m *BalanceRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BalanceRecordedMessageFromJSON creates a message from JSON bytes
func BalanceRecordedMessageFromJSON(data []byte) (*BalanceRecordedMessage, error) {
	var msg BalanceRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
