package amqp

import (
	"encoding/json"
	"time"
)

// TransactionEvent announces a mutation of the transaction store. Consumers
// get only the id and action; anyone needing the full record fetches it from
// the store.
type TransactionEvent struct {
	Action        string    `json:"action"`
	TransactionID string    `json:"transaction_id"`
	LockAt        time.Time `json:"lock_at"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewTransactionEvent builds an event stamped with the current time. lockAt
// is the instant the record becomes read-only (zero for deletes).
func NewTransactionEvent(action, transactionID string, lockAt time.Time) *TransactionEvent {
	return &TransactionEvent{
		Action:        action,
		TransactionID: transactionID,
		LockAt:        lockAt,
		OccurredAt:    time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes an event from JSON bytes.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
