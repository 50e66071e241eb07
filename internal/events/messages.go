package events

import (
	"encoding/json"
	"time"
)

// Event types routed through the ledger export queue.
const (
	TypeExpenseCreated = "expense.created"
	TypeExpenseDeleted = "expense.deleted"
)

// ExpenseEvent is a lightweight message carrying only the expense id; the
// worker fetches the full row from the database.
type ExpenseEvent struct {
	Type      string    `json:"type"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseCreated builds a created event for the given expense id.
func NewExpenseCreated(id int64) *ExpenseEvent {
	return &ExpenseEvent{
		Type:      TypeExpenseCreated,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// NewExpenseDeleted builds a deleted event for the given expense id.
func NewExpenseDeleted(id int64) *ExpenseEvent {
	return &ExpenseEvent{
		Type:      TypeExpenseDeleted,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseEventFromJSON parses an event from JSON bytes.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var e ExpenseEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
