// Package events publishes notifications about stored transactions to AMQP.
package events

import (
	"encoding/json"
	"time"
)

// TransactionsImported announces a batch of newly stored transactions.
// Consumers fetch the transactions by ID.
type TransactionsImported struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // csv, ofx, plaid, manual, api
	IDs       []string  `json:"ids"`
	Count     int       `json:"count"`
}

// NewTransactionsImported creates a message stamped with the current time.
func NewTransactionsImported(source string, ids []string) *TransactionsImported {
	if ids == nil {
		ids = []string{}
	}
	return &TransactionsImported{
		Source:    source,
		IDs:       ids,
		Count:     len(ids),
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *TransactionsImported) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionsImportedFromJSON decodes a message.
func TransactionsImportedFromJSON(data []byte) (*TransactionsImported, error) {
	var msg TransactionsImported
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
