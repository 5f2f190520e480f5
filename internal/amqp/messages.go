package amqp

import (
	"encoding/json"
	"time"
)

// Event types carried on the sync queue.
const (
	EventTransactionCreated = "transaction.created"
	EventImportCompleted    = "import.completed"
)

// SyncMessage is the envelope published for every bookkeeping event.
// It is deliberately light: the worker fetches the full records from
// the database, so a stale message never overwrites newer data.
type SyncMessage struct {
	Type          string    `json:"type"`
	OwnerID       int64     `json:"owner_id"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	BatchID       string    `json:"batch_id,omitempty"`
	Created       int       `json:"created,omitempty"`
	Failed        int       `json:"failed,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionCreatedMessage(ownerID, transactionID int64) *SyncMessage {
	return &SyncMessage{
		Type:          EventTransactionCreated,
		OwnerID:       ownerID,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

func NewImportCompletedMessage(ownerID int64, batchID string, created, failed int) *SyncMessage {
	return &SyncMessage{
		Type:      EventImportCompleted,
		OwnerID:   ownerID,
		BatchID:   batchID,
		Created:   created,
		Failed:    failed,
		Timestamp: time.Now(),
	}
}

func (m *SyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SyncMessageFromJSON(data []byte) (*SyncMessage, error) {
	var msg SyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
