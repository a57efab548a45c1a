package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sync operations carried by a message.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// SyncMessage tells the worker to replay one local write against the
// remote backend. It carries only identifiers; the worker fetches the
// current row from the local store (deletes need no row).
type SyncMessage struct {
	SpendingID string    `json:"spending_id"`
	UserID     string    `json:"user_id"`
	Op         string    `json:"op"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewUpsertMessage(spendingID, userID string) *SyncMessage {
	return &SyncMessage{
		SpendingID: spendingID,
		UserID:     userID,
		Op:         OpUpsert,
		Timestamp:  time.Now(),
	}
}

func NewDeleteMessage(spendingID, userID string) *SyncMessage {
	return &SyncMessage{
		SpendingID: spendingID,
		UserID:     userID,
		Op:         OpDelete,
		Timestamp:  time.Now(),
	}
}

func (m *SyncMessage) Validate() error {
	if m.SpendingID == "" {
		return fmt.Errorf("missing spending id")
	}
	if m.UserID == "" {
		return fmt.Errorf("missing user id")
	}
	if m.Op != OpUpsert && m.Op != OpDelete {
		return fmt.Errorf("unknown op %q", m.Op)
	}
	return nil
}

func (m *SyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SyncMessageFromJSON(data []byte) (*SyncMessage, error) {
	var msg SyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
