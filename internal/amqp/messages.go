package amqp

import (
	"encoding/json"
	"time"
)

// ReportSyncMessage asks the worker to refresh the mirrored report sheets
// for one ledger owner. It is intentionally small: the worker re-queries the
// store for the current rows instead of trusting a snapshot in the message.
type ReportSyncMessage struct {
	UserID    string    `json:"user_id"`
	Year      string    `json:"year"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReportSyncMessage creates a sync message for the given owner and year.
func NewReportSyncMessage(userID, year string) *ReportSyncMessage {
	return &ReportSyncMessage{
		UserID:    userID,
		Year:      year,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ReportSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportSyncMessageFromJSON creates a message from JSON bytes.
func ReportSyncMessageFromJSON(data []byte) (*ReportSyncMessage, error) {
	var msg ReportSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
