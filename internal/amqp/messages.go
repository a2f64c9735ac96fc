package amqp

import (
	"encoding/json"
	"time"

	"lanchonete/internal/services"

	"github.com/google/uuid"
)

// ReportMessage carries one generated dashboard report.
type ReportMessage struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Report    services.Report `json:"report"`
}

// NewReportMessage wraps report with a fresh message ID.
func NewReportMessage(report services.Report) *ReportMessage {
	return &ReportMessage{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Report:    report,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportMessageFromJSON creates a message from JSON bytes
func ReportMessageFromJSON(data []byte) (*ReportMessage, error) {
	var msg ReportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
