package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReportRequestMessage asks a worker to generate a report. Dates are
// YYYY-MM-DD strings and only used for CUSTOM requests.
type ReportRequestMessage struct {
	RequestID string    `json:"request_id"`
	UserID    int64     `json:"user_id"`
	Type      string    `json:"type"`
	Year      int       `json:"year,omitempty"`
	Month     int       `json:"month,omitempty"`
	StartDate string    `json:"start_date,omitempty"`
	EndDate   string    `json:"end_date,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ReportGeneratedMessage announces a stored report.
type ReportGeneratedMessage struct {
	RequestID string    `json:"request_id"`
	ReportID  string    `json:"report_id"`
	UserID    int64     `json:"user_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	ExportRef string    `json:"export_ref,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReportRequestMessage creates a request with a fresh request id
func NewReportRequestMessage(userID int64, kind string, year, month int, start, end string) *ReportRequestMessage {
	return &ReportRequestMessage{
		RequestID: uuid.NewString(),
		UserID:    userID,
		Type:      kind,
		Year:      year,
		Month:     month,
		StartDate: start,
		EndDate:   end,
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks the fields every request needs
func (m *ReportRequestMessage) Validate() error {
	var errs []error
	if m.RequestID == "" {
		errs = append(errs, errors.New("request_id is required"))
	}
	if m.UserID <= 0 {
		errs = append(errs, fmt.Errorf("invalid user_id %d", m.UserID))
	}
	if m.Type == "" {
		errs = append(errs, errors.New("type is required"))
	}
	return errors.Join(errs...)
}

// ToJSON converts the message to JSON bytes
func (m *ReportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportRequestMessageFromJSON decodes and validates a request
func ReportRequestMessageFromJSON(data []byte) (*ReportRequestMessage, error) {
	var msg ReportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ToJSON converts the message to JSON bytes
func (m *ReportGeneratedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportGeneratedMessageFromJSON creates a message from JSON bytes
func ReportGeneratedMessageFromJSON(data []byte) (*ReportGeneratedMessage, error) {
	var msg ReportGeneratedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
