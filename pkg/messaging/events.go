package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventComparisonSucceeded = "comparison.succeeded"
	EventComparisonFailed    = "comparison.failed"
	EventSessionCleared      = "comparison.session.cleared"
)

// ExchangeComparisonEvents is the default exchange for console events
const ExchangeComparisonEvents = "comparison.events"

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// ComparisonSucceededEvent is published when the backend returns a comparison result
type ComparisonSucceededEvent struct {
	Kind           string   `json:"kind"`
	ReferenceName  string   `json:"reference_name"`
	ProvidedCount  int      `json:"provided_count"`
	EntryCount     int      `json:"entry_count"`
	BestConfidence *float64 `json:"best_confidence,omitempty"`
	BestDecision   string   `json:"best_decision,omitempty"`
	BestFilename   string   `json:"best_filename,omitempty"`
	TotalCost      *float64 `json:"total_cost,omitempty"`
	Operator       string   `json:"operator,omitempty"`
}

// ComparisonFailedEvent is published when a comparison request fails
type ComparisonFailedEvent struct {
	Kind          string `json:"kind"`
	ReferenceName string `json:"reference_name,omitempty"`
	ProvidedCount int    `json:"provided_count"`
	Message       string `json:"message"`
	Operator      string `json:"operator,omitempty"`
}

// SessionClearedEvent is published when an operator resets a comparison session
type SessionClearedEvent struct {
	Kind     string `json:"kind"`
	Operator string `json:"operator,omitempty"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.New().String()
}
