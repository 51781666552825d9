package events

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/mortgage-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventApplicationCreated EventType = "application_created"
	EventStatusChanged      EventType = "application_status_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type       domain.SubjectType `json:"type"`
	BorrowerID *string            `json:"borrower_id,omitempty"`
	OfficerID  *string            `json:"officer_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID            string      `json:"id"`
	Type          EventType   `json:"type"`
	ApplicationID string      `json:"application_id"`
	BorrowerID    string      `json:"borrower_id"`
	Actor         Actor       `json:"actor"`
	Timestamp     time.Time   `json:"timestamp"`
	Payload       interface{} `json:"payload"`
}

// ApplicationCreatedPayload payload.
type ApplicationCreatedPayload struct {
	LoanAmount float64         `json:"loan_amount"`
	LoanType   domain.LoanType `json:"loan_type"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	PreviousStatus domain.ApplicationStatus `json:"previous_status"`
	NewStatus      domain.ApplicationStatus `json:"new_status"`
	Notes          string                   `json:"notes,omitempty"`
}

// wireEvent mirrors Event with an undecoded payload for consumers.
type wireEvent struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	ApplicationID string          `json:"application_id"`
	BorrowerID    string          `json:"borrower_id"`
	Actor         Actor           `json:"actor"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// DecodeStatusChanged parses the wire form of a status-changed event as
// delivered through the queue.
func DecodeStatusChanged(data []byte) (Event, StatusChangedPayload, error) {
	var wire wireEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		return Event{}, StatusChangedPayload{}, err
	}
	var payload StatusChangedPayload
	if len(wire.Payload) > 0 {
		if err := json.Unmarshal(wire.Payload, &payload); err != nil {
			return Event{}, StatusChangedPayload{}, err
		}
	}
	event := Event{
		ID:            wire.ID,
		Type:          wire.Type,
		ApplicationID: wire.ApplicationID,
		BorrowerID:    wire.BorrowerID,
		Actor:         wire.Actor,
		Timestamp:     wire.Timestamp,
		Payload:       payload,
	}
	return event, payload, nil
}
