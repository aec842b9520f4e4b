package notifier

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	ledger "travelcred/internal/ledger/models"
	"travelcred/pkg/domain"
)

// Type names a committed registry state change.
type Type string

const (
	PassportApplied Type = "PassportApplied"
	PassportIssued  Type = "PassportIssued"
	PassportRevoked Type = "PassportRevoked"
	VisaApplied     Type = "VisaApplied"
	VisaApproved    Type = "VisaApproved"
	VisaRejected    Type = "VisaRejected"
	VisaRevoked     Type = "VisaRevoked"
	OfficerAdded    Type = "OfficerAdded"
	OfficerRemoved  Type = "OfficerRemoved"
)

// Event is published once per committed mutation. Seq matches the
// transition log so consumers that fall behind can backfill from it.
type Event struct {
	Seq       uint64          `json:"seq"`
	EventID   uuid.UUID       `json:"event_id"`
	Type      Type            `json:"event_type"`
	EntityID  uint64          `json:"entity_id"`
	Actor     domain.Identity `json:"actor"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// FromEntry builds the event for a sealed transition. The payload is the
// operation arguments plus the resulting status.
func FromEntry(t Type, e ledger.Entry) Event {
	payload := map[string]any{}
	_ = json.Unmarshal(e.Arguments, &payload)
	payload["status"] = e.ResultingStatus
	raw, _ := json.Marshal(payload)

	return Event{
		Seq:       e.Seq,
		EventID:   e.EventID,
		Type:      t,
		EntityID:  e.EntityID,
		Actor:     e.Actor,
		Timestamp: e.OccurredAt,
		Payload:   raw,
	}
}

// Key groups events of one entity for partitioned sinks.
func (e Event) Key() string {
	switch e.Type {
	case PassportApplied, PassportIssued, PassportRevoked:
		return "passport/" + strconv.FormatUint(e.EntityID, 10)
	case VisaApplied, VisaApproved, VisaRejected, VisaRevoked:
		return "visa/" + strconv.FormatUint(e.EntityID, 10)
	default:
		return "officers"
	}
}

