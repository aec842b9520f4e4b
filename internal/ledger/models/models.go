// Package models defines the append-only transition log entries.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"travelcred/pkg/domain"
)

// Source names the component whose state a transition changed.
type Source string

const (
	SourcePassport Source = "passport"
	SourceVisa     Source = "visa"
	SourceOfficers Source = "officers"
)

// Operation is the registry operation that produced a transition.
type Operation string

const (
	OpApplyForPassport Operation = "ApplyForPassport"
	OpIssuePassport    Operation = "IssuePassport"
	OpRevokePassport   Operation = "RevokePassport"
	OpApplyForVisa     Operation = "ApplyForVisa"
	OpApproveVisa      Operation = "ApproveVisa"
	OpRejectVisa       Operation = "RejectVisa"
	OpRevokeVisa       Operation = "RevokeVisa"
	OpAddOfficer       Operation = "AddOfficer"
	OpRemoveOfficer    Operation = "RemoveOfficer"
)

// HashSize is the length of a Keccak-256 digest.
const HashSize = 32

// Draft is what a registry supplies for a new transition. The recorder
// fills in identifiers, request metadata and the timestamp.
type Draft struct {
	Source          Source
	EntityID        uint64
	Operation       Operation
	Arguments       map[string]any
	ResultingStatus string
	Actor           domain.Identity
}

// Entry is one committed transition. Entries are never updated or deleted;
// Hash chains each entry to its predecessor.
type Entry struct {
	Seq             uint64          `json:"seq"`
	EventID         uuid.UUID       `json:"event_id"`
	Source          Source          `json:"source"`
	EntityID        uint64          `json:"entity_id"`
	Operation       Operation       `json:"operation"`
	Arguments       json.RawMessage `json:"arguments"`
	ResultingStatus string          `json:"resulting_status"`
	Actor           domain.Identity `json:"actor"`
	Client          string          `json:"client,omitempty"`
	RequestID       string          `json:"request_id,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
	PrevHash        []byte          `json:"prev_hash"`
	Hash            []byte          `json:"hash"`
}
