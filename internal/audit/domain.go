// Package audit implements the append-only ledger of sensitive actions.
// Entries are written exactly once when a guarded mutation's outcome is known
// and are never updated or deleted afterwards.
package audit

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Action classifies an audited event.
type Action string

// Recognised actions.
const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionLogin  Action = "LOGIN"
	ActionLogout Action = "LOGOUT"
	ActionExport Action = "EXPORT"
)

// Valid reports whether the action is one of the recognised values.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionLogin, ActionLogout, ActionExport:
		return true
	}
	return false
}

// Entry is one immutable ledger record. ActorID is nil for system-initiated
// events. OldValues and NewValues carry the caller-supplied state snapshots
// verbatim.
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	ActorID    *int64          `json:"actorId"`
	Action     Action          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	OldValues  json.RawMessage `json:"oldValues"`
	NewValues  json.RawMessage `json:"newValues"`
	IPAddress  *string         `json:"ipAddress"`
	UserAgent  *string         `json:"userAgent"`
	Checksum   []byte          `json:"-"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Input is what a calling handler supplies to Record.
type Input struct {
	ActorID    *int64
	Action     Action
	EntityType string
	EntityID   string
	OldValues  json.RawMessage
	NewValues  json.RawMessage
	IPAddress  *string
	UserAgent  *string
}

// Filters narrows a ledger query. Zero values mean "no filter".
type Filters struct {
	Action     Action
	EntityType string
	ActorID    *int64
	From       time.Time
	To         time.Time
}

// CountByKey is one aggregate bucket of the stats breakdown.
type CountByKey struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Stats aggregates the filtered ledger by action and by entity type.
type Stats struct {
	Total    int          `json:"total"`
	ByAction []CountByKey `json:"byAction"`
	ByEntity []CountByKey `json:"byEntity"`
}

// Typed errors on the write and read paths.
var (
	// ErrWriteFailed signals a durability failure: the entry was not persisted
	// within the retry budget. Callers decide their own policy; the mutation
	// the entry describes is never rolled back on its account.
	ErrWriteFailed = errors.New("audit: write failed")
	// ErrInvalidEntry signals a malformed input rejected before any write.
	ErrInvalidEntry = errors.New("audit: invalid entry")
)

// ComputeChecksum derives the tamper-evidence digest of an entry from its
// immutable fields. Stored at write time and re-verified by the background
// ledger check, so every covered field must survive the storage round trip
// byte for byte: snapshots live in TEXT columns and CreatedAt is stamped at
// the microsecond precision timestamptz retains.
func ComputeChecksum(e Entry) []byte {
	h, _ := blake2b.New256(nil)
	h.Write(e.ID[:])
	if e.ActorID != nil {
		var buf [8]byte
		v := uint64(*e.ActorID)
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		h.Write(buf[:])
	}
	h.Write([]byte(e.Action))
	h.Write([]byte{0})
	h.Write([]byte(e.EntityType))
	h.Write([]byte{0})
	h.Write([]byte(e.EntityID))
	h.Write([]byte{0})
	h.Write(e.OldValues)
	h.Write([]byte{0})
	h.Write(e.NewValues)
	h.Write([]byte{0})
	h.Write([]byte(e.CreatedAt.UTC().Format(time.RFC3339Nano)))
	return h.Sum(nil)
}
