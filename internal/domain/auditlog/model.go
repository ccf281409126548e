package auditlog

import (
	"encoding/json"
	"time"
)

type Action string

const (
	ActionRequestCreated   Action = "request_created"
	ActionRequestResponded Action = "request_responded"
	ActionAccessGranted    Action = "access_granted"
	ActionAccessRevoked    Action = "access_revoked"
)

func (a Action) Valid() bool {
	switch a {
	case ActionRequestCreated, ActionRequestResponded, ActionAccessGranted, ActionAccessRevoked:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	// StatusFailed: se agotaron los intentos de confirmación.
	StatusFailed Status = "failed"
)

type Entry struct {
	ID       string // id de transacción opaco
	Sequence int64

	Action    Action
	ActorID   string
	SubjectID string // id de solicitud o vínculo

	// Payload es el snapshot JSON compacto; se guarda tal cual para no romper el digest.
	Payload json.RawMessage

	Timestamp time.Time
	Status    Status

	PrevDigest string
	Digest     string
}

// Record es lo que aporta quien audita; el log completa el resto.
type Record struct {
	Action    Action
	ActorID   string
	SubjectID string
	Payload   any
}

type Filter struct {
	Action    Action
	SubjectID string
	ActorID   string
	// Limit 0 = sin límite.
	Limit int
}
