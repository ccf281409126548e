package accessrequests

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	// StatusRevoked existe en el contrato, pero el registro nunca lo escribe:
	// la revocación afecta al vínculo, no a la solicitud.
	StatusRevoked Status = "revoked"
)

type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

type Relationship string

const (
	RelationshipSon        Relationship = "Son"
	RelationshipDaughter   Relationship = "Daughter"
	RelationshipSpouse     Relationship = "Spouse"
	RelationshipSibling    Relationship = "Sibling"
	RelationshipGrandchild Relationship = "Grandchild"
	RelationshipGuardian   Relationship = "Guardian"
	RelationshipOther      Relationship = "Other"
)

type AccessRequest struct {
	ID string

	RequesterID   string // cuidador
	RequesterName string

	TargetID         string // adulto mayor (titular)
	TargetName       string
	TargetIdentifier string

	Relationship Relationship
	Status       Status

	RequestedAt time.Time

	// Se completan una sola vez, al salir de pending.
	RespondedAt *time.Time
	RespondedBy string
	Notes       string
}

func (r AccessRequest) IsPending() bool { return r.Status == StatusPending }
