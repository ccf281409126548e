package caregiverlinks

import (
	"time"

	"caregiver-access/internal/domain/accessrequests"
)

type Action string

const (
	ActionRead    Action = "read"
	ActionWrite   Action = "write"
	ActionApprove Action = "approve"
	ActionManage  Action = "manage"
)

func (a Action) Valid() bool {
	switch a {
	case ActionRead, ActionWrite, ActionApprove, ActionManage:
		return true
	default:
		return false
	}
}

const (
	ResourceBasicInfo      = "basic_info"
	ResourceAppointments   = "appointments"
	ResourceTransport      = "transport"
	ResourceMedicalRecords = "medical_records"
	ResourceNotifications  = "notifications"
)

type Permission struct {
	Resource  string
	Action    Action
	IsGranted bool
}

// DefaultPermissions es la política fija que se concede al aprobar.
func DefaultPermissions() []Permission {
	return []Permission{
		{Resource: ResourceBasicInfo, Action: ActionRead, IsGranted: true},
		{Resource: ResourceAppointments, Action: ActionManage, IsGranted: true},
		{Resource: ResourceTransport, Action: ActionApprove, IsGranted: true},
		{Resource: ResourceMedicalRecords, Action: ActionRead, IsGranted: true},
		{Resource: ResourceNotifications, Action: ActionRead, IsGranted: true},
	}
}

type CaregiverLink struct {
	ID        string
	RequestID string

	RequesterID   string
	RequesterName string

	TargetID         string
	TargetName       string
	TargetIdentifier string

	Relationship accessrequests.Relationship
	Permissions  []Permission

	IsActive bool

	LinkedAt       time.Time
	LastAccessedAt *time.Time
	RevokedAt      *time.Time
	RevokedBy      string
}

// Grants devuelve el isGranted del par (resource, action); false si no existe.
func (l CaregiverLink) Grants(resource string, action Action) bool {
	for _, p := range l.Permissions {
		if p.Resource == resource && p.Action == action {
			return p.IsGranted
		}
	}
	return false
}

// HasAnyGrant sirve a los consumidores que solo muestran vínculos con algún permiso.
func (l CaregiverLink) HasAnyGrant() bool {
	for _, p := range l.Permissions {
		if p.IsGranted {
			return true
		}
	}
	return false
}
