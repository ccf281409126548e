package accesscontrol

import (
	"time"

	"caregiver-access/internal/domain/accessrequests"
	"caregiver-access/internal/domain/caregiverlinks"
	"caregiver-access/internal/domain/elders"
)

// Las mismas formas sirven de respuesta HTTP y de snapshot en la auditoría.

type requestResponse struct {
	ID               string                      `json:"id"`
	RequesterID      string                      `json:"requester_id"`
	RequesterName    string                      `json:"requester_name"`
	TargetID         string                      `json:"target_id"`
	TargetName       string                      `json:"target_name"`
	TargetIdentifier string                      `json:"target_identifier"`
	Relationship     accessrequests.Relationship `json:"relationship"`
	Status           accessrequests.Status       `json:"status"`
	RequestedAt      time.Time                   `json:"requested_at"`
	RespondedAt      *time.Time                  `json:"responded_at,omitempty"`
	RespondedBy      string                      `json:"responded_by,omitempty"`
	Notes            string                      `json:"notes,omitempty"`
}

type permissionResponse struct {
	Resource  string                `json:"resource"`
	Action    caregiverlinks.Action `json:"action"`
	IsGranted bool                  `json:"is_granted"`
}

type linkResponse struct {
	ID               string                      `json:"id"`
	RequestID        string                      `json:"request_id"`
	RequesterID      string                      `json:"requester_id"`
	RequesterName    string                      `json:"requester_name"`
	TargetID         string                      `json:"target_id"`
	TargetName       string                      `json:"target_name"`
	TargetIdentifier string                      `json:"target_identifier"`
	Relationship     accessrequests.Relationship `json:"relationship"`
	Permissions      []permissionResponse        `json:"permissions"`
	IsActive         bool                        `json:"is_active"`
	LinkedAt         time.Time                   `json:"linked_at"`
	LastAccessedAt   *time.Time                  `json:"last_accessed_at,omitempty"`
	RevokedAt        *time.Time                  `json:"revoked_at,omitempty"`
	RevokedBy        string                      `json:"revoked_by,omitempty"`
}

type profileResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Identifier        string     `json:"identifier"`
	DateOfBirth       *time.Time `json:"date_of_birth,omitempty"`
	Age               int        `json:"age,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	Address           string     `json:"address,omitempty"`
	EmergencyContact  string     `json:"emergency_contact,omitempty"`
	PreferredLanguage string     `json:"preferred_language,omitempty"`
}

func requestSnapshot(r accessrequests.AccessRequest) requestResponse {
	return requestResponse{
		ID:               r.ID,
		RequesterID:      r.RequesterID,
		RequesterName:    r.RequesterName,
		TargetID:         r.TargetID,
		TargetName:       r.TargetName,
		TargetIdentifier: r.TargetIdentifier,
		Relationship:     r.Relationship,
		Status:           r.Status,
		RequestedAt:      r.RequestedAt,
		RespondedAt:      r.RespondedAt,
		RespondedBy:      r.RespondedBy,
		Notes:            r.Notes,
	}
}

func linkSnapshot(l caregiverlinks.CaregiverLink) linkResponse {
	perms := make([]permissionResponse, 0, len(l.Permissions))
	for _, p := range l.Permissions {
		perms = append(perms, permissionResponse{Resource: p.Resource, Action: p.Action, IsGranted: p.IsGranted})
	}
	return linkResponse{
		ID:               l.ID,
		RequestID:        l.RequestID,
		RequesterID:      l.RequesterID,
		RequesterName:    l.RequesterName,
		TargetID:         l.TargetID,
		TargetName:       l.TargetName,
		TargetIdentifier: l.TargetIdentifier,
		Relationship:     l.Relationship,
		Permissions:      perms,
		IsActive:         l.IsActive,
		LinkedAt:         l.LinkedAt,
		LastAccessedAt:   l.LastAccessedAt,
		RevokedAt:        l.RevokedAt,
		RevokedBy:        l.RevokedBy,
	}
}

func toProfileResponse(p elders.Profile) profileResponse {
	return profileResponse{
		ID:                p.ID,
		Name:              p.Name,
		Identifier:        p.MaskedIdentifier,
		DateOfBirth:       p.DateOfBirth,
		Age:               p.Age,
		Phone:             p.Phone,
		Address:           p.Address,
		EmergencyContact:  p.EmergencyContact,
		PreferredLanguage: p.PreferredLanguage,
	}
}
