package caregiverlinks

import (
	"context"
	"errors"
	"strings"

	"caregiver-access/internal/platform/apperrors"
)

// Evaluator responde si un cuidador puede hacer action sobre resource del titular.
// Solo lectura: no audita ni toca el vínculo.
type Evaluator struct {
	links Reader
}

func NewEvaluator(links Reader) *Evaluator {
	return &Evaluator{links: links}
}

// HasPermission es default-deny: sin vínculo activo o sin entrada (resource, action)
// devuelve false. Los errores del store se propagan, no se convierten en false.
func (e *Evaluator) HasPermission(ctx context.Context, requesterID, targetID, resource, action string) (bool, error) {
	resource = strings.TrimSpace(resource)
	act := Action(strings.ToLower(strings.TrimSpace(action)))
	if resource == "" || act == "" {
		return false, apperrors.Validationf("resource and action required")
	}

	l, ok, err := e.ActiveLink(ctx, requesterID, targetID)
	if err != nil || !ok {
		return false, err
	}
	return l.Grants(resource, act), nil
}

// ActiveLink devuelve el vínculo activo del par; ok=false si no hay.
func (e *Evaluator) ActiveLink(ctx context.Context, requesterID, targetID string) (CaregiverLink, bool, error) {
	requesterID = strings.TrimSpace(requesterID)
	targetID = strings.TrimSpace(targetID)
	if requesterID == "" || targetID == "" {
		return CaregiverLink{}, false, apperrors.Validationf("requester id and target id required")
	}

	l, err := e.links.GetActive(ctx, requesterID, targetID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return CaregiverLink{}, false, nil
	}
	if err != nil {
		return CaregiverLink{}, false, err
	}
	if !l.IsActive {
		return CaregiverLink{}, false, nil
	}
	return l, true, nil
}
