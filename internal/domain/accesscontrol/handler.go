package accesscontrol

import (
	"encoding/json"
	"net/http"
	"strings"

	"caregiver-access/internal/domain/accessrequests"
	"caregiver-access/internal/domain/caregiverlinks"
	"caregiver-access/internal/middleware"
	"caregiver-access/internal/platform/apperrors"

	"github.com/go-chi/chi/v5"
)

type HandlerOptions struct {
	// RequireAuth: sin claims => 401. Si es false, los requests anónimos pasan
	// y solo se valida identidad cuando hay claims.
	RequireAuth bool
}

func RegisterRoutes(r chi.Router, svc *Service, opts HandlerOptions) {
	r.Route("/access", func(ar chi.Router) {
		ar.Post("/requests", createRequestHandler(svc, opts))
		ar.Get("/requests/outgoing/{requesterID}", listOutgoingHandler(svc, opts))
		ar.Get("/pending/{targetID}", listPendingHandler(svc, opts))
		ar.Post("/respond", respondHandler(svc, opts))
		ar.Get("/links/{requesterID}", listLinksHandler(svc, opts))
		ar.Get("/links/target/{targetID}", listLinksForTargetHandler(svc, opts))
		ar.Delete("/revoke", revokeHandler(svc, opts))
		ar.Get("/parent-profile/{targetID}", parentProfileHandler(svc, opts))
		ar.Post("/permission-check", permissionCheckHandler(svc, opts))
	})
}

type createRequestBody struct {
	TargetIdentifier string `json:"target_identifier"`
	TargetName       string `json:"target_name"`
	Relationship     string `json:"relationship"`
	RequesterID      string `json:"requester_id"`
	RequesterName    string `json:"requester_name"`
}

type respondBody struct {
	RequestID   string `json:"request_id"`
	Decision    string `json:"decision"`
	ResponderID string `json:"responder_id"`
	Notes       string `json:"notes,omitempty"`
}

type respondResponse struct {
	requestResponse
	Link *linkResponse `json:"link,omitempty"`
}

type revokeBody struct {
	LinkID      string `json:"link_id"`
	ResponderID string `json:"responder_id"`
}

type revokeResponse struct {
	Success bool `json:"success"`
}

type permissionCheckBody struct {
	RequesterID string `json:"requester_id"`
	TargetID    string `json:"target_id"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
}

type permissionCheckResponse struct {
	HasPermission bool `json:"has_permission"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// createRequestHandler godoc
// @Summary      Create an access request
// @Description  Caregiver asks for delegated access to an elder account, identified by national id.
// @Tags         access
// @Accept       json
// @Produce      json
// @Param        body  body      accesscontrol.createRequestBody  true  "request"
// @Success      201   {object}  accesscontrol.requestResponse
// @Failure      400   {object}  accesscontrol.errorResponse
// @Failure      404   {object}  accesscontrol.errorResponse
// @Router       /access/requests [post]
func createRequestHandler(svc *Service, opts HandlerOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createRequestBody
		if !decodeJSON(w, r, &body) {
			return
		}
		if !checkActor(w, r, body.RequesterID, opts) {
			return
		}

		// el nombre del token gana si el body no lo trae
		if strings.TrimSpace(body.RequesterName) == "" {
			if c, ok := middleware.GetClaims(r.Context()); ok {
				body.RequesterName = c.Name
			}
		}

		req, err := svc.CreateRequest(r.Context(), accessrequests.CreateInput{
			TargetIdentifier: body.TargetIdentifier,
			TargetName:       body.TargetName,
			Relationship:     body.Relationship,
			RequesterID:      body.RequesterID,
			RequesterName:    body.RequesterName,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, requestSnapshot(req))
	}
}

// listPendingHandler godoc
// @Summary      List pending requests addressed to an elder (oldest first)
// @Tags         access
// @Produce      json
// @Param        targetID  path  string  true  "elder id"
// @Success      200  {array}  accesscontrol.requestResponse
// @Router       /access/pending/{targetID} [get]
func listPendingHandler(svc *Service, opts HandlerOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID := chi.URLParam(r, "targetID")
		if !checkActor(w, r, targetID, opts) {
			return
		}

		items, err := svc.ListPending(r.Context(), targetID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRequestResponses(items))
	}
}

// listOutgoingHandler godoc
// @Summary      List requests sent by a caregiver (newest first)
// @Tags         access
// @Produce      json
// @Param        requesterID  path  string  true  "caregiver id"
// @Success      200  {array}  accesscontrol.requestResponse
// @Router       /access/requests/outgoing/{requesterID} [get]
func listOutgoingHandler(svc *Service, opts HandlerOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requesterID := chi.URLParam(r, "requesterID")
		if !checkActor(w, r, requesterID, opts) {
			return
		}

		items, err := svc.ListRequestsByRequester(r.Context(), requesterID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRequestResponses(items))
	}
}

// respondHandler godoc
// @Summary      Approve or reject a pending request
// @Tags         access
// @Accept       json
// @Produce      json
// @Param        body  body      accesscontrol.respondBody  true  "decision"
// @Success      200   {object}  accesscontrol.respondResponse
// @Failure      400   {object}  accesscontrol.errorResponse
// @Failure      403   {object}  accesscontrol.errorResponse
// @Failure      409   {object}  accesscontrol.errorResponse
// @Router       /access/respond [post]
func respondHandler(svc *Service, opts HandlerOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body respondBody
		if !decodeJSON(w, r, &body) {
			return
		}
		if !checkActor(w, r, body.ResponderID, opts) {
			return
		}

		res, err := svc.Respond(r.Context(), accessrequests.RespondInput{
			RequestID:   body.RequestID,
			Decision:    body.Decision,
			ResponderID: body.ResponderID,
			Notes:       body.Notes,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		out := respondResponse{requestResponse: requestSnapshot(res.Request)}
		if res.Link != nil {
			l := linkSnapshot(*res.Link)
			out.Link = &l
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// listLinksHandler godoc
// @Summary      List active links of a caregiver
// @Tags         access
// @Produce      json
// @Param        requesterID  path  string  true  "caregiver id"
// @Success      200  {array}  accesscontrol.linkResponse
// @Router       /access/links/{requesterID} [get]
func listLinksHandler(svc *Service, opts HandlerOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requesterID := chi.URLParam(r, "requesterID")
		if !checkActor(w, r, requesterID, opts) {
			return
		}

		items, err := svc.ListActive(r.Context(), requesterID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toLinkResponses(items))
	}
}

// listLinksForTargetHandler godoc
// @Summary      List caregivers that currently hold access to an elder account
// @Tags         access
// @Produce      json
// @Param        targetID  path  string  true  "elder id"
// @Success      200  {array}  accesscontrol.linkResponse
// @Router       /access/links/target/{targetID} [get]
func listLinksForTargetHandler(svc *Service, opts HandlerOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID := chi.URLParam(r, "targetID")
		if !checkActor(w, r, targetID, opts) {
			return
		}

		items, err := svc.ListLinksForTarget(r.Context(), targetID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toLinkResponses(items))
	}
}

// revokeHandler godoc
// @Summary      Revoke an active link
// @Tags         access
// @Accept       json
// @Produce      json
// @Param        body  body      accesscontrol.revokeBody  true  "link"
// @Success      200   {object}  accesscontrol.revokeResponse
// @Failure      403   {object}  accesscontrol.errorResponse
// @Failure      404   {object}  accesscontrol.errorResponse
// @Failure      409   {object}  accesscontrol.errorResponse
// @Router       /access/revoke [delete]
func revokeHandler(svc *Service, opts HandlerOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body revokeBody
		if !decodeJSON(w, r, &body) {
			return
		}
		if !checkActor(w, r, body.ResponderID, opts) {
			return
		}

		ok, err := svc.Revoke(r.Context(), body.LinkID, body.ResponderID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, revokeResponse{Success: ok})
	}
}

// parentProfileHandler godoc
// @Summary      Elder profile as seen by a linked caregiver
// @Description  Requires basic_info:read on an active link.
// @Tags         access
// @Produce      json
// @Param        targetID      path   string  true  "elder id"
// @Param        requester_id  query  string  true  "caregiver id"
// @Success      200  {object}  accesscontrol.profileResponse
// @Failure      403  {object}  accesscontrol.errorResponse
// @Router       /access/parent-profile/{targetID} [get]
func parentProfileHandler(svc *Service, opts HandlerOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID := chi.URLParam(r, "targetID")
		requesterID := strings.TrimSpace(r.URL.Query().Get("requester_id"))
		if requesterID == "" {
			writeError(w, apperrors.Validationf("requester_id query parameter required"))
			return
		}
		if !checkActor(w, r, requesterID, opts) {
			return
		}

		p, err := svc.ParentProfile(r.Context(), requesterID, targetID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProfileResponse(p))
	}
}

// permissionCheckHandler godoc
// @Summary      Check a delegated permission
// @Description  Pure read used by downstream services before acting on behalf of an elder.
// @Tags         access
// @Accept       json
// @Produce      json
// @Param        body  body      accesscontrol.permissionCheckBody  true  "check"
// @Success      200   {object}  accesscontrol.permissionCheckResponse
// @Router       /access/permission-check [post]
func permissionCheckHandler(svc *Service, opts HandlerOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// consultas servicio-a-servicio: no se exige que el llamador sea una de las partes
		if opts.RequireAuth {
			if _, ok := middleware.GetClaims(r.Context()); !ok {
				writeError(w, errUnauthorized)
				return
			}
		}

		var body permissionCheckBody
		if !decodeJSON(w, r, &body) {
			return
		}

		ok, err := svc.HasPermission(r.Context(), body.RequesterID, body.TargetID, body.Resource, body.Action)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, permissionCheckResponse{HasPermission: ok})
	}
}

// -------------------------
// helpers
// -------------------------

type unauthorizedError struct{}

func (unauthorizedError) Error() string { return "authentication required" }

var errUnauthorized error = unauthorizedError{}

// checkActor exige que la identidad autenticada (si la hay) sea la parte que actúa.
func checkActor(w http.ResponseWriter, r *http.Request, actorID string, opts HandlerOptions) bool {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		if opts.RequireAuth {
			writeError(w, errUnauthorized)
			return false
		}
		return true
	}
	if strings.TrimSpace(actorID) != claims.UserID {
		writeError(w, apperrors.Forbiddenf("authenticated user does not match the acting party"))
		return false
	}
	return true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, apperrors.Validationf("invalid json"))
		return false
	}
	return true
}

func toRequestResponses(items []accessrequests.AccessRequest) []requestResponse {
	out := make([]requestResponse, 0, len(items))
	for _, req := range items {
		out = append(out, requestSnapshot(req))
	}
	return out
}

func toLinkResponses(items []caregiverlinks.CaregiverLink) []linkResponse {
	out := make([]linkResponse, 0, len(items))
	for _, l := range items {
		out = append(out, linkSnapshot(l))
	}
	return out
}

func writeError(w http.ResponseWriter, err error) {
	if err == errUnauthorized {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}
	msg := err.Error()
	if apperrors.Kind(err) == apperrors.KindInternal {
		msg = "internal error"
	}
	writeJSON(w, apperrors.HTTPStatus(err), errorResponse{
		Error:   apperrors.Kind(err),
		Message: msg,
	})
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
