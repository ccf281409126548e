package auditlog

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"caregiver-access/internal/platform/apperrors"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, l *Log) {
	r.Route("/audit", func(ar chi.Router) {
		ar.Get("/", listAuditHandler(l))
		ar.Get("/verify", verifyAuditHandler(l))
	})
}

type entryResponse struct {
	ID         string          `json:"id"`
	Sequence   int64           `json:"seq"`
	Action     Action          `json:"action"`
	ActorID    string          `json:"actor_id,omitempty"`
	SubjectID  string          `json:"subject_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	Timestamp  time.Time       `json:"timestamp"`
	Status     Status          `json:"status"`
	PrevDigest string          `json:"prev_digest,omitempty"`
	Digest     string          `json:"digest"`
}

// listAuditHandler godoc
// @Summary      List audit entries
// @Tags         audit
// @Produce      json
// @Param        action      query  string  false  "request_created|request_responded|access_granted|access_revoked"
// @Param        subject_id  query  string  false  "request or link id"
// @Param        actor_id    query  string  false  "acting user"
// @Param        limit       query  int     false  "max entries"
// @Success      200  {array}  auditlog.entryResponse
// @Router       /audit [get]
func listAuditHandler(l *Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		f := Filter{
			Action:    Action(strings.TrimSpace(q.Get("action"))),
			SubjectID: strings.TrimSpace(q.Get("subject_id")),
			ActorID:   strings.TrimSpace(q.Get("actor_id")),
		}
		if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, apperrors.Validationf("limit must be a number"))
				return
			}
			f.Limit = n
		}

		items, err := l.List(r.Context(), f)
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]entryResponse, 0, len(items))
		for _, e := range items {
			out = append(out, toEntryResponse(e))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// verifyAuditHandler godoc
// @Summary      Verify the audit hash chain
// @Tags         audit
// @Produce      json
// @Success      200  {object}  auditlog.VerifyResult
// @Router       /audit/verify [get]
func verifyAuditHandler(l *Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := l.VerifyChain(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func toEntryResponse(e Entry) entryResponse {
	return entryResponse{
		ID:         e.ID,
		Sequence:   e.Sequence,
		Action:     e.Action,
		ActorID:    e.ActorID,
		SubjectID:  e.SubjectID,
		Payload:    e.Payload,
		Timestamp:  e.Timestamp,
		Status:     e.Status,
		PrevDigest: e.PrevDigest,
		Digest:     e.Digest,
	}
}

func writeError(w http.ResponseWriter, err error) {
	msg := err.Error()
	if apperrors.Kind(err) == apperrors.KindInternal {
		msg = "internal error"
	}
	writeJSON(w, apperrors.HTTPStatus(err), map[string]string{
		"error":   apperrors.Kind(err),
		"message": msg,
	})
}

// writeJSON duplicado a propósito, igual que en los otros módulos.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
