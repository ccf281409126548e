package auditlog

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"caregiver-access/internal/platform/apperrors"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

const appendRetries = 3

// Log agrega entradas encadenadas por digest y las deja en pending hasta que
// el Confirmer las confirma.
type Log struct {
	repo Repository

	mu    sync.Mutex
	queue chan Entry

	now   func() time.Time
	newID func() string
}

type Option func(*Log)

func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(l *Log) {
		if gen != nil {
			l.newID = gen
		}
	}
}

func WithQueueSize(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.queue = make(chan Entry, n)
		}
	}
}

func NewLog(repo Repository, opts ...Option) *Log {
	l := &Log{
		repo:  repo,
		queue: make(chan Entry, 256),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append registra la entrada y devuelve su id de transacción. No espera la confirmación.
func (l *Log) Append(ctx context.Context, rec Record) (Entry, error) {
	if !rec.Action.Valid() {
		return Entry{}, apperrors.Validationf("unknown audit action %q", rec.Action)
	}
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return Entry{}, apperrors.Validationf("audit payload: %v", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var e Entry
	for attempt := 0; attempt < appendRetries; attempt++ {
		e, err = l.appendLocked(ctx, rec, payload)
		// Conflicto de secuencia: otra instancia escribió primero, releemos la cola.
		if errors.Is(err, apperrors.ErrConflict) {
			continue
		}
		break
	}
	if err != nil {
		return Entry{}, err
	}

	select {
	case l.queue <- e:
	default:
		// cola llena: el barrido periódico del Confirmer la levanta igual
	}
	return e, nil
}

func (l *Log) appendLocked(ctx context.Context, rec Record, payload []byte) (Entry, error) {
	last, ok, err := l.repo.Last(ctx)
	if err != nil {
		return Entry{}, err
	}

	e := Entry{
		ID:        l.newID(),
		Sequence:  1,
		Action:    rec.Action,
		ActorID:   strings.TrimSpace(rec.ActorID),
		SubjectID: strings.TrimSpace(rec.SubjectID),
		Payload:   payload,
		// microsegundos: es la precisión de timestamptz
		Timestamp: l.now().UTC().Truncate(time.Microsecond),
		Status:    StatusPending,
	}
	if ok {
		e.Sequence = last.Sequence + 1
		e.PrevDigest = last.Digest
	}
	e.Digest = Digest(e)

	if err := l.repo.Append(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (l *Log) List(ctx context.Context, f Filter) ([]Entry, error) {
	if f.Action != "" && !f.Action.Valid() {
		return nil, apperrors.Validationf("unknown audit action %q", f.Action)
	}
	if f.Limit < 0 {
		return nil, apperrors.Validationf("limit must be >= 0")
	}
	return l.repo.List(ctx, f)
}

// Pending expone la cola al Confirmer.
func (l *Log) Pending() <-chan Entry { return l.queue }

type VerifyResult struct {
	Entries  int   `json:"entries"`
	Valid    bool  `json:"valid"`
	BrokenAt int64 `json:"broken_at,omitempty"`
}

// VerifyChain recorre el log completo y recalcula cada digest.
func (l *Log) VerifyChain(ctx context.Context) (VerifyResult, error) {
	entries, err := l.repo.List(ctx, Filter{})
	if err != nil {
		return VerifyResult{}, err
	}

	res := VerifyResult{Entries: len(entries), Valid: true}
	prev := ""
	for i, e := range entries {
		if e.Sequence != int64(i+1) || e.PrevDigest != prev || Digest(e) != e.Digest {
			res.Valid = false
			res.BrokenAt = e.Sequence
			return res, nil
		}
		prev = e.Digest
	}
	return res, nil
}

type canonicalEntry struct {
	ID        string          `json:"id"`
	Sequence  int64           `json:"seq"`
	Action    Action          `json:"action"`
	ActorID   string          `json:"actor_id"`
	SubjectID string          `json:"subject_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp string          `json:"ts"`
}

// Digest = BLAKE3(prevDigest || json canónico de la entrada), en hex.
// El estado no entra en el digest: confirmar no cambia la cadena.
func Digest(e Entry) string {
	payload := e.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	b, err := json.Marshal(canonicalEntry{
		ID:        e.ID,
		Sequence:  e.Sequence,
		Action:    e.Action,
		ActorID:   e.ActorID,
		SubjectID: e.SubjectID,
		Payload:   payload,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		// payload inválido: igual producimos un digest que no va a verificar
		b = []byte(e.ID)
	}

	h := blake3.New()
	_, _ = h.Write([]byte(e.PrevDigest))
	_, _ = h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}
