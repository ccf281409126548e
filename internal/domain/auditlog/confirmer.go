package auditlog

import (
	"context"
	"errors"
	"time"

	"caregiver-access/internal/platform/apperrors"
	"caregiver-access/internal/platform/logger"
	"caregiver-access/internal/platform/metrics"
)

// Sink publica una entrada fuera del proceso (p.ej. Kafka). Si publica sin error
// la entrada pasa a confirmed.
type Sink interface {
	Publish(ctx context.Context, e Entry) error
}

type ConfirmerConfig struct {
	SweepInterval time.Duration
	MaxAttempts   int
	// SweepBatch limita cuántas pendientes se levantan por barrido.
	SweepBatch int
}

// Confirmer pasa entradas de pending a confirmed (o failed tras MaxAttempts).
// Consume la cola del Log y además barre periódicamente el repo, así que las
// entradas que quedaron pending tras un reinicio también se confirman.
type Confirmer struct {
	log     *Log
	sink    Sink
	logger  logger.Logger
	metrics *metrics.Metrics
	cfg     ConfirmerConfig

	attempts map[string]int
}

func NewConfirmer(l *Log, sink Sink, lg logger.Logger, m *metrics.Metrics, cfg ConfirmerConfig) *Confirmer {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = 100
	}
	if lg == nil {
		lg = logger.NewNop()
	}
	return &Confirmer{
		log:      l,
		sink:     sink,
		logger:   lg.With(map[string]any{"component": "audit_confirmer"}),
		metrics:  m,
		cfg:      cfg,
		attempts: map[string]int{},
	}
}

// Run bloquea hasta que ctx se cancela.
func (c *Confirmer) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	c.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-c.log.Pending():
			c.confirm(ctx, e)
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep confirma lo que haya quedado pending en el repo.
func (c *Confirmer) Sweep(ctx context.Context) {
	pending, err := c.log.repo.ListByStatus(ctx, StatusPending, c.cfg.SweepBatch)
	if err != nil {
		c.logger.Warn("audit sweep failed", map[string]any{"error": err})
		return
	}
	for _, e := range pending {
		if ctx.Err() != nil {
			return
		}
		c.confirm(ctx, e)
	}
}

func (c *Confirmer) confirm(ctx context.Context, e Entry) {
	if c.sink != nil {
		if err := c.sink.Publish(ctx, e); err != nil {
			c.attempts[e.ID]++
			n := c.attempts[e.ID]
			c.logger.Warn("audit publish failed", map[string]any{
				"entry_id": e.ID,
				"attempt":  n,
				"error":    err,
			})
			if n < c.cfg.MaxAttempts {
				return
			}
			c.setStatus(ctx, e, StatusFailed)
			return
		}
	}
	c.setStatus(ctx, e, StatusConfirmed)
}

func (c *Confirmer) setStatus(ctx context.Context, e Entry, status Status) {
	err := c.log.repo.SetStatus(ctx, e.ID, status)
	switch {
	case err == nil:
		delete(c.attempts, e.ID)
		c.metrics.IncAuditStatus(string(status))
		c.logger.Debug("audit entry "+string(status), map[string]any{"entry_id": e.ID, "seq": e.Sequence})
	case errors.Is(err, apperrors.ErrConflict):
		// ya la confirmó otro (cola + barrido, u otra instancia)
		delete(c.attempts, e.ID)
	default:
		c.logger.Error("audit status update failed", map[string]any{"entry_id": e.ID, "error": err})
	}
}
