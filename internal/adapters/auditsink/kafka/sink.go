// Package kafka reenvía las entradas de auditoría a un tópico. El Confirmer
// marca la entrada como confirmed cuando ProduceSync vuelve sin error.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"caregiver-access/internal/domain/auditlog"
	"caregiver-access/internal/platform/apperrors"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

type Config struct {
	Brokers []string
	Topic   string
	// Partitions/ReplicationFactor solo se usan si EnsureTopic crea el tópico.
	Partitions        int32
	ReplicationFactor int16
}

type Sink struct {
	client *kgo.Client
	topic  string
	cfg    Config
}

func New(cfg Config) (*Sink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka sink: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka sink: topic is required")
	}
	if cfg.Partitions <= 0 {
		cfg.Partitions = 3
	}
	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = 1
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka sink: %w", err)
	}
	return &Sink{client: client, topic: cfg.Topic, cfg: cfg}, nil
}

// EnsureTopic crea el tópico si no existe.
func (s *Sink) EnsureTopic(ctx context.Context) error {
	adm := kadm.NewClient(s.client)
	resp, err := adm.CreateTopics(ctx, s.cfg.Partitions, s.cfg.ReplicationFactor, nil, s.topic)
	if err != nil {
		return apperrors.Unavailable(err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("kafka sink: create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

func (s *Sink) Publish(ctx context.Context, e auditlog.Entry) error {
	rec, err := toRecord(e)
	if err != nil {
		return err
	}
	if err := s.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return apperrors.Unavailable(err)
	}
	return nil
}

func (s *Sink) Close() {
	s.client.Close()
}

type message struct {
	ID         string          `json:"id"`
	Sequence   int64           `json:"seq"`
	Action     string          `json:"action"`
	ActorID    string          `json:"actor_id"`
	SubjectID  string          `json:"subject_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Timestamp  time.Time       `json:"ts"`
	PrevDigest string          `json:"prev_digest"`
	Digest     string          `json:"digest"`
}

// toRecord usa SubjectID como clave: los eventos de una misma solicitud o
// vínculo caen en la misma partición y conservan el orden.
func toRecord(e auditlog.Entry) (*kgo.Record, error) {
	value, err := json.Marshal(message{
		ID:         e.ID,
		Sequence:   e.Sequence,
		Action:     string(e.Action),
		ActorID:    e.ActorID,
		SubjectID:  e.SubjectID,
		Payload:    e.Payload,
		Timestamp:  e.Timestamp.UTC(),
		PrevDigest: e.PrevDigest,
		Digest:     e.Digest,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka sink: encode entry %s: %w", e.ID, err)
	}

	return &kgo.Record{
		Key:   []byte(e.SubjectID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(e.Action)},
			{Key: "entry_id", Value: []byte(e.ID)},
		},
		Timestamp: e.Timestamp,
	}, nil
}

var _ auditlog.Sink = (*Sink)(nil)
