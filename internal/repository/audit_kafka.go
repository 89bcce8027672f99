package repository

import (
	"context"
	"fmt"

	"DiffPlot/internal/domain/models"
	domrepo "DiffPlot/internal/domain/repository"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, key []byte, value interface{}) error
	Close() error
}

// KafkaAuditSink publishes audit events as JSON keyed by symbol, so events
// for one symbol stay ordered within a partition.
type KafkaAuditSink struct {
	pub Publisher
}

var _ domrepo.AuditSink = (*KafkaAuditSink)(nil)

func NewKafkaAuditSink(pub Publisher) *KafkaAuditSink {
	return &KafkaAuditSink{pub: pub}
}

func (s *KafkaAuditSink) Record(ctx context.Context, ev *models.AuditEvent) error {
	if err := s.pub.Publish(ctx, []byte(ev.Symbol), ev); err != nil {
		return fmt.Errorf("audit kafka: %w", err)
	}
	return nil
}

func (s *KafkaAuditSink) Close() error { return s.pub.Close() }
