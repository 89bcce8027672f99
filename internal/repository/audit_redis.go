package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"DiffPlot/internal/domain/models"
	domrepo "DiffPlot/internal/domain/repository"
)

// RedisAuditSink pushes audit events onto a capped Redis list, newest first.
type RedisAuditSink struct {
	client *redis.Client
	key    string
	maxLen int64
}

var _ domrepo.AuditSink = (*RedisAuditSink)(nil)

// NewRedisAuditSink uses client without owning it; the caller closes it.
func NewRedisAuditSink(client *redis.Client, key string, maxLen int64) *RedisAuditSink {
	return &RedisAuditSink{client: client, key: key, maxLen: maxLen}
}

func (s *RedisAuditSink) Record(ctx context.Context, ev *models.AuditEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, b)
	if s.maxLen > 0 {
		pipe.LTrim(ctx, s.key, 0, s.maxLen-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("audit redis: %w", err)
	}
	return nil
}

func (s *RedisAuditSink) Close() error { return nil }
