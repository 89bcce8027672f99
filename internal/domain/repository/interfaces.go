package repository

import (
	"context"

	"DiffPlot/internal/domain/models"
)

// SliceLoader reads one field of one day of one archive from the file store.
type SliceLoader interface {
	Load(ctx context.Context, key models.SliceKey) (models.FieldSlice, error)
	// ModTime returns the backing file's modification time in UnixNano, or
	// models.AbsentModTime when no file exists for the key.
	ModTime(key models.SliceKey) int64
}

// SliceSource serves slices, possibly from a cache.
type SliceSource interface {
	GetOrLoad(ctx context.Context, key models.SliceKey) (models.FieldSlice, error)
}

// AuditSink receives one event per served plot request.
type AuditSink interface {
	Record(ctx context.Context, ev *models.AuditEvent) error
	Close() error
}

type Metrics interface {
	RecordCacheHit(source string)
	RecordCacheMiss(source, reason string)
	RecordLoad(source, result string, seconds float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordPoints(op string, n int)
}
