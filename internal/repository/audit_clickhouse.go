package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"DiffPlot/internal/domain/models"
	domrepo "DiffPlot/internal/domain/repository"
	pkgch "DiffPlot/pkg/clickhouse"
)

// Execer is satisfied by *sql.DB.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// CHAuditSink appends audit events to a ClickHouse MergeTree table.
type CHAuditSink struct {
	db     Execer
	table  string
	closer func() error
}

var _ domrepo.AuditSink = (*CHAuditSink)(nil)

// NewCHAuditSink writes to table through the client's pool.
func NewCHAuditSink(ch *pkgch.Client, table string) (*CHAuditSink, error) {
	s, err := NewCHAuditSinkWithExecer(ch.DB(), table)
	if err != nil {
		return nil, err
	}
	s.closer = ch.Close
	return s, nil
}

func NewCHAuditSinkWithExecer(db Execer, table string) (*CHAuditSink, error) {
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("audit clickhouse: invalid table name %q", table)
	}
	return &CHAuditSink{db: db, table: table}, nil
}

// Schema returns the DDL creating the audit table.
func (s *CHAuditSink) Schema() []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            id          String,
            at          DateTime64(3, 'UTC'),
            symbol      LowCardinality(String),
            interval    LowCardinality(String),
            fields      Array(String),
            start_date  String,
            end_date    String,
            points      UInt32,
            series      UInt32,
            duration_ms UInt64
        ) ENGINE = MergeTree
        ORDER BY (symbol, at)
    `, s.table)}
}

func (s *CHAuditSink) Record(ctx context.Context, ev *models.AuditEvent) error {
	q := fmt.Sprintf(`INSERT INTO %s (id, at, symbol, interval, fields, start_date, end_date, points, series, duration_ms)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	_, err := s.db.ExecContext(ctx, q,
		ev.ID, ev.At, ev.Symbol, ev.Interval, ev.Fields, ev.Start, ev.End,
		uint32(ev.Points), uint32(ev.Series), uint64(ev.DurationMs),
	)
	if err != nil {
		return fmt.Errorf("audit clickhouse insert: %w", err)
	}
	return nil
}

func (s *CHAuditSink) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}
