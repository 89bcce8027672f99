package repository

import (
	"context"

	"DiffPlot/internal/domain/models"
	domrepo "DiffPlot/internal/domain/repository"
)

// NopAuditSink drops every event.
type NopAuditSink struct{}

var _ domrepo.AuditSink = NopAuditSink{}

func (NopAuditSink) Record(context.Context, *models.AuditEvent) error { return nil }

func (NopAuditSink) Close() error { return nil }
