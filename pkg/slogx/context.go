package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

type auditKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// AuditRecord collects identity attributes discovered while the request moves
// through the middleware chain (authentication gate, tenant resolver). The
// HTTP middleware allocates one per request and includes it in the final
// request log line so every request is traceable to a user and tenant.
type AuditRecord struct {
	UserID   string
	TenantID string
}

func WithAudit(ctx context.Context, rec *AuditRecord) context.Context {
	return context.WithValue(ctx, auditKey{}, rec)
}

// AuditFromContext returns the request's audit record. It never returns nil;
// writes to the returned record outside a request are simply discarded.
func AuditFromContext(ctx context.Context) *AuditRecord {
	if rec, ok := ctx.Value(auditKey{}).(*AuditRecord); ok {
		return rec
	}
	return &AuditRecord{}
}
