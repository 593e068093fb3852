package core

import (
	"context"
	"log/slog"
	"time"
)

// QueryRecord describes one finished lookup for the audit log.
type QueryRecord struct {
	ID        string        `json:"id"`
	Link      string        `json:"fileLink"`
	N         string        `json:"n"`
	Value     *int64        `json:"value,omitempty"`
	ErrorKind string        `json:"errorKind,omitempty"`
	ErrorCode string        `json:"errorCode,omitempty"`
	Duration  time.Duration `json:"durationNs"`
	IPAddress string        `json:"ipAddress,omitempty"`
	UserAgent string        `json:"userAgent,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Succeeded reports whether the lookup produced a value.
func (r QueryRecord) Succeeded() bool {
	return r.Value != nil
}

// AuditRecorder persists QueryRecords. Implementations must be safe for
// concurrent use.
type AuditRecorder interface {
	Record(ctx context.Context, rec QueryRecord) error
}

// LogRecorder writes audit records to the default slog logger. It is used
// when no database is configured.
type LogRecorder struct{}

// Record implements AuditRecorder.
func (LogRecorder) Record(ctx context.Context, rec QueryRecord) error {
	attrs := []any{
		"audit_id", rec.ID,
		"file_link", rec.Link,
		"n", rec.N,
		"duration_ms", rec.Duration.Milliseconds(),
	}
	if rec.Value != nil {
		attrs = append(attrs, "value", *rec.Value)
	} else {
		attrs = append(attrs, "error_kind", rec.ErrorKind, "error_code", rec.ErrorCode)
	}
	slog.InfoContext(ctx, "lookup audited", attrs...)
	return nil
}
