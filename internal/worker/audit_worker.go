// Package worker processes moderation decisions published by the dashboard
// and performs periodic storage housekeeping.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"a9admin/internal/amqp"
	"a9admin/internal/core"
	"a9admin/internal/storage"
)

// AuditStore is the storage surface the worker needs.
type AuditStore interface {
	InsertAuditEntry(ctx context.Context, e storage.AuditEntry) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type AuditWorker struct {
	store AuditStore
}

func NewAuditWorker(store AuditStore) *AuditWorker {
	return &AuditWorker{store: store}
}

// HandleStatusMessage persists one moderation decision to the audit trail.
// Messages with an unknown status are dropped instead of requeued; requeuing
// would loop forever on the same bad payload.
func (w *AuditWorker) HandleStatusMessage(ctx context.Context, msg *amqp.ToolStatusMessage) error {
	if !core.ValidToolStatus(msg.NewStatus) {
		slog.WarnContext(ctx, "Dropping audit message with unknown status",
			"tool_id", msg.ToolID,
			"new_status", msg.NewStatus)
		return nil
	}

	occurredAt := msg.Timestamp
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	err := w.store.InsertAuditEntry(ctx, storage.AuditEntry{
		ToolID:     msg.ToolID,
		OldStatus:  msg.OldStatus,
		NewStatus:  msg.NewStatus,
		Actor:      msg.Actor,
		OccurredAt: occurredAt,
	})
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// CleanupSessions removes expired sessions. Meant to run on a ticker.
func (w *AuditWorker) CleanupSessions(ctx context.Context) error {
	if _, err := w.store.DeleteExpiredSessions(ctx, time.Now().UTC()); err != nil {
		return fmt.Errorf("cleanup sessions: %w", err)
	}
	return nil
}
