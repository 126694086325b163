package event

import (
	"context"

	"github.com/banper/backend/internal/domain/funding"
	"github.com/banper/backend/internal/domain/ledger"
	"github.com/banper/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditLogHandler writes one structured log line per committed event, giving
// auditors a trail of every disbursement and ledger movement
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a handler logging under the "audit" name
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("audit")}
}

// EventTypes returns nil so the handler receives every event
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// Handle logs the event with the fields relevant to its type
func (h *AuditLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.String("program_id", event.ProgramID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *funding.FundingRequestDisbursedEvent:
		fields = append(fields,
			zap.Int64("requested_amount", e.RequestedAmount),
			zap.Int64("disbursed_amount", e.DisbursedAmount),
		)
	case *ledger.AllocationEvent:
		fields = append(fields,
			zap.String("status", string(e.Status)),
			zap.Int64("allocated_amount", e.AllocatedAmount),
			zap.Int64("spent_amount", e.SpentAmount),
			zap.Int64("remaining_amount", e.RemainingAmount),
		)
		if e.Reason != "" {
			fields = append(fields, zap.String("reason", e.Reason))
		}
	case *ledger.TransactionEvent:
		fields = append(fields,
			zap.String("allocation_id", e.AllocationID.String()),
			zap.String("transaction_number", e.TransactionNumber),
			zap.String("category", string(e.Category)),
			zap.Int64("amount", e.Amount),
		)
		if e.ApprovedBy != "" {
			fields = append(fields, zap.String("approved_by", e.ApprovedBy))
		}
	}

	h.logger.Info("Ledger event", fields...)
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
