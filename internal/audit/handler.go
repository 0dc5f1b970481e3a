package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mlucero/catering-orders/internal/domain"
)

type recorder interface {
	Record(ctx context.Context, event domain.OrderEvent, payload []byte) error
}

// Handler consumes order events and appends them to the audit trail.
type Handler struct {
	recorder recorder
	logger   *slog.Logger
}

func NewHandler(recorder recorder, logger *slog.Logger) *Handler {
	return &Handler{
		recorder: recorder,
		logger:   logger,
	}
}

func (h *Handler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order event: %w", err)
	}

	if err := h.recorder.Record(ctx, event, payload); err != nil {
		h.logger.Error("failed to record order event", "error", err, "event_id", event.EventID)
		return fmt.Errorf("record order event: %w", err)
	}

	h.logger.Info("order event recorded", "event_id", event.EventID, "order_id", event.OrderID, "action", event.Action)
	return nil
}
