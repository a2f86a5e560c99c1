package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// IncidentPruner is the slice of IncidentService the prune task needs.
type IncidentPruner interface {
	PruneResolved(ctx context.Context, maxAge time.Duration) (int64, error)
}

type PruneIncidentsHandler struct {
	pruner IncidentPruner
	maxAge time.Duration
	logger *zap.Logger
}

func NewPruneIncidentsHandler(pruner IncidentPruner, maxAge time.Duration, logger *zap.Logger) *PruneIncidentsHandler {
	return &PruneIncidentsHandler{
		pruner: pruner,
		maxAge: maxAge,
		logger: logger.Named("PruneIncidentsHandler"),
	}
}

func (h *PruneIncidentsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeIncidentPrune {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	var p PruneIncidentsPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error("Failed to unmarshal payload for incident prune task", zap.Error(err), zap.ByteString("payload", t.Payload()))
		return fmt.Errorf("invalid payload: %v", err)
	}

	h.logger.Info("Processing incident retention prune task...", zap.Duration("max_age", h.maxAge))

	deleted, err := h.pruner.PruneResolved(ctx, h.maxAge)
	if err != nil {
		h.logger.Error("Incident prune task failed", zap.Error(err))
		return fmt.Errorf("pruning resolved incidents: %w", err)
	}

	h.logger.Info("Incident retention prune task finished", zap.Int64("deleted", deleted))
	return nil
}
