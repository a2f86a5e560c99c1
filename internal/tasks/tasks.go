package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeIncidentPrune = "incident:prune"
)

type PruneIncidentsPayload struct{}

func NewIncidentPruneTask(opts ...asynq.Option) (*asynq.Task, error) {
	payload := PruneIncidentsPayload{}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	uniqueOpt := asynq.Unique(1 * time.Hour)
	allOpts := append(opts, uniqueOpt)

	return asynq.NewTask(TypeIncidentPrune, payloadBytes, allOpts...), nil
}
