package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskHealthSweep fans a full-roster recompute out into per-user tasks.
const TaskHealthSweep = "health.sweep"

// TaskHealthRecompute recomputes one user's health snapshot.
const TaskHealthRecompute = "health.recompute"

type HealthSweepPayload struct {
	RequestedAt string `json:"requestedAt"`
}

type HealthRecomputePayload struct {
	UserID  string `json:"userId"`
	Trigger string `json:"trigger"`
}

func NewHealthSweepTask(payload HealthSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskHealthSweep, data), nil
}

func ParseHealthSweepPayload(task *asynq.Task) (HealthSweepPayload, error) {
	var payload HealthSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return HealthSweepPayload{}, err
	}
	return payload, nil
}

func NewHealthRecomputeTask(payload HealthRecomputePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskHealthRecompute, data), nil
}

func ParseHealthRecomputePayload(task *asynq.Task) (HealthRecomputePayload, error) {
	var payload HealthRecomputePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return HealthRecomputePayload{}, err
	}
	return payload, nil
}
