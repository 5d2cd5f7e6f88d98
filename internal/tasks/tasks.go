package tasks

import (
	"context"
	"encoding/json"
)

// Task type names.
const (
	TypeRecomputeScores = "recompute_scores"
)

// Task is one unit of queued work.
type Task struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RecomputeScoresPayload carries one batch of lead ids to rescore.
type RecomputeScoresPayload struct {
	LeadIDs []string `json:"lead_ids"`
}

// Handler processes one task payload.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Queue accepts tasks for asynchronous processing.
type Queue interface {
	Enqueue(ctx context.Context, taskType string, payload any) error
}
