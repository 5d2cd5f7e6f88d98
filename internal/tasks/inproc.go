package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// InProcQueue runs handlers synchronously at enqueue time. Used when Redis is
// not configured, and by tests that want deterministic execution.
type InProcQueue struct {
	mu       sync.Mutex
	handlers map[string]Handler
}

func NewInProcQueue() *InProcQueue {
	return &InProcQueue{handlers: make(map[string]Handler)}
}

func (q *InProcQueue) Register(taskType string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[taskType] = h
}

func (q *InProcQueue) Enqueue(ctx context.Context, taskType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	q.mu.Lock()
	h, ok := q.handlers[taskType]
	q.mu.Unlock()
	if !ok {
		return fmt.Errorf("no handler for task type %s", taskType)
	}
	return h(ctx, raw)
}
