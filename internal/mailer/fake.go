package mailer

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RecordingSender captures sent messages in memory. Test double.
type RecordingSender struct {
	mu   sync.Mutex
	next int

	Sent    []Message
	FailAll bool
}

func (r *RecordingSender) Send(_ context.Context, msg *Message) (*SendResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll {
		return nil, fmt.Errorf("provider rejected message to %s", msg.To)
	}
	r.next++
	r.Sent = append(r.Sent, *msg)
	return &SendResult{
		MessageID: fmt.Sprintf("msg-%d", r.next),
		SentAt:    time.Now(),
	}, nil
}
