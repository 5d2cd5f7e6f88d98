package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultQueueKey = "dripengine:tasks"

// RedisQueue pushes tasks onto a Redis list.
type RedisQueue struct {
	client *redis.Client
	key    string
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client, key: defaultQueueKey}
}

func (q *RedisQueue) Enqueue(ctx context.Context, taskType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	data, err := json.Marshal(Task{Type: taskType, Payload: raw})
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

// Pool pops tasks from the Redis list and dispatches them to handlers.
type Pool struct {
	client     *redis.Client
	key        string
	numWorkers int

	mu       sync.Mutex
	handlers map[string]Handler
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	totalProcessed int64
	totalFailed    int64
}

func NewPool(client *redis.Client, numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	return &Pool{
		client:     client,
		key:        defaultQueueKey,
		numWorkers: numWorkers,
		handlers:   make(map[string]Handler),
	}
}

// Register binds a handler to a task type. Registering after Start is not
// supported.
func (p *Pool) Register(taskType string, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[taskType] = h
}

func (p *Pool) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.mu.Unlock()

	log.Printf("[TaskPool] Starting %d workers", p.numWorkers)
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
	log.Printf("[TaskPool] Stopped. Processed: %d, failed: %d",
		atomic.LoadInt64(&p.totalProcessed), atomic.LoadInt64(&p.totalFailed))
}

func (p *Pool) Stats() map[string]int64 {
	return map[string]int64{
		"total_processed": atomic.LoadInt64(&p.totalProcessed),
		"total_failed":    atomic.LoadInt64(&p.totalFailed),
	}
}

func (p *Pool) worker(workerNum int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		default:
			res, err := p.client.BRPop(p.ctx, 2*time.Second, p.key).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
					continue
				}
				log.Printf("[TaskPool] Worker %d: pop error: %v", workerNum, err)
				time.Sleep(time.Second)
				continue
			}
			// BRPop returns [key, value]
			if len(res) != 2 {
				continue
			}
			p.dispatch(res[1], workerNum)
		}
	}
}

func (p *Pool) dispatch(raw string, workerNum int) {
	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		log.Printf("[TaskPool] Worker %d: malformed task dropped: %v", workerNum, err)
		atomic.AddInt64(&p.totalFailed, 1)
		return
	}

	p.mu.Lock()
	h, ok := p.handlers[task.Type]
	p.mu.Unlock()
	if !ok {
		log.Printf("[TaskPool] Worker %d: no handler for task type %s", workerNum, task.Type)
		atomic.AddInt64(&p.totalFailed, 1)
		return
	}

	if err := h(p.ctx, task.Payload); err != nil {
		log.Printf("[TaskPool] Worker %d: task %s failed: %v", workerNum, task.Type, err)
		atomic.AddInt64(&p.totalFailed, 1)
		return
	}
	atomic.AddInt64(&p.totalProcessed, 1)
}
