package queue

import (
	"context"
	"time"

	"github.com/psmq/psmq/pkg/concurrency"
	"github.com/psmq/psmq/pkg/logger"
)

// ReaperConfig configures a Reaper. It is off by default: the atomic
// Store operations never enforce a redelivery cap or TTL on their own,
// matching the spec exactly. A Reaper is an additive, opt-in sweep.
type ReaperConfig struct {
	// Interval between sweeps.
	Interval time.Duration `env:"PSMQ_REAPER_INTERVAL" env-default:"30s"`

	// MaxRC is the receive-count ceiling; 0 disables this criterion.
	MaxRC int `env:"PSMQ_REAPER_MAX_RC" env-default:"0"`

	// MaxAge is how long a message may live since it was sent; 0
	// disables this criterion.
	MaxAge time.Duration `env:"PSMQ_REAPER_MAX_AGE" env-default:"0s"`

	// DeadLetterQueue, if non-empty, re-pushes expired messages there
	// instead of dropping them.
	DeadLetterQueue string `env:"PSMQ_REAPER_DLQ" env-default:""`
}

// Reaper periodically sweeps a fixed set of queues for dead-letter
// candidates and either drops or re-routes them. It never runs unless
// explicitly started.
type Reaper struct {
	store  Store
	queues []string
	cfg    ReaperConfig
	pool   *concurrency.WorkerPool
}

// NewReaper builds a Reaper over queues, using a worker pool with one
// worker per queue plus one, sized for the sweep's own concurrency rather
// than as a general-purpose job queue.
func NewReaper(store Store, queues []string, cfg ReaperConfig) *Reaper {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Reaper{
		store:  store,
		queues: queues,
		cfg:    cfg,
		pool:   concurrency.NewWorkerPool(len(queues)+1, len(queues)*2+1),
	}
}

// Run starts the periodic sweep and blocks until ctx is canceled.
func (r *Reaper) Run(ctx context.Context) {
	r.pool.Start(ctx)
	defer r.pool.Stop()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepOnce(ctx)
		}
	}
}

func (r *Reaper) sweepOnce(ctx context.Context) {
	for _, name := range r.queues {
		queueName := name
		concurrency.SafeGo(ctx, func() {
			r.pool.Submit(func(ctx context.Context) {
				r.sweepQueue(ctx, queueName)
			})
		})
	}
}

func (r *Reaper) sweepQueue(ctx context.Context, name string) {
	maxAgeSeconds := int64(r.cfg.MaxAge / time.Second)
	candidates, err := r.store.ListDeadLetterCandidates(ctx, name, r.cfg.MaxRC, maxAgeSeconds)
	if err != nil {
		logger.L().ErrorContext(ctx, "reaper sweep failed", "queue", name, "error", err)
		return
	}

	for _, msg := range candidates {
		if r.cfg.DeadLetterQueue != "" {
			if _, err := r.store.PushMessage(ctx, r.cfg.DeadLetterQueue, msg.Body, nil, msg.Metadata); err != nil {
				logger.L().ErrorContext(ctx, "reaper dead-letter push failed", "queue", name, "id", msg.MessageID, "error", err)
				continue
			}
		}
		if err := r.store.DeleteMessage(ctx, name, msg.MessageID); err != nil {
			logger.L().ErrorContext(ctx, "reaper delete failed", "queue", name, "id", msg.MessageID, "error", err)
			continue
		}
		logger.L().WarnContext(ctx, "message reaped", "queue", name, "id", msg.MessageID, "rc", msg.RC)
	}
}
