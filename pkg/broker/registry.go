package broker

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/psmq/psmq/pkg/concurrency"
	"github.com/psmq/psmq/pkg/concurrency/distlock"
	"github.com/psmq/psmq/pkg/datastructures/concurrentmap"
	"github.com/psmq/psmq/pkg/queue"
	"github.com/psmq/psmq/pkg/stream"
)

// Options configures a Broker.
type Options struct {
	// Locker, when set, is taken around first-use queue creation if it is
	// free; a caller that finds it held goes ahead without waiting, so
	// redundant CreateQueue round-trips remain possible either way.
	// Optional: the Store's own atomicity is what actually prevents
	// corruption, so concurrent first-use is never a correctness issue.
	Locker distlock.Locker

	// LockTTL bounds how long the auto-create lock is held.
	LockTTL time.Duration

	// MaxConcurrentAutoCreates bounds how many distinct first-use
	// CreateQueue round-trips can be in flight at once, so a burst of
	// traffic against many never-seen-before queue names doesn't open a
	// connection per name against the backend all at once. Defaults to 16.
	MaxConcurrentAutoCreates int64

	// StreamClient is used for stream.Stream handles. Nil if the broker
	// only serves queues.
	StreamClient *goredis.Client
}

// Broker caches queue.Queue and stream.Stream handles by name so repeated
// lookups don't pay a CreateQueue/CreateConsumerGroup round-trip, per the
// global facade cache decision.
type Broker struct {
	store      queue.Store
	queues     *concurrentmap.ShardedMap[string, *queue.Queue]
	streams    *concurrentmap.ShardedMap[string, *stream.Stream]
	autoCreate *concurrency.Semaphore
	opts       Options
}

// New builds a Broker over store, which should already be wrapped with
// whatever InstrumentedStore/ResilientStore decorators the caller wants.
func New(store queue.Store, opts Options) *Broker {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Second
	}
	if opts.MaxConcurrentAutoCreates <= 0 {
		opts.MaxConcurrentAutoCreates = 16
	}
	return &Broker{
		store:      store,
		queues:     concurrentmap.New[string, *queue.Queue](32),
		streams:    concurrentmap.New[string, *stream.Stream](32),
		autoCreate: concurrency.NewSemaphore(opts.MaxConcurrentAutoCreates),
		opts:       opts,
	}
}

// Stream returns the cached stream handle for name, constructing one on
// first use. Panics if the Broker was built without a StreamClient, so
// the misconfiguration surfaces immediately rather than on first use of
// the handle.
func (b *Broker) Stream(name string) *stream.Stream {
	if b.opts.StreamClient == nil {
		panic("broker: Stream called on a Broker built without a StreamClient")
	}
	if st, ok := b.streams.Get(name); ok {
		return st
	}
	st := stream.New(b.opts.StreamClient, name)
	b.streams.Set(name, st)
	return st
}

// Store returns the underlying (possibly decorated) queue.Store.
func (b *Broker) Store() queue.Store { return b.store }

// Queue returns the cached handle for name, creating and caching one
// (with cfg applied only on first creation) if it doesn't exist yet. When
// a Locker is configured, creation runs under its lock if the lock can be
// acquired at once; otherwise creation proceeds without it, so two callers
// racing on the same unknown queue can both issue CreateQueue.
func (b *Broker) Queue(ctx context.Context, name string, cfg queue.QueueConfiguration) (*queue.Queue, error) {
	if q, ok := b.queues.Get(name); ok {
		return q, nil
	}

	if err := b.autoCreate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer b.autoCreate.Release(1)

	if q, ok := b.queues.Get(name); ok {
		return q, nil
	}

	if b.opts.Locker != nil {
		lock := b.opts.Locker.NewLock("psmq:autocreate:"+name, b.opts.LockTTL)
		if acquired, err := lock.Acquire(ctx); err == nil && acquired {
			defer lock.Release(ctx)
		}
	}

	if q, ok := b.queues.Get(name); ok {
		return q, nil
	}

	q, err := queue.NewQueue(ctx, b.store, name, cfg)
	if err != nil {
		return nil, err
	}
	b.queues.Set(name, q)
	return q, nil
}

// DropQueue evicts name from the cache without touching the backend. Used
// after DeleteQueue so a stale handle isn't reused.
func (b *Broker) DropQueue(name string) {
	b.queues.Delete(name)
}
