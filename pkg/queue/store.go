package queue

import "context"

// Store is the atomic, persistent primitive layer a queue is built on.
// Every method is atomic: callers never observe a partially applied
// mutation, and concurrent callers against the same queue are serialized by
// the implementation (a scripted backend or a per-queue lock).
type Store interface {
	// CreateQueue creates name with cfg if it doesn't exist yet. Reports
	// true on first creation, false if the queue already existed (in which
	// case cfg is NOT applied to the existing queue).
	CreateQueue(ctx context.Context, name string, cfg QueueConfiguration) (bool, error)

	// DeleteQueue removes name and all of its messages. No-op if missing.
	DeleteQueue(ctx context.Context, name string) error

	// ListQueues returns a snapshot of all queue names.
	ListQueues(ctx context.Context) ([]string, error)

	// GetQueueInfo returns name's configuration and counters, auto-creating
	// it with DefaultConfiguration() if it doesn't exist.
	GetQueueInfo(ctx context.Context, name string) (QueueInfo, error)

	// DescribeQueue is GetQueueInfo without the auto-create: it returns
	// ErrQueueDoesNotExist if name is missing.
	DescribeQueue(ctx context.Context, name string) (QueueInfo, error)

	SetQueueVT(ctx context.Context, name string, vt int) error
	SetQueueDelay(ctx context.Context, name string, delay int) error
	SetQueueMaxSize(ctx context.Context, name string, maxSize int) error

	// PushMessage auto-creates the queue with defaults if missing, and
	// fails with ErrMessageTooLarge if maxsize>0 and len(body)>maxsize. A
	// nil delay means "use the queue's configured delay".
	PushMessage(ctx context.Context, name string, body []byte, delay *int, metadata map[string]interface{}) (string, error)

	// PushMessages pushes a batch as a single atomic transaction: either
	// every entry is written and every id returned, or none are.
	PushMessages(ctx context.Context, name string, batch []PushInput) ([]string, error)

	// GetMessage returns the earliest ready message, or nil if none is
	// ready. A nil vt means "use the queue's configured visibility
	// timeout". Returning a message advances its deliver_at, increments
	// its rc, and sets fr on first receive.
	GetMessage(ctx context.Context, name string, vt *int) (*ReceivedMessage, error)

	// DeleteMessage removes id from name. No-op if absent, including when
	// name itself doesn't exist.
	DeleteMessage(ctx context.Context, name, id string) error

	// PopMessage is GetMessage immediately followed by DeleteMessage, as
	// one atomic step.
	PopMessage(ctx context.Context, name string) (*ReceivedMessage, error)

	// ListDeadLetterCandidates scans name for messages that have exceeded
	// maxRC receive attempts or outlived maxAgeSeconds since they were
	// sent, regardless of their current visibility. It does not mutate
	// anything: the Reaper decides what to do with the result. A
	// non-positive maxRC or maxAgeSeconds disables that criterion.
	ListDeadLetterCandidates(ctx context.Context, name string, maxRC int, maxAgeSeconds int64) ([]ReceivedMessage, error)
}
