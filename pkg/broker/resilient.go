package broker

import (
	"time"

	"context"

	pkgerrors "github.com/psmq/psmq/pkg/errors"
	"github.com/psmq/psmq/pkg/queue"
	"github.com/psmq/psmq/pkg/servicemesh/circuitbreaker"
)

// ResilientStore wraps a queue.Store with a circuit breaker over
// connectivity failures. It never interprets or retries business errors
// (ErrMessageTooLarge, ErrQueueDoesNotExist, ...) as backend failures: the
// breaker only reacts to the underlying Store call returning CodeInternal
// or CodeUnavailable, per the no-retry-in-core rule.
type ResilientStore struct {
	next queue.Store
	cb   *circuitbreaker.CircuitBreaker
}

// ResilientOptions configures the circuit breaker guarding the backend.
type ResilientOptions struct {
	FailureThreshold int           `env:"PSMQ_CB_FAILURE_THRESHOLD" env-default:"5"`
	SuccessThreshold int           `env:"PSMQ_CB_SUCCESS_THRESHOLD" env-default:"2"`
	Timeout          time.Duration `env:"PSMQ_CB_TIMEOUT" env-default:"30s"`
}

// NewResilientStore wraps next with a circuit breaker named after the
// queue store backend.
func NewResilientStore(next queue.Store, opts ResilientOptions) *ResilientStore {
	return &ResilientStore{
		next: next,
		cb: circuitbreaker.New("queue-store", circuitbreaker.Options{
			FailureThreshold: opts.FailureThreshold,
			SuccessThreshold: opts.SuccessThreshold,
			Timeout:          opts.Timeout,
		}),
	}
}

// isBackendFailure reports whether err represents the underlying Store
// itself being unhealthy, as opposed to a well-formed business rejection
// (queue not found, message too large, ...). Only backend failures should
// count against the breaker.
func isBackendFailure(err error) bool {
	return pkgerrors.HasCode(err, pkgerrors.CodeInternal) || pkgerrors.HasCode(err, pkgerrors.CodeUnavailable)
}

// breakerGuardedErr runs fn through the breaker, but only lets a backend
// failure register as a trip-worthy error; a business error is still
// returned to the caller, just not reported to cb as a failure.
func breakerGuardedErr(cb *circuitbreaker.CircuitBreaker, fn func() error) error {
	var businessErr error
	_, cbErr := cb.Execute(func() (interface{}, error) {
		err := fn()
		if err != nil && !isBackendFailure(err) {
			businessErr = err
			return nil, nil
		}
		return nil, err
	})
	if businessErr != nil {
		return businessErr
	}
	return cbErr
}

func (s *ResilientStore) CreateQueue(ctx context.Context, name string, cfg queue.QueueConfiguration) (bool, error) {
	var created bool
	err := breakerGuardedErr(s.cb, func() error {
		var err error
		created, err = s.next.CreateQueue(ctx, name, cfg)
		return err
	})
	return created, err
}

func (s *ResilientStore) DeleteQueue(ctx context.Context, name string) error {
	return breakerGuardedErr(s.cb, func() error { return s.next.DeleteQueue(ctx, name) })
}

func (s *ResilientStore) ListQueues(ctx context.Context) ([]string, error) {
	var names []string
	err := breakerGuardedErr(s.cb, func() error {
		var err error
		names, err = s.next.ListQueues(ctx)
		return err
	})
	return names, err
}

func (s *ResilientStore) GetQueueInfo(ctx context.Context, name string) (queue.QueueInfo, error) {
	var info queue.QueueInfo
	err := breakerGuardedErr(s.cb, func() error {
		var err error
		info, err = s.next.GetQueueInfo(ctx, name)
		return err
	})
	return info, err
}

func (s *ResilientStore) DescribeQueue(ctx context.Context, name string) (queue.QueueInfo, error) {
	var info queue.QueueInfo
	err := breakerGuardedErr(s.cb, func() error {
		var err error
		info, err = s.next.DescribeQueue(ctx, name)
		return err
	})
	return info, err
}

func (s *ResilientStore) SetQueueVT(ctx context.Context, name string, vt int) error {
	return breakerGuardedErr(s.cb, func() error { return s.next.SetQueueVT(ctx, name, vt) })
}

func (s *ResilientStore) SetQueueDelay(ctx context.Context, name string, delay int) error {
	return breakerGuardedErr(s.cb, func() error { return s.next.SetQueueDelay(ctx, name, delay) })
}

func (s *ResilientStore) SetQueueMaxSize(ctx context.Context, name string, maxSize int) error {
	return breakerGuardedErr(s.cb, func() error { return s.next.SetQueueMaxSize(ctx, name, maxSize) })
}

func (s *ResilientStore) PushMessage(ctx context.Context, name string, body []byte, delay *int, metadata map[string]interface{}) (string, error) {
	var id string
	err := breakerGuardedErr(s.cb, func() error {
		var err error
		id, err = s.next.PushMessage(ctx, name, body, delay, metadata)
		return err
	})
	return id, err
}

func (s *ResilientStore) PushMessages(ctx context.Context, name string, batch []queue.PushInput) ([]string, error) {
	var ids []string
	err := breakerGuardedErr(s.cb, func() error {
		var err error
		ids, err = s.next.PushMessages(ctx, name, batch)
		return err
	})
	return ids, err
}

func (s *ResilientStore) GetMessage(ctx context.Context, name string, vt *int) (*queue.ReceivedMessage, error) {
	var msg *queue.ReceivedMessage
	err := breakerGuardedErr(s.cb, func() error {
		var err error
		msg, err = s.next.GetMessage(ctx, name, vt)
		return err
	})
	return msg, err
}

func (s *ResilientStore) DeleteMessage(ctx context.Context, name, id string) error {
	return breakerGuardedErr(s.cb, func() error { return s.next.DeleteMessage(ctx, name, id) })
}

func (s *ResilientStore) PopMessage(ctx context.Context, name string) (*queue.ReceivedMessage, error) {
	var msg *queue.ReceivedMessage
	err := breakerGuardedErr(s.cb, func() error {
		var err error
		msg, err = s.next.PopMessage(ctx, name)
		return err
	})
	return msg, err
}

func (s *ResilientStore) ListDeadLetterCandidates(ctx context.Context, name string, maxRC int, maxAgeSeconds int64) ([]queue.ReceivedMessage, error) {
	var msgs []queue.ReceivedMessage
	err := breakerGuardedErr(s.cb, func() error {
		var err error
		msgs, err = s.next.ListDeadLetterCandidates(ctx, name, maxRC, maxAgeSeconds)
		return err
	})
	return msgs, err
}

// State returns the circuit breaker's current state.
func (s *ResilientStore) State() circuitbreaker.State { return s.cb.State() }

var _ queue.Store = (*ResilientStore)(nil)
