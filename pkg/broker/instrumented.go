package broker

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/psmq/psmq/pkg/logger"
	"github.com/psmq/psmq/pkg/queue"
)

// InstrumentedStore wraps a queue.Store with an OpenTelemetry span around
// every call. It logs only CreateQueue and DeleteQueue failures and
// PushMessage (a warning on failure, a debug line on success), in the
// same decorator shape the
// teacher's now-retired cache package used for InstrumentedCache.
type InstrumentedStore struct {
	next   queue.Store
	tracer trace.Tracer
}

// NewInstrumentedStore wraps next.
func NewInstrumentedStore(next queue.Store) *InstrumentedStore {
	return &InstrumentedStore{next: next, tracer: otel.Tracer("pkg/broker")}
}

func (s *InstrumentedStore) span(ctx context.Context, name, queueName string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("psmq.queue", queueName)))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *InstrumentedStore) CreateQueue(ctx context.Context, name string, cfg queue.QueueConfiguration) (bool, error) {
	ctx, span := s.span(ctx, "queue.CreateQueue", name)
	created, err := s.next.CreateQueue(ctx, name, cfg)
	finish(span, err)
	if err != nil {
		logger.L().ErrorContext(ctx, "create_queue failed", "queue", name, "error", err)
	}
	return created, err
}

func (s *InstrumentedStore) DeleteQueue(ctx context.Context, name string) error {
	ctx, span := s.span(ctx, "queue.DeleteQueue", name)
	err := s.next.DeleteQueue(ctx, name)
	finish(span, err)
	if err != nil {
		logger.L().ErrorContext(ctx, "delete_queue failed", "queue", name, "error", err)
	}
	return err
}

func (s *InstrumentedStore) ListQueues(ctx context.Context) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "queue.ListQueues")
	names, err := s.next.ListQueues(ctx)
	finish(span, err)
	return names, err
}

func (s *InstrumentedStore) GetQueueInfo(ctx context.Context, name string) (queue.QueueInfo, error) {
	ctx, span := s.span(ctx, "queue.GetQueueInfo", name)
	info, err := s.next.GetQueueInfo(ctx, name)
	finish(span, err)
	return info, err
}

func (s *InstrumentedStore) DescribeQueue(ctx context.Context, name string) (queue.QueueInfo, error) {
	ctx, span := s.span(ctx, "queue.DescribeQueue", name)
	info, err := s.next.DescribeQueue(ctx, name)
	finish(span, err)
	return info, err
}

func (s *InstrumentedStore) SetQueueVT(ctx context.Context, name string, vt int) error {
	ctx, span := s.span(ctx, "queue.SetQueueVT", name)
	err := s.next.SetQueueVT(ctx, name, vt)
	finish(span, err)
	return err
}

func (s *InstrumentedStore) SetQueueDelay(ctx context.Context, name string, delay int) error {
	ctx, span := s.span(ctx, "queue.SetQueueDelay", name)
	err := s.next.SetQueueDelay(ctx, name, delay)
	finish(span, err)
	return err
}

func (s *InstrumentedStore) SetQueueMaxSize(ctx context.Context, name string, maxSize int) error {
	ctx, span := s.span(ctx, "queue.SetQueueMaxSize", name)
	err := s.next.SetQueueMaxSize(ctx, name, maxSize)
	finish(span, err)
	return err
}

func (s *InstrumentedStore) PushMessage(ctx context.Context, name string, body []byte, delay *int, metadata map[string]interface{}) (string, error) {
	ctx, span := s.span(ctx, "queue.PushMessage", name)
	span.SetAttributes(attribute.Int("psmq.body_size", len(body)))
	id, err := s.next.PushMessage(ctx, name, body, delay, metadata)
	finish(span, err)
	if err != nil {
		logger.L().WarnContext(ctx, "push_message failed", "queue", name, "error", err)
	} else {
		logger.L().DebugContext(ctx, "message pushed", "queue", name, "id", id)
	}
	return id, err
}

func (s *InstrumentedStore) PushMessages(ctx context.Context, name string, batch []queue.PushInput) ([]string, error) {
	ctx, span := s.span(ctx, "queue.PushMessages", name)
	span.SetAttributes(attribute.Int("psmq.batch_size", len(batch)))
	ids, err := s.next.PushMessages(ctx, name, batch)
	finish(span, err)
	return ids, err
}

func (s *InstrumentedStore) GetMessage(ctx context.Context, name string, vt *int) (*queue.ReceivedMessage, error) {
	ctx, span := s.span(ctx, "queue.GetMessage", name)
	msg, err := s.next.GetMessage(ctx, name, vt)
	finish(span, err)
	return msg, err
}

func (s *InstrumentedStore) DeleteMessage(ctx context.Context, name, id string) error {
	ctx, span := s.span(ctx, "queue.DeleteMessage", name)
	span.SetAttributes(attribute.String("psmq.message_id", id))
	err := s.next.DeleteMessage(ctx, name, id)
	finish(span, err)
	return err
}

func (s *InstrumentedStore) PopMessage(ctx context.Context, name string) (*queue.ReceivedMessage, error) {
	ctx, span := s.span(ctx, "queue.PopMessage", name)
	msg, err := s.next.PopMessage(ctx, name)
	finish(span, err)
	return msg, err
}

func (s *InstrumentedStore) ListDeadLetterCandidates(ctx context.Context, name string, maxRC int, maxAgeSeconds int64) ([]queue.ReceivedMessage, error) {
	ctx, span := s.span(ctx, "queue.ListDeadLetterCandidates", name)
	msgs, err := s.next.ListDeadLetterCandidates(ctx, name, maxRC, maxAgeSeconds)
	finish(span, err)
	return msgs, err
}

var _ queue.Store = (*InstrumentedStore)(nil)
