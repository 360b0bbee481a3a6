package broker_test

import (
	"context"
	"testing"

	"github.com/psmq/psmq/pkg/broker"
	"github.com/psmq/psmq/pkg/errors"
	"github.com/psmq/psmq/pkg/queue"
	"github.com/psmq/psmq/pkg/queue/adapters/memory"
	"github.com/psmq/psmq/pkg/servicemesh/circuitbreaker"
	"github.com/psmq/psmq/pkg/test"
)

type BrokerSuite struct {
	test.Suite
	store *memory.Store
	b     *broker.Broker
}

func (s *BrokerSuite) SetupTest() {
	s.Suite.SetupTest()
	s.store = memory.New()
	s.b = broker.New(s.store, broker.Options{})
}

func (s *BrokerSuite) TestQueueCachesHandle() {
	q1, err := s.b.Queue(s.Ctx, "orders", queue.DefaultConfiguration())
	s.Require().NoError(err)

	q2, err := s.b.Queue(s.Ctx, "orders", queue.DefaultConfiguration())
	s.Require().NoError(err)

	s.Same(q1, q2, "repeated lookups should reuse the cached *queue.Queue")
}

func (s *BrokerSuite) TestDropQueueEvictsCache() {
	q1, err := s.b.Queue(s.Ctx, "orders", queue.DefaultConfiguration())
	s.Require().NoError(err)

	s.b.DropQueue("orders")

	q2, err := s.b.Queue(s.Ctx, "orders", queue.DefaultConfiguration())
	s.Require().NoError(err)
	s.NotSame(q1, q2)
}

func (s *BrokerSuite) TestStoreReturnsUnderlying() {
	s.Same(s.store, s.b.Store())
}

func (s *BrokerSuite) TestAutoCreateGateLimitsBurstButStillSucceeds() {
	b := broker.New(s.store, broker.Options{MaxConcurrentAutoCreates: 1})

	names := []string{"orders", "emails", "events", "payments"}
	for _, name := range names {
		_, err := b.Queue(s.Ctx, name, queue.DefaultConfiguration())
		s.Require().NoError(err)
	}

	all, err := s.store.ListQueues(s.Ctx)
	s.Require().NoError(err)
	s.ElementsMatch(names, all)
}

type InstrumentedStoreSuite struct {
	test.Suite
	store *memory.Store
	wrap  *broker.InstrumentedStore
}

func (s *InstrumentedStoreSuite) SetupTest() {
	s.Suite.SetupTest()
	s.store = memory.New()
	s.wrap = broker.NewInstrumentedStore(s.store)
}

func (s *InstrumentedStoreSuite) TestPassesThroughSuccess() {
	created, err := s.wrap.CreateQueue(s.Ctx, "orders", queue.DefaultConfiguration())
	s.Require().NoError(err)
	s.True(created)

	id, err := s.wrap.PushMessage(s.Ctx, "orders", []byte("hi"), nil, nil)
	s.Require().NoError(err)
	s.NotEmpty(id)
}

func (s *InstrumentedStoreSuite) TestPassesThroughError() {
	_, err := s.wrap.DescribeQueue(s.Ctx, "missing")
	s.Error(err)
}

type ResilientStoreSuite struct {
	test.Suite
	store *memory.Store
	wrap  *broker.ResilientStore
}

func (s *ResilientStoreSuite) SetupTest() {
	s.Suite.SetupTest()
	s.store = memory.New()
	s.wrap = broker.NewResilientStore(s.store, broker.ResilientOptions{
		FailureThreshold: 2,
		SuccessThreshold: 1,
	})
}

func (s *ResilientStoreSuite) TestStartsClosed() {
	s.Equal(circuitbreaker.StateClosed, s.wrap.State())
}

func (s *ResilientStoreSuite) TestPassesThroughSuccess() {
	created, err := s.wrap.CreateQueue(s.Ctx, "orders", queue.DefaultConfiguration())
	s.Require().NoError(err)
	s.True(created)
	s.Equal(circuitbreaker.StateClosed, s.wrap.State())
}

func (s *ResilientStoreSuite) TestBusinessErrorsDoNotTripBreaker() {
	for i := 0; i < 5; i++ {
		_, err := s.wrap.DescribeQueue(s.Ctx, "missing")
		s.Error(err)
	}
	s.Equal(circuitbreaker.StateClosed, s.wrap.State(), "a well-formed not-found error must not count against the breaker")
}

func (s *ResilientStoreSuite) TestBackendFailureTripsBreaker() {
	wrap := broker.NewResilientStore(&alwaysFailingStore{}, broker.ResilientOptions{
		FailureThreshold: 2,
		SuccessThreshold: 1,
	})
	for i := 0; i < 3; i++ {
		_, _ = wrap.DescribeQueue(s.Ctx, "orders")
	}
	s.Equal(circuitbreaker.StateOpen, wrap.State())
}

// alwaysFailingStore simulates a queue.Store whose backend is down: every
// call returns an internal error, as opposed to a well-formed business
// rejection.
type alwaysFailingStore struct{}

func (*alwaysFailingStore) CreateQueue(context.Context, string, queue.QueueConfiguration) (bool, error) {
	return false, errors.Internal("backend down", nil)
}
func (*alwaysFailingStore) DeleteQueue(context.Context, string) error {
	return errors.Internal("backend down", nil)
}
func (*alwaysFailingStore) ListQueues(context.Context) ([]string, error) {
	return nil, errors.Internal("backend down", nil)
}
func (*alwaysFailingStore) GetQueueInfo(context.Context, string) (queue.QueueInfo, error) {
	return queue.QueueInfo{}, errors.Internal("backend down", nil)
}
func (*alwaysFailingStore) DescribeQueue(context.Context, string) (queue.QueueInfo, error) {
	return queue.QueueInfo{}, errors.Internal("backend down", nil)
}
func (*alwaysFailingStore) SetQueueVT(context.Context, string, int) error {
	return errors.Internal("backend down", nil)
}
func (*alwaysFailingStore) SetQueueDelay(context.Context, string, int) error {
	return errors.Internal("backend down", nil)
}
func (*alwaysFailingStore) SetQueueMaxSize(context.Context, string, int) error {
	return errors.Internal("backend down", nil)
}
func (*alwaysFailingStore) PushMessage(context.Context, string, []byte, *int, map[string]interface{}) (string, error) {
	return "", errors.Internal("backend down", nil)
}
func (*alwaysFailingStore) PushMessages(context.Context, string, []queue.PushInput) ([]string, error) {
	return nil, errors.Internal("backend down", nil)
}
func (*alwaysFailingStore) GetMessage(context.Context, string, *int) (*queue.ReceivedMessage, error) {
	return nil, errors.Internal("backend down", nil)
}
func (*alwaysFailingStore) DeleteMessage(context.Context, string, string) error {
	return errors.Internal("backend down", nil)
}
func (*alwaysFailingStore) PopMessage(context.Context, string) (*queue.ReceivedMessage, error) {
	return nil, errors.Internal("backend down", nil)
}
func (*alwaysFailingStore) ListDeadLetterCandidates(context.Context, string, int, int64) ([]queue.ReceivedMessage, error) {
	return nil, errors.Internal("backend down", nil)
}

func TestBrokerSuite(t *testing.T)            { test.Run(t, new(BrokerSuite)) }
func TestInstrumentedStoreSuite(t *testing.T) { test.Run(t, new(InstrumentedStoreSuite)) }
func TestResilientStoreSuite(t *testing.T)    { test.Run(t, new(ResilientStoreSuite)) }
