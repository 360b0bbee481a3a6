package queue

import (
	"testing"
	"time"

	"github.com/psmq/psmq/pkg/queue/adapters/memory"
	"github.com/psmq/psmq/pkg/test"
)

type ReaperSuite struct {
	test.Suite
	store *memory.Store
}

func (s *ReaperSuite) SetupTest() {
	s.Suite.SetupTest()
	s.store = memory.New()
}

func (s *ReaperSuite) TestSweepDropsExpiredByRC() {
	_, err := s.store.CreateQueue(s.Ctx, "orders", QueueConfiguration{VT: 0, MaxSize: DefaultMaxSize})
	s.Require().NoError(err)
	_, err = s.store.PushMessage(s.Ctx, "orders", []byte("hello"), nil, nil)
	s.Require().NoError(err)

	for i := 0; i < 3; i++ {
		_, err = s.store.GetMessage(s.Ctx, "orders", nil)
		s.Require().NoError(err)
	}

	r := NewReaper(s.store, []string{"orders"}, ReaperConfig{MaxRC: 2})
	r.sweepQueue(s.Ctx, "orders")

	info, err := s.store.DescribeQueue(s.Ctx, "orders")
	s.Require().NoError(err)
	s.Equal(int64(0), info.Metadata.Msgs, "expired message should have been reaped")
}

func (s *ReaperSuite) TestSweepRoutesToDeadLetterQueue() {
	_, err := s.store.CreateQueue(s.Ctx, "orders", QueueConfiguration{VT: 0, MaxSize: DefaultMaxSize})
	s.Require().NoError(err)
	_, err = s.store.CreateQueue(s.Ctx, "orders-dlq", DefaultConfiguration())
	s.Require().NoError(err)
	_, err = s.store.PushMessage(s.Ctx, "orders", []byte("hello"), nil, nil)
	s.Require().NoError(err)

	for i := 0; i < 2; i++ {
		_, err = s.store.GetMessage(s.Ctx, "orders", nil)
		s.Require().NoError(err)
	}

	r := NewReaper(s.store, []string{"orders"}, ReaperConfig{MaxRC: 1, DeadLetterQueue: "orders-dlq"})
	r.sweepQueue(s.Ctx, "orders")

	dlqInfo, err := s.store.DescribeQueue(s.Ctx, "orders-dlq")
	s.Require().NoError(err)
	s.Equal(int64(1), dlqInfo.Metadata.Msgs)
}

func (s *ReaperSuite) TestSweepLeavesFreshMessagesAlone() {
	_, err := s.store.CreateQueue(s.Ctx, "orders", DefaultConfiguration())
	s.Require().NoError(err)
	_, err = s.store.PushMessage(s.Ctx, "orders", []byte("hello"), nil, nil)
	s.Require().NoError(err)

	r := NewReaper(s.store, []string{"orders"}, ReaperConfig{MaxRC: 5, MaxAge: time.Hour})
	r.sweepQueue(s.Ctx, "orders")

	info, err := s.store.DescribeQueue(s.Ctx, "orders")
	s.Require().NoError(err)
	s.Equal(int64(1), info.Metadata.Msgs)
}

func TestReaperSuite(t *testing.T) {
	test.Run(t, new(ReaperSuite))
}
