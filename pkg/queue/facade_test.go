package queue_test

import (
	"testing"

	"github.com/psmq/psmq/pkg/queue"
	"github.com/psmq/psmq/pkg/queue/adapters/memory"
	"github.com/psmq/psmq/pkg/test"
)

type FacadeSuite struct {
	test.Suite
	store *memory.Store
}

func (s *FacadeSuite) SetupTest() {
	s.Suite.SetupTest()
	s.store = memory.New()
}

type order struct {
	ID    string `json:"id"`
	Total int    `json:"total"`
}

func (s *FacadeSuite) TestPushAndGetRoundTrip() {
	q, err := queue.NewQueue(s.Ctx, s.store, "orders", queue.DefaultConfiguration())
	s.Require().NoError(err)

	_, err = q.Push(s.Ctx, order{ID: "o1", Total: 42}, nil, nil)
	s.Require().NoError(err)

	received, err := q.Get(s.Ctx, nil, true)
	s.Require().NoError(err)
	s.Require().NotNil(received)

	decoded, ok := received.Data.(map[string]interface{})
	s.Require().True(ok)
	s.Equal("o1", decoded["id"])
}

func (s *FacadeSuite) TestGetOnEmptyQueueRaises() {
	q, err := queue.NewQueue(s.Ctx, s.store, "orders", queue.DefaultConfiguration())
	s.Require().NoError(err)

	_, err = q.Get(s.Ctx, nil, true)
	s.Error(err)
}

func (s *FacadeSuite) TestGetOnEmptyQueueSilent() {
	q, err := queue.NewQueue(s.Ctx, s.store, "orders", queue.DefaultConfiguration())
	s.Require().NoError(err)

	received, err := q.Get(s.Ctx, nil, false)
	s.NoError(err)
	s.Nil(received)
}

func (s *FacadeSuite) TestPushManyAtomic() {
	q, err := queue.NewQueue(s.Ctx, s.store, "orders", queue.DefaultConfiguration())
	s.Require().NoError(err)

	ids, err := q.PushMany(s.Ctx, []interface{}{order{ID: "a"}, order{ID: "b"}}, nil, nil)
	s.Require().NoError(err)
	s.Len(ids, 2)
}

func (s *FacadeSuite) TestPopDeletesMessage() {
	q, err := queue.NewQueue(s.Ctx, s.store, "orders", queue.DefaultConfiguration())
	s.Require().NoError(err)

	_, err = q.Push(s.Ctx, order{ID: "o1"}, nil, nil)
	s.Require().NoError(err)

	received, err := q.Pop(s.Ctx, true)
	s.Require().NoError(err)
	s.Require().NotNil(received)

	info, err := q.Metadata(s.Ctx)
	s.NoError(err)
	s.Equal(int64(0), info.Metadata.Msgs)
}

func (s *FacadeSuite) TestInvalidQueueNameRejected() {
	_, err := queue.NewQueue(s.Ctx, s.store, "", queue.DefaultConfiguration())
	s.Error(err)
}

func TestFacadeSuite(t *testing.T) {
	test.Run(t, new(FacadeSuite))
}
