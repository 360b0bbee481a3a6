package distlock_test

import (
	"testing"
	"time"

	"github.com/psmq/psmq/pkg/concurrency/distlock"
	"github.com/psmq/psmq/pkg/test"
)

type DistlockSuite struct {
	test.Suite
	locker distlock.Locker
}

func (s *DistlockSuite) SetupTest() {
	s.Suite.SetupTest()
	s.locker = distlock.NewMemoryLocker()
}

func (s *DistlockSuite) TearDownTest() {
	s.locker.Close()
}

func (s *DistlockSuite) TestAcquireBlocksConcurrentHolder() {
	lock1 := s.locker.NewLock("psmq:autocreate:orders", time.Second)
	acquired, err := lock1.Acquire(s.Ctx)
	s.Require().NoError(err)
	s.True(acquired)

	lock2 := s.locker.NewLock("psmq:autocreate:orders", time.Second)
	acquired2, err := lock2.Acquire(s.Ctx)
	s.Require().NoError(err)
	s.False(acquired2, "a second holder must not acquire an already-held key")
}

func (s *DistlockSuite) TestReleaseAllowsReacquire() {
	lock1 := s.locker.NewLock("psmq:autocreate:orders", time.Second)
	acquired, err := lock1.Acquire(s.Ctx)
	s.Require().NoError(err)
	s.Require().True(acquired)
	s.Require().NoError(lock1.Release(s.Ctx))

	lock2 := s.locker.NewLock("psmq:autocreate:orders", time.Second)
	acquired2, err := lock2.Acquire(s.Ctx)
	s.Require().NoError(err)
	s.True(acquired2)
}

func (s *DistlockSuite) TestExpiredLockCanBeReacquired() {
	lock1 := s.locker.NewLock("psmq:autocreate:orders", time.Millisecond)
	acquired, err := lock1.Acquire(s.Ctx)
	s.Require().NoError(err)
	s.Require().True(acquired)

	time.Sleep(5 * time.Millisecond)

	lock2 := s.locker.NewLock("psmq:autocreate:orders", time.Second)
	acquired2, err := lock2.Acquire(s.Ctx)
	s.Require().NoError(err)
	s.True(acquired2, "an expired lock must not block a new acquisition")
}

func (s *DistlockSuite) TestIsHeldReflectsState() {
	lock := s.locker.NewLock("psmq:autocreate:orders", time.Second)
	s.False(lock.IsHeld())
	_, err := lock.Acquire(s.Ctx)
	s.Require().NoError(err)
	s.True(lock.IsHeld())
}

func TestDistlockSuite(t *testing.T) {
	test.Run(t, new(DistlockSuite))
}
