package queue_test

import (
	"strings"
	"testing"

	"github.com/psmq/psmq/pkg/queue"
	"github.com/psmq/psmq/pkg/test"
)

type ValidateSuite struct {
	test.Suite
}

func (s *ValidateSuite) TestValidNames() {
	for _, name := range []string{"orders", "orders.v2", "orders-retry", "a", "A_B-1.2"} {
		s.NoError(queue.ValidateQueueName(name))
	}
}

func (s *ValidateSuite) TestEmptyName() {
	s.Error(queue.ValidateQueueName(""))
}

func (s *ValidateSuite) TestTooLong() {
	s.Error(queue.ValidateQueueName(strings.Repeat("a", queue.QNameMaxLength+1)))
}

func (s *ValidateSuite) TestInvalidCharacter() {
	s.Error(queue.ValidateQueueName("orders/retry"))
	s.Error(queue.ValidateQueueName("orders retry"))
	s.Error(queue.ValidateQueueName("orders#1"))
}

func TestValidateSuite(t *testing.T) {
	test.Run(t, new(ValidateSuite))
}
