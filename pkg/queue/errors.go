package queue

import (
	"fmt"

	"github.com/psmq/psmq/pkg/errors"
)

// ErrInvalidQueueName reports an empty or missing queue name.
func ErrInvalidQueueName(name string) *errors.AppError {
	return errors.InvalidArgument(fmt.Sprintf("invalid queue name: %q", name), nil)
}

// ErrQueueNameTooLong reports a queue name over the max length.
func ErrQueueNameTooLong(max int) *errors.AppError {
	return errors.InvalidArgument(fmt.Sprintf("queue name exceeds maximum length of %d", max), nil)
}

// ErrInvalidCharacter reports the first disallowed character found in a
// queue name.
func ErrInvalidCharacter(ch byte) *errors.AppError {
	return errors.InvalidArgument(fmt.Sprintf("invalid character %q in queue name", string(ch)), nil)
}

// ErrMessageTooLarge reports a push whose body exceeds the queue's maxsize.
func ErrMessageTooLarge(size, max int) *errors.AppError {
	return errors.InvalidArgument(fmt.Sprintf("message size %d exceeds queue maximum %d", size, max), nil)
}

// ErrUnserializableMessage wraps a failure from the facade's serialize hook.
func ErrUnserializableMessage(cause error) *errors.AppError {
	return errors.InvalidArgument("message could not be serialized", cause)
}

// ErrUndeserializableMessage wraps a failure from the facade's deserialize
// hook. The message itself stays in flight until its VT expires.
func ErrUndeserializableMessage(cause error) *errors.AppError {
	return errors.Internal("message could not be deserialized", cause)
}

// ErrNoMessageInQueue reports an empty receive when the caller asked for an
// error instead of a nil result.
func ErrNoMessageInQueue(queueName string) *errors.AppError {
	return errors.NotFound(fmt.Sprintf("no message available in queue %q", queueName), nil)
}

// ErrValueTooLow reports a numeric config value below its allowed minimum.
func ErrValueTooLow(min int) *errors.AppError {
	return errors.InvalidArgument(fmt.Sprintf("value must be >= %d", min), nil)
}

// ErrValueTooHigh reports a numeric config value above its allowed maximum.
func ErrValueTooHigh(max int) *errors.AppError {
	return errors.InvalidArgument(fmt.Sprintf("value must be <= %d", max), nil)
}

// ErrQueueAlreadyExists reports an explicit create against an existing name
// in contexts that require one (CreateQueue itself is idempotent and
// returns false rather than this error; this is for callers that demand
// exclusivity).
func ErrQueueAlreadyExists(name string) *errors.AppError {
	return errors.AlreadyExists(fmt.Sprintf("queue %q already exists", name), nil)
}

// ErrQueueDoesNotExist reports an operation against a queue name that has
// no corresponding entry and does not auto-create (e.g. DescribeQueue).
func ErrQueueDoesNotExist(name string) *errors.AppError {
	return errors.NotFound(fmt.Sprintf("queue %q does not exist", name), nil)
}
