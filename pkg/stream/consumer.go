package stream

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pkgerrors "github.com/psmq/psmq/pkg/errors"
)

const consumerIDAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

func shortID() string {
	out := make([]byte, 8)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(consumerIDAlphabet))))
		if err != nil {
			continue
		}
		out[i] = consumerIDAlphabet[n.Int64()]
	}
	return string(out)
}

const defaultMaxPendingTime = 3 * time.Second

// Consumer reads from a Stream as a member of a consumer group, tracking
// its own pending-entries list.
type Consumer struct {
	client         *goredis.Client
	stream         *Stream
	groupName      string
	consumerName   string
	maxPendingTime time.Duration
}

// NewConsumer builds a Consumer against groupName, creating the group and
// the consumer entry if they don't exist. An empty consumerName generates
// a random one.
func NewConsumer(ctx context.Context, client *goredis.Client, streamName, groupName, consumerName string) (*Consumer, error) {
	if consumerName == "" {
		consumerName = shortID()
	}
	c := &Consumer{
		client:         client,
		stream:         New(client, streamName),
		groupName:      groupName,
		consumerName:   consumerName,
		maxPendingTime: defaultMaxPendingTime,
	}
	if err := c.stream.CreateConsumer(ctx, groupName, consumerName); err != nil {
		return nil, err
	}
	return c, nil
}

// Name returns the consumer's own name within its group.
func (c *Consumer) Name() string { return c.consumerName }

func xMessagesToMessages(msgs []goredis.XMessage) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Message{ID: m.ID, Fields: m.Values})
	}
	return out
}

// Autoclaim takes ownership of up to count pending entries idle for at
// least pendingMS (defaulting to 3 seconds), so a consumer that died
// before acking doesn't strand its entries forever.
func (c *Consumer) Autoclaim(ctx context.Context, count int64, pendingMS *int64) ([]Message, error) {
	minIdle := c.maxPendingTime
	if pendingMS != nil {
		minIdle = time.Duration(*pendingMS) * time.Millisecond
	}
	_, msgs, err := c.client.XAutoClaim(ctx, &goredis.XAutoClaimArgs{
		Stream:   c.stream.name,
		Group:    c.groupName,
		Consumer: c.consumerName,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    count,
	}).Result()
	if err != nil {
		return nil, pkgerrors.Internal("autoclaim failed", err)
	}
	return xMessagesToMessages(msgs), nil
}

// Get reads up to count unacknowledged messages, first reclaiming idle
// pending entries via Autoclaim and filling the remainder with fresh
// reads, blocking up to timeoutMS for the first fresh entry to arrive
// (a nil timeout does not block). Returned messages must be acked
// explicitly with Ack.
func (c *Consumer) Get(ctx context.Context, count int64, timeoutMS *int64) ([]Message, error) {
	claimed, err := c.Autoclaim(ctx, count, nil)
	if err != nil {
		return nil, err
	}
	if int64(len(claimed)) >= count {
		return claimed, nil
	}

	remaining := count - int64(len(claimed))
	args := &goredis.XReadGroupArgs{
		Group:    c.groupName,
		Consumer: c.consumerName,
		Streams:  []string{c.stream.name, ">"},
		Count:    remaining,
		Block:    -1,
	}
	if timeoutMS != nil {
		args.Block = time.Duration(*timeoutMS) * time.Millisecond
	}
	streams, err := c.client.XReadGroup(ctx, args).Result()
	if err != nil && err != goredis.Nil {
		return nil, pkgerrors.Internal("get failed", err)
	}
	if len(streams) == 0 {
		return claimed, nil
	}
	return append(claimed, xMessagesToMessages(streams[0].Messages)...), nil
}

// Ack acknowledges messageIDs, removing them from the group's pending
// entries list.
func (c *Consumer) Ack(ctx context.Context, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := c.client.XAck(ctx, c.stream.name, c.groupName, messageIDs...).Err(); err != nil {
		return pkgerrors.Internal("ack failed", err)
	}
	return nil
}

// Pop reads up to count messages and acknowledges them automatically
// (NOACK), blocking up to timeoutMS for the first entry to arrive.
func (c *Consumer) Pop(ctx context.Context, count int64, timeoutMS *int64) ([]Message, error) {
	args := &goredis.XReadGroupArgs{
		Group:    c.groupName,
		Consumer: c.consumerName,
		Streams:  []string{c.stream.name, ">"},
		Count:    count,
		NoAck:    true,
		Block:    -1,
	}
	if timeoutMS != nil {
		args.Block = time.Duration(*timeoutMS) * time.Millisecond
	}
	streams, err := c.client.XReadGroup(ctx, args).Result()
	if err != nil && err != goredis.Nil {
		return nil, pkgerrors.Internal("pop failed", err)
	}
	if len(streams) == 0 {
		return nil, nil
	}
	return xMessagesToMessages(streams[0].Messages), nil
}
