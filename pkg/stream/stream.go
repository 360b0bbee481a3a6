package stream

import (
	"context"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	pkgerrors "github.com/psmq/psmq/pkg/errors"
)

// Stream is a handle onto one Redis Stream key.
type Stream struct {
	client *goredis.Client
	name   string
}

// New builds a Stream handle. It does not create the underlying Redis key;
// the key comes into existence on the first Publish or CreateConsumerGroup
// call (mkstream).
func New(client *goredis.Client, name string) *Stream {
	return &Stream{client: client, name: name}
}

// Name returns the stream's key name.
func (s *Stream) Name() string { return s.name }

// Publish appends fields as a new entry and returns its assigned ID.
func (s *Stream) Publish(ctx context.Context, fields map[string]interface{}) (string, error) {
	id, err := s.client.XAdd(ctx, &goredis.XAddArgs{Stream: s.name, Values: fields}).Result()
	if err != nil {
		return "", pkgerrors.Internal("publish failed", err)
	}
	return id, nil
}

// CreateConsumerGroup creates groupName if it doesn't already exist.
// fromStart chooses whether a newly created group starts delivering from
// the beginning of the stream ("0") or only entries added after creation
// ("$"). The stream key is created if missing.
func (s *Stream) CreateConsumerGroup(ctx context.Context, groupName string, fromStart bool) error {
	start := "$"
	if fromStart {
		start = "0"
	}
	err := s.client.XGroupCreateMkStream(ctx, s.name, groupName, start).Err()
	if err != nil && !isBusyGroup(err) {
		return pkgerrors.Internal("create_consumer_group failed", err)
	}
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

// ListConsumerGroups returns every consumer group registered on the stream.
func (s *Stream) ListConsumerGroups(ctx context.Context) ([]ConsumerGroupInfo, error) {
	groups, err := s.client.XInfoGroups(ctx, s.name).Result()
	if err != nil {
		return nil, pkgerrors.Internal("list_consumer_groups failed", err)
	}
	out := make([]ConsumerGroupInfo, 0, len(groups))
	for _, g := range groups {
		out = append(out, ConsumerGroupInfo{
			Name:            g.Name,
			Consumers:       g.Consumers,
			Pending:         g.Pending,
			LastDeliveredID: g.LastDeliveredID,
			EntriesRead:     int64(g.EntriesRead),
			Lag:             int64(g.Lag),
		})
	}
	return out, nil
}

// DeleteConsumerGroup destroys groupName, dropping its pending-entry list
// even if consumers are still attached.
func (s *Stream) DeleteConsumerGroup(ctx context.Context, groupName string) error {
	if err := s.client.XGroupDestroy(ctx, s.name, groupName).Err(); err != nil {
		return pkgerrors.Internal("delete_consumer_group failed", err)
	}
	return nil
}

// SetGroupOffsetID moves groupName's last-delivered cursor to messageID.
func (s *Stream) SetGroupOffsetID(ctx context.Context, groupName, messageID string) error {
	if err := s.client.XGroupSetID(ctx, s.name, groupName, messageID).Err(); err != nil {
		return pkgerrors.Internal("set_group_offset_id failed", err)
	}
	return nil
}

// ResetGroupOffset rewinds groupName's cursor to the beginning of the
// stream (XGROUP SETID 0-0), so the group's next read starts from the
// first entry.
func (s *Stream) ResetGroupOffset(ctx context.Context, groupName string) error {
	if err := s.client.XGroupSetID(ctx, s.name, groupName, "0-0").Err(); err != nil {
		return pkgerrors.Internal("reset_group_offset failed", err)
	}
	return nil
}

// RollBackGroupOffset sets groupName's cursor to numMessages entries back
// from the end of the stream, so the group's next read redelivers the last
// numMessages entries. It goes back to the beginning if the stream holds
// fewer entries than that.
func (s *Stream) RollBackGroupOffset(ctx context.Context, groupName string, numMessages int64) error {
	if numMessages < 0 {
		numMessages = 0
	}
	entries, err := s.client.XRevRangeN(ctx, s.name, "+", "-", numMessages+1).Result()
	if err != nil {
		return pkgerrors.Internal("roll_back_group_offset failed", err)
	}
	id := "0-0"
	if int64(len(entries)) > numMessages {
		id = entries[numMessages].ID
	}
	if err := s.client.XGroupSetID(ctx, s.name, groupName, id).Err(); err != nil {
		return pkgerrors.Internal("roll_back_group_offset failed", err)
	}
	return nil
}

// CreateConsumer registers consumerName under groupName, creating the
// group first if it doesn't exist.
func (s *Stream) CreateConsumer(ctx context.Context, groupName, consumerName string) error {
	if err := s.CreateConsumerGroup(ctx, groupName, true); err != nil {
		return err
	}
	if err := s.client.XGroupCreateConsumer(ctx, s.name, groupName, consumerName).Err(); err != nil {
		return pkgerrors.Internal("create_consumer failed", err)
	}
	return nil
}
