package queue

import (
	"context"
	"encoding/json"
)

// Serializer turns an application value into message bytes.
type Serializer func(value interface{}) ([]byte, error)

// Deserializer turns message bytes back into an application value.
type Deserializer func(body []byte) (interface{}, error)

func jsonSerializer(value interface{}) ([]byte, error) { return json.Marshal(value) }

func jsonDeserializer(body []byte) (interface{}, error) {
	var v interface{}
	err := json.Unmarshal(body, &v)
	return v, err
}

// Queue is a per-queue handle wrapping a Store with name-scoped validation
// and a serialize/deserialize hook pair. It holds no locks of its own: all
// safety is inherited from the Store's atomicity.
type Queue struct {
	name        string
	store       Store
	serialize   Serializer
	deserialize Deserializer
}

// NewQueue validates name, creates it on the store if missing with cfg, and
// returns a handle using the default JSON serializer/deserializer.
func NewQueue(ctx context.Context, store Store, name string, cfg QueueConfiguration) (*Queue, error) {
	if err := ValidateQueueName(name); err != nil {
		return nil, err
	}
	if _, err := store.CreateQueue(ctx, name, cfg); err != nil {
		return nil, err
	}
	return &Queue{name: name, store: store, serialize: jsonSerializer, deserialize: jsonDeserializer}, nil
}

// WithCodec overrides the serializer/deserializer pair used by Push/Get.
func (q *Queue) WithCodec(serialize Serializer, deserialize Deserializer) *Queue {
	q.serialize = serialize
	q.deserialize = deserialize
	return q
}

// Name returns the queue's name.
func (q *Queue) Name() string { return q.name }

// Push serializes value and pushes it, carrying ttl (if non-nil) in the
// message's metadata for forward compatibility; the core does not enforce
// it today.
func (q *Queue) Push(ctx context.Context, value interface{}, delay, ttl *int) (string, error) {
	body, err := q.serialize(value)
	if err != nil {
		return "", ErrUnserializableMessage(err)
	}
	metadata := map[string]interface{}{}
	if ttl != nil {
		metadata["ttl"] = *ttl
	}
	return q.store.PushMessage(ctx, q.name, body, delay, metadata)
}

// PushMany serializes every value and pushes the batch as one atomic
// transaction: either every id is returned or none are written.
func (q *Queue) PushMany(ctx context.Context, values []interface{}, delay, ttl *int) ([]string, error) {
	batch := make([]PushInput, 0, len(values))
	for _, value := range values {
		body, err := q.serialize(value)
		if err != nil {
			return nil, ErrUnserializableMessage(err)
		}
		metadata := map[string]interface{}{}
		if ttl != nil {
			metadata["ttl"] = *ttl
		}
		batch = append(batch, PushInput{Body: body, Delay: delay, Metadata: metadata})
	}
	return q.store.PushMessages(ctx, q.name, batch)
}

// Received is a facade-level received message: Data holds the deserialized
// value rather than raw bytes.
type Received struct {
	MessageID string
	Data      interface{}
	Sent      int64
	RC        int64
	FR        int64
	Metadata  map[string]interface{}
}

// Get receives the next ready message. If the queue is empty and
// raiseOnEmpty is true, it fails with ErrNoMessageInQueue; otherwise it
// returns (nil, nil). If the deserialize hook fails, it fails with
// ErrUndeserializableMessage and the message is left in flight.
func (q *Queue) Get(ctx context.Context, vt *int, raiseOnEmpty bool) (*Received, error) {
	msg, err := q.store.GetMessage(ctx, q.name, vt)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		if raiseOnEmpty {
			return nil, ErrNoMessageInQueue(q.name)
		}
		return nil, nil
	}
	data, err := q.deserialize(msg.Body)
	if err != nil {
		return nil, ErrUndeserializableMessage(err)
	}
	return &Received{
		MessageID: msg.MessageID,
		Data:      data,
		Sent:      msg.Sent,
		RC:        msg.RC,
		FR:        msg.FR,
		Metadata:  msg.Metadata,
	}, nil
}

// Pop is Get followed by Delete on success.
func (q *Queue) Pop(ctx context.Context, raiseOnEmpty bool) (*Received, error) {
	msg, err := q.store.PopMessage(ctx, q.name)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		if raiseOnEmpty {
			return nil, ErrNoMessageInQueue(q.name)
		}
		return nil, nil
	}
	data, err := q.deserialize(msg.Body)
	if err != nil {
		return nil, ErrUndeserializableMessage(err)
	}
	return &Received{
		MessageID: msg.MessageID,
		Data:      data,
		Sent:      msg.Sent,
		RC:        msg.RC,
		FR:        msg.FR,
		Metadata:  msg.Metadata,
	}, nil
}

// Delete removes id from the queue. No-op if absent.
func (q *Queue) Delete(ctx context.Context, id string) error {
	return q.store.DeleteMessage(ctx, q.name, id)
}

// Metadata returns the queue's current configuration and counters.
func (q *Queue) Metadata(ctx context.Context) (QueueInfo, error) {
	return q.store.GetQueueInfo(ctx, q.name)
}
