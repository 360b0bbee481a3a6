/*
Package memory implements queue.Store without any external dependency,
using the teacher's own AVL tree as the sorted-by-deliver_at index, its
generic Set as the queue-name set, and SmartRWMutex as the per-queue
single-writer serialization primitive called for by the storage-backend
contract. It is the reference implementation for tests and for
single-process deployments that don't want a Redis dependency.
*/
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/psmq/psmq/pkg/concurrency"
	"github.com/psmq/psmq/pkg/datastructures/set"
	"github.com/psmq/psmq/pkg/datastructures/tree/avl"
	"github.com/psmq/psmq/pkg/idgen"
	"github.com/psmq/psmq/pkg/queue"
)

type record struct {
	body       []byte
	metadata   map[string]interface{}
	deliverAt  int64 // epoch ms
	rc         int64
	fr         int64 // epoch ms, 0 until first receive
	currentKey string
}

type memQueue struct {
	mu      *concurrency.SmartRWMutex
	cfg     queue.QueueConfiguration
	meta    queue.QueueMetadata
	index   *avl.Tree[string, string] // composite key -> message id
	records map[string]*record        // message id -> record
}

func newMemQueue(cfg queue.QueueConfiguration, nowS int64) *memQueue {
	return &memQueue{
		mu:      concurrency.NewSmartRWMutex(concurrency.MutexConfig{Name: "queue"}),
		cfg:     cfg,
		meta:    queue.QueueMetadata{Created: nowS, Modified: nowS},
		index:   avl.New[string, string](),
		records: make(map[string]*record),
	}
}

func indexKey(deliverAt int64, id string) string {
	return fmt.Sprintf("%020d:%s", deliverAt, id)
}

// Store is the in-memory Store implementation.
type Store struct {
	mu     sync.RWMutex
	names  *set.Set[string]
	queues map[string]*memQueue
}

// New builds an empty in-memory Store.
func New() *Store {
	return &Store{
		names:  set.New[string](),
		queues: make(map[string]*memQueue),
	}
}

func nowMS() int64 { return time.Now().UnixMilli() }
func nowUS() int64 { return time.Now().UnixMicro() }

func (s *Store) getOrCreate(name string, cfg queue.QueueConfiguration) (*memQueue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.queues[name]; ok {
		return q, false
	}
	q := newMemQueue(cfg, nowMS()/1000)
	s.queues[name] = q
	s.names.Add(name)
	return q, true
}

func (s *Store) get(name string) (*memQueue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.queues[name]
	return q, ok
}

func (s *Store) CreateQueue(ctx context.Context, name string, cfg queue.QueueConfiguration) (bool, error) {
	if err := queue.ValidateQueueName(name); err != nil {
		return false, err
	}
	_, created := s.getOrCreate(name, cfg)
	return created, nil
}

func (s *Store) DeleteQueue(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queues, name)
	s.names.Remove(name)
	return nil
}

func (s *Store) ListQueues(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.names.List(), nil
}

func (s *Store) describe(q *memQueue) queue.QueueInfo {
	q.mu.RLock()
	defer q.mu.RUnlock()
	now := nowMS()
	hidden := int64(0)
	for _, r := range q.records {
		if r.deliverAt > now {
			hidden++
		}
	}
	meta := q.meta
	meta.Msgs = int64(len(q.records))
	meta.HiddenMsgs = hidden
	return queue.QueueInfo{Config: q.cfg, Metadata: meta}
}

func (s *Store) GetQueueInfo(ctx context.Context, name string) (queue.QueueInfo, error) {
	if err := queue.ValidateQueueName(name); err != nil {
		return queue.QueueInfo{}, err
	}
	q, _ := s.getOrCreate(name, queue.DefaultConfiguration())
	return s.describe(q), nil
}

func (s *Store) DescribeQueue(ctx context.Context, name string) (queue.QueueInfo, error) {
	q, ok := s.get(name)
	if !ok {
		return queue.QueueInfo{}, queue.ErrQueueDoesNotExist(name)
	}
	return s.describe(q), nil
}

func (s *Store) SetQueueVT(ctx context.Context, name string, vt int) error {
	q, _ := s.getOrCreate(name, queue.DefaultConfiguration())
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cfg.VT = vt
	q.meta.Modified = nowMS() / 1000
	return nil
}

func (s *Store) SetQueueDelay(ctx context.Context, name string, delay int) error {
	q, _ := s.getOrCreate(name, queue.DefaultConfiguration())
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cfg.Delay = delay
	q.meta.Modified = nowMS() / 1000
	return nil
}

func (s *Store) SetQueueMaxSize(ctx context.Context, name string, maxSize int) error {
	q, _ := s.getOrCreate(name, queue.DefaultConfiguration())
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cfg.MaxSize = maxSize
	q.meta.Modified = nowMS() / 1000
	return nil
}

func (s *Store) PushMessage(ctx context.Context, name string, body []byte, delay *int, metadata map[string]interface{}) (string, error) {
	q, _ := s.getOrCreate(name, queue.DefaultConfiguration())
	q.mu.Lock()
	defer q.mu.Unlock()
	return pushLocked(q, body, delay, metadata)
}

func pushLocked(q *memQueue, body []byte, delay *int, metadata map[string]interface{}) (string, error) {
	if q.cfg.MaxSize > 0 && len(body) > q.cfg.MaxSize {
		return "", queue.ErrMessageTooLarge(len(body), q.cfg.MaxSize)
	}
	effectiveDelay := q.cfg.Delay
	if delay != nil && *delay >= 0 {
		effectiveDelay = *delay
	}
	ms := nowMS()
	us := nowUS()
	id := idgen.MakeMessageID(us)
	deliverAt := ms + int64(effectiveDelay)*1000

	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadata["sent"] = ms / 1000

	key := indexKey(deliverAt, id)
	q.index.Put(key, id)
	q.records[id] = &record{body: body, metadata: metadata, deliverAt: deliverAt, currentKey: key}
	q.meta.TotalSent++
	return id, nil
}

func (s *Store) PushMessages(ctx context.Context, name string, batch []queue.PushInput) ([]string, error) {
	q, _ := s.getOrCreate(name, queue.DefaultConfiguration())
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range batch {
		if q.cfg.MaxSize > 0 && len(item.Body) > q.cfg.MaxSize {
			return nil, queue.ErrMessageTooLarge(len(item.Body), q.cfg.MaxSize)
		}
	}

	ids := make([]string, 0, len(batch))
	for _, item := range batch {
		id, err := pushLocked(q, item.Body, item.Delay, item.Metadata)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) GetMessage(ctx context.Context, name string, vt *int) (*queue.ReceivedMessage, error) {
	q, ok := s.get(name)
	if !ok {
		return nil, nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return receiveLocked(q, name, vt)
}

func receiveLocked(q *memQueue, name string, vt *int) (*queue.ReceivedMessage, error) {
	_, id, ok := q.index.Min()
	if !ok {
		return nil, nil
	}
	now := nowMS()
	r := q.records[id]
	if r.deliverAt > now {
		return nil, nil
	}

	effectiveVT := q.cfg.VT
	if vt != nil {
		effectiveVT = *vt
	}
	newDeliverAt := now + int64(effectiveVT)*1000

	q.index.Delete(r.currentKey)
	r.currentKey = indexKey(newDeliverAt, id)
	q.index.Put(r.currentKey, id)
	r.deliverAt = newDeliverAt
	r.rc++
	if r.fr == 0 {
		r.fr = now
	}
	q.meta.TotalRecv++

	return &queue.ReceivedMessage{
		QueueName: name,
		MessageID: id,
		Body:      append([]byte(nil), r.body...),
		Metadata:  cloneMetadata(r.metadata),
		Sent:      toInt64(r.metadata["sent"]),
		RC:        r.rc,
		FR:        r.fr,
	}, nil
}

func (s *Store) DeleteMessage(ctx context.Context, name, id string) error {
	q, ok := s.get(name)
	if !ok {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	deleteLocked(q, id)
	return nil
}

func deleteLocked(q *memQueue, id string) {
	r, ok := q.records[id]
	if !ok {
		return
	}
	q.index.Delete(r.currentKey)
	delete(q.records, id)
}

func (s *Store) PopMessage(ctx context.Context, name string) (*queue.ReceivedMessage, error) {
	q, ok := s.get(name)
	if !ok {
		return nil, nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	msg, err := receiveLocked(q, name, nil)
	if err != nil || msg == nil {
		return msg, err
	}
	deleteLocked(q, msg.MessageID)
	return msg, nil
}

func (s *Store) ListDeadLetterCandidates(ctx context.Context, name string, maxRC int, maxAgeSeconds int64) ([]queue.ReceivedMessage, error) {
	q, ok := s.get(name)
	if !ok {
		return nil, nil
	}
	q.mu.RLock()
	defer q.mu.RUnlock()

	nowS := nowMS() / 1000
	var out []queue.ReceivedMessage
	for id, r := range q.records {
		sent := toInt64(r.metadata["sent"])
		tooManyRetries := maxRC > 0 && r.rc > int64(maxRC)
		tooOld := maxAgeSeconds > 0 && sent > 0 && nowS-sent > maxAgeSeconds
		if !tooManyRetries && !tooOld {
			continue
		}
		out = append(out, queue.ReceivedMessage{
			QueueName: name,
			MessageID: id,
			Body:      append([]byte(nil), r.body...),
			Metadata:  cloneMetadata(r.metadata),
			Sent:      sent,
			RC:        r.rc,
			FR:        r.fr,
		})
	}
	return out, nil
}

func cloneMetadata(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

var _ queue.Store = (*Store)(nil)
