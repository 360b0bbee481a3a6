/*
Package queue implements a persistent, point-to-point message queue modeled
on Amazon SQS semantics: producers push opaque payloads onto a named queue,
consumers receive them under a visibility timeout and must explicitly delete
a message to complete the handoff.

The atomic state machine lives behind the Store interface, with two
implementations: adapters/redis (Lua-scripted, for a shared Redis backend)
and adapters/memory (AVL-indexed, dependency-free, for tests and embedded
use). Queue wraps a Store with name-scoped validation and a
serialize/deserialize hook pair, giving callers a typed per-queue handle
instead of raw bytes.

Usage:

	store := memory.New()
	q, err := queue.NewQueue(ctx, store, "orders", queue.DefaultConfiguration())
	id, err := q.Push(ctx, order{ID: 1}, nil, nil)
	msg, err := q.Get(ctx, nil, false)
	err = q.Delete(ctx, msg.MessageID)
*/
package queue
