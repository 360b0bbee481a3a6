/*
Package broker ties pkg/queue and pkg/stream together into a single
process-wide entry point: it caches queue.Queue and stream.Stream handles
by name, and provides InstrumentedStore and ResilientStore decorators that
add tracing, logging and circuit-breaker protection to a queue.Store. New
uses the store it is given as is; wrapping it is up to the caller, as below.

Usage:

	decorated := broker.NewResilientStore(broker.NewInstrumentedStore(store), broker.ResilientOptions{})
	b := broker.New(decorated, broker.Options{})
	q, err := b.Queue(ctx, "orders", queue.DefaultConfiguration())
	id, err := q.Push(ctx, order, nil, nil)
*/
package broker
