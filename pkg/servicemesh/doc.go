/*
Package servicemesh provides service mesh components used by the broker to
protect itself from an unhealthy storage backend.

Subpackages:

  - circuitbreaker: Circuit breaker pattern implementation, used by the
    broker's resilient store decorator to stop hammering a backend that
    is already failing.

Usage:

	import "github.com/psmq/psmq/pkg/servicemesh/circuitbreaker"

	cb := circuitbreaker.New("queue-store", circuitbreaker.Options{FailureThreshold: 5})
	_, err := cb.Execute(func() (interface{}, error) { return store.PushMessage(ctx, name, body, nil, nil) })
*/
package servicemesh
