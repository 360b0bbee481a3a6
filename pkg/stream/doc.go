/*
Package stream provides a Redis Streams wrapper with consumer-group
semantics, independent of pkg/queue: streams are an append-only log with
fan-out delivery tracked per group, not a point-to-point queue with
per-message visibility timeouts.

Usage:

	st := stream.New(client, "events")
	st.CreateConsumerGroup(ctx, "workers", true)
	c, err := stream.NewConsumer(ctx, client, "events", "workers", "")
	timeoutMS := int64(5000)
	msgs, err := c.Pop(ctx, 10, &timeoutMS)
*/
package stream
