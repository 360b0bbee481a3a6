package stream

// ConsumerGroupInfo describes one consumer group's cursor state, as
// returned by XInfoGroups.
type ConsumerGroupInfo struct {
	Name            string
	Consumers       int64
	Pending         int64
	LastDeliveredID string
	EntriesRead     int64
	// Lag is the number of stream entries not yet delivered to this
	// group's consumers.
	Lag int64
}

// Message is one stream entry: an ID plus its field map.
type Message struct {
	ID     string
	Fields map[string]interface{}
}
