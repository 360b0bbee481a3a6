/*
Package codec implements the wire encodings shared by the queue and stream
stores: base36 for time-sortable numeric IDs, and msgpack for the
self-describing metadata map carried alongside every message.

Usage:

	id := codec.EncodeBase36(time.Now().UnixMicro())
	raw, err := codec.EncodeMetadata(map[string]interface{}{"sent": 1234})
	meta, err := codec.DecodeMetadata(raw)
*/
package codec
