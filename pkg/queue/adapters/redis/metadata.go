package redis

import (
	"time"

	"github.com/psmq/psmq/pkg/codec"
)

func nowUS() int64 { return time.Now().UnixMicro() }

// encodeMetadataField msgpack-encodes metadata for storage in the Redis
// message hash's "metadata" field. It never embeds "sent": that field is
// tracked separately by the Lua scripts from their own TIME call and
// merged back in by the callers of decodeMetadataField
// (parseReceivedMessage, ListDeadLetterCandidates).
func encodeMetadataField(metadata map[string]interface{}) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	clean := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		if k == "sent" {
			continue
		}
		clean[k] = v
	}
	return codec.EncodeMetadata(clean)
}

// decodeMetadataField unmarshals the raw "metadata" hash field. sent is
// injected by the caller from the message row's separate sent field, so
// this only decodes the application-level metadata bytes.
func decodeMetadataField(raw interface{}) (map[string]interface{}, error) {
	s, _ := raw.(string)
	return codec.DecodeMetadata([]byte(s))
}
