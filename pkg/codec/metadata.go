package codec

import (
	"github.com/psmq/psmq/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// EncodeMetadata packs an arbitrary metadata map into msgpack bytes, mirroring
// the umsgpack encoding used by the reference implementation so that a
// message's metadata round-trips through storage without a fixed schema.
func EncodeMetadata(metadata map[string]interface{}) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	raw, err := msgpack.Marshal(metadata)
	if err != nil {
		return nil, errors.Internal("failed to encode metadata", err)
	}
	return raw, nil
}

// DecodeMetadata unpacks msgpack bytes produced by EncodeMetadata.
func DecodeMetadata(raw []byte) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return map[string]interface{}{}, nil
	}
	var metadata map[string]interface{}
	if err := msgpack.Unmarshal(raw, &metadata); err != nil {
		return nil, errors.Internal("failed to decode metadata", err)
	}
	return metadata, nil
}
