package idgen

import (
	"crypto/rand"
	"math/big"
	mathrand "math/rand/v2"

	"github.com/psmq/psmq/pkg/codec"
)

const (
	alphanumeric       = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	messageIDSuffixLen = 22
	shortIDLen         = 8
)

// MakeMessageID builds a message ID from a microsecond timestamp: the
// timestamp's base36 encoding, followed by a random alphanumeric suffix that
// disambiguates messages sent within the same microsecond. The suffix only
// needs to avoid collisions, not resist prediction, so it uses the
// non-cryptographic math/rand/v2.
func MakeMessageID(nowUS int64) string {
	suffix := make([]byte, messageIDSuffixLen)
	for i := range suffix {
		suffix[i] = alphanumeric[mathrand.IntN(len(alphanumeric))]
	}
	return codec.EncodeBase36(nowUS) + string(suffix)
}

// ShortID returns an 8-character random alphanumeric identifier, used to
// name a stream consumer when the caller doesn't supply one. It uses
// crypto/rand since consumer names double as a namespacing key that other
// processes race to claim.
func ShortID() string {
	out := make([]byte, shortIDLen)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphanumeric))))
		if err != nil {
			out[i] = alphanumeric[mathrand.IntN(len(alphanumeric))]
			continue
		}
		out[i] = alphanumeric[n.Int64()]
	}
	return string(out)
}
