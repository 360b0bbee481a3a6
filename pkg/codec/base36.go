package codec

import (
	"strconv"

	"github.com/psmq/psmq/pkg/errors"
)

const base36Digits = "0123456789abcdefghijklmnopqrstuvwxyz"

// EncodeBase36 renders n (a non-negative integer, typically a microsecond
// timestamp) in base36. The result sorts lexicographically the same way n
// sorts numerically, for a fixed digit count, which is what makes message
// IDs time-ordered.
func EncodeBase36(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	buf := make([]byte, 0, 16)
	for n > 0 {
		buf = append(buf, base36Digits[n%36])
		n /= 36
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	if neg {
		return "-" + string(buf)
	}
	return string(buf)
}

// DecodeBase36 parses a base36 string back into an integer.
func DecodeBase36(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 36, 64)
	if err != nil {
		return 0, errors.InvalidArgument("invalid base36 value: "+s, err)
	}
	return n, nil
}
