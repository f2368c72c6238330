package sourcemap

import (
	"fmt"
	"strings"
)

const vlqAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var vlqIndex = func() [128]int8 {
	var idx [128]int8
	for i := range idx {
		idx[i] = -1
	}
	for i := 0; i < len(vlqAlphabet); i++ {
		idx[vlqAlphabet[i]] = int8(i)
	}
	return idx
}()

const (
	vlqShift    = 5
	vlqBase     = 1 << vlqShift
	vlqMask     = vlqBase - 1
	vlqContinue = vlqBase
)

func writeVLQ(b *strings.Builder, v int) {
	u := v << 1
	if v < 0 {
		u = (-v << 1) | 1
	}
	for {
		digit := u & vlqMask
		u >>= vlqShift
		if u > 0 {
			digit |= vlqContinue
		}
		b.WriteByte(vlqAlphabet[digit])
		if u == 0 {
			return
		}
	}
}

// readVLQ decodes one value starting at s[i] and returns it with the next index.
func readVLQ(s string, i int) (int, int, error) {
	var result, shift int
	for {
		if i >= len(s) {
			return 0, i, fmt.Errorf("unexpected end of mappings")
		}
		c := s[i]
		if c >= 128 || vlqIndex[c] < 0 {
			return 0, i, fmt.Errorf("invalid base64 vlq character %q", c)
		}
		digit := int(vlqIndex[c])
		i++
		result += (digit & vlqMask) << shift
		if digit&vlqContinue == 0 {
			break
		}
		shift += vlqShift
		if shift > 60 {
			return 0, i, fmt.Errorf("vlq value overflow")
		}
	}
	if result&1 != 0 {
		return -(result >> 1), i, nil
	}
	return result >> 1, i, nil
}
