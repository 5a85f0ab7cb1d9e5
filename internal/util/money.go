package util

import (
	"strconv"
	"strings"
)

// FormatINR formats whole rupees with Indian digit grouping, e.g. ₹5,50,000.
func FormatINR(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("₹")
	if len(digits) <= 3 {
		b.WriteString(digits)
		return b.String()
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	// the leading group may be one or two digits, the rest are pairs
	first := len(head) % 2
	if first == 0 {
		first = 2
	}
	b.WriteString(head[:first])
	for i := first; i < len(head); i += 2 {
		b.WriteByte(',')
		b.WriteString(head[i : i+2])
	}
	b.WriteByte(',')
	b.WriteString(tail)
	return b.String()
}
