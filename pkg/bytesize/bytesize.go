// Package bytesize holds the byte arithmetic shared by the storage quota
// ledger and the document lifecycle.
package bytesize

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Split divides total evenly across n parts using floor division.
// The remainder is returned separately and is never allocated.
func Split(total int64, n int) (share int64, remainder int64) {
	if n <= 0 || total <= 0 {
		return 0, total
	}
	share = total / int64(n)
	remainder = total - share*int64(n)
	return share, remainder
}

// Percent returns used/max as a percentage rounded to two places.
// A zero max means unlimited and always reports zero.
func Percent(used, max int64) decimal.Decimal {
	if max <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(used).
		Mul(hundred).
		Div(decimal.NewFromInt(max)).
		Round(2)
}

// Remaining returns how many bytes can still be allocated under max.
// Unlimited (max == 0) reports -1.
func Remaining(used, max int64) int64 {
	if max <= 0 {
		return -1
	}
	if used >= max {
		return 0
	}
	return max - used
}

// Fits reports whether adding share to used stays within max.
func Fits(used, share, max int64) bool {
	if max <= 0 {
		return true
	}
	return used+share <= max
}

// Format renders a byte count for user-facing messages, e.g. "1.5 MiB".
func Format(n int64) string {
	if n < 0 {
		return "unlimited"
	}
	return humanize.IBytes(uint64(n))
}
