package util

import (
	"math/rand/v2"
	"time"
)

// Jitter returns base plus a random duration in [0, spread).
func Jitter(base, spread time.Duration) time.Duration {
	if spread <= 0 {
		return base
	}
	return base + time.Duration(rand.Int64N(int64(spread)))
}
