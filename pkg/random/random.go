package random

import (
	"math/rand"
	"strconv"
	"sync"
	"time"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

var (
	mu  sync.Mutex
	rng = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Suffix returns n random base36 characters
// Example: Suffix(9) returns something like "k3j9x0q2m"
func Suffix(n int) string {
	if n <= 0 {
		return ""
	}

	mu.Lock()
	defer mu.Unlock()

	buf := make([]byte, n)
	for i := range buf {
		buf[i] = base36[rng.Intn(len(base36))]
	}
	return string(buf)
}

// TimestampID builds "<prefix>-<unix millis>-<suffix>" identifiers
// Uniqueness comes from the random suffix, ordering is not guaranteed
func TimestampID(prefix string, now time.Time, suffixLen int) string {
	return prefix + "-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + Suffix(suffixLen)
}
