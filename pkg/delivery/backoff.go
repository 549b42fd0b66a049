package delivery

import "time"

const (
	baseBackoff = time.Second
	maxBackoff  = time.Hour
)

// Backoff returns the retry delay after the given number of attempts:
// min(1h, 1s * 2^attempts).
func Backoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	d := baseBackoff
	for range attempts {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
