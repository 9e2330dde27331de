package connection

import "time"

// Backoff returns the delay before retry number attempt (0-based):
// base * 2^attempt, capped at maxDelay. A non-positive maxDelay disables the cap.
func Backoff(base, maxDelay time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}

	delay := base
	for i := 0; i < attempt; i++ {
		if maxDelay > 0 && delay >= maxDelay {
			return maxDelay
		}
		// Stop doubling before the duration overflows.
		if delay >= time.Duration(1<<62) {
			break
		}
		delay *= 2
	}
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}
