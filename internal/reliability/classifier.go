package reliability

import (
	"net/http"
	"time"
)

// Classification is the retry-relevant kind of a failed upstream call.
type Classification int

const (
	Unclassified Classification = iota
	RateLimited
	NotFound
	UpstreamError
	TransportError
)

func (c Classification) String() string {
	switch c {
	case RateLimited:
		return "rate_limited"
	case NotFound:
		return "not_found"
	case UpstreamError:
		return "upstream_error"
	case TransportError:
		return "transport_error"
	default:
		return "unclassified"
	}
}

// Retryable reports whether the retry engine may attempt the call again.
// Only upstream rate limiting is retried.
func (c Classification) Retryable() bool {
	return c == RateLimited
}

// ClassifyStatus maps an upstream HTTP status code to a classification.
// Successful statuses return Unclassified.
func ClassifyStatus(code int) Classification {
	switch {
	case code >= 200 && code < 300:
		return Unclassified
	case code == http.StatusTooManyRequests:
		return RateLimited
	case code == http.StatusNotFound:
		return NotFound
	default:
		return UpstreamError
	}
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
