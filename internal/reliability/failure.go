package reliability

import (
	"errors"
	"fmt"
)

var (
	ErrRateLimited = errors.New("upstream rate limited")
	ErrNotFound    = errors.New("not found")
	ErrUpstream    = errors.New("upstream error")
	ErrTransport   = errors.New("upstream transport error")
)

// Failure is the single error type for classified upstream failures.
// errors.Is matches it against the sentinel of its classification.
type Failure struct {
	Kind       Classification
	Op         string
	StatusCode int
	Detail     string
	Err        error
}

// Fail builds a Failure without an underlying cause.
func Fail(kind Classification, op, detail string) *Failure {
	return &Failure{Kind: kind, Op: op, Detail: detail}
}

// Wrap builds a Failure around cause.
func Wrap(kind Classification, op string, cause error) *Failure {
	return &Failure{Kind: kind, Op: op, Err: cause}
}

func (f *Failure) Error() string {
	msg := f.Op + ": " + f.Kind.String()
	if f.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", f.StatusCode)
	}
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Err }

func (f *Failure) Is(target error) bool {
	return target != nil && target == f.Kind.sentinel()
}

func (c Classification) sentinel() error {
	switch c {
	case RateLimited:
		return ErrRateLimited
	case NotFound:
		return ErrNotFound
	case UpstreamError:
		return ErrUpstream
	case TransportError:
		return ErrTransport
	default:
		return nil
	}
}

// Classify returns the classification carried by err, or Unclassified when err
// holds no Failure.
func Classify(err error) Classification {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return Unclassified
}
