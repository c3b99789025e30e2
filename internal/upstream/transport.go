package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ent0n29/employee-api/internal/logging"
	"github.com/ent0n29/employee-api/internal/observability"
	"github.com/ent0n29/employee-api/internal/policy"
	"github.com/ent0n29/employee-api/internal/reliability"
)

const maxResponseBytes = 4 << 20

// Call describes one request against the upstream employee collection. An
// empty ID targets the collection itself.
type Call struct {
	Operation string
	Method    string
	ID        string
	Body      any
}

// Reply is a successful (2xx) upstream response.
type Reply struct {
	StatusCode int
	Body       []byte
}

// Doer performs exactly one upstream call.
type Doer interface {
	Do(ctx context.Context, call Call) (Reply, error)
}

type TransportConfig struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit caps outbound requests per second; zero disables the limiter.
	RateLimit float64
	RateBurst int
	// Client overrides the HTTP client built from Timeout.
	Client  *http.Client
	Metrics *observability.Metrics
}

// Transport performs single, non-retried HTTP calls and classifies failures.
type Transport struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	metrics *observability.Metrics
}

var _ Doer = (*Transport)(nil)

func NewTransport(cfg TransportConfig) (*Transport, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("upstream base URL cannot be empty")
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("upstream base URL %q is not an absolute http(s) URL", cfg.BaseURL)
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Transport{baseURL: base, client: client, limiter: limiter, metrics: cfg.Metrics}, nil
}

func (t *Transport) BaseURL() string { return t.baseURL }

func (t *Transport) Do(ctx context.Context, call Call) (Reply, error) {
	start := time.Now()
	reply, err := t.do(ctx, call)
	t.metrics.ObserveUpstream(call.Operation, outcomeOf(err), time.Since(start))
	return reply, err
}

func (t *Transport) do(ctx context.Context, call Call) (Reply, error) {
	target := t.baseURL
	if call.ID != "" {
		target += "/" + url.PathEscape(call.ID)
	}

	var body io.Reader
	if call.Body != nil {
		payload, err := json.Marshal(call.Body)
		if err != nil {
			return Reply{}, reliability.Wrap(reliability.TransportError, call.Operation, fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, target, body)
	if err != nil {
		return Reply{}, reliability.Wrap(reliability.TransportError, call.Operation, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id, ok := logging.RequestIDFromContext(ctx); ok {
		req.Header.Set(logging.HeaderRequestID, id)
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Reply{}, fmt.Errorf("%s: outbound rate limiter: %w", call.Operation, ctxErr)
			}
			if _, ok := ctx.Deadline(); ok {
				// The limiter refuses a wait that would outlast the deadline.
				return Reply{}, fmt.Errorf("%s: outbound rate limiter: %v: %w", call.Operation, err, context.DeadlineExceeded)
			}
			return Reply{}, reliability.Wrap(reliability.TransportError, call.Operation, fmt.Errorf("outbound rate limiter: %w", err))
		}
	}

	res, err := t.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Reply{}, fmt.Errorf("%s: %w", call.Operation, ctxErr)
		}
		return Reply{}, reliability.Wrap(reliability.TransportError, call.Operation, fmt.Errorf("send request: %w", err))
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return Reply{}, reliability.Wrap(reliability.TransportError, call.Operation, fmt.Errorf("read response: %w", err))
	}

	if kind := reliability.ClassifyStatus(res.StatusCode); kind != reliability.Unclassified {
		return Reply{}, &reliability.Failure{
			Kind:       kind,
			Op:         call.Operation,
			StatusCode: res.StatusCode,
			Detail:     policy.Snippet(data, 256),
		}
	}
	return Reply{StatusCode: res.StatusCode, Body: data}, nil
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := reliability.Classify(err); kind != reliability.Unclassified {
		return kind.String()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "error"
}

// decode unmarshals a successful reply. Malformed JSON is a transport fault.
func decode(op string, reply Reply, out any) error {
	if err := json.Unmarshal(reply.Body, out); err != nil {
		return reliability.Wrap(reliability.TransportError, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
