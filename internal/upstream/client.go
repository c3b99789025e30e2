package upstream

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ent0n29/employee-api/internal/employee"
	"github.com/ent0n29/employee-api/internal/logging"
	"github.com/ent0n29/employee-api/internal/observability"
	"github.com/ent0n29/employee-api/internal/policy"
	"github.com/ent0n29/employee-api/internal/reliability"
)

const (
	OpList   = "list_employees"
	OpGet    = "get_employee"
	OpCreate = "create_employee"
	OpDelete = "delete_employee"
)

// Client exposes the upstream employee operations, each wrapped in the retry
// policy. Concurrent identical reads share one upstream round trip.
type Client struct {
	transport Doer
	policy    reliability.Policy
	metrics   *observability.Metrics
	log       zerolog.Logger
	retryOpts []reliability.Option
	reads     singleflight.Group

	mu      sync.Mutex
	flights map[string]*readFlight
}

type ClientOption func(*Client)

// WithRetryOptions appends options to every retried call, e.g. a test sleep.
func WithRetryOptions(opts ...reliability.Option) ClientOption {
	return func(c *Client) { c.retryOpts = append(c.retryOpts, opts...) }
}

func NewClient(transport Doer, p reliability.Policy, metrics *observability.Metrics, log zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		transport: transport,
		policy:    p,
		metrics:   metrics,
		log:       log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListAll fetches every employee from the upstream collection.
func (c *Client) ListAll(ctx context.Context) ([]employee.Employee, error) {
	v, err := c.shared(ctx, "list", func(ctx context.Context) (any, error) {
		return retried(ctx, c, OpList, func(ctx context.Context) ([]employee.Employee, error) {
			reply, err := c.transport.Do(ctx, Call{Operation: OpList, Method: http.MethodGet})
			if err != nil {
				return nil, notFoundAsUpstream(err)
			}
			var body listResponse
			if err := decode(OpList, reply, &body); err != nil {
				return nil, err
			}
			out := make([]employee.Employee, 0, len(body.Data))
			for _, rec := range body.Data {
				if rec.ID == "" {
					return nil, reliability.Fail(reliability.UpstreamError, OpList, "employee record without id")
				}
				out = append(out, rec.toEmployee())
			}
			c.logger(ctx).Debug().Int("count", len(out)).Msg("retrieved employees from upstream")
			return out, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return v.([]employee.Employee), nil
}

// GetByID fetches one employee. The upstream signals absence with a
// successful response whose data is null, absent or an empty object; that,
// like a 404, is NotFound.
func (c *Client) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	if strings.TrimSpace(id) == "" {
		return employee.Employee{}, reliability.Fail(reliability.NotFound, OpGet, "employee id is empty")
	}
	v, err := c.shared(ctx, "get:"+id, func(ctx context.Context) (any, error) {
		return retried(ctx, c, OpGet, func(ctx context.Context) (employee.Employee, error) {
			c.logger(ctx).Debug().Str("employee_id", id).Msg("sending get request")
			reply, err := c.transport.Do(ctx, Call{Operation: OpGet, Method: http.MethodGet, ID: id})
			if err != nil {
				return employee.Employee{}, err
			}
			if len(bytes.TrimSpace(reply.Body)) == 0 {
				return employee.Employee{}, notFound(id)
			}
			var body singleResponse
			if err := decode(OpGet, reply, &body); err != nil {
				return employee.Employee{}, err
			}
			if body.Data == nil || body.Data.ID == "" {
				return employee.Employee{}, notFound(id)
			}
			if body.Data.ID != id {
				return employee.Employee{}, reliability.Fail(reliability.UpstreamError, OpGet,
					fmt.Sprintf("requested employee %s but upstream returned %q", id, body.Data.ID))
			}
			return body.Data.toEmployee(), nil
		})
	})
	if err != nil {
		return employee.Employee{}, err
	}
	return v.(employee.Employee), nil
}

// Create posts a new employee and returns the record assigned by upstream.
func (c *Client) Create(ctx context.Context, in employee.CreateInput) (employee.Employee, error) {
	payload := newCreatePayload(in)
	return retried(ctx, c, OpCreate, func(ctx context.Context) (employee.Employee, error) {
		c.logger(ctx).Debug().Str("employee_name", in.Name).Str("title", in.Title).Msg("sending create request")
		reply, err := c.transport.Do(ctx, Call{Operation: OpCreate, Method: http.MethodPost, Body: payload})
		if err != nil {
			return employee.Employee{}, notFoundAsUpstream(err)
		}
		var body singleResponse
		if err := decode(OpCreate, reply, &body); err != nil {
			return employee.Employee{}, err
		}
		if body.Data == nil || body.Data.ID == "" {
			return employee.Employee{}, reliability.Fail(reliability.UpstreamError, OpCreate, "upstream returned no created employee")
		}
		created := body.Data.toEmployee()
		c.logger(ctx).Debug().
			Str("employee_id", created.ID).
			Str("email", policy.MaskEmail(created.Email)).
			Msg("created employee on upstream")
		return created, nil
	})
}

// DeleteByID resolves the employee's name and then deletes by name, which is
// how the upstream keys deletions. Each step has its own retry scope; a
// failed lookup means no delete is sent.
func (c *Client) DeleteByID(ctx context.Context, id string) (employee.DeleteOutcome, error) {
	resolved, err := c.GetByID(ctx, id)
	if err != nil {
		return employee.DeleteOutcome{}, fmt.Errorf("resolve employee %s: %w", id, err)
	}
	if resolved.Name == "" {
		return employee.DeleteOutcome{}, reliability.Fail(reliability.UpstreamError, OpDelete,
			fmt.Sprintf("employee %s has no name to delete by", id))
	}

	c.logger(ctx).Debug().Str("employee_id", id).Str("employee_name", resolved.Name).Msg("deleting employee")
	confirmed, err := retried(ctx, c, OpDelete, func(ctx context.Context) (bool, error) {
		reply, err := c.transport.Do(ctx, Call{
			Operation: OpDelete,
			Method:    http.MethodDelete,
			Body:      deletePayload{Name: resolved.Name},
		})
		if err != nil {
			return false, notFoundAsUpstream(err)
		}
		var body deleteResponse
		if err := decode(OpDelete, reply, &body); err != nil {
			return false, err
		}
		return body.Data, nil
	})
	if err != nil {
		return employee.DeleteOutcome{}, err
	}
	if !confirmed {
		return employee.DeleteOutcome{}, reliability.Fail(reliability.UpstreamError, OpDelete,
			fmt.Sprintf("upstream did not confirm deletion of employee %s", id))
	}
	return employee.DeleteOutcome{Name: resolved.Name, Deleted: true}, nil
}

func retried[T any](ctx context.Context, c *Client, op string, fn func(context.Context) (T, error)) (T, error) {
	opts := append([]reliability.Option{
		reliability.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			c.metrics.ObserveRetry(op)
			c.logger(ctx).Warn().
				Err(err).
				Str("operation", op).
				Int("attempt", attempt).
				Int("max_attempts", c.policy.MaxAttempts).
				Dur("backoff", delay).
				Msg("upstream rate limited, retrying")
		}),
	}, c.retryOpts...)
	return reliability.Do(ctx, c.policy, fn, opts...)
}

// readFlight is one coalesced upstream read. Its context is cancelled once
// every caller waiting on it has left.
type readFlight struct {
	ctx       context.Context
	cancel    context.CancelFunc
	requestID string
	waiters   int
}

// shared coalesces concurrent reads under key. The shared call runs detached
// from any single caller's cancellation and is cancelled when its last waiter
// leaves, so abandoned reads stop retrying against the upstream.
func (c *Client) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	if c.flights == nil {
		c.flights = make(map[string]*readFlight)
	}
	f, joined := c.flights[key]
	if !joined {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &readFlight{ctx: fctx, cancel: cancel}
		f.requestID, _ = logging.RequestIDFromContext(ctx)
		c.flights[key] = f
	}
	f.waiters++
	c.mu.Unlock()

	if joined {
		// Upstream sees only the request ID of the caller that started the read.
		c.logger(ctx).Debug().
			Str("read", key).
			Str("upstream_request_id", f.requestID).
			Msg("joined in-flight upstream read")
	}

	ch := c.reads.DoChan(key, func() (any, error) {
		return fn(f.ctx)
	})
	select {
	case res := <-ch:
		c.leave(key, f)
		return res.Val, res.Err
	case <-ctx.Done():
		c.leave(key, f)
		return nil, ctx.Err()
	}
}

func (c *Client) leave(key string, f *readFlight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	if c.flights[key] == f {
		delete(c.flights, key)
		c.reads.Forget(key)
	}
	f.cancel()
}

func (c *Client) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &c.log
}

func notFound(id string) error {
	return reliability.Fail(reliability.NotFound, OpGet, fmt.Sprintf("employee with id %s does not exist", id))
}

// notFoundAsUpstream reclassifies a 404 on collection endpoints, where it can
// only mean a misconfigured or broken upstream.
func notFoundAsUpstream(err error) error {
	if f, ok := err.(*reliability.Failure); ok && f.Kind == reliability.NotFound {
		cp := *f
		cp.Kind = reliability.UpstreamError
		return &cp
	}
	return err
}
