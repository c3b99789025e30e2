package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ent0n29/employee-api/internal/audit"
	"github.com/ent0n29/employee-api/internal/config"
	"github.com/ent0n29/employee-api/internal/httpapi"
	"github.com/ent0n29/employee-api/internal/observability"
	"github.com/ent0n29/employee-api/internal/reliability"
	"github.com/ent0n29/employee-api/internal/upstream"
)

type BuildResult struct {
	Config  config.Config
	API     *httpapi.Server
	Client  *upstream.Client
	Audit   audit.Store
	Metrics *observability.Metrics

	// Cleanup should be called on shutdown to release external resources (DB pool).
	Cleanup func() error
}

type buildOptions struct {
	retryOpts []reliability.Option
}

type BuildOption func(*buildOptions)

// WithRetryOptions forwards options to every retried upstream call.
func WithRetryOptions(opts ...reliability.Option) BuildOption {
	return func(o *buildOptions) { o.retryOpts = append(o.retryOpts, opts...) }
}

func Build(ctx context.Context, cfg config.Config, log zerolog.Logger, opts ...BuildOption) (*BuildResult, error) {
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	metrics := observability.NewMetrics(cfg.App.MetricsNamespace)

	auditStore, err := audit.NewStore(ctx, cfg.Audit.DatabaseURL, cfg.Audit.Retention)
	if err != nil {
		return nil, fmt.Errorf("audit store init failed: %w", err)
	}

	transport, err := upstream.NewTransport(upstream.TransportConfig{
		BaseURL:   cfg.Upstream.BaseURL,
		Timeout:   cfg.Upstream.Timeout,
		RateLimit: cfg.Upstream.RateLimit,
		RateBurst: cfg.Upstream.RateBurst,
		Metrics:   metrics,
	})
	if err != nil {
		_ = auditStore.Close()
		return nil, fmt.Errorf("upstream transport init failed: %w", err)
	}

	policy := cfg.Retry.Policy()
	if err := policy.Validate(); err != nil {
		_ = auditStore.Close()
		return nil, fmt.Errorf("retry policy: %w", err)
	}

	client := upstream.NewClient(transport, policy, metrics, log, upstream.WithRetryOptions(bo.retryOpts...))
	api := httpapi.New(cfg, client, auditStore, metrics, log)

	log.Info().
		Str("upstream", transport.BaseURL()).
		Str("audit_store", auditStore.Mode()).
		Int("retry_max_attempts", policy.MaxAttempts).
		Dur("retry_backoff", policy.BackoffDelay).
		Str("retry_strategy", string(policy.Strategy)).
		Msg("employee api assembled")

	cleanup := func() error {
		var errs []string
		if err := auditStore.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:  cfg,
		API:     api,
		Client:  client,
		Audit:   auditStore,
		Metrics: metrics,
		Cleanup: cleanup,
	}, nil
}
