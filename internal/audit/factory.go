package audit

import (
	"context"
	"strings"
)

// NewStore creates a postgres-backed store when configured, otherwise an
// in-memory ring holding the last retention entries.
func NewStore(ctx context.Context, databaseURL string, retention int) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryStore(retention), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}
