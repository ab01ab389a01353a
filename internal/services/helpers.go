package services

import (
	"context"
	"strings"
)

const (
	// DefaultPageLimit is applied when a listing does not specify a limit.
	DefaultPageLimit = 100
	// MaxPageLimit caps the number of rows a single listing can return.
	MaxPageLimit = 500
)

// ListOptions controls offset based pagination.
type ListOptions struct {
	Offset int
	Limit  int
}

// Normalise clamps the offset and applies the default and maximum limit.
func (o ListOptions) Normalise() ListOptions {
	if o.Offset < 0 {
		o.Offset = 0
	}
	switch {
	case o.Limit <= 0:
		o.Limit = DefaultPageLimit
	case o.Limit > MaxPageLimit:
		o.Limit = MaxPageLimit
	}
	return o
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
