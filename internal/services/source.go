package services

import (
	"context"

	"github.com/ttms-project/backend/internal/codex"
)

// SignalSource is the upstream token feed. *codex.Client satisfies it.
type SignalSource interface {
	FilterTokens(ctx context.Context, params codex.FilterParams) ([]codex.TokenResult, error)
}

// chunk splits items into groups of at most size.
func chunk(items []string, size int) [][]string {
	if size <= 0 {
		size = len(items)
	}
	var out [][]string
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
