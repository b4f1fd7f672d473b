package bundle

import (
	"context"
	"fmt"
)

// Merge concatenates sections into out following order. Types absent from
// sections are skipped, and a type listed twice is appended once. With no
// section to append it returns ErrEmptyResult and writes nothing. The type
// IDs are returned in output order.
func Merge(ctx context.Context, sections map[string]Section, order []string, out string) ([]string, error) {
	var (
		merged []string
		paths  []string
		seen   = make(map[string]bool, len(order))
	)
	for _, id := range order {
		s, ok := sections[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		merged = append(merged, id)
		paths = append(paths, s.Path)
	}
	if len(merged) == 0 {
		return nil, ErrEmptyResult
	}

	if err := concat(ctx, paths, out); err != nil {
		return nil, &OutputError{Path: out, Cause: fmt.Errorf("merge %d sections: %w", len(paths), err)}
	}
	return merged, nil
}
