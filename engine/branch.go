package engine

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/lucid/pkg/formatting"
)

// UnresolvedPolicy controls how a run proceeds when the branching step's
// output matches no configured document class.
type UnresolvedPolicy string

// Unresolved class policies. UnresolvedFail fails the job; UnresolvedFallback
// continues with an empty class-scoped segment.
const (
	UnresolvedFail     UnresolvedPolicy = "fail"
	UnresolvedFallback UnresolvedPolicy = "fallback"
)

// ResolveClass reads the branching field from the branching step's structured
// output and matches it against the configured document class keys. Matching
// is case-insensitive on trimmed values. Returns ErrUnresolvedClass when the
// output is not a JSON object, the field is absent, or no class key matches.
//
// Resolution is a one-way latch: the orchestrator invokes it exactly once,
// right after the branching step completes, and never re-evaluates it.
func ResolveClass(output, field string, classes []DocumentClass) (*DocumentClass, error) {
	fields, err := formatting.Parse[map[string]any](output)
	if err != nil {
		return nil, fmt.Errorf("%w: branching output is not structured", ErrUnresolvedClass)
	}

	raw, ok := fields[field]
	if !ok {
		return nil, fmt.Errorf("%w: field %q absent from branching output", ErrUnresolvedClass, field)
	}

	key := normalizeKey(fmt.Sprint(raw))
	if key == "" {
		return nil, fmt.Errorf("%w: field %q is empty", ErrUnresolvedClass, field)
	}

	for i := range classes {
		if normalizeKey(classes[i].Key) == key {
			return &classes[i], nil
		}
	}

	return nil, fmt.Errorf("%w: no class matches %q", ErrUnresolvedClass, key)
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
