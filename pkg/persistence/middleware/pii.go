package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/ports"
)

// Mask replaces metadata values whose key matches a PII pattern.
const Mask = "***"

type piiMiddleware struct {
	next     ports.RunStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks metadata values of keys
// matching the patterns, at any depth, before a record is archived.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pii pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.RunStore) ports.RunStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, record *domain.RunRecord) error {
	// The runner keeps using record after Save, so mask a copy.
	cloned := *record
	cloned.Metadata = deepCopyMap(record.Metadata)
	maskMap(cloned.Metadata, m.patterns)

	return m.next.Save(ctx, &cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, runID string) (*domain.RunRecord, error) {
	return m.next.Load(ctx, runID)
}

func (m *piiMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if subMap, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(subMap)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}
		if subMap, ok := v.(map[string]any); ok && !masked {
			maskMap(subMap, patterns)
		}
	}
}
