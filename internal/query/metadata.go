package query

import (
	"context"
	"encoding/json"
	"sort"
)

// Keys returns every front-matter key used in the vault, in first-seen order.
func (e *Engine) Keys(ctx context.Context) ([]string, error) {
	docs, err := e.vault.LoadNotes(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, d := range docs {
		for _, k := range sortedKeys(d.FrontMatter) {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out, nil
}

// Values returns the distinct values stored under key, in first-seen order.
func (e *Engine) Values(ctx context.Context, key string) ([]any, error) {
	docs, err := e.vault.LoadNotes(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := make([]any, 0)
	for _, d := range docs {
		v, ok := d.FrontMatter[key]
		if !ok {
			continue
		}
		id, err := json.Marshal(normalize(v))
		if err != nil {
			continue
		}
		if _, dup := seen[string(id)]; dup {
			continue
		}
		seen[string(id)] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
