// Package rank orders plugin items against a query.
package rank

import (
	"sort"

	"github.com/doeshing/sift/internal/ports"
)

// Ranker scores items by weighted text match and activation frequency.
type Ranker struct {
	store  ports.FrequencyStore
	logger ports.Logger
}

// NewRanker builds a ranker. store may be nil, in which case the frequency
// sub-score is always zero.
func NewRanker(store ports.FrequencyStore, logger ports.Logger) *Ranker {
	return &Ranker{store: store, logger: logger}
}

// Rank returns items reordered by descending score. Items are never
// dropped and ties keep their original relative order.
func (r *Ranker) Rank(query string, items []ports.SandboxItem, weights ports.Weights, plugin string) []ports.SandboxItem {
	if len(items) < 2 {
		return append([]ports.SandboxItem(nil), items...)
	}

	freq := r.frequencies(plugin, items)
	scores := make([]float64, len(items))
	for i, item := range items {
		scores[i] = Score(query, item, weights, freq[i])
	}

	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	out := make([]ports.SandboxItem, len(items))
	for i, idx := range order {
		out[i] = items[idx]
	}
	return out
}

// Score combines the weighted sub-scores for one item. frequency must
// already be normalized to [0, 1].
func Score(query string, item ports.SandboxItem, weights ports.Weights, frequency float64) float64 {
	var s float64
	if weights.Title != 0 {
		s += weights.Title * TextScore(query, item.Title)
	}
	if weights.Description != 0 {
		s += weights.Description * TextScore(query, item.Description)
	}
	if weights.Metadata != 0 {
		s += weights.Metadata * TextScore(query, item.Metadata)
	}
	return s + weights.Frequency*frequency
}

// frequencies returns count/max for every item, 0 when nothing was ever
// activated.
func (r *Ranker) frequencies(plugin string, items []ports.SandboxItem) []float64 {
	out := make([]float64, len(items))
	if r.store == nil {
		return out
	}
	titles := make([]string, 0, len(items))
	for _, item := range items {
		titles = append(titles, item.Title)
	}
	counts, err := r.store.Counts(plugin, titles)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("frequency lookup failed", map[string]interface{}{"plugin": plugin, "error": err.Error()})
		}
		return out
	}
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	if maxCount == 0 {
		return out
	}
	for i, item := range items {
		out[i] = float64(counts[item.Title]) / float64(maxCount)
	}
	return out
}
