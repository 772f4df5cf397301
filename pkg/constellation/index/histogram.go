package index

import "github.com/himanishpuri/constellation/pkg/models"

// histogram counts the alignment delta of every matching point. MaxValue is the
// first delta whose count reached MaxCount.
func histogram(points []models.MatchingPoint) models.Histogram {
	h := models.Histogram{ValueAmounts: make(map[string]int)}
	for _, p := range points {
		delta := p.Delta()
		key := delta.String()

		h.ValueAmounts[key]++
		if h.ValueAmounts[key] > h.MaxCount {
			h.MaxCount = h.ValueAmounts[key]
			h.MaxValue = delta
		}
	}
	return h
}
