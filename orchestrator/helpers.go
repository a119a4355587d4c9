package orchestrator

import (
	"sort"
)

// Average is the arithmetic mean of scores, or nil for an empty list.
func Average(scores []float64) *float64 {
	if len(scores) == 0 {
		return nil
	}
	total := 0.0
	for _, s := range scores {
		total += s
	}
	avg := total / float64(len(scores))
	return &avg
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// speakerResults folds every provider's per-speaker scores into
// {speaker: {"<provider>_score": value}}. Nil scores are kept so they
// serialize as an explicit null.
func speakerResults(reports []ScoreReport) map[string]map[string]*float64 {
	out := make(map[string]map[string]*float64)
	for _, r := range reports {
		for speaker, score := range r.Speakers {
			if out[speaker] == nil {
				out[speaker] = make(map[string]*float64)
			}
			out[speaker][r.Provider+"_score"] = score
		}
	}
	return out
}
