package registry

import "strings"

// Scorer computes a confidence score for how well a set of capability tags
// matches a task description. Scores are in [0, 1]. The scoring strategy is
// pluggable so substring matching can later be replaced by embedding
// similarity without touching the registry or router contracts.
type Scorer interface {
	Score(capabilities []string, description string) float64
}

// SubstringScorer scores by the fraction of capability tags that appear as
// substrings of the lower-cased task description.
type SubstringScorer struct{}

// Score implements Scorer.
func (SubstringScorer) Score(capabilities []string, description string) float64 {
	if len(capabilities) == 0 {
		return 0
	}
	lower := strings.ToLower(description)
	matched := 0
	for _, cap := range capabilities {
		if strings.Contains(lower, strings.ToLower(cap)) {
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	score := float64(matched) / float64(len(capabilities))
	if score > 1 {
		score = 1
	}
	return score
}
