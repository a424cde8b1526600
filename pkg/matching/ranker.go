package matching

import (
	"sort"

	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	// DefaultHighConfidenceThreshold is the cutoff above which the top
	// candidate is offered as an auto-selectable best match
	DefaultHighConfidenceThreshold = 0.85
	// DefaultMaxCandidates bounds the ranked list kept in responses and audit rows
	DefaultMaxCandidates = 10
)

// Ranker dedupes, orders, and classifies scored candidates
type Ranker struct {
	threshold     float64
	maxCandidates int
}

// NewRanker creates a Ranker. Zero values fall back to the defaults.
func NewRanker(threshold float64, maxCandidates int) *Ranker {
	if threshold <= 0 {
		threshold = DefaultHighConfidenceThreshold
	}
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	return &Ranker{threshold: threshold, maxCandidates: maxCandidates}
}

// Rank dedupes by facility id keeping the max confidence per id, sorts
// descending by confidence with an ascending id tie-break (deterministic
// output for identical input), caps the list, and classifies the top
// candidate as best match only above the high-confidence threshold.
func (r *Ranker) Rank(candidates []models.MatchCandidate) *models.MatchResult {
	byID := make(map[string]models.MatchCandidate, len(candidates))
	for _, c := range candidates {
		existing, seen := byID[c.FacilityID]
		if !seen || c.Confidence > existing.Confidence {
			byID[c.FacilityID] = c
		}
	}

	ranked := make([]models.MatchCandidate, 0, len(byID))
	for _, c := range byID {
		ranked = append(ranked, c)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return ranked[i].FacilityID < ranked[j].FacilityID
	})

	if len(ranked) > r.maxCandidates {
		ranked = ranked[:r.maxCandidates]
	}

	result := &models.MatchResult{Candidates: ranked}
	if len(ranked) > 0 && ranked[0].Confidence >= r.threshold {
		top := ranked[0]
		result.BestMatch = &top
		result.HasHighConfidenceMatch = true
	}

	return result
}
