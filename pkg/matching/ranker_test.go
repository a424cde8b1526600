package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestRanker_Rank(t *testing.T) {
	ranker := NewRanker(0.85, 10)

	t.Run("sorted descending with id tie-break", func(t *testing.T) {
		result := ranker.Rank([]models.MatchCandidate{
			{FacilityID: "b", Confidence: 0.80},
			{FacilityID: "a", Confidence: 0.80},
			{FacilityID: "c", Confidence: 0.90},
		})

		require.Len(t, result.Candidates, 3)
		assert.Equal(t, "c", result.Candidates[0].FacilityID)
		assert.Equal(t, "a", result.Candidates[1].FacilityID)
		assert.Equal(t, "b", result.Candidates[2].FacilityID)
	})

	t.Run("dedupes by id keeping max", func(t *testing.T) {
		result := ranker.Rank([]models.MatchCandidate{
			{FacilityID: "a", Confidence: 0.72, Method: models.MatchMethodContact},
			{FacilityID: "a", Confidence: 0.88, Method: models.MatchMethodFuzzyName},
		})

		require.Len(t, result.Candidates, 1)
		assert.Equal(t, 0.88, result.Candidates[0].Confidence)
		assert.Equal(t, models.MatchMethodFuzzyName, result.Candidates[0].Method)
	})

	t.Run("caps list size", func(t *testing.T) {
		candidates := make([]models.MatchCandidate, 25)
		for i := range candidates {
			candidates[i] = models.MatchCandidate{
				FacilityID: string(rune('a' + i)),
				Confidence: 0.70 + float64(i)*0.001,
			}
		}

		result := ranker.Rank(candidates)
		assert.Len(t, result.Candidates, 10)
	})

	t.Run("best match requires the threshold", func(t *testing.T) {
		result := ranker.Rank([]models.MatchCandidate{
			{FacilityID: "a", Confidence: 0.84},
			{FacilityID: "b", Confidence: 0.70},
		})

		assert.Nil(t, result.BestMatch)
		assert.False(t, result.HasHighConfidenceMatch)
		assert.Len(t, result.Candidates, 2)
	})

	t.Run("best match at the threshold", func(t *testing.T) {
		result := ranker.Rank([]models.MatchCandidate{
			{FacilityID: "a", Confidence: 0.85},
		})

		require.NotNil(t, result.BestMatch)
		assert.Equal(t, "a", result.BestMatch.FacilityID)
		assert.True(t, result.HasHighConfidenceMatch)
	})

	t.Run("empty input", func(t *testing.T) {
		result := ranker.Rank(nil)
		assert.Empty(t, result.Candidates)
		assert.Nil(t, result.BestMatch)
		assert.False(t, result.HasHighConfidenceMatch)
	})

	t.Run("deterministic for identical input", func(t *testing.T) {
		candidates := []models.MatchCandidate{
			{FacilityID: "z", Confidence: 0.75},
			{FacilityID: "m", Confidence: 0.75},
			{FacilityID: "a", Confidence: 0.75},
		}

		first := ranker.Rank(candidates)
		second := ranker.Rank(candidates)
		assert.Equal(t, first, second)
		assert.Equal(t, "a", first.Candidates[0].FacilityID)
	})
}
