package matching

import (
	"fmt"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// Default confidence bands. Only the exact tier can report 1.0; the fuzzy and
// contact tiers rescale their raw similarity into bands capped below it.
const (
	DefaultFuzzyNameFloor = 0.70
	fuzzyBandLow          = 0.70
	fuzzyBandHigh         = 0.95
	contactBandLow        = 0.60
	contactBandHigh       = 0.90
)

// Contact tier component weights. Missing components are excluded and the
// remaining weights renormalize to sum to 1.0.
const (
	contactWeightFax       = 0.6
	contactWeightCityState = 0.2
	contactWeightZip       = 0.2
)

// TierScorer is one scoring strategy in the matching pipeline. Score returns
// ok=false when the tier's required extracted fields are absent or the
// candidate falls below the tier's floor.
type TierScorer interface {
	Method() models.MatchMethod
	Score(extracted *models.ExtractedFields, facility *models.Facility) (confidence float64, ok bool)
}

// ExactScorer fires on an explicit facility-code match or byte-equal
// normalized names. Binary: 1.0 or nothing.
type ExactScorer struct{}

func (s *ExactScorer) Method() models.MatchMethod {
	return models.MatchMethodExact
}

func (s *ExactScorer) Score(extracted *models.ExtractedFields, facility *models.Facility) (float64, bool) {
	if extracted.FacilityCode != nil && facility.FacilityCode != nil &&
		*extracted.FacilityCode != "" && *extracted.FacilityCode == *facility.FacilityCode {
		return 1.0, true
	}
	if extracted.FacilityName != nil {
		a := normalizers.NormalizeFacilityName(*extracted.FacilityName)
		b := normalizers.NormalizeFacilityName(facility.Name)
		if a != "" && a == b {
			return 1.0, true
		}
	}
	return 0, false
}

// FuzzyNameScorer rescales raw name similarity in [floor, 1.0] into the
// published fuzzy band. A raw similarity of exactly the floor reports the
// band's low edge; a raw 1.0 (full fuzzy match that is not byte-equal after
// suffix stripping) reports the band's high edge, never 1.0.
type FuzzyNameScorer struct {
	scorer *Scorer
	floor  float64
}

func NewFuzzyNameScorer(floor float64) *FuzzyNameScorer {
	if floor <= 0 {
		floor = DefaultFuzzyNameFloor
	}
	return &FuzzyNameScorer{scorer: NewScorer(), floor: floor}
}

func (s *FuzzyNameScorer) Method() models.MatchMethod {
	return models.MatchMethodFuzzyName
}

func (s *FuzzyNameScorer) Score(extracted *models.ExtractedFields, facility *models.Facility) (float64, bool) {
	if extracted.FacilityName == nil {
		return 0, false
	}
	a := normalizers.NormalizeFacilityName(*extracted.FacilityName)
	b := normalizers.NormalizeFacilityName(facility.Name)
	if a == "" || b == "" {
		return 0, false
	}

	raw := s.scorer.NameSimilarity(a, b)
	if raw < s.floor {
		return 0, false
	}

	// Monotonic linear rescale from [floor, 1.0] into the band
	confidence := fuzzyBandLow + (raw-s.floor)/(1.0-s.floor)*(fuzzyBandHigh-fuzzyBandLow)
	return confidence, true
}

// ContactScorer composites fax, city+state, and zip equality. Contact-only
// evidence cannot prove name identity, so a full-weight match caps at the
// contact band's high edge.
type ContactScorer struct{}

func (s *ContactScorer) Method() models.MatchMethod {
	return models.MatchMethodContact
}

func (s *ContactScorer) Score(extracted *models.ExtractedFields, facility *models.Facility) (float64, bool) {
	var weightedSum, totalWeight float64
	anyHit := false

	if fax := normalizedPair(extracted.Fax, facility.Fax, normalizers.NormalizePhone); fax != pairAbsent {
		totalWeight += contactWeightFax
		if fax == pairEqual {
			weightedSum += contactWeightFax
			anyHit = true
		}
	}

	if extracted.City != nil && extracted.State != nil && facility.City != nil && facility.State != nil {
		cityEq := normalizers.Lowercase(normalizers.Trim(*extracted.City)) == normalizers.Lowercase(normalizers.Trim(*facility.City))
		stateEq := normalizers.Lowercase(normalizers.Trim(*extracted.State)) == normalizers.Lowercase(normalizers.Trim(*facility.State))
		totalWeight += contactWeightCityState
		if cityEq && stateEq {
			weightedSum += contactWeightCityState
			anyHit = true
		}
	}

	if zip := normalizedPair(extracted.Zip, facility.Zip, normalizers.NormalizeZipCode); zip != pairAbsent {
		totalWeight += contactWeightZip
		if zip == pairEqual {
			weightedSum += contactWeightZip
			anyHit = true
		}
	}

	if totalWeight == 0 || !anyHit {
		return 0, false
	}

	raw := weightedSum / totalWeight
	confidence := contactBandLow + raw*(contactBandHigh-contactBandLow)
	return confidence, true
}

type pairResult int

const (
	pairAbsent pairResult = iota
	pairEqual
	pairDiffer
)

// normalizedPair compares an optional extracted value against an optional
// canonical value under the given normalizer. Absent means either side is
// missing or normalizes to empty.
func normalizedPair(extracted, canonical *string, normalize normalizers.Normalizer) pairResult {
	if extracted == nil || canonical == nil {
		return pairAbsent
	}
	a := normalize(*extracted)
	b := normalize(*canonical)
	if a == "" || b == "" {
		return pairAbsent
	}
	if a == b {
		return pairEqual
	}
	return pairDiffer
}

// BuildDetails renders a human-readable description of how a candidate scored,
// shown alongside the confidence in review surfaces.
func BuildDetails(confidence float64, method models.MatchMethod) string {
	var how string
	switch method {
	case models.MatchMethodExact:
		how = "exact identifier or name match"
	case models.MatchMethodFuzzyName:
		how = "similar facility name"
	case models.MatchMethodContact:
		how = "matching contact details"
	default:
		how = "multiple corroborating fields"
	}
	return fmt.Sprintf("%.0f%% confidence (%s)", confidence*100, how)
}
