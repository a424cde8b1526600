package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeRegistry struct {
	facilities []models.Facility
	err        error
	lastQuery  models.FacilityQuery
}

func (r *fakeRegistry) FindCandidatesBy(_ context.Context, query models.FacilityQuery) ([]models.Facility, error) {
	r.lastQuery = query
	if r.err != nil {
		return nil, r.err
	}
	return r.facilities, nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestEngine(registry Registry) *Engine {
	return NewEngine(registry, testLogger(), DefaultConfig())
}

func TestEngine_Match_ExactTier(t *testing.T) {
	registry := &fakeRegistry{facilities: []models.Facility{
		{
			ID:    "fac-1",
			Name:  "Happy Paws Veterinary Clinic",
			City:  strPtr("Columbus"),
			State: strPtr("OH"),
		},
		{
			ID:   "fac-2",
			Name: "Happy Tails Veterinary Clinic",
		},
	}}
	engine := newTestEngine(registry)

	extracted := &models.ExtractedFields{
		FacilityName: strPtr("Happy Paws Veterinary"),
		City:         strPtr("Columbus"),
		State:        strPtr("OH"),
	}

	result, err := engine.Match(context.Background(), extracted)
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)

	top := result.Candidates[0]
	assert.Equal(t, "fac-1", top.FacilityID)
	assert.Equal(t, 1.0, top.Confidence)
	// every tier that fires contributes to the label; exact is listed first
	// and alone determines the 1.0 confidence
	assert.Equal(t, models.MatchMethod("exact+fuzzy_name+contact"), top.Method)
	assert.True(t, result.HasHighConfidenceMatch)
	require.NotNil(t, result.BestMatch)
	assert.Equal(t, "fac-1", result.BestMatch.FacilityID)
}

func TestEngine_Match_ContactOnly(t *testing.T) {
	registry := &fakeRegistry{facilities: []models.Facility{
		{
			ID:   "fac-1",
			Name: "Totally Unrelated Practice",
			Fax:  strPtr("6145551234"),
		},
	}}
	engine := newTestEngine(registry)

	extracted := &models.ExtractedFields{
		FacilityName: strPtr("Riverside Animal Hospital"),
		Fax:          strPtr("(614) 555-1234"),
	}

	result, err := engine.Match(context.Background(), extracted)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)

	top := result.Candidates[0]
	assert.Equal(t, models.MatchMethodContact, top.Method)
	assert.Greater(t, top.Confidence, 0.6)
	assert.LessOrEqual(t, top.Confidence, 0.9)

	// discrepancy for name but not for fax (normalized fax values are equal)
	fields := make([]string, 0, len(top.Discrepancies))
	for _, d := range top.Discrepancies {
		fields = append(fields, d.Field)
	}
	assert.Contains(t, fields, "name")
	assert.NotContains(t, fields, "fax")
}

func TestEngine_Match_FuzzyOnly(t *testing.T) {
	registry := &fakeRegistry{facilities: []models.Facility{
		{ID: "fac-1", Name: "Riverside Animal Hospital"},
	}}
	engine := newTestEngine(registry)

	extracted := &models.ExtractedFields{
		FacilityName: strPtr("Riverzide Animal Hospital"),
	}

	result, err := engine.Match(context.Background(), extracted)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)

	top := result.Candidates[0]
	assert.Equal(t, models.MatchMethodFuzzyName, top.Method)
	assert.GreaterOrEqual(t, top.Confidence, 0.70)
	assert.LessOrEqual(t, top.Confidence, 0.95)
	assert.Equal(t, top.Confidence >= 0.85, result.HasHighConfidenceMatch)
}

func TestEngine_Match_CombinedMethod(t *testing.T) {
	registry := &fakeRegistry{facilities: []models.Facility{
		{
			ID:   "fac-1",
			Name: "Riverside Animal Hospital",
			Fax:  strPtr("614-555-1234"),
		},
	}}
	engine := newTestEngine(registry)

	extracted := &models.ExtractedFields{
		FacilityName: strPtr("Riverzide Animal Hospital"),
		Fax:          strPtr("(614) 555-1234"),
	}

	result, err := engine.Match(context.Background(), extracted)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)

	top := result.Candidates[0]
	assert.Equal(t, models.MatchMethod("fuzzy_name+contact"), top.Method)

	// tiers are never summed: confidence is the max of the two tiers
	fuzzyConf, ok := NewFuzzyNameScorer(DefaultFuzzyNameFloor).Score(extracted, &registry.facilities[0])
	require.True(t, ok)
	contactConf, ok := (&ContactScorer{}).Score(extracted, &registry.facilities[0])
	require.True(t, ok)
	assert.Equal(t, max(fuzzyConf, contactConf), top.Confidence)
}

func TestEngine_Match_Determinism(t *testing.T) {
	registry := &fakeRegistry{facilities: []models.Facility{
		{ID: "fac-b", Name: "Happy Paws Veterinary"},
		{ID: "fac-a", Name: "Happy Paws Veterinary"},
	}}
	engine := newTestEngine(registry)

	extracted := &models.ExtractedFields{FacilityName: strPtr("Happy Paws")}

	first, err := engine.Match(context.Background(), extracted)
	require.NoError(t, err)
	second, err := engine.Match(context.Background(), extracted)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first.Candidates, 2)
	assert.Equal(t, "fac-a", first.Candidates[0].FacilityID)

	// no duplicate ids in the output
	seen := map[string]bool{}
	for _, c := range first.Candidates {
		assert.False(t, seen[c.FacilityID])
		seen[c.FacilityID] = true
	}
}

func TestEngine_Match_NoEvidence(t *testing.T) {
	engine := newTestEngine(&fakeRegistry{})

	_, err := engine.Match(context.Background(), &models.ExtractedFields{})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestEngine_Match_RegistryFailure(t *testing.T) {
	engine := newTestEngine(&fakeRegistry{err: errors.New("connection refused")})

	_, err := engine.Match(context.Background(), &models.ExtractedFields{FacilityName: strPtr("Happy Paws")})
	require.Error(t, err)
	assert.True(t, IsRegistryUnavailable(err))
}

func TestEngine_BuildQuery(t *testing.T) {
	engine := newTestEngine(&fakeRegistry{})

	extracted := &models.ExtractedFields{
		FacilityName: strPtr("Happy Paws Veterinary Clinic"),
		Fax:          strPtr("1-614-555-1234"),
		City:         strPtr(" Columbus "),
		State:        strPtr("OH"),
		Zip:          strPtr("43215-1234"),
	}

	query := engine.buildQuery(extracted)
	require.NotNil(t, query.Name)
	assert.Equal(t, "happy paws", *query.Name)
	require.NotNil(t, query.Fax)
	assert.Equal(t, "6145551234", *query.Fax)
	require.NotNil(t, query.City)
	assert.Equal(t, "Columbus", *query.City)
	require.NotNil(t, query.Zip)
	assert.Equal(t, "432151234", *query.Zip)
	assert.Equal(t, 100, query.Limit)
}
