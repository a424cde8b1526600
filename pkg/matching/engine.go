// Package matching implements the tiered facility matching pipeline
package matching

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Registry is the candidate-pool query against the canonical facility
// registry. Implementations bound the pool with indexed predicates; matching
// never scans the registry.
type Registry interface {
	FindCandidatesBy(ctx context.Context, query models.FacilityQuery) ([]models.Facility, error)
}

// EngineConfig contains configuration for the match engine
type EngineConfig struct {
	FuzzyNameFloor          float64
	HighConfidenceThreshold float64
	MaxCandidates           int
	PoolLimit               int
}

// DefaultConfig returns default engine configuration
func DefaultConfig() EngineConfig {
	return EngineConfig{
		FuzzyNameFloor:          DefaultFuzzyNameFloor,
		HighConfidenceThreshold: DefaultHighConfidenceThreshold,
		MaxCandidates:           DefaultMaxCandidates,
		PoolLimit:               100,
	}
}

// Engine orchestrates the scoring tiers over a bounded candidate pool and
// ranks the merged result. Stateless per request; safe for concurrent use.
type Engine struct {
	registry Registry
	scorers  []TierScorer
	ranker   *Ranker
	logger   ectologger.Logger
	config   EngineConfig
}

// NewEngine creates a new match engine
func NewEngine(registry Registry, logger ectologger.Logger, config EngineConfig) *Engine {
	if config.PoolLimit <= 0 {
		config.PoolLimit = 100
	}
	return &Engine{
		registry: registry,
		scorers: []TierScorer{
			&ExactScorer{},
			NewFuzzyNameScorer(config.FuzzyNameFloor),
			&ContactScorer{},
		},
		ranker: NewRanker(config.HighConfidenceThreshold, config.MaxCandidates),
		logger: logger,
		config: config,
	}
}

// Match runs the full pipeline for one document's extracted fields: bound the
// candidate pool, score every candidate on every applicable tier keeping the
// max across tiers, attach discrepancies, and rank.
func (e *Engine) Match(ctx context.Context, extracted *models.ExtractedFields) (*models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.Match")
	defer span.End()

	if extracted == nil || !extracted.HasFacilityEvidence() {
		return nil, NewValidationError("no facility fields were extracted from the document")
	}

	pool, err := e.registry.FindCandidatesBy(ctx, e.buildQuery(extracted))
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("candidate pool query failed")
		return nil, NewRegistryUnavailable("facility registry is unavailable")
	}

	candidates := make([]models.MatchCandidate, 0, len(pool))
	for i := range pool {
		facility := &pool[i]
		candidate, ok := e.scoreCandidate(extracted, facility)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
	}

	result := e.ranker.Rank(candidates)
	e.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"pool_size":       len(pool),
		"candidates":      len(result.Candidates),
		"high_confidence": result.HasHighConfidenceMatch,
	}).Debug("match pipeline completed")

	return result, nil
}

// scoreCandidate runs every tier whose inputs are present and keeps the
// maximum confidence. When two tiers both clear their thresholds the method
// becomes a combined label; tiers are never summed, so weak corroborating
// signals cannot inflate a match past what either tier alone justifies.
func (e *Engine) scoreCandidate(extracted *models.ExtractedFields, facility *models.Facility) (models.MatchCandidate, bool) {
	var best float64
	var method models.MatchMethod

	for _, scorer := range e.scorers {
		confidence, ok := scorer.Score(extracted, facility)
		if !ok {
			continue
		}
		method = method.Combine(scorer.Method())
		if confidence > best {
			best = confidence
		}
	}

	if method == "" {
		return models.MatchCandidate{}, false
	}

	return models.MatchCandidate{
		FacilityID:    facility.ID,
		Facility:      facility,
		Confidence:    best,
		Method:        method,
		Details:       BuildDetails(best, method),
		Discrepancies: Discrepancies(extracted, facility),
	}, true
}

// buildQuery turns the present extracted fields into indexed pool predicates:
// exact code, fuzzy-eligible name, matching fax or phone, city+state, zip.
func (e *Engine) buildQuery(extracted *models.ExtractedFields) models.FacilityQuery {
	query := models.FacilityQuery{Limit: e.config.PoolLimit}

	if extracted.FacilityCode != nil && *extracted.FacilityCode != "" {
		query.FacilityCode = extracted.FacilityCode
	}
	if extracted.FacilityName != nil {
		if name := normalizers.NormalizeFacilityName(*extracted.FacilityName); name != "" {
			query.Name = &name
		}
	}
	if extracted.Fax != nil {
		if fax := normalizers.NormalizePhone(*extracted.Fax); fax != "" {
			query.Fax = &fax
		}
	}
	if extracted.Phone != nil {
		if phone := normalizers.NormalizePhone(*extracted.Phone); phone != "" {
			query.Phone = &phone
		}
	}
	if extracted.City != nil && extracted.State != nil {
		city := normalizers.Trim(*extracted.City)
		state := normalizers.Trim(*extracted.State)
		if city != "" && state != "" {
			query.City = &city
			query.State = &state
		}
	}
	if extracted.Zip != nil {
		if zip := normalizers.NormalizeZipCode(*extracted.Zip); zip != "" {
			query.Zip = &zip
		}
	}

	return query
}
