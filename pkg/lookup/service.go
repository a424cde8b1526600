// Package lookup serves patient and physician lookups scoped to a confirmed
// facility. Nothing here runs until the document's facility match has been
// confirmed, so auto-fill suggestions always come from the right registry slice.
package lookup

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/reconcile"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	// scoreFloor drops lookup candidates below the useful range.
	scoreFloor = 0.5
	// exactThreshold marks the top candidate as effectively certain.
	exactThreshold = 0.95
	// searchFloor is the minimum partial-ratio for any-field search.
	searchFloor = 0.6
	// maxCandidates caps the lookup response.
	maxCandidates = 10

	weightOwnerLastName  = 0.4
	weightPrimaryName    = 0.4 // pet name for animals, owner first name for humans
	weightSecondaryFirst = 0.1 // owner first name when the subject is an animal
	weightSpecies        = 0.1

	// candidatePoolLimit bounds how many registry rows are scored in memory.
	candidatePoolLimit = 100
)

// PatientStore is the patient registry surface the service needs.
type PatientStore interface {
	GetByMRN(ctx context.Context, facilityID, mrn string) (*models.Patient, error)
	FindCandidates(ctx context.Context, facilityID, ownerLastName string, limit int) ([]models.Patient, error)
	Search(ctx context.Context, facilityID, term string, limit int) ([]models.Patient, error)
	Create(ctx context.Context, patient *models.Patient) (*models.Patient, error)
}

// SpeciesStore resolves species reference data.
type SpeciesStore interface {
	List(ctx context.Context) ([]models.Species, error)
	HumanSpeciesID(ctx context.Context) (string, error)
}

// PhysicianStore is the physician roster surface.
type PhysicianStore interface {
	ListByFacility(ctx context.Context, facilityID string) ([]models.Physician, error)
	Create(ctx context.Context, physician *models.Physician) (*models.Physician, error)
}

// FacilityGate reports which facility a document was confirmed against.
type FacilityGate interface {
	ConfirmedFacilityID(ctx context.Context, documentID string) (string, error)
}

// Service answers patient and physician lookups for confirmed facilities.
type Service struct {
	patients   PatientStore
	species    SpeciesStore
	physicians PhysicianStore
	gate       FacilityGate
	scorer     *matching.Scorer
	logger     ectologger.Logger
}

// NewService creates a lookup service.
func NewService(patients PatientStore, species SpeciesStore, physicians PhysicianStore, gate FacilityGate, logger ectologger.Logger) *Service {
	return &Service{
		patients:   patients,
		species:    species,
		physicians: physicians,
		gate:       gate,
		scorer:     matching.NewScorer(),
		logger:     logger,
	}
}

// Lookup finds registry patients matching the extracted name fields, ranked by
// confidence. An exact MRN hit short-circuits everything else.
func (s *Service) Lookup(ctx context.Context, facilityID string, req *models.PatientLookupRequest) (*models.PatientLookupResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "lookup.Service.Lookup")
	defer span.End()

	if err := s.requireConfirmed(ctx, req.DocumentID, facilityID); err != nil {
		return nil, err
	}

	if req.MRN != nil && *req.MRN != "" {
		patient, err := s.patients.GetByMRN(ctx, facilityID, *req.MRN)
		if err != nil {
			return nil, err
		}
		if patient != nil {
			return &models.PatientLookupResponse{
				Candidates: []models.PatientCandidate{{
					Patient:    *patient,
					Confidence: 1.0,
					Details:    "Exact MRN match",
				}},
				ExactMatch: true,
			}, nil
		}
	}

	pool, err := s.patients.FindCandidates(ctx, facilityID, req.OwnerLastName, candidatePoolLimit)
	if err != nil {
		return nil, err
	}

	humanSpeciesID, err := s.species.HumanSpeciesID(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.PatientCandidate, 0, len(pool))
	for i := range pool {
		score, details := s.scorePatient(&pool[i], req, humanSpeciesID)
		if score < scoreFloor {
			continue
		}
		candidates = append(candidates, models.PatientCandidate{
			Patient:    pool[i],
			Confidence: score,
			Details:    details,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Patient.ID < candidates[j].Patient.ID
	})
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	response := &models.PatientLookupResponse{
		Candidates: candidates,
		ExactMatch: len(candidates) > 0 && candidates[0].Confidence >= exactThreshold,
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"facility_id": facilityID,
		"document_id": req.DocumentID,
		"candidates":  len(candidates),
		"exact_match": response.ExactMatch,
	}).Debug("Patient lookup complete")

	return response, nil
}

// Search finds patients whose any name field or MRN partially matches the term.
func (s *Service) Search(ctx context.Context, facilityID, term string) (*models.PatientSearchResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "lookup.Service.Search")
	defer span.End()

	term = foldName(term)
	if len(term) < 2 {
		return &models.PatientSearchResponse{Items: []models.PatientCandidate{}}, nil
	}

	pool, err := s.patients.Search(ctx, facilityID, term, candidatePoolLimit)
	if err != nil {
		return nil, err
	}

	items := make([]models.PatientCandidate, 0, len(pool))
	for i := range pool {
		best := 0.0
		for _, field := range []*string{&pool[i].OwnerLastName, pool[i].OwnerFirstName, pool[i].PetName, pool[i].MRN} {
			if field == nil || *field == "" {
				continue
			}
			score := s.scorer.PartialRatio(term, foldName(*field))
			if score > best {
				best = score
			}
		}
		if best < searchFloor {
			continue
		}
		items = append(items, models.PatientCandidate{
			Patient:    pool[i],
			Confidence: best,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Confidence != items[j].Confidence {
			return items[i].Confidence > items[j].Confidence
		}
		return items[i].Patient.ID < items[j].Patient.ID
	})
	if len(items) > maxCandidates {
		items = items[:maxCandidates]
	}

	return &models.PatientSearchResponse{Items: items, TotalCount: len(items)}, nil
}

// CreatePatient registers a patient at the facility.
func (s *Service) CreatePatient(ctx context.Context, facilityID string, req *models.CreatePatientRequest) (*models.Patient, error) {
	ctx, span := tracing.StartSpan(ctx, "lookup.Service.CreatePatient")
	defer span.End()

	patient := &models.Patient{
		FacilityID:     facilityID,
		MRN:            req.MRN,
		OwnerFirstName: req.OwnerFirstName,
		OwnerLastName:  req.OwnerLastName,
		PetName:        req.PetName,
		SpeciesID:      req.SpeciesID,
		DateOfBirth:    req.DateOfBirth,
	}
	return s.patients.Create(ctx, patient)
}

// ListPhysicians returns the facility's active physicians in name order.
func (s *Service) ListPhysicians(ctx context.Context, facilityID string) (*models.PhysicianListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "lookup.Service.ListPhysicians")
	defer span.End()

	physicians, err := s.physicians.ListByFacility(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	if physicians == nil {
		physicians = []models.Physician{}
	}
	return &models.PhysicianListResponse{Items: physicians, TotalCount: len(physicians)}, nil
}

// AddPhysician adds a physician to the facility roster.
func (s *Service) AddPhysician(ctx context.Context, facilityID string, req *models.CreatePhysicianRequest) (*models.Physician, error) {
	ctx, span := tracing.StartSpan(ctx, "lookup.Service.AddPhysician")
	defer span.End()

	physician := &models.Physician{
		FacilityID: facilityID,
		Name:       req.Name,
		NPI:        req.NPI,
		Specialty:  req.Specialty,
		Phone:      req.Phone,
		Email:      req.Email,
	}
	return s.physicians.Create(ctx, physician)
}

// ListSpecies returns the species reference list.
func (s *Service) ListSpecies(ctx context.Context) ([]models.Species, error) {
	ctx, span := tracing.StartSpan(ctx, "lookup.Service.ListSpecies")
	defer span.End()

	return s.species.List(ctx)
}

func (s *Service) requireConfirmed(ctx context.Context, documentID, facilityID string) error {
	confirmedID, err := s.gate.ConfirmedFacilityID(ctx, documentID)
	if err != nil {
		return err
	}
	if confirmedID != facilityID {
		return reconcile.NewFacilityNotConfirmed("document %s is not confirmed against facility %s", documentID, facilityID)
	}
	return nil
}

// scorePatient computes the weighted-average match score for one registry
// patient. Which fields matter depends on whether the subject is human: humans
// match on the owner's own first name, animals on the pet name with the owner
// first name as a weak extra signal.
func (s *Service) scorePatient(patient *models.Patient, req *models.PatientLookupRequest, humanSpeciesID string) (float64, string) {
	var weightedSum, totalWeight float64
	var matchedParts []string

	add := func(score, weight float64, part string) {
		weightedSum += score * weight
		totalWeight += weight
		if part != "" && score >= 0.9 {
			matchedParts = append(matchedParts, part)
		}
	}

	if req.OwnerLastName != "" && patient.OwnerLastName != "" {
		add(s.scorer.Levenshtein(foldName(req.OwnerLastName), foldName(patient.OwnerLastName)), weightOwnerLastName, "last name")
	}

	isHuman := patient.PetName == nil ||
		(patient.SpeciesID != nil && humanSpeciesID != "" && *patient.SpeciesID == humanSpeciesID)

	if isHuman {
		if req.OwnerFirstName != nil && patient.OwnerFirstName != nil {
			add(s.scorer.Levenshtein(foldName(*req.OwnerFirstName), foldName(*patient.OwnerFirstName)), weightPrimaryName, "first name")
		}
	} else {
		if req.PetName != nil && patient.PetName != nil {
			add(s.scorer.Levenshtein(foldName(*req.PetName), foldName(*patient.PetName)), weightPrimaryName, "pet name")
		}
		if req.OwnerFirstName != nil && patient.OwnerFirstName != nil {
			add(s.scorer.Levenshtein(foldName(*req.OwnerFirstName), foldName(*patient.OwnerFirstName)), weightSecondaryFirst, "")
		}
	}

	if req.SpeciesID != nil && patient.SpeciesID != nil && *req.SpeciesID == *patient.SpeciesID {
		add(1.0, weightSpecies, "species")
	}

	if totalWeight == 0 {
		return 0.0, "No matching criteria"
	}
	score := weightedSum / totalWeight

	details := "Partial match"
	if len(matchedParts) > 0 {
		details = "Matched by: " + strings.Join(matchedParts, ", ")
	}
	details += fmt.Sprintf(" (%.0f%% confidence)", score*100)

	return score, details
}

// foldName lowercases and collapses whitespace for comparison.
func foldName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), " ")
}
