package models

import "time"

// Species is a reference row for patient species. IsHuman marks the species
// used for human subjects, which changes which name fields matter for lookup.
type Species struct {
	ID      string `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	IsHuman bool   `json:"is_human" db:"is_human"`
}

// Patient belongs to exactly one facility. A nil PetName means the subject is
// the owner themselves (human patient).
type Patient struct {
	ID             string     `json:"id" db:"id"`
	FacilityID     string     `json:"facility_id" db:"facility_id"`
	MRN            *string    `json:"mrn,omitempty" db:"mrn"`
	OwnerFirstName *string    `json:"owner_first_name,omitempty" db:"owner_first_name"`
	OwnerLastName  string     `json:"owner_last_name" db:"owner_last_name" validate:"required"`
	PetName        *string    `json:"pet_name,omitempty" db:"pet_name"`
	SpeciesID      *string    `json:"species_id,omitempty" db:"species_id"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// PatientLookupRequest carries the lookup inputs. OwnerLastName is the only
// required field; the rest sharpen the score when present.
type PatientLookupRequest struct {
	DocumentID     string  `query:"document_id" validate:"required"`
	MRN            *string `query:"mrn"`
	OwnerLastName  string  `query:"owner_last_name" validate:"required"`
	OwnerFirstName *string `query:"owner_first_name"`
	PetName        *string `query:"pet_name"`
	SpeciesID      *string `query:"species_id"`
}

// PatientCandidate is one scored lookup result.
type PatientCandidate struct {
	Patient    Patient `json:"patient"`
	Confidence float64 `json:"confidence"`
	Details    string  `json:"details"`
}

// PatientLookupResponse is the ranked lookup payload. ExactMatch is true when
// the top candidate is effectively certain (MRN hit or near-perfect score).
type PatientLookupResponse struct {
	Candidates []PatientCandidate `json:"candidates"`
	ExactMatch bool               `json:"exact_match"`
}

// CreatePatientRequest is the request body for registering a patient at a facility.
type CreatePatientRequest struct {
	MRN            *string    `json:"mrn,omitempty"`
	OwnerFirstName *string    `json:"owner_first_name,omitempty"`
	OwnerLastName  string     `json:"owner_last_name" validate:"required"`
	PetName        *string    `json:"pet_name,omitempty"`
	SpeciesID      *string    `json:"species_id,omitempty"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty"`
}

// PatientSearchResponse is the any-field patient search payload.
type PatientSearchResponse struct {
	Items      []PatientCandidate `json:"items"`
	TotalCount int                `json:"total_count"`
}
