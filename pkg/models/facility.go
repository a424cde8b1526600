package models

import "time"

// Facility is a canonical registry record for a submitting clinic or hospital.
// The registry owns the id; the matching engine only reads these.
type Facility struct {
	ID           string     `json:"id" db:"id"`
	FacilityCode *string    `json:"facility_code,omitempty" db:"facility_code"`
	Name         string     `json:"name" db:"name" validate:"required"`
	Address      *string    `json:"address,omitempty" db:"address"`
	City         *string    `json:"city,omitempty" db:"city"`
	State        *string    `json:"state,omitempty" db:"state"`
	Zip          *string    `json:"zip,omitempty" db:"zip"`
	Phone        *string    `json:"phone,omitempty" db:"phone"`
	Fax          *string    `json:"fax,omitempty" db:"fax"`
	Email        *string    `json:"email,omitempty" db:"email"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// FacilityQuery bounds the candidate pool for a match run. All fields are
// optional; the repository turns each present field into an indexed predicate.
type FacilityQuery struct {
	FacilityCode *string
	Name         *string // normalized, used for fuzzy-eligible pre-filter
	Fax          *string // normalized digits
	Phone        *string // normalized digits
	City         *string
	State        *string
	Zip          *string
	Limit        int
}

// CreateFacilityRequest is the "none of these / create new" request body.
type CreateFacilityRequest struct {
	DocumentID   string  `json:"document_id" validate:"required"`
	FacilityCode *string `json:"facility_code,omitempty"`
	Name         string  `json:"name" validate:"required"`
	Address      *string `json:"address,omitempty"`
	City         *string `json:"city,omitempty"`
	State        *string `json:"state,omitempty"`
	Zip          *string `json:"zip,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Fax          *string `json:"fax,omitempty"`
	Email        *string `json:"email,omitempty"`
}

// CreateFacilityResponse is the "none of these" outcome. Exactly one of
// Facility and Rematch is set: Rematch carries the automatic re-match result
// when another request created the same facility first.
type CreateFacilityResponse struct {
	Facility *Facility    `json:"facility,omitempty"`
	Rematch  *MatchResult `json:"rematch,omitempty"`
}

// FacilitySearchResponse is the autocomplete search payload.
type FacilitySearchResponse struct {
	Items      []Facility `json:"items"`
	TotalCount int        `json:"total_count"`
}
