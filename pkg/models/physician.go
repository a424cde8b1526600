package models

import "time"

// Physician belongs to exactly one facility. Uniqueness is enforced on
// (facility_id, normalized_name) at the registry layer.
type Physician struct {
	ID             string     `json:"id" db:"id"`
	FacilityID     string     `json:"facility_id" db:"facility_id"`
	Name           string     `json:"name" db:"name" validate:"required"`
	NormalizedName string     `json:"-" db:"normalized_name"`
	NPI            *string    `json:"npi,omitempty" db:"npi"`
	Specialty      *string    `json:"specialty,omitempty" db:"specialty"`
	Phone          *string    `json:"phone,omitempty" db:"phone"`
	Email          *string    `json:"email,omitempty" db:"email"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// CreatePhysicianRequest is the request body for adding a physician to a facility.
type CreatePhysicianRequest struct {
	Name      string  `json:"name" validate:"required"`
	NPI       *string `json:"npi,omitempty"`
	Specialty *string `json:"specialty,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// PhysicianListResponse lists a facility's active physicians.
type PhysicianListResponse struct {
	Items      []Physician `json:"items"`
	TotalCount int         `json:"total_count"`
}
