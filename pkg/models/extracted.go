package models

// ExtractedFields is the untrusted per-document input produced by the
// extraction pipeline. Every field is optional; a nil pointer means the
// extractor found nothing, which is distinct from an extracted empty string.
// Scorers skip absent fields rather than comparing against "".
type ExtractedFields struct {
	FacilityCode   *string `json:"facility_code,omitempty"`
	FacilityName   *string `json:"facility_name,omitempty"`
	Address        *string `json:"address,omitempty"`
	City           *string `json:"city,omitempty"`
	State          *string `json:"state,omitempty"`
	Zip            *string `json:"zip,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Fax            *string `json:"fax,omitempty"`
	PhysicianName  *string `json:"physician_name,omitempty"`
	OwnerFirstName *string `json:"owner_first_name,omitempty"`
	OwnerLastName  *string `json:"owner_last_name,omitempty"`
	PetName        *string `json:"pet_name,omitempty"`
	SpeciesName    *string `json:"species_name,omitempty"`
}

// HasFacilityEvidence reports whether any field usable by the facility
// matching tiers is present.
func (e *ExtractedFields) HasFacilityEvidence() bool {
	return e.FacilityCode != nil || e.FacilityName != nil || e.Fax != nil ||
		e.Phone != nil || (e.City != nil && e.State != nil) || e.Zip != nil
}

// ExtractedDocumentMessage is the Kafka message emitted by the extraction
// pipeline for a scanned requisition.
type ExtractedDocumentMessage struct {
	DocumentID string          `json:"document_id"`
	Source     string          `json:"source"`
	Extracted  ExtractedFields `json:"extracted"`
}
