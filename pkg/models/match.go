package models

import "time"

// MatchMethod tags which scoring tier produced a candidate's confidence.
type MatchMethod string

const (
	// MatchMethodExact means a canonical identifier or normalized-name byte equality fired
	MatchMethodExact MatchMethod = "exact"
	// MatchMethodFuzzyName means the edit-distance name tier produced the score
	MatchMethodFuzzyName MatchMethod = "fuzzy_name"
	// MatchMethodContact means the fax/city+state/zip composite produced the score
	MatchMethodContact MatchMethod = "contact"
)

// Combine joins two tier tags into the combined label used when both tiers
// clear their thresholds for the same candidate.
func (m MatchMethod) Combine(other MatchMethod) MatchMethod {
	if m == "" {
		return other
	}
	if other == "" || m == other {
		return m
	}
	return m + "+" + other
}

// Discrepancy is one field where the extracted value and the canonical value
// differ after normalization. Values are the literal pre-normalization strings
// for display.
type Discrepancy struct {
	Field          string `json:"field"`
	ExtractedValue string `json:"extracted_value"`
	CanonicalValue string `json:"canonical_value"`
}

// MatchCandidate is one scored facility in a match result. Transient; only the
// ranked top-N is persisted, serialized inside the MatchAttempt audit row.
type MatchCandidate struct {
	FacilityID    string        `json:"facility_id"`
	Facility      *Facility     `json:"facility,omitempty"`
	Confidence    float64       `json:"confidence"`
	Method        MatchMethod   `json:"method"`
	Details       string        `json:"details,omitempty"`
	Discrepancies []Discrepancy `json:"discrepancies,omitempty"`
}

// MatchResult is the ranked output of one match run. BestMatch is nil unless
// the top candidate clears the high-confidence threshold.
type MatchResult struct {
	Candidates             []MatchCandidate `json:"candidates"`
	BestMatch              *MatchCandidate  `json:"best_match,omitempty"`
	HasHighConfidenceMatch bool             `json:"has_high_confidence_match"`
}

// AttemptStatus is the reconciliation state machine state.
type AttemptStatus string

const (
	// AttemptStatusProposed is the initial state, written when a match run completes
	AttemptStatusProposed AttemptStatus = "proposed"
	// AttemptStatusConfirmed is terminal: the binding was accepted
	AttemptStatusConfirmed AttemptStatus = "confirmed"
	// AttemptStatusRejected is terminal: the user declared "none of these"
	AttemptStatusRejected AttemptStatus = "rejected"
)

// MatchAttempt is the immutable audit record of one matching+confirmation
// cycle for a document. Rows are append-only; the status transitions
// proposed -> confirmed|rejected exactly once and nothing else mutates.
type MatchAttempt struct {
	ID               string           `json:"id" db:"id"`
	DocumentID       string           `json:"document_id" db:"document_id"`
	Extracted        ExtractedFields  `json:"extracted" db:"-"`
	Candidates       []MatchCandidate `json:"candidates" db:"-"`
	MatchedEntityID  *string          `json:"matched_entity_id,omitempty" db:"matched_entity_id"`
	Confidence       *float64         `json:"confidence,omitempty" db:"confidence"`
	Method           *string          `json:"method,omitempty" db:"method"`
	Status           AttemptStatus    `json:"status" db:"status"`
	ConfirmedBy      *string          `json:"confirmed_by,omitempty" db:"confirmed_by"`
	ConfirmedAt      *time.Time       `json:"confirmed_at,omitempty" db:"confirmed_at"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
}

// ConfirmRequest is the confirmation request body. The acting user comes from
// the X-User-ID header, not the body.
type ConfirmRequest struct {
	FacilityID string `json:"facility_id" validate:"required"`
}

// MatchRunResponse pairs the appended audit attempt with the ranked result of
// the run that produced it.
type MatchRunResponse struct {
	Attempt *MatchAttempt `json:"attempt"`
	Result  *MatchResult  `json:"result"`
}

// MatchAttemptListResponse is the per-document audit history, newest first.
type MatchAttemptListResponse struct {
	Items      []MatchAttempt `json:"items"`
	TotalCount int            `json:"total_count"`
}
