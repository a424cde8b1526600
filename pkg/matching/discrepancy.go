package matching

import (
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// discrepancyFields pairs each comparable field with the normalizer used for
// scoring, so "123 Main St" vs "123 Main Street" produces no discrepancy.
var discrepancyFields = []struct {
	name       string
	extracted  func(*models.ExtractedFields) *string
	canonical  func(*models.Facility) *string
	normalizer normalizers.Normalizer
}{
	{"name", func(e *models.ExtractedFields) *string { return e.FacilityName }, func(f *models.Facility) *string { return &f.Name }, normalizers.NormalizeFacilityName},
	{"address", func(e *models.ExtractedFields) *string { return e.Address }, func(f *models.Facility) *string { return f.Address }, normalizers.NormalizeAddress},
	{"city", func(e *models.ExtractedFields) *string { return e.City }, func(f *models.Facility) *string { return f.City }, caseFold},
	{"state", func(e *models.ExtractedFields) *string { return e.State }, func(f *models.Facility) *string { return f.State }, caseFold},
	{"zip", func(e *models.ExtractedFields) *string { return e.Zip }, func(f *models.Facility) *string { return f.Zip }, normalizers.NormalizeZipCode},
	{"phone", func(e *models.ExtractedFields) *string { return e.Phone }, func(f *models.Facility) *string { return f.Phone }, normalizers.NormalizePhone},
	{"fax", func(e *models.ExtractedFields) *string { return e.Fax }, func(f *models.Facility) *string { return f.Fax }, normalizers.NormalizePhone},
}

func caseFold(s string) string {
	return normalizers.Lowercase(normalizers.Trim(s))
}

// Discrepancies compares each field present in both the extracted input and
// the canonical record, emitting an entry only where the normalized values
// differ. Entries carry the literal pre-normalization strings for display.
func Discrepancies(extracted *models.ExtractedFields, facility *models.Facility) []models.Discrepancy {
	var result []models.Discrepancy
	for _, f := range discrepancyFields {
		ev := f.extracted(extracted)
		cv := f.canonical(facility)
		if ev == nil || cv == nil {
			continue
		}
		normExtracted := f.normalizer(*ev)
		normCanonical := f.normalizer(*cv)
		if normExtracted == "" || normCanonical == "" {
			continue
		}
		if normExtracted != normCanonical {
			result = append(result, models.Discrepancy{
				Field:          f.name,
				ExtractedValue: *ev,
				CanonicalValue: *cv,
			})
		}
	}
	return result
}
