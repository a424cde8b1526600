package lookup

import (
	"context"
	"fmt"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/reconcile"
)

type fakePatients struct {
	patients []models.Patient
	created  []*models.Patient
}

func (f *fakePatients) GetByMRN(_ context.Context, facilityID, mrn string) (*models.Patient, error) {
	for i := range f.patients {
		if f.patients[i].FacilityID == facilityID && f.patients[i].MRN != nil && *f.patients[i].MRN == mrn {
			return &f.patients[i], nil
		}
	}
	return nil, nil
}

func (f *fakePatients) FindCandidates(_ context.Context, facilityID, _ string, _ int) ([]models.Patient, error) {
	var result []models.Patient
	for _, p := range f.patients {
		if p.FacilityID == facilityID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (f *fakePatients) Search(_ context.Context, facilityID, _ string, _ int) ([]models.Patient, error) {
	return f.FindCandidates(context.Background(), facilityID, "", 0)
}

func (f *fakePatients) Create(_ context.Context, patient *models.Patient) (*models.Patient, error) {
	patient.ID = fmt.Sprintf("pat-%d", len(f.created)+1)
	f.created = append(f.created, patient)
	return patient, nil
}

type fakeSpecies struct {
	species []models.Species
	humanID string
}

func (f *fakeSpecies) List(_ context.Context) ([]models.Species, error) { return f.species, nil }
func (f *fakeSpecies) HumanSpeciesID(_ context.Context) (string, error) {
	return f.humanID, nil
}

type fakePhysicians struct {
	physicians []models.Physician
}

func (f *fakePhysicians) ListByFacility(_ context.Context, facilityID string) ([]models.Physician, error) {
	var result []models.Physician
	for _, p := range f.physicians {
		if p.FacilityID == facilityID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (f *fakePhysicians) Create(_ context.Context, physician *models.Physician) (*models.Physician, error) {
	physician.ID = fmt.Sprintf("phy-%d", len(f.physicians)+1)
	f.physicians = append(f.physicians, *physician)
	return physician, nil
}

type fakeGate struct {
	confirmed map[string]string
}

func (f *fakeGate) ConfirmedFacilityID(_ context.Context, documentID string) (string, error) {
	facilityID, ok := f.confirmed[documentID]
	if !ok {
		return "", reconcile.NewFacilityNotConfirmed("document %s has no confirmed facility", documentID)
	}
	return facilityID, nil
}

func strPtr(s string) *string { return &s }

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestService(patients *fakePatients, species *fakeSpecies, physicians *fakePhysicians, gate *fakeGate) *Service {
	return NewService(patients, species, physicians, gate, testLogger())
}

func animalFixture() *fakePatients {
	return &fakePatients{patients: []models.Patient{
		{ID: "pat-1", FacilityID: "fac-1", OwnerLastName: "Smith", OwnerFirstName: strPtr("Jane"), PetName: strPtr("Rex"), SpeciesID: strPtr("sp-dog"), MRN: strPtr("MRN-42")},
		{ID: "pat-2", FacilityID: "fac-1", OwnerLastName: "Jones", OwnerFirstName: strPtr("Bob"), PetName: strPtr("Whiskers"), SpeciesID: strPtr("sp-cat")},
	}}
}

func confirmedGate() *fakeGate {
	return &fakeGate{confirmed: map[string]string{"doc-1": "fac-1"}}
}

func TestService_Lookup(t *testing.T) {
	species := &fakeSpecies{humanID: "sp-human"}

	t.Run("rejected before facility confirmation", func(t *testing.T) {
		service := newTestService(animalFixture(), species, &fakePhysicians{}, &fakeGate{confirmed: map[string]string{}})

		_, err := service.Lookup(context.Background(), "fac-1", &models.PatientLookupRequest{
			DocumentID:    "doc-1",
			OwnerLastName: "Smith",
		})
		require.Error(t, err)
		assert.True(t, reconcile.IsFacilityNotConfirmed(err))
	})

	t.Run("rejected when confirmed against a different facility", func(t *testing.T) {
		service := newTestService(animalFixture(), species, &fakePhysicians{}, confirmedGate())

		_, err := service.Lookup(context.Background(), "fac-other", &models.PatientLookupRequest{
			DocumentID:    "doc-1",
			OwnerLastName: "Smith",
		})
		require.Error(t, err)
		assert.True(t, reconcile.IsFacilityNotConfirmed(err))
	})

	t.Run("mrn short-circuit", func(t *testing.T) {
		service := newTestService(animalFixture(), species, &fakePhysicians{}, confirmedGate())

		resp, err := service.Lookup(context.Background(), "fac-1", &models.PatientLookupRequest{
			DocumentID:    "doc-1",
			OwnerLastName: "Totally Wrong",
			MRN:           strPtr("MRN-42"),
		})
		require.NoError(t, err)
		require.Len(t, resp.Candidates, 1)
		assert.Equal(t, "pat-1", resp.Candidates[0].Patient.ID)
		assert.Equal(t, 1.0, resp.Candidates[0].Confidence)
		assert.True(t, resp.ExactMatch)
	})

	t.Run("animal patient matches on owner last name and pet name", func(t *testing.T) {
		service := newTestService(animalFixture(), species, &fakePhysicians{}, confirmedGate())

		resp, err := service.Lookup(context.Background(), "fac-1", &models.PatientLookupRequest{
			DocumentID:    "doc-1",
			OwnerLastName: "Smith",
			PetName:       strPtr("Rex"),
		})
		require.NoError(t, err)
		require.Len(t, resp.Candidates, 1)
		assert.Equal(t, "pat-1", resp.Candidates[0].Patient.ID)
		assert.Equal(t, 1.0, resp.Candidates[0].Confidence)
		assert.True(t, resp.ExactMatch)
		assert.Contains(t, resp.Candidates[0].Details, "last name")
		assert.Contains(t, resp.Candidates[0].Details, "pet name")
	})

	t.Run("near-miss pet name scores below exact", func(t *testing.T) {
		service := newTestService(animalFixture(), species, &fakePhysicians{}, confirmedGate())

		resp, err := service.Lookup(context.Background(), "fac-1", &models.PatientLookupRequest{
			DocumentID:    "doc-1",
			OwnerLastName: "Smith",
			PetName:       strPtr("Rexx"),
		})
		require.NoError(t, err)
		require.Len(t, resp.Candidates, 1)
		// last name 1.0 * 0.4 + pet name 0.75 * 0.4 over weight 0.8
		assert.InDelta(t, 0.875, resp.Candidates[0].Confidence, 0.001)
		assert.False(t, resp.ExactMatch)
	})

	t.Run("human patient matches on owner first name", func(t *testing.T) {
		patients := &fakePatients{patients: []models.Patient{
			{ID: "pat-h1", FacilityID: "fac-1", OwnerLastName: "Garcia", OwnerFirstName: strPtr("Maria"), SpeciesID: strPtr("sp-human")},
		}}
		service := newTestService(patients, species, &fakePhysicians{}, confirmedGate())

		resp, err := service.Lookup(context.Background(), "fac-1", &models.PatientLookupRequest{
			DocumentID:     "doc-1",
			OwnerLastName:  "Garcia",
			OwnerFirstName: strPtr("Maria"),
		})
		require.NoError(t, err)
		require.Len(t, resp.Candidates, 1)
		assert.Equal(t, 1.0, resp.Candidates[0].Confidence)
		assert.True(t, resp.ExactMatch)
		assert.Contains(t, resp.Candidates[0].Details, "first name")
	})

	t.Run("species agreement lifts the score", func(t *testing.T) {
		service := newTestService(animalFixture(), species, &fakePhysicians{}, confirmedGate())

		without, err := service.Lookup(context.Background(), "fac-1", &models.PatientLookupRequest{
			DocumentID:    "doc-1",
			OwnerLastName: "Smith",
			PetName:       strPtr("Rexx"),
		})
		require.NoError(t, err)
		with, err := service.Lookup(context.Background(), "fac-1", &models.PatientLookupRequest{
			DocumentID:    "doc-1",
			OwnerLastName: "Smith",
			PetName:       strPtr("Rexx"),
			SpeciesID:     strPtr("sp-dog"),
		})
		require.NoError(t, err)
		assert.Greater(t, with.Candidates[0].Confidence, without.Candidates[0].Confidence)
	})

	t.Run("weak candidates are dropped", func(t *testing.T) {
		service := newTestService(animalFixture(), species, &fakePhysicians{}, confirmedGate())

		resp, err := service.Lookup(context.Background(), "fac-1", &models.PatientLookupRequest{
			DocumentID:    "doc-1",
			OwnerLastName: "Smith",
		})
		require.NoError(t, err)
		for _, candidate := range resp.Candidates {
			assert.NotEqual(t, "pat-2", candidate.Patient.ID)
			assert.GreaterOrEqual(t, candidate.Confidence, 0.5)
		}
	})
}

func TestService_Search(t *testing.T) {
	service := newTestService(animalFixture(), &fakeSpecies{}, &fakePhysicians{}, confirmedGate())

	t.Run("partial term matches a field fragment", func(t *testing.T) {
		resp, err := service.Search(context.Background(), "fac-1", "smi")
		require.NoError(t, err)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "pat-1", resp.Items[0].Patient.ID)
		assert.Equal(t, 1.0, resp.Items[0].Confidence)
	})

	t.Run("mrn is searchable", func(t *testing.T) {
		resp, err := service.Search(context.Background(), "fac-1", "MRN-42")
		require.NoError(t, err)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "pat-1", resp.Items[0].Patient.ID)
	})

	t.Run("short terms return nothing", func(t *testing.T) {
		resp, err := service.Search(context.Background(), "fac-1", "s")
		require.NoError(t, err)
		assert.Empty(t, resp.Items)
	})
}

func TestService_CreatePatient(t *testing.T) {
	patients := &fakePatients{}
	service := newTestService(patients, &fakeSpecies{}, &fakePhysicians{}, confirmedGate())

	created, err := service.CreatePatient(context.Background(), "fac-1", &models.CreatePatientRequest{
		OwnerLastName: "Smith",
		PetName:       strPtr("Rex"),
	})
	require.NoError(t, err)
	assert.Equal(t, "fac-1", created.FacilityID)
	assert.Len(t, patients.created, 1)
}

func TestService_Physicians(t *testing.T) {
	physicians := &fakePhysicians{}
	service := newTestService(&fakePatients{}, &fakeSpecies{}, physicians, confirmedGate())

	added, err := service.AddPhysician(context.Background(), "fac-1", &models.CreatePhysicianRequest{Name: "Dr. Sarah Chen"})
	require.NoError(t, err)
	assert.Equal(t, "fac-1", added.FacilityID)

	resp, err := service.ListPhysicians(context.Background(), "fac-1")
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Dr. Sarah Chen", resp.Items[0].Name)
}
