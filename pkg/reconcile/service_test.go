package reconcile

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeMatcher struct {
	result *models.MatchResult
	err    error
	calls  int
}

func (m *fakeMatcher) Match(_ context.Context, _ *models.ExtractedFields) (*models.MatchResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// fakeAttemptStore keeps attempts in memory with the same atomic transition
// semantics as the SQL store.
type fakeAttemptStore struct {
	mu       sync.Mutex
	attempts map[string]*models.MatchAttempt
	order    []string
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{attempts: make(map[string]*models.MatchAttempt)}
}

func (s *fakeAttemptStore) Append(_ context.Context, attempt *models.MatchAttempt) (*models.MatchAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	attempt.Status = models.AttemptStatusProposed
	attempt.CreatedAt = time.Now().UTC()
	copied := *attempt
	s.attempts[attempt.ID] = &copied
	s.order = append(s.order, attempt.ID)
	return attempt, nil
}

func (s *fakeAttemptStore) Get(_ context.Context, id string) (*models.MatchAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[id]
	if !ok {
		return nil, fmt.Errorf("attempt %s not found", id)
	}
	copied := *attempt
	return &copied, nil
}

func (s *fakeAttemptStore) GetLatestByDocument(_ context.Context, documentID string) (*models.MatchAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		if s.attempts[s.order[i]].DocumentID == documentID {
			copied := *s.attempts[s.order[i]]
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeAttemptStore) GetConfirmedByDocument(_ context.Context, documentID string) (*models.MatchAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		attempt := s.attempts[s.order[i]]
		if attempt.DocumentID == documentID && attempt.Status == models.AttemptStatusConfirmed {
			copied := *attempt
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeAttemptStore) ListByDocument(_ context.Context, documentID string) ([]models.MatchAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.MatchAttempt
	for i := len(s.order) - 1; i >= 0; i-- {
		if s.attempts[s.order[i]].DocumentID == documentID {
			result = append(result, *s.attempts[s.order[i]])
		}
	}
	return result, nil
}

func (s *fakeAttemptStore) Transition(_ context.Context, attemptID string, to models.AttemptStatus, matchedEntityID *string, confidence *float64, method *string, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[attemptID]
	if !ok || attempt.Status != models.AttemptStatusProposed {
		return false, nil
	}
	now := time.Now().UTC()
	attempt.Status = to
	if matchedEntityID != nil {
		attempt.MatchedEntityID = matchedEntityID
	}
	if confidence != nil {
		attempt.Confidence = confidence
	}
	if method != nil {
		attempt.Method = method
	}
	attempt.ConfirmedBy = &userID
	attempt.ConfirmedAt = &now
	return true, nil
}

type fakeFacilityRegistry struct {
	created   []*models.Facility
	duplicate bool
}

func (r *fakeFacilityRegistry) Create(_ context.Context, facility *models.Facility) (*models.Facility, error) {
	if r.duplicate {
		return nil, httperror.NewHTTPError(http.StatusConflict, "facility already exists")
	}
	facility.ID = uuid.New().String()
	r.created = append(r.created, facility)
	return facility, nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func highConfidenceResult(facilityID string) *models.MatchResult {
	candidate := models.MatchCandidate{
		FacilityID: facilityID,
		Confidence: 0.92,
		Method:     models.MatchMethodFuzzyName,
	}
	return &models.MatchResult{
		Candidates:             []models.MatchCandidate{candidate},
		BestMatch:              &candidate,
		HasHighConfidenceMatch: true,
	}
}

func newTestService(matcher Matcher, store AttemptStore, registry FacilityRegistry) *Service {
	logger := testLogger()
	return NewService(matcher, store, registry, events.NewEmitter(nil, logger), logger)
}

func extractedFixture() *models.ExtractedFields {
	name := "Happy Paws Veterinary"
	return &models.ExtractedFields{FacilityName: &name}
}

func TestService_Propose(t *testing.T) {
	store := newFakeAttemptStore()
	service := newTestService(&fakeMatcher{result: highConfidenceResult("fac-1")}, store, &fakeFacilityRegistry{})

	attempt, result, err := service.Propose(context.Background(), "doc-1", extractedFixture())
	require.NoError(t, err)
	require.NotNil(t, attempt)
	assert.Equal(t, models.AttemptStatusProposed, attempt.Status)
	assert.Nil(t, attempt.MatchedEntityID)
	require.NotNil(t, attempt.Confidence)
	assert.Equal(t, 0.92, *attempt.Confidence)
	assert.True(t, result.HasHighConfidenceMatch)

	t.Run("each propose appends a new attempt", func(t *testing.T) {
		_, _, err := service.Propose(context.Background(), "doc-1", extractedFixture())
		require.NoError(t, err)

		history, err := service.History(context.Background(), "doc-1")
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})
}

func TestService_Confirm(t *testing.T) {
	setup := func(t *testing.T) (*Service, *models.MatchAttempt) {
		store := newFakeAttemptStore()
		service := newTestService(&fakeMatcher{result: highConfidenceResult("fac-1")}, store, &fakeFacilityRegistry{})
		attempt, _, err := service.Propose(context.Background(), "doc-1", extractedFixture())
		require.NoError(t, err)
		return service, attempt
	}

	t.Run("confirm from proposed", func(t *testing.T) {
		service, _ := setup(t)

		confirmed, err := service.Confirm(context.Background(), "doc-1", "fac-1", "user-1")
		require.NoError(t, err)
		assert.Equal(t, models.AttemptStatusConfirmed, confirmed.Status)
		require.NotNil(t, confirmed.MatchedEntityID)
		assert.Equal(t, "fac-1", *confirmed.MatchedEntityID)
		require.NotNil(t, confirmed.ConfirmedBy)
		assert.Equal(t, "user-1", *confirmed.ConfirmedBy)
	})

	t.Run("re-confirming the same facility is a no-op", func(t *testing.T) {
		service, _ := setup(t)

		first, err := service.Confirm(context.Background(), "doc-1", "fac-1", "user-1")
		require.NoError(t, err)
		second, err := service.Confirm(context.Background(), "doc-1", "fac-1", "user-2")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, *first.ConfirmedBy, *second.ConfirmedBy)
	})

	t.Run("confirming a different facility conflicts", func(t *testing.T) {
		service, _ := setup(t)

		_, err := service.Confirm(context.Background(), "doc-1", "fac-1", "user-1")
		require.NoError(t, err)
		_, err = service.Confirm(context.Background(), "doc-1", "fac-2", "user-2")
		require.Error(t, err)
		assert.True(t, IsConflictingConfirmation(err))
	})

	t.Run("confirming after reject conflicts", func(t *testing.T) {
		service, _ := setup(t)

		_, err := service.Reject(context.Background(), "doc-1", "user-1")
		require.NoError(t, err)
		_, err = service.Confirm(context.Background(), "doc-1", "fac-1", "user-2")
		require.Error(t, err)
		assert.True(t, IsConflictingConfirmation(err))
	})

	t.Run("reprocess does not reopen a confirmed document", func(t *testing.T) {
		service, _ := setup(t)

		first, err := service.Confirm(context.Background(), "doc-1", "fac-1", "user-1")
		require.NoError(t, err)
		_, _, err = service.Reprocess(context.Background(), "doc-1")
		require.NoError(t, err)

		// the fresh proposed attempt must not allow a different binding
		_, err = service.Confirm(context.Background(), "doc-1", "fac-2", "user-2")
		require.Error(t, err)
		assert.True(t, IsConflictingConfirmation(err))

		// same facility stays an idempotent no-op on the confirmed attempt
		again, err := service.Confirm(context.Background(), "doc-1", "fac-1", "user-2")
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)

		facilityID, err := service.ConfirmedFacilityID(context.Background(), "doc-1")
		require.NoError(t, err)
		assert.Equal(t, "fac-1", facilityID)
	})

	t.Run("unknown document", func(t *testing.T) {
		service, _ := setup(t)

		_, err := service.Confirm(context.Background(), "doc-missing", "fac-1", "user-1")
		require.Error(t, err)
		assert.True(t, IsAttemptNotFound(err))
	})

	t.Run("manually selected facility outside the candidate list", func(t *testing.T) {
		service, _ := setup(t)

		confirmed, err := service.Confirm(context.Background(), "doc-1", "fac-manual", "user-1")
		require.NoError(t, err)
		require.NotNil(t, confirmed.Method)
		assert.Equal(t, "manual", *confirmed.Method)
	})
}

func TestService_ConcurrentConfirm(t *testing.T) {
	store := newFakeAttemptStore()
	service := newTestService(&fakeMatcher{result: highConfidenceResult("fac-1")}, store, &fakeFacilityRegistry{})
	_, _, err := service.Propose(context.Background(), "doc-1", extractedFixture())
	require.NoError(t, err)

	// Two concurrent confirmations with different facilities: exactly one
	// wins, the other sees a conflict, never two bindings.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, facilityID := range []string{"fac-1", "fac-2"} {
		wg.Add(1)
		go func(i int, facilityID string) {
			defer wg.Done()
			_, errs[i] = service.Confirm(context.Background(), "doc-1", facilityID, "user")
		}(i, facilityID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, IsConflictingConfirmation(err))
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestService_Reject(t *testing.T) {
	store := newFakeAttemptStore()
	service := newTestService(&fakeMatcher{result: highConfidenceResult("fac-1")}, store, &fakeFacilityRegistry{})
	_, _, err := service.Propose(context.Background(), "doc-1", extractedFixture())
	require.NoError(t, err)

	rejected, err := service.Reject(context.Background(), "doc-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStatusRejected, rejected.Status)

	t.Run("idempotent", func(t *testing.T) {
		again, err := service.Reject(context.Background(), "doc-1", "user-2")
		require.NoError(t, err)
		assert.Equal(t, rejected.ID, again.ID)
	})
}

func TestService_Reprocess(t *testing.T) {
	matcher := &fakeMatcher{result: highConfidenceResult("fac-1")}
	store := newFakeAttemptStore()
	service := newTestService(matcher, store, &fakeFacilityRegistry{})

	_, _, err := service.Propose(context.Background(), "doc-1", extractedFixture())
	require.NoError(t, err)

	attempt, _, err := service.Reprocess(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStatusProposed, attempt.Status)
	assert.Equal(t, 2, matcher.calls)

	history, err := service.History(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
	// reprocess reuses the extracted snapshot
	assert.Equal(t, history[1].Extracted, history[0].Extracted)

	t.Run("unknown document", func(t *testing.T) {
		_, _, err := service.Reprocess(context.Background(), "doc-missing")
		require.Error(t, err)
		assert.True(t, IsAttemptNotFound(err))
	})
}

func TestService_CreateFacility(t *testing.T) {
	t.Run("creates and returns the facility", func(t *testing.T) {
		registry := &fakeFacilityRegistry{}
		service := newTestService(&fakeMatcher{result: highConfidenceResult("fac-1")}, newFakeAttemptStore(), registry)

		facility, result, err := service.CreateFacility(context.Background(), &models.CreateFacilityRequest{
			DocumentID: "doc-1",
			Name:       "Brand New Vet Clinic",
		}, "user-1")
		require.NoError(t, err)
		require.NotNil(t, facility)
		assert.Nil(t, result)
		assert.Len(t, registry.created, 1)
	})

	t.Run("duplicate race converts to automatic re-match", func(t *testing.T) {
		matcher := &fakeMatcher{result: highConfidenceResult("fac-raced")}
		store := newFakeAttemptStore()
		service := newTestService(matcher, store, &fakeFacilityRegistry{duplicate: true})

		_, _, err := service.Propose(context.Background(), "doc-1", extractedFixture())
		require.NoError(t, err)
		priorCalls := matcher.calls

		facility, result, err := service.CreateFacility(context.Background(), &models.CreateFacilityRequest{
			DocumentID: "doc-1",
			Name:       "Brand New Vet Clinic",
		}, "user-1")
		require.NoError(t, err)
		assert.Nil(t, facility)
		require.NotNil(t, result)
		assert.Equal(t, "fac-raced", result.Candidates[0].FacilityID)
		assert.Equal(t, priorCalls+1, matcher.calls)
	})
}

func TestService_ConfirmedFacilityID(t *testing.T) {
	store := newFakeAttemptStore()
	service := newTestService(&fakeMatcher{result: highConfidenceResult("fac-1")}, store, &fakeFacilityRegistry{})
	_, _, err := service.Propose(context.Background(), "doc-1", extractedFixture())
	require.NoError(t, err)

	t.Run("before confirmation", func(t *testing.T) {
		_, err := service.ConfirmedFacilityID(context.Background(), "doc-1")
		require.Error(t, err)
		assert.True(t, IsFacilityNotConfirmed(err))
	})

	t.Run("after confirmation", func(t *testing.T) {
		_, err := service.Confirm(context.Background(), "doc-1", "fac-1", "user-1")
		require.NoError(t, err)

		facilityID, err := service.ConfirmedFacilityID(context.Background(), "doc-1")
		require.NoError(t, err)
		assert.Equal(t, "fac-1", facilityID)
	})
}
