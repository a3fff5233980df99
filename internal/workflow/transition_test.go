package workflow

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/domain"
)

var pdf = domain.Document{Name: "cert.pdf", Content: []byte("%PDF-1.7 test")}

func mustStep(t *testing.T, s Snapshot, e Event) (Snapshot, *Request) {
	t.Helper()
	next, req, err := Transition(s, e)
	require.NoError(t, err, "event %s in %s", e.EventName(), s.State.Name())
	return next, req
}

func sampleResult(number string) *domain.VerificationResult {
	return &domain.VerificationResult{
		ParsingResult: domain.ExtractedCertificate{CertificateNumber: number},
		Summary:       domain.CertificateVerdict{OverallConsistent: true, Outcome: domain.OutcomeConsistent},
	}
}

func TestDuplicateThenOverwrite(t *testing.T) {
	s := Initial()
	s, req := mustStep(t, s, Upload{Document: pdf})
	require.NotNil(t, req)
	assert.Equal(t, domain.SubmitParams{}, req.Params)

	// A previous success is on screen.
	s, _ = mustStep(t, s, Responded{Attempt: req.Attempt, Result: sampleResult("C-000")})
	s, req = mustStep(t, s, Upload{Document: pdf})

	s, _ = mustStep(t, s, Responded{Attempt: req.Attempt, Err: domain.DuplicateCertificate("C-001")})
	dup, ok := s.State.(DuplicateFound)
	require.True(t, ok, "state = %s", s.State.Name())
	assert.Contains(t, dup.Message, "C-001")

	s, req = mustStep(t, s, Overwrite{})
	require.NotNil(t, req)
	assert.True(t, req.Params.Overwrite)
	assert.Equal(t, pdf, req.Document)
	assert.IsType(t, Submitted{}, s.State)

	s, _ = mustStep(t, s, Responded{Attempt: req.Attempt, Result: sampleResult("C-001")})
	assert.IsType(t, Success{}, s.State)
	require.NotNil(t, s.Displayed)
	assert.Equal(t, "C-001", s.Displayed.ParsingResult.CertificateNumber)
}

func TestCancelDuplicateKeepsDisplayedResult(t *testing.T) {
	s := Initial()
	s, req := mustStep(t, s, Upload{Document: pdf})
	s, _ = mustStep(t, s, Responded{Attempt: req.Attempt, Result: sampleResult("C-000")})
	s, req = mustStep(t, s, Upload{Document: pdf})
	s, _ = mustStep(t, s, Responded{Attempt: req.Attempt, Err: domain.DuplicateCertificate("C-001")})

	s, req = mustStep(t, s, CancelDuplicate{})
	assert.Nil(t, req)
	assert.IsType(t, Idle{}, s.State)
	require.NotNil(t, s.Displayed)
	assert.Equal(t, "C-000", s.Displayed.ParsingResult.CertificateNumber)
	assert.False(t, s.Params.Overwrite)
}

func TestFoodAmbiguousSelectCandidate(t *testing.T) {
	s := Initial()
	s, req := mustStep(t, s, Upload{Document: pdf})
	s, _ = mustStep(t, s, Responded{Attempt: req.Attempt, Err: domain.FoodSelectionRequired("자두", []string{"매실", "살구"})})

	amb, ok := s.State.(FoodAmbiguous)
	require.True(t, ok)
	assert.Equal(t, "자두", amb.ParsedFood)
	assert.Equal(t, []string{"매실", "살구"}, amb.SimilarFoods)

	s, req = mustStep(t, s, SelectFood{Food: "매실"})
	require.NotNil(t, req)
	assert.Equal(t, "매실", req.Params.SelectedFood)
	assert.Equal(t, pdf, req.Document)
	assert.Equal(t, Submitted{Attempt: req.Attempt}, s.State)
}

func TestSelectingDifferentFoodReplacesChoice(t *testing.T) {
	s := Initial()
	s, req := mustStep(t, s, Upload{Document: pdf})
	s, _ = mustStep(t, s, Responded{Attempt: req.Attempt, Err: domain.DuplicateCertificate("C-9")})
	s, req = mustStep(t, s, Overwrite{})
	s, _ = mustStep(t, s, Responded{Attempt: req.Attempt, Err: domain.FoodSelectionRequired("자두", []string{"매실"})})
	s, req = mustStep(t, s, SelectFood{Food: "매실"})
	s, _ = mustStep(t, s, Responded{Attempt: req.Attempt, Err: domain.FoodSelectionRequired("매실", []string{"살구"})})
	_, req = mustStep(t, s, SelectFood{Food: "살구"})

	want := domain.SubmitParams{Overwrite: true, SelectedFood: "살구"}
	if diff := cmp.Diff(want, req.Params); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestNoSimilarFoodGoesToConfirmation(t *testing.T) {
	s := Initial()
	s, req := mustStep(t, s, Upload{Document: pdf})
	s, _ = mustStep(t, s, Responded{Attempt: req.Attempt, Err: domain.FoodSelectionRequired("자두", nil)})
	amb := s.State.(FoodAmbiguous)
	assert.Empty(t, amb.SimilarFoods)

	s, req = mustStep(t, s, DeclareNoSimilarFood{})
	assert.Nil(t, req)
	assert.Equal(t, VerificationConfirmPending{ParsedFood: "자두"}, s.State)

	s, req = mustStep(t, s, ConfirmSkipValidation{})
	require.NotNil(t, req)
	assert.True(t, req.Params.SkipFoodValidation)
	assert.Equal(t, domain.NoFoodSelected, req.Params.SelectedFood)
	assert.IsType(t, Submitted{}, s.State)
}

func TestDeclineDiscardsEarlierSelection(t *testing.T) {
	s := Initial()
	s, req := mustStep(t, s, Upload{Document: pdf})
	s, _ = mustStep(t, s, Responded{Attempt: req.Attempt, Err: domain.FoodSelectionRequired("자두", []string{"매실"})})
	s, req = mustStep(t, s, SelectFood{Food: "매실"})
	s, _ = mustStep(t, s, Responded{Attempt: req.Attempt, Err: domain.FoodSelectionRequired("매실", nil)})
	s, _ = mustStep(t, s, DeclareNoSimilarFood{})
	assert.Empty(t, s.Params.SelectedFood)
}

func TestCancelFoodSelectionIsIdempotentFullReset(t *testing.T) {
	s := Initial()
	s, req := mustStep(t, s, Upload{Document: pdf})
	s, _ = mustStep(t, s, Responded{Attempt: req.Attempt, Result: sampleResult("C-000")})
	s, req = mustStep(t, s, Upload{Document: pdf})
	s, _ = mustStep(t, s, Responded{Attempt: req.Attempt, Err: domain.FoodSelectionRequired("자두", nil)})

	once, _ := mustStep(t, s, CancelFoodSelection{})
	twice, _ := mustStep(t, once, CancelFoodSelection{})

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("second cancel changed snapshot:\n%s", diff)
	}
	assert.IsType(t, Idle{}, once.State)
	assert.Nil(t, once.Document)
	assert.Nil(t, once.Displayed)
	assert.Empty(t, once.Error)
}

func TestCancelSkipValidationFullReset(t *testing.T) {
	s := Initial()
	s, req := mustStep(t, s, Upload{Document: pdf})
	s, _ = mustStep(t, s, Responded{Attempt: req.Attempt, Err: domain.FoodSelectionRequired("자두", nil)})
	s, _ = mustStep(t, s, DeclareNoSimilarFood{})
	s, _ = mustStep(t, s, CancelSkipValidation{})
	assert.Equal(t, Snapshot{State: Idle{}, Attempt: 1}, s)
}

func TestFailureKeepsDocumentForRetry(t *testing.T) {
	s := Initial()
	s, req := mustStep(t, s, Upload{Document: pdf})
	s, _ = mustStep(t, s, Responded{Attempt: req.Attempt, Err: &domain.ErrorResponse{Status: 422, Err: "PDF를 읽을 수 없습니다."}})

	failed, ok := s.State.(Failed)
	require.True(t, ok)
	assert.Equal(t, KindValidationFailure, failed.Kind)
	assert.Equal(t, "PDF를 읽을 수 없습니다.", s.Error)
	require.NotNil(t, s.Document)

	s, req = mustStep(t, s, Retry{})
	require.NotNil(t, req)
	assert.Equal(t, pdf, req.Document)
	assert.Empty(t, s.Error)
}

func TestStaleResponseIgnored(t *testing.T) {
	s := Initial()
	s, first := mustStep(t, s, Upload{Document: pdf})
	s, _ = mustStep(t, s, Reset{})
	s, second := mustStep(t, s, Upload{Document: pdf})
	require.NotEqual(t, first.Attempt, second.Attempt)

	after, _ := mustStep(t, s, Responded{Attempt: first.Attempt, Result: sampleResult("OLD")})
	assert.Equal(t, s, after)

	after, _ = mustStep(t, s, Responded{Attempt: second.Attempt, Result: sampleResult("NEW")})
	assert.Equal(t, "NEW", after.Displayed.ParsingResult.CertificateNumber)
}

func TestResponseAfterResetIsNoop(t *testing.T) {
	s := Initial()
	s, req := mustStep(t, s, Upload{Document: pdf})
	s, _ = mustStep(t, s, Reset{})
	after, _ := mustStep(t, s, Responded{Attempt: req.Attempt, Err: domain.DuplicateCertificate("C-1")})
	assert.Equal(t, s, after)
}

func TestBusyWhileSubmitted(t *testing.T) {
	s := Initial()
	s, _ = mustStep(t, s, Upload{Document: pdf})
	_, req, err := Transition(s, Upload{Document: pdf})
	assert.ErrorIs(t, err, ErrBusy)
	assert.Nil(t, req)
}

func TestInvalidTransitions(t *testing.T) {
	cases := []struct {
		name  string
		state State
		event Event
	}{
		{"overwrite from idle", Idle{}, Overwrite{}},
		{"select food from duplicate", DuplicateFound{}, SelectFood{Food: "매실"}},
		{"confirm from ambiguous", FoodAmbiguous{}, ConfirmSkipValidation{}},
		{"upload inside dialog", FoodAmbiguous{}, Upload{Document: pdf}},
		{"empty food", FoodAmbiguous{}, SelectFood{}},
		{"sentinel as food", FoodAmbiguous{}, SelectFood{Food: domain.NoFoodSelected}},
		{"retry without failure", Success{}, Retry{}},
		{"empty upload", Idle{}, Upload{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Transition(Snapshot{State: tc.state, Document: &pdf}, tc.event)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}
