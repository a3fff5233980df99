package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/domain"
	"github.com/kiimleo/pesticide-monitor-sub000/internal/workflow"
)

// replaySubmitter answers calls with queued errors, then succeeds.
type replaySubmitter struct {
	mu     sync.Mutex
	errs   []error
	params []domain.SubmitParams
}

func (r *replaySubmitter) Submit(_ context.Context, _ domain.Document, p domain.SubmitParams) (domain.VerificationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params = append(r.params, p)
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		if err != nil {
			return domain.VerificationResult{}, err
		}
	}
	verdict := domain.VerdictPass
	return domain.VerificationResult{
		ParsingResult: domain.ExtractedCertificate{
			CertificateNumber: "2024-001",
			Findings:          []domain.ExtractedFinding{{RecordedPesticideName: "Azoxystrobin", DetectionValue: 0.1, RecordedVerdict: &verdict}},
		},
		VerificationResult: []domain.FindingVerdict{{NameMatches: true, ComputedVerdict: domain.VerdictPass, FinalPass: true}},
		Summary:            domain.CertificateVerdict{OverallConsistent: true, Outcome: domain.OutcomeConsistent},
		Food:               p.SelectedFood,
	}, nil
}

func (r *replaySubmitter) calls() []domain.SubmitParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.SubmitParams(nil), r.params...)
}

type foodList []string

func (f foodList) SearchFoods(context.Context, string) ([]string, error) { return f, nil }

var testDoc = domain.Document{Name: "cert.pdf", Content: []byte("%PDF-1.7")}

func runDrive(t *testing.T, sub *replaySubmitter, search workflow.FoodSearcher, input string) (string, error) {
	t.Helper()
	sess := workflow.NewSession(sub, search, nil)
	defer sess.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := drive(ctx, sess, testDoc, bufio.NewReader(strings.NewReader(input)), &out)
	return out.String(), err
}

func TestDriveDuplicateOverwrite(t *testing.T) {
	sub := &replaySubmitter{errs: []error{domain.DuplicateCertificate("2024-001")}}
	out, err := runDrive(t, sub, nil, "y\n")
	require.NoError(t, err)

	assert.Contains(t, out, domain.DuplicatePhrase)
	assert.Contains(t, out, "성적서 번호: 2024-001")
	calls := sub.calls()
	require.Len(t, calls, 2)
	assert.True(t, calls[1].Overwrite)
}

func TestDriveDuplicateCancel(t *testing.T) {
	sub := &replaySubmitter{errs: []error{domain.DuplicateCertificate("2024-001")}}
	_, err := runDrive(t, sub, nil, "\n")
	assert.ErrorIs(t, err, errCancelled)
	assert.Len(t, sub.calls(), 1)
}

func TestDriveFoodSelectionViaSearch(t *testing.T) {
	sub := &replaySubmitter{errs: []error{domain.FoodSelectionRequired("자두", []string{"자두", "자몽"})}}
	out, err := runDrive(t, sub, foodList{"매실", "매실주"}, "/매실\nx\n1\n")
	require.NoError(t, err)

	assert.Contains(t, out, "목록의 번호를 입력해 주세요.")
	assert.Contains(t, out, "식품: 매실")
	calls := sub.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "매실", calls[1].SelectedFood)
	assert.False(t, calls[1].SkipFoodValidation)
}

func TestDriveNoSimilarFoodConfirm(t *testing.T) {
	sub := &replaySubmitter{errs: []error{domain.FoodSelectionRequired("이상한과일", nil)}}
	_, err := runDrive(t, sub, nil, "n\ny\n")
	require.NoError(t, err)

	calls := sub.calls()
	require.Len(t, calls, 2)
	assert.True(t, calls[1].SkipFoodValidation)
	assert.Equal(t, domain.NoFoodSelected, calls[1].SelectedFood)
}

func TestDriveFailureRetry(t *testing.T) {
	sub := &replaySubmitter{errs: []error{domain.FieldError(422, "certificateNumber", "성적서 번호가 필요합니다.")}}
	out, err := runDrive(t, sub, nil, "y\n")
	require.NoError(t, err)
	assert.Contains(t, out, "성적서 번호가 필요합니다.")
	assert.Len(t, sub.calls(), 2)
}

func TestDriveFailureGiveUp(t *testing.T) {
	sub := &replaySubmitter{errs: []error{domain.FieldError(422, "certificateNumber", "성적서 번호가 필요합니다.")}}
	_, err := runDrive(t, sub, nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(workflow.KindValidationFailure))
}
