package workflow

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/domain"
)

// ErrorKind is the taxonomy submission failures are sorted into.
type ErrorKind string

const (
	KindDuplicateCertificate ErrorKind = "duplicate_certificate"
	KindFoodAmbiguous        ErrorKind = "food_ambiguous"
	KindValidationFailure    ErrorKind = "validation_failure"
	KindNetworkFailure       ErrorKind = "network_failure"
	KindUnclassified         ErrorKind = "unclassified"
)

const (
	FallbackMessage = "인증서 검증 중 오류가 발생했습니다."
	NetworkMessage  = "서버에 연결할 수 없습니다. 잠시 후 다시 시도해 주세요."
)

// Classification is the workflow's reading of a failed submission.
type Classification struct {
	Kind         ErrorKind
	Message      string
	ParsedFood   string
	SimilarFoods []string
}

// Classify sorts a submission error. Checks run in order and the first match
// wins: duplicate certificate, food selection required, then everything else.
func Classify(err error) Classification {
	var resp *domain.ErrorResponse
	if !errors.As(err, &resp) {
		if errors.Is(err, domain.ErrNetwork) {
			return Classification{Kind: KindNetworkFailure, Message: NetworkMessage}
		}
		return Classification{Kind: KindUnclassified, Message: FallbackMessage}
	}

	if msg, ok := duplicateMessage(resp); ok {
		return Classification{Kind: KindDuplicateCertificate, Message: msg}
	}
	if resp.Status == http.StatusBadRequest && resp.RequiresFoodSelection {
		return Classification{
			Kind:         KindFoodAmbiguous,
			Message:      resp.Message,
			ParsedFood:   resp.ParsedFood,
			SimilarFoods: append([]string(nil), resp.SimilarFoods...),
		}
	}

	kind := KindUnclassified
	switch {
	case len(resp.Errors) > 0,
		resp.Status == http.StatusBadRequest,
		resp.Status == http.StatusRequestEntityTooLarge,
		resp.Status == http.StatusUnsupportedMediaType,
		resp.Status == http.StatusUnprocessableEntity:
		kind = KindValidationFailure
	}
	return Classification{Kind: kind, Message: failureMessage(resp)}
}

func duplicateMessage(resp *domain.ErrorResponse) (string, bool) {
	for _, m := range append([]string{resp.Message, resp.Err}, fieldMessages(resp)...) {
		if strings.Contains(m, domain.DuplicatePhrase) {
			return m, true
		}
	}
	return "", false
}

// failureMessage picks field-specific validation text over the general error
// text over the fallback.
func failureMessage(resp *domain.ErrorResponse) string {
	if fm := fieldMessages(resp); len(fm) > 0 {
		return fm[0]
	}
	if resp.Err != "" {
		return resp.Err
	}
	if resp.Message != "" {
		return resp.Message
	}
	return FallbackMessage
}

// fieldMessages lists non-empty field messages ordered by field name.
func fieldMessages(resp *domain.ErrorResponse) []string {
	fields := make([]string, 0, len(resp.Errors))
	for f := range resp.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var out []string
	for _, f := range fields {
		for _, m := range resp.Errors[f] {
			if strings.TrimSpace(m) != "" {
				out = append(out, m)
			}
		}
	}
	return out
}
