package workflow

import "github.com/kiimleo/pesticide-monitor-sub000/internal/domain"

// Event is a user decision or a submission response.
type Event interface {
	EventName() string
}

// Upload starts verification of a new document with fresh parameters.
type Upload struct{ Document domain.Document }

// Responded delivers the outcome of a submission.
type Responded struct {
	Attempt uint64
	Result  *domain.VerificationResult
	Err     error
}

type Overwrite struct{}
type CancelDuplicate struct{}

// SelectFood picks a similar-food candidate or any searched food.
type SelectFood struct{ Food string }

type DeclareNoSimilarFood struct{}
type CancelFoodSelection struct{}
type ConfirmSkipValidation struct{}
type CancelSkipValidation struct{}

// Retry resubmits the last document and parameters after a failure.
type Retry struct{}

// Reset abandons everything, including an in-flight attempt.
type Reset struct{}

func (Upload) EventName() string                { return "upload" }
func (Responded) EventName() string             { return "responded" }
func (Overwrite) EventName() string             { return "overwrite" }
func (CancelDuplicate) EventName() string       { return "cancel_duplicate" }
func (SelectFood) EventName() string            { return "select_food" }
func (DeclareNoSimilarFood) EventName() string  { return "declare_no_similar_food" }
func (CancelFoodSelection) EventName() string   { return "cancel_food_selection" }
func (ConfirmSkipValidation) EventName() string { return "confirm_skip_validation" }
func (CancelSkipValidation) EventName() string  { return "cancel_skip_validation" }
func (Retry) EventName() string                 { return "retry" }
func (Reset) EventName() string                 { return "reset" }
