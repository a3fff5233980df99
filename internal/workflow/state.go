// Package workflow drives a certificate upload through duplicate detection,
// food disambiguation and skip-validation confirmation until a verification
// result is obtained or the user gives up.
package workflow

import (
	"fmt"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/domain"
)

// State is one of the workflow states below. Exactly one dialog can be open
// at a time because the state is a single value.
type State interface {
	Name() string
	isState()
}

type Idle struct{}

// Submitted means the request for Attempt is in flight.
type Submitted struct{ Attempt uint64 }

type Success struct{ Result domain.VerificationResult }

// DuplicateFound waits for the user to overwrite or cancel.
type DuplicateFound struct{ Message string }

// FoodAmbiguous waits for the user to pick a food for ParsedFood.
type FoodAmbiguous struct {
	ParsedFood   string
	SimilarFoods []string
}

// VerificationConfirmPending asks whether to verify without a food, checking
// only names and the certificate's declared values.
type VerificationConfirmPending struct{ ParsedFood string }

type Failed struct {
	Kind    ErrorKind
	Message string
}

func (Idle) Name() string                       { return "idle" }
func (Submitted) Name() string                  { return "submitted" }
func (Success) Name() string                    { return "success" }
func (DuplicateFound) Name() string             { return "duplicate_found" }
func (FoodAmbiguous) Name() string              { return "food_ambiguous" }
func (VerificationConfirmPending) Name() string { return "verification_confirm_pending" }
func (Failed) Name() string                     { return "failed" }

func (Idle) isState()                       {}
func (Submitted) isState()                  {}
func (Success) isState()                    {}
func (DuplicateFound) isState()             {}
func (FoodAmbiguous) isState()              {}
func (VerificationConfirmPending) isState() {}
func (Failed) isState()                     {}

// Snapshot is everything the workflow shows and remembers between attempts.
type Snapshot struct {
	State    State
	Document *domain.Document
	Params   domain.SubmitParams
	// Displayed is the last successful result. It survives a duplicate
	// cancel and is replaced by the next success.
	Displayed *domain.VerificationResult
	Error     string
	Attempt   uint64
}

// Initial returns the snapshot of a fresh session.
func Initial() Snapshot { return Snapshot{State: Idle{}} }

// Request is a submission the caller must perform for Attempt.
type Request struct {
	Attempt  uint64
	Document domain.Document
	Params   domain.SubmitParams
}

func (r Request) String() string {
	return fmt.Sprintf("attempt=%d file=%s overwrite=%t selectedFood=%q skip=%t",
		r.Attempt, r.Document.Name, r.Params.Overwrite, r.Params.SelectedFood, r.Params.SkipFoodValidation)
}
