package workflow

import (
	"errors"
	"fmt"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/domain"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrBusy is returned when a submission is requested while one is in flight.
	ErrBusy = errors.New("a submission is already in progress")
)

// Transition applies e to s. When the new state is Submitted the returned
// Request must be sent; its response comes back as a Responded event.
// Responses for any attempt other than the pending one are ignored.
func Transition(s Snapshot, e Event) (Snapshot, *Request, error) {
	if s.State == nil {
		s.State = Idle{}
	}
	if _, ok := e.(Reset); ok {
		return fullReset(s), nil, nil
	}
	if r, ok := e.(Responded); ok {
		return respond(s, r), nil, nil
	}
	if _, ok := s.State.(Submitted); ok {
		return s, nil, ErrBusy
	}

	switch st := s.State.(type) {
	case Idle, Success, Failed:
		switch ev := e.(type) {
		case Upload:
			if len(ev.Document.Content) == 0 {
				return s, nil, fmt.Errorf("%w: empty document", ErrInvalidTransition)
			}
			doc := ev.Document
			s.Document = &doc
			s.Params = domain.SubmitParams{}
			return submit(s)
		case Retry:
			if _, failed := st.(Failed); failed && s.Document != nil {
				return submit(s)
			}
		case CancelDuplicate, CancelFoodSelection, CancelSkipValidation:
			if _, idle := st.(Idle); idle {
				return s, nil, nil
			}
		}

	case DuplicateFound:
		switch e.(type) {
		case Overwrite:
			s.Params.Overwrite = true
			return submit(s)
		case CancelDuplicate:
			s.State = Idle{}
			s.Document = nil
			s.Params = domain.SubmitParams{}
			s.Error = ""
			return s, nil, nil
		}

	case FoodAmbiguous:
		switch ev := e.(type) {
		case SelectFood:
			if ev.Food == "" || ev.Food == domain.NoFoodSelected {
				return s, nil, fmt.Errorf("%w: select_food needs a food name", ErrInvalidTransition)
			}
			s.Params.SelectedFood = ev.Food
			s.Params.SkipFoodValidation = false
			return submit(s)
		case DeclareNoSimilarFood:
			s.Params.SelectedFood = ""
			s.State = VerificationConfirmPending{ParsedFood: st.ParsedFood}
			return s, nil, nil
		case CancelFoodSelection:
			return fullReset(s), nil, nil
		}

	case VerificationConfirmPending:
		switch e.(type) {
		case ConfirmSkipValidation:
			s.Params.SkipFoodValidation = true
			s.Params.SelectedFood = domain.NoFoodSelected
			return submit(s)
		case CancelSkipValidation:
			return fullReset(s), nil, nil
		}
	}
	return s, nil, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, e.EventName(), s.State.Name())
}

func submit(s Snapshot) (Snapshot, *Request, error) {
	s.Attempt++
	s.State = Submitted{Attempt: s.Attempt}
	s.Error = ""
	return s, &Request{Attempt: s.Attempt, Document: *s.Document, Params: s.Params}, nil
}

// fullReset clears the document, results and errors. The attempt counter is
// kept so late responses still fail to correlate.
func fullReset(s Snapshot) Snapshot {
	return Snapshot{State: Idle{}, Attempt: s.Attempt}
}

func respond(s Snapshot, r Responded) Snapshot {
	pending, ok := s.State.(Submitted)
	if !ok || pending.Attempt != r.Attempt {
		return s
	}
	if r.Err == nil {
		var res domain.VerificationResult
		if r.Result != nil {
			res = *r.Result
		}
		s.State = Success{Result: res}
		s.Displayed = &res
		s.Error = ""
		return s
	}

	c := Classify(r.Err)
	switch c.Kind {
	case KindDuplicateCertificate:
		s.State = DuplicateFound{Message: c.Message}
	case KindFoodAmbiguous:
		s.State = FoodAmbiguous{ParsedFood: c.ParsedFood, SimilarFoods: c.SimilarFoods}
	default:
		s.State = Failed{Kind: c.Kind, Message: c.Message}
		s.Error = c.Message
	}
	return s
}
