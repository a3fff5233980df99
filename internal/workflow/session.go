package workflow

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/domain"
)

// MaxFoodCandidates caps free-text food search results shown in the
// disambiguation dialog.
const MaxFoodCandidates = 10

// Submitter sends a certificate for verification.
type Submitter interface {
	Submit(ctx context.Context, doc domain.Document, params domain.SubmitParams) (domain.VerificationResult, error)
}

// FoodSearcher looks up reference food names for the disambiguation dialog.
type FoodSearcher interface {
	SearchFoods(ctx context.Context, query string) ([]string, error)
}

// Session runs the workflow for one user. At most one submission is in
// flight; its response is applied only if it still matches the pending
// attempt.
type Session struct {
	submitter Submitter
	searcher  FoodSearcher
	logger    *zap.Logger

	inflight *semaphore.Weighted
	wg       sync.WaitGroup

	mu      sync.Mutex
	snap    Snapshot
	cancel  context.CancelFunc
	changed chan struct{}
}

func NewSession(submitter Submitter, searcher FoodSearcher, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		submitter: submitter,
		searcher:  searcher,
		logger:    logger,
		inflight:  semaphore.NewWeighted(1),
		snap:      Initial(),
		changed:   make(chan struct{}),
	}
}

// Snapshot returns the current workflow snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Dispatch applies a user event. Submissions it triggers run on ctx in the
// background; use Await to wait for their outcome.
func (s *Session) Dispatch(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, req, err := Transition(s.snap, e)
	if err != nil {
		return err
	}
	if _, ok := e.(Reset); ok && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if req != nil {
		if !s.inflight.TryAcquire(1) {
			return ErrBusy
		}
		reqCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.wg.Add(1)
		go s.run(reqCtx, cancel, *req)
	}
	s.logger.Debug("workflow transition",
		zap.String("event", e.EventName()),
		zap.String("from", s.snap.State.Name()),
		zap.String("to", next.State.Name()),
		zap.Uint64("attempt", next.Attempt))
	s.commit(next)
	return nil
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, req Request) {
	defer s.wg.Done()

	s.logger.Info("submitting certificate", zap.Stringer("request", req))
	res, err := s.submitter.Submit(ctx, req.Document, req.Params)
	cancel()
	s.inflight.Release(1)

	ev := Responded{Attempt: req.Attempt, Err: err}
	if err == nil {
		ev.Result = &res
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if pending, ok := s.snap.State.(Submitted); !ok || pending.Attempt != req.Attempt {
		s.logger.Debug("ignoring stale response", zap.Uint64("attempt", req.Attempt), zap.Error(err))
		return
	}
	if err != nil {
		s.logger.Info("submission failed", zap.Uint64("attempt", req.Attempt), zap.Error(err))
	}
	next, _, _ := Transition(s.snap, ev)
	s.commit(next)
}

func (s *Session) commit(next Snapshot) {
	s.snap = next
	close(s.changed)
	s.changed = make(chan struct{})
}

// Await blocks until no submission is pending and returns the snapshot.
func (s *Session) Await(ctx context.Context) (Snapshot, error) {
	for {
		s.mu.Lock()
		snap, ch := s.snap, s.changed
		s.mu.Unlock()
		if _, pending := snap.State.(Submitted); !pending {
			return snap, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// SearchFoods runs a free-text food search for the disambiguation dialog.
func (s *Session) SearchFoods(ctx context.Context, query string) ([]string, error) {
	if s.searcher == nil {
		return nil, nil
	}
	foods, err := s.searcher.SearchFoods(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(foods) > MaxFoodCandidates {
		foods = foods[:MaxFoodCandidates]
	}
	return foods, nil
}

// Close cancels any in-flight submission and waits for it to finish.
func (s *Session) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}
