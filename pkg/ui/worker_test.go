package ui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/api"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/model"
)

// fakeTreeService scripts the backend surface for worker tests.
type fakeTreeService struct {
	tokenErr    error
	progress    []model.ProgressSnapshot
	progressIdx int
	progressFn  func(call int) (model.ProgressSnapshot, error)
	result      *model.TreeResult
	genErr      error
	genDelay    time.Duration
	genFn       func(ctx context.Context, call int) (*model.TreeResult, error)
	legend      model.Legend
	legendErr   error
	random      model.Selection
	randomErr   error

	mu        sync.Mutex
	genCalls  int
	pollCalls int
}

func (f *fakeTreeService) ProgressToken(ctx context.Context) (string, error) {
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return "tok-test", nil
}

func (f *fakeTreeService) Progress(ctx context.Context, token string) (model.ProgressSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollCalls++
	if f.progressFn != nil {
		return f.progressFn(f.pollCalls)
	}
	if f.progressIdx < len(f.progress) {
		snap := f.progress[f.progressIdx]
		f.progressIdx++
		return snap, nil
	}
	return model.ProgressSnapshot{Status: model.ProgressCompleted}, nil
}

func (f *fakeTreeService) GenerateTree(ctx context.Context, req api.TreeRequest) (*model.TreeResult, error) {
	f.mu.Lock()
	f.genCalls++
	call := f.genCalls
	f.mu.Unlock()
	if f.genFn != nil {
		return f.genFn(ctx, call)
	}
	if f.genDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.genDelay):
		}
	}
	if f.genErr != nil {
		return nil, f.genErr
	}
	return f.result, nil
}

func (f *fakeTreeService) RandomSpecies(ctx context.Context, count int) (model.Selection, string, error) {
	return f.random, "", f.randomErr
}

func (f *fakeTreeService) Legend(ctx context.Context, legendType string) (model.Legend, error) {
	return f.legend, f.legendErr
}

func testSelection() model.Selection {
	return model.Selection{
		{Common: "Dog", Scientific: "Canis lupus familiaris"},
		{Common: "Cat", Scientific: "Felis catus"},
		{Common: "Goldfish", Scientific: "Carassius auratus"},
	}
}

// waitForMsg drains worker messages until one matches, with a deadline.
func waitForMsg(t *testing.T, w *GenerationWorker, match func(tea.Msg) bool) tea.Msg {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case msg := <-w.Messages():
			if match(msg) {
				return msg
			}
		case <-deadline:
			t.Fatal("timed out waiting for worker message")
			return nil
		}
	}
}

func TestGenerationSuccessDeliversLegend(t *testing.T) {
	svc := &fakeTreeService{
		result: &model.TreeResult{
			Success:    true,
			Tree:       &model.Node{Label: "Life"},
			Coverage:   "full",
			LegendType: "dated",
		},
		legend: model.Legend{Type: "dated"},
	}
	w := NewGenerationWorker(svc)
	defer w.Stop()

	gen := w.StartGeneration(testSelection(), true)

	msg := waitForMsg(t, w, func(m tea.Msg) bool {
		_, ok := m.(GenerationDoneMsg)
		return ok
	}).(GenerationDoneMsg)

	if msg.Gen != gen {
		t.Errorf("Gen = %d, want %d", msg.Gen, gen)
	}
	if msg.Outcome != OutcomeSuccess {
		t.Errorf("Outcome = %v, want success", msg.Outcome)
	}
	if !msg.HasLegend || msg.Legend.Type != "dated" {
		t.Errorf("legend not delivered with the tree: %+v", msg)
	}
}

func TestTokenFailureAbortsAttempt(t *testing.T) {
	tokenErr := errors.New("token endpoint down")
	svc := &fakeTreeService{
		tokenErr: tokenErr,
		result:   &model.TreeResult{Tree: &model.Node{Label: "Life"}, Coverage: "full"},
	}
	w := NewGenerationWorker(svc)
	defer w.Stop()

	w.StartGeneration(testSelection(), true)

	done := waitForMsg(t, w, func(m tea.Msg) bool {
		_, ok := m.(GenerationDoneMsg)
		return ok
	}).(GenerationDoneMsg)
	if done.Outcome != OutcomeError {
		t.Errorf("Outcome = %v, want error when the token request fails", done.Outcome)
	}
	if !errors.Is(done.Err, tokenErr) {
		t.Errorf("Err = %v, want the token error", done.Err)
	}

	svc.mu.Lock()
	calls := svc.genCalls
	svc.mu.Unlock()
	if calls != 0 {
		t.Errorf("GenerateTree called %d times, want 0 after token failure", calls)
	}
}

func TestPartialCoverageRetriesWithPartialAllowed(t *testing.T) {
	// Older backend contract: the first response reports missing species
	// without any tree; a second call opting into a partial response
	// returns the renderable content.
	svc := &fakeTreeService{
		genFn: func(ctx context.Context, call int) (*model.TreeResult, error) {
			if call == 1 {
				return &model.TreeResult{
					Success:       true,
					Coverage:      "partial",
					MissingCommon: []string{"Dodo"},
				}, nil
			}
			return &model.TreeResult{
				Success:       true,
				Coverage:      "partial",
				MissingCommon: []string{"Dodo"},
				Tree:          &model.Node{Label: "Life"},
				LegendType:    "dated",
			}, nil
		},
	}
	w := NewGenerationWorker(svc)
	defer w.Stop()

	w.StartGeneration(testSelection(), true)

	msg := waitForMsg(t, w, func(m tea.Msg) bool {
		_, ok := m.(GenerationDoneMsg)
		return ok
	}).(GenerationDoneMsg)
	if msg.Outcome != OutcomePartial {
		t.Fatalf("Outcome = %v, want partial", msg.Outcome)
	}
	if msg.Result == nil || msg.Result.Tree == nil {
		t.Fatal("second call's tree was not delivered")
	}

	svc.mu.Lock()
	calls := svc.genCalls
	svc.mu.Unlock()
	if calls != 2 {
		t.Errorf("GenerateTree called %d times, want 2", calls)
	}
}

func TestPartialWithContentDoesNotRetry(t *testing.T) {
	// Newer backend contract: one response carries both the tree and the
	// missing list, so no second call happens.
	svc := &fakeTreeService{
		result: &model.TreeResult{
			Success:       true,
			Coverage:      "partial",
			MissingCommon: []string{"Dodo"},
			Tree:          &model.Node{Label: "Life"},
		},
	}
	w := NewGenerationWorker(svc)
	defer w.Stop()

	w.StartGeneration(testSelection(), true)

	msg := waitForMsg(t, w, func(m tea.Msg) bool {
		_, ok := m.(GenerationDoneMsg)
		return ok
	}).(GenerationDoneMsg)
	if msg.Outcome != OutcomePartial {
		t.Fatalf("Outcome = %v, want partial", msg.Outcome)
	}

	svc.mu.Lock()
	calls := svc.genCalls
	svc.mu.Unlock()
	if calls != 1 {
		t.Errorf("GenerateTree called %d times, want 1", calls)
	}
}

func TestGenerationErrorOutcome(t *testing.T) {
	svc := &fakeTreeService{genErr: api.ErrAuth}
	w := NewGenerationWorker(svc)
	defer w.Stop()

	w.StartGeneration(testSelection(), true)

	msg := waitForMsg(t, w, func(m tea.Msg) bool {
		_, ok := m.(GenerationDoneMsg)
		return ok
	}).(GenerationDoneMsg)
	if msg.Outcome != OutcomeError {
		t.Errorf("Outcome = %v, want error", msg.Outcome)
	}
	if !errors.Is(msg.Err, api.ErrAuth) {
		t.Errorf("Err = %v, want ErrAuth", msg.Err)
	}
}

func TestSupersededAttemptDeliversNothing(t *testing.T) {
	svc := &fakeTreeService{
		genFn: func(ctx context.Context, call int) (*model.TreeResult, error) {
			if call == 1 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(5 * time.Second):
				}
				return &model.TreeResult{Tree: &model.Node{Label: "Slow"}, Coverage: "full"}, nil
			}
			return &model.TreeResult{Tree: &model.Node{Label: "Fast"}, Coverage: "full"}, nil
		},
	}
	w := NewGenerationWorker(svc)
	defer w.Stop()

	first := w.StartGeneration(testSelection(), true)
	second := w.StartGeneration(testSelection(), true)
	if second <= first {
		t.Fatalf("generation counter did not advance: %d then %d", first, second)
	}

	msg := waitForMsg(t, w, func(m tea.Msg) bool {
		_, ok := m.(GenerationDoneMsg)
		return ok
	}).(GenerationDoneMsg)
	if msg.Gen != second {
		t.Errorf("delivered gen %d, want only the superseding attempt %d", msg.Gen, second)
	}
	if msg.Result.Tree.Label != "Fast" {
		t.Errorf("delivered %q, cancelled attempt leaked through", msg.Result.Tree.Label)
	}
}

func TestCancelOrphansInFlightResult(t *testing.T) {
	svc := &fakeTreeService{
		genDelay: 5 * time.Second,
		result:   &model.TreeResult{Tree: &model.Node{Label: "Life"}, Coverage: "full"},
	}
	w := NewGenerationWorker(svc)
	defer w.Stop()

	gen := w.StartGeneration(testSelection(), true)
	w.Cancel()

	if w.Generation() <= gen {
		t.Error("Cancel should advance the generation counter")
	}
	select {
	case msg := <-w.Messages():
		if done, ok := msg.(GenerationDoneMsg); ok {
			t.Errorf("cancelled attempt delivered a result: %+v", done)
		}
	case <-time.After(500 * time.Millisecond):
	}
}

func TestRandomPickDelivery(t *testing.T) {
	svc := &fakeTreeService{random: testSelection()}
	w := NewGenerationWorker(svc)
	defer w.Stop()

	gen := w.StartRandom(5)

	msg := waitForMsg(t, w, func(m tea.Msg) bool {
		_, ok := m.(RandomPickMsg)
		return ok
	}).(RandomPickMsg)
	if msg.Gen != gen || msg.Err != nil {
		t.Errorf("msg = %+v", msg)
	}
	if len(msg.Selection) != 3 {
		t.Errorf("selection = %+v", msg.Selection)
	}
}

func TestClassifyResult(t *testing.T) {
	tree := &model.Node{Label: "Life"}
	cases := []struct {
		name   string
		result *model.TreeResult
		want   GenOutcome
	}{
		{"nil result", nil, OutcomeError},
		{"full coverage", &model.TreeResult{Tree: tree, Coverage: "full"}, OutcomeSuccess},
		{"html only", &model.TreeResult{HTML: "<svg/>"}, OutcomeSuccess},
		{"partial coverage", &model.TreeResult{Tree: tree, Coverage: "partial"}, OutcomePartial},
		{"missing names demote", &model.TreeResult{Tree: tree, Coverage: "full", MissingCommon: []string{"Dodo"}}, OutcomePartial},
		{"dropped names demote", &model.TreeResult{Tree: tree, DroppedCommon: []string{"Yeti"}}, OutcomePartial},
		{"coverage none with tree", &model.TreeResult{Tree: tree, Coverage: "none"}, OutcomeNoCoverage},
		{"empty with no-coverage message", &model.TreeResult{ErrMessage: "No dated tree could be built"}, OutcomeNoCoverage},
		{"empty with coverage none", &model.TreeResult{Coverage: "none"}, OutcomeNoCoverage},
		{"empty otherwise", &model.TreeResult{ErrMessage: "internal error"}, OutcomeError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyResult(tc.result); got != tc.want {
				t.Errorf("classifyResult() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestUserFacingError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{api.ErrAuth, "Authentication failed: check your API key"},
		{api.ErrRateLimited, "Rate limit exceeded: wait a moment before retrying"},
		{context.DeadlineExceeded, "The backend took too long to respond"},
		{&api.StatusError{Status: "500 Internal Server Error"}, "Backend error: 500 Internal Server Error"},
	}
	for _, tc := range cases {
		if got := UserFacingError(tc.err); got != tc.want {
			t.Errorf("UserFacingError(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestPollingStopsOnTerminalStatus(t *testing.T) {
	svc := &fakeTreeService{
		progressFn: func(call int) (model.ProgressSnapshot, error) {
			if call == 1 {
				return model.ProgressSnapshot{Status: model.ProgressInProgress}, nil
			}
			return model.ProgressSnapshot{Status: model.ProgressCompleted}, nil
		},
		result: &model.TreeResult{Tree: &model.Node{Label: "Life"}, Coverage: "full"},
	}
	w := NewGenerationWorker(svc)
	defer w.Stop()

	w.StartGeneration(testSelection(), true)

	first := waitForMsg(t, w, func(m tea.Msg) bool {
		pm, ok := m.(ProgressMsg)
		return ok && pm.Snapshot.Status == model.ProgressInProgress
	}).(ProgressMsg)
	if first.Snapshot.Status != model.ProgressInProgress {
		t.Fatalf("first snapshot status = %q", first.Snapshot.Status)
	}

	waitForMsg(t, w, func(m tea.Msg) bool {
		pm, ok := m.(ProgressMsg)
		return ok && pm.Snapshot.Status == model.ProgressCompleted
	})

	// A third poll would fire one interval after the terminal one.
	time.Sleep(PollInterval + 600*time.Millisecond)
	svc.mu.Lock()
	calls := svc.pollCalls
	svc.mu.Unlock()
	if calls != 2 {
		t.Errorf("Progress called %d times, want 2 (stop on terminal status)", calls)
	}
}

func TestPollingSurvivesTransientFailure(t *testing.T) {
	svc := &fakeTreeService{
		progressFn: func(call int) (model.ProgressSnapshot, error) {
			if call == 1 {
				return model.ProgressSnapshot{}, errors.New("gateway hiccup")
			}
			return model.ProgressSnapshot{Status: model.ProgressCompleted}, nil
		},
		result: &model.TreeResult{Tree: &model.Node{Label: "Life"}, Coverage: "full"},
	}
	w := NewGenerationWorker(svc)
	defer w.Stop()

	w.StartGeneration(testSelection(), true)

	msg := waitForMsg(t, w, func(m tea.Msg) bool {
		_, ok := m.(ProgressMsg)
		return ok
	}).(ProgressMsg)
	if msg.Snapshot.Status != model.ProgressCompleted {
		t.Errorf("snapshot after retry = %q, want completed", msg.Snapshot.Status)
	}
}
