// Package ui provides the terminal user interface for evomap.
// This file implements the GenerationWorker, which runs the request
// lifecycle for one tree generation off the UI goroutine: obtain a
// progress token, poll progress while the backend computes, and deliver
// the classified outcome as Bubble Tea messages.
package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/api"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/debug"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/model"
)

// GenPhase is the current phase of the generation lifecycle.
type GenPhase int

const (
	// PhaseIdle means no generation is running.
	PhaseIdle GenPhase = iota
	// PhaseTokenRequested means the progress token request is in flight.
	PhaseTokenRequested
	// PhaseGenerating means tree generation is in flight and progress is
	// being polled.
	PhaseGenerating
	// PhaseRevealPending means a tree arrived and the UI is holding it
	// until the reveal delay elapses.
	PhaseRevealPending
)

func (p GenPhase) String() string {
	switch p {
	case PhaseTokenRequested:
		return "token_requested"
	case PhaseGenerating:
		return "generating"
	case PhaseRevealPending:
		return "reveal_pending"
	default:
		return "idle"
	}
}

// GenOutcome classifies a finished generation.
type GenOutcome int

const (
	// OutcomeSuccess is a renderable tree covering the full selection.
	OutcomeSuccess GenOutcome = iota
	// OutcomePartial is a renderable tree missing some selected species.
	OutcomePartial
	// OutcomeNoCoverage means the backend found no dated tree for the
	// selection and produced nothing renderable.
	OutcomeNoCoverage
	// OutcomeError is a hard failure (network, auth, backend error).
	OutcomeError
)

func (o GenOutcome) String() string {
	switch o {
	case OutcomePartial:
		return "partial"
	case OutcomeNoCoverage:
		return "no_coverage"
	case OutcomeError:
		return "error"
	default:
		return "success"
	}
}

// Random pick bounds. A random draw stays small so the resulting tree
// reads well at terminal size.
const (
	RandomMin = 3
	RandomMax = 7
)

// PollInterval is how often progress is polled while generating.
const PollInterval = 2 * time.Second

// TreeService is the backend surface the worker needs. *api.Client
// satisfies it; tests substitute a scripted fake.
type TreeService interface {
	ProgressToken(ctx context.Context) (string, error)
	Progress(ctx context.Context, token string) (model.ProgressSnapshot, error)
	GenerateTree(ctx context.Context, req api.TreeRequest) (*model.TreeResult, error)
	RandomSpecies(ctx context.Context, count int) (model.Selection, string, error)
	Legend(ctx context.Context, legendType string) (model.Legend, error)
}

// Messages emitted by the worker. Every message carries the generation
// counter of the attempt that produced it; the model drops messages whose
// counter no longer matches, so a cancelled attempt can never clobber a
// newer one.

// TokenObtainedMsg reports that generation moved past the token phase.
type TokenObtainedMsg struct {
	Gen   uint64
	Token string
}

// ProgressMsg carries one progress poll result.
type ProgressMsg struct {
	Gen      uint64
	Snapshot model.ProgressSnapshot
}

// GenerationDoneMsg carries the classified outcome of one generation.
type GenerationDoneMsg struct {
	Gen       uint64
	Outcome   GenOutcome
	Result    *model.TreeResult
	Legend    model.Legend
	HasLegend bool
	Selection model.Selection
	Err       error
}

// RandomPickMsg carries the result of a random species draw.
type RandomPickMsg struct {
	Gen       uint64
	Selection model.Selection
	Err       error
}

// GenerationWorker owns the async request lifecycle. One worker serves the
// whole session; each StartGeneration call supersedes the previous one.
type GenerationWorker struct {
	service TreeService

	msgCh chan tea.Msg
	gen   atomic.Uint64

	mu        sync.Mutex
	cancelGen context.CancelFunc

	done chan struct{}
	once sync.Once
}

// NewGenerationWorker creates a worker for the given backend service.
func NewGenerationWorker(service TreeService) *GenerationWorker {
	return &GenerationWorker{
		service: service,
		msgCh:   make(chan tea.Msg, 16),
		done:    make(chan struct{}),
	}
}

// Messages returns the worker's message channel. The channel is owned by
// the worker and never closed; use Done() to stop waiting.
func (w *GenerationWorker) Messages() <-chan tea.Msg {
	if w == nil {
		return nil
	}
	return w.msgCh
}

// Done is closed when the worker is stopped.
func (w *GenerationWorker) Done() <-chan struct{} {
	if w == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return w.done
}

// Stop cancels any running generation and releases waiters.
func (w *GenerationWorker) Stop() {
	if w == nil {
		return
	}
	w.cancelCurrent()
	w.once.Do(func() { close(w.done) })
}

// Generation returns the current attempt counter.
func (w *GenerationWorker) Generation() uint64 {
	return w.gen.Load()
}

func (w *GenerationWorker) send(msg tea.Msg) {
	if msg == nil {
		return
	}
	for {
		select {
		case w.msgCh <- msg:
			return
		case <-w.done:
			return
		default:
		}
		// Channel is full; drop an older message so the newest wins.
		select {
		case <-w.msgCh:
		default:
		}
	}
}

func (w *GenerationWorker) cancelCurrent() {
	w.mu.Lock()
	if w.cancelGen != nil {
		w.cancelGen()
		w.cancelGen = nil
	}
	w.mu.Unlock()
}

// beginAttempt supersedes the running attempt and returns the new
// generation counter plus its context.
func (w *GenerationWorker) beginAttempt() (uint64, context.Context) {
	w.cancelCurrent()
	gen := w.gen.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	w.mu.Lock()
	w.cancelGen = cancel
	w.mu.Unlock()
	go func() {
		<-w.done
		cancel()
	}()
	return gen, ctx
}

// StartGeneration kicks off one tree generation for the selection. The
// selection must already be validated. Results arrive on Messages().
func (w *GenerationWorker) StartGeneration(sel model.Selection, allowPartial bool) uint64 {
	gen, ctx := w.beginAttempt()
	go w.runGeneration(ctx, gen, sel, allowPartial)
	return gen
}

// StartRandom draws random species. The pick arrives as a RandomPickMsg;
// the model decides whether to chain straight into generation.
func (w *GenerationWorker) StartRandom(count int) uint64 {
	if count < RandomMin || count > RandomMax {
		count = RandomMin
	}
	gen, ctx := w.beginAttempt()
	go func() {
		sel, _, err := w.service.RandomSpecies(ctx, count)
		if ctx.Err() != nil {
			return
		}
		w.send(RandomPickMsg{Gen: gen, Selection: sel, Err: err})
	}()
	return gen
}

func (w *GenerationWorker) runGeneration(ctx context.Context, gen uint64, sel model.Selection, allowPartial bool) {
	started := time.Now()

	token, err := w.service.ProgressToken(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		// No token means no way to correlate progress polls; the attempt
		// aborts rather than running blind.
		w.send(GenerationDoneMsg{Gen: gen, Outcome: OutcomeError, Err: err, Selection: sel})
		return
	}
	w.send(TokenObtainedMsg{Gen: gen, Token: token})
	go w.pollProgress(ctx, gen, token)

	req := api.TreeRequest{
		CommonNames:      sel.CommonNames(),
		ScientificNames:  sel.ScientificNames(),
		ProgressToken:    token,
		ExpansionSpeedMs: int(autoExpandStepDelay / time.Millisecond),
	}
	result, err := w.service.GenerateTree(ctx, req)
	if ctx.Err() != nil {
		return
	}

	// Older backends answer a partial-coverage request with the missing
	// list only; the tree needs a second call that opts into a partial
	// response. Newer backends return both at once, in which case the
	// first response already carries renderable content.
	if err == nil && allowPartial && reportsPartial(result) && !result.HasRenderableContent() {
		req.AllowPartial = true
		result, err = w.service.GenerateTree(ctx, req)
		if ctx.Err() != nil {
			return
		}
	}
	debug.LogTiming("generation attempt", time.Since(started))

	if err != nil {
		w.send(GenerationDoneMsg{Gen: gen, Outcome: OutcomeError, Err: err, Selection: sel})
		return
	}

	outcome := classifyResult(result)
	msg := GenerationDoneMsg{Gen: gen, Outcome: outcome, Result: result, Selection: sel}

	// Fetch the matching legend before delivering a renderable outcome,
	// so legend and tree appear together after the reveal.
	if outcome == OutcomeSuccess || outcome == OutcomePartial {
		if legend, lerr := w.service.Legend(ctx, result.LegendType); lerr == nil {
			msg.Legend = legend
			msg.HasLegend = true
		} else if ctx.Err() != nil {
			return
		} else {
			debug.Log("legend fetch failed: %v", lerr)
		}
	}

	w.send(msg)
}

// pollProgress polls sequentially: the next tick is scheduled only after
// the previous response lands, so a slow backend never stacks requests.
// Transient poll failures are swallowed; polling stops on a terminal
// status or context cancellation. The generation response itself is the
// authoritative end of the lifecycle.
func (w *GenerationWorker) pollProgress(ctx context.Context, gen uint64, token string) {
	// First poll fires immediately so the checklist appears without a
	// two second blank.
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		snap, err := w.service.Progress(ctx, token)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			debug.Log("progress poll failed (will retry): %v", err)
		} else {
			w.send(ProgressMsg{Gen: gen, Snapshot: snap})
			if snap.Status.Terminal() {
				return
			}
		}
		timer.Reset(PollInterval)
	}
}

// classifyResult maps a backend response onto an outcome. The response
// shape is contract-driven: a renderable payload wins over the success
// flag, and missing/dropped names demote success to partial.
func classifyResult(result *model.TreeResult) GenOutcome {
	if result == nil {
		return OutcomeError
	}
	if !result.HasRenderableContent() {
		if isNoCoverageMessage(result.ErrMessage) || result.Coverage == "none" {
			return OutcomeNoCoverage
		}
		return OutcomeError
	}
	if result.Coverage == "none" {
		return OutcomeNoCoverage
	}
	missing := len(result.MissingCommon) + len(result.DroppedCommon)
	if result.Coverage == "partial" || missing > 0 {
		return OutcomePartial
	}
	return OutcomeSuccess
}

// reportsPartial reports whether the backend flagged incomplete coverage.
func reportsPartial(result *model.TreeResult) bool {
	if result == nil {
		return false
	}
	return result.Coverage == "partial" ||
		len(result.MissingCommon) > 0 || len(result.DroppedCommon) > 0
}

func isNoCoverageMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "no chronogram data") ||
		strings.Contains(lower, "no coverage") ||
		strings.Contains(lower, "no dated tree") ||
		strings.Contains(lower, "not enough age data")
}

// WaitForWorkerMsgCmd waits for the next GenerationWorker message.
func WaitForWorkerMsgCmd(w *GenerationWorker) tea.Cmd {
	return func() tea.Msg {
		if w == nil {
			return nil
		}
		select {
		case msg := <-w.Messages():
			return msg
		case <-w.Done():
			return nil
		}
	}
}

// UserFacingError turns a transport error into a short banner message.
func UserFacingError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, api.ErrAuth):
		return "Authentication failed: check your API key"
	case errors.Is(err, api.ErrRateLimited):
		return "Rate limit exceeded: wait a moment before retrying"
	case errors.Is(err, context.DeadlineExceeded):
		return "The backend took too long to respond"
	default:
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) {
			return "Backend error: " + statusErr.Status
		}
		return "Request failed: " + err.Error()
	}
}

// Cancel aborts the running attempt without stopping the worker. The
// generation counter advances so any in-flight result is orphaned.
func (w *GenerationWorker) Cancel() {
	if w == nil {
		return
	}
	w.cancelCurrent()
	w.gen.Add(1)
}
