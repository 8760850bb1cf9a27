// Package detail is the view-model behind the application detail dialog.
// A View follows a target (application id plus visibility), fetches the
// composite detail whenever it becomes visible with an id, and only ever
// shows the result of the latest fetch.
package detail

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/api"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/viewmodel"
)

// DefaultErrorMessage is shown when a failed fetch carries no server message
const DefaultErrorMessage = "加载详情失败"

// Fetcher loads one application detail
type Fetcher interface {
	GetApplicationDetail(ctx context.Context, appID int64) (*entity.ApplicationDetailResponse, error)
}

// Phase is the renderable state of the view
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseError
	PhaseReady
	PhaseEmpty
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseError:
		return "error"
	case PhaseReady:
		return "ready"
	case PhaseEmpty:
		return "empty"
	}
	return "unknown"
}

// State is a snapshot of the view
type State struct {
	Phase Phase
	AppID int64
	Err   string
	Model *ViewModel
}

// Option configures a View
type Option func(*View)

// WithObserver registers fn to receive every state change
func WithObserver(fn func(State)) Option {
	return func(v *View) {
		v.observers = append(v.observers, fn)
	}
}

// View is the detail dialog's state holder. It is safe for concurrent use.
type View struct {
	fetcher Fetcher
	logger  *zap.Logger
	gen     viewmodel.Generation
	wg      sync.WaitGroup

	mu        sync.Mutex
	appID     int64
	visible   bool
	loading   bool
	err       string
	model     *ViewModel
	resolved  bool
	cancel    context.CancelFunc
	observers []func(State)
}

// NewView creates an idle view
func NewView(fetcher Fetcher, logger *zap.Logger, opts ...Option) *View {
	v := &View{fetcher: fetcher, logger: logger}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// OnChange registers an observer after construction
func (v *View) OnChange(fn func(State)) {
	v.mu.Lock()
	v.observers = append(v.observers, fn)
	v.mu.Unlock()
}

// SetTarget moves the view to (appID, visible). Entering visible-with-id
// issues exactly one fetch; repeating the current target does nothing.
// Becoming hidden, or losing the id, drops any held result.
func (v *View) SetTarget(ctx context.Context, appID int64, visible bool) {
	v.mu.Lock()
	if appID == v.appID && visible == v.visible {
		v.mu.Unlock()
		return
	}

	prevID := v.appID
	v.appID, v.visible = appID, visible

	if !visible || appID == 0 {
		v.resetLocked()
		state := v.stateLocked()
		v.mu.Unlock()
		v.notify(state)
		return
	}

	if appID != prevID {
		v.model, v.resolved = nil, false
	}
	tok, fetchCtx := v.beginLocked(ctx)
	state := v.stateLocked()
	v.mu.Unlock()

	v.notify(state)
	v.fetch(fetchCtx, tok, appID)
}

// Reload re-issues the fetch for the current target
func (v *View) Reload(ctx context.Context) {
	v.mu.Lock()
	if !v.visible || v.appID == 0 {
		v.mu.Unlock()
		return
	}
	appID := v.appID
	tok, fetchCtx := v.beginLocked(ctx)
	state := v.stateLocked()
	v.mu.Unlock()

	v.notify(state)
	v.fetch(fetchCtx, tok, appID)
}

// Close hides the view
func (v *View) Close() {
	v.SetTarget(context.Background(), 0, false)
}

// State returns a snapshot
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stateLocked()
}

// Wait blocks until every fetch issued so far has finished
func (v *View) Wait() {
	v.wg.Wait()
}

// beginLocked supersedes any in-flight fetch and marks the view loading
func (v *View) beginLocked(ctx context.Context) (viewmodel.Token, context.Context) {
	if v.cancel != nil {
		v.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel

	v.loading = true
	v.err = ""
	return v.gen.Next(), fetchCtx
}

func (v *View) resetLocked() {
	v.gen.Invalidate()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.loading = false
	v.err = ""
	v.model = nil
	v.resolved = false
}

func (v *View) fetch(ctx context.Context, tok viewmodel.Token, appID int64) {
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()

		resp, err := v.fetcher.GetApplicationDetail(ctx, appID)

		v.mu.Lock()
		if !v.gen.Current(tok) {
			v.mu.Unlock()
			v.logger.Debug("Discarding superseded detail result", zap.Int64("app_id", appID))
			return
		}

		v.loading = false
		switch {
		case errors.Is(err, api.ErrAuthExpired):
			// Handled by whoever subscribes to auth expiry
			v.err = ""
		case err != nil:
			v.err = api.Message(err, DefaultErrorMessage)
			v.logger.Warn("Failed to load application detail",
				zap.Int64("app_id", appID),
				zap.Error(err))
		default:
			v.model = Reduce(resp)
			v.resolved = true
		}
		state := v.stateLocked()
		v.mu.Unlock()

		v.notify(state)
	}()
}

func (v *View) stateLocked() State {
	s := State{AppID: v.appID, Err: v.err, Model: v.model}
	switch {
	case !v.visible || v.appID == 0:
		s.Phase = PhaseIdle
		s.Model = nil
	case v.loading:
		s.Phase = PhaseLoading
	case v.err != "":
		s.Phase = PhaseError
	case v.model != nil:
		s.Phase = PhaseReady
	case v.resolved:
		s.Phase = PhaseEmpty
	default:
		s.Phase = PhaseIdle
	}
	return s
}

func (v *View) notify(s State) {
	v.mu.Lock()
	observers := make([]func(State), len(v.observers))
	copy(observers, v.observers)
	v.mu.Unlock()

	for _, fn := range observers {
		fn(s)
	}
}
