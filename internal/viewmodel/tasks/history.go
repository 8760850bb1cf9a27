package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/api"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/application/dispatcher"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/event"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/format"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/viewmodel"
)

// filterOptionsPageSize bounds the records scanned for filter choices
const filterOptionsPageSize = 500

// HistoryClient is what the history list needs from the backend
type HistoryClient interface {
	ListHistoryApplications(ctx context.Context, q api.HistoryQuery) (*entity.Page[entity.ApplicationHistory], error)
	WithdrawApplication(ctx context.Context, appID int64) error
}

// Filter narrows the history list. Zero values mean "all".
type Filter struct {
	AppType      string
	Status       *int
	ApproverName string
	Month        string // YYYY-MM
}

func (f Filter) equal(o Filter) bool {
	if f.AppType != o.AppType || f.ApproverName != o.ApproverName || f.Month != o.Month {
		return false
	}
	if (f.Status == nil) != (o.Status == nil) {
		return false
	}
	return f.Status == nil || *f.Status == *o.Status
}

// query builds the request for f; a month becomes a start/end time range
func (f Filter) query(page api.PageQuery) (api.HistoryQuery, error) {
	q := api.HistoryQuery{
		PageQuery:    page,
		AppType:      f.AppType,
		Status:       f.Status,
		ApproverName: f.ApproverName,
	}
	if f.Month != "" {
		start, end, err := format.MonthRange(f.Month)
		if err != nil {
			return q, &api.ValidationError{Field: "month", Message: "月份格式应为YYYY-MM", Err: err}
		}
		q.StartTime, q.EndTime = start, end
	}
	return q, nil
}

// FilterOptions are the choices offered by the filter selectors
type FilterOptions struct {
	Approvers []string
	Months    []string
}

// HistorySnapshot is the state of the history list
type HistorySnapshot struct {
	Filter  Filter
	List    viewmodel.Region[[]entity.ApplicationHistory]
	Options FilterOptions
}

// History is the applicant's list of past applications
type History struct {
	client     HistoryClient
	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger
	gen        viewmodel.Generation

	mu      sync.Mutex
	filter  Filter
	list    viewmodel.Region[[]entity.ApplicationHistory]
	options FilterOptions
}

// NewHistory creates an unfiltered history list. The dispatcher may be nil.
func NewHistory(client HistoryClient, d dispatcher.Dispatcher, logger *zap.Logger) *History {
	return &History{client: client, dispatcher: d, logger: logger}
}

// CanWithdraw reports whether an application in status may be withdrawn.
// The server has the final say.
func CanWithdraw(status int) bool {
	return status == entity.StatusPending
}

// SetFilter changes the filter and reloads when it differs
func (h *History) SetFilter(ctx context.Context, f Filter) error {
	h.mu.Lock()
	if h.filter.equal(f) {
		h.mu.Unlock()
		return nil
	}
	h.filter = f
	h.mu.Unlock()

	return h.Load(ctx)
}

// Load fetches the first page for the current filter
func (h *History) Load(ctx context.Context) error {
	h.mu.Lock()
	filter := h.filter
	tok := h.gen.Next()
	h.list.Begin()
	h.mu.Unlock()

	records, err := h.fetch(ctx, filter)

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.gen.Current(tok) {
		return err
	}
	if err != nil {
		h.list.Fail(listError(err))
		return err
	}
	h.list.Succeed(&records)
	return nil
}

func (h *History) fetch(ctx context.Context, f Filter) ([]entity.ApplicationHistory, error) {
	q, err := f.query(DefaultPage)
	if err != nil {
		return nil, err
	}
	page, err := h.client.ListHistoryApplications(ctx, q)
	if err != nil {
		return nil, err
	}
	return page.Records, nil
}

// LoadFilterOptions scans recent records for distinct approvers and months.
// Months come from approveTime, falling back to submitTime, newest first.
func (h *History) LoadFilterOptions(ctx context.Context) (FilterOptions, error) {
	page, err := h.client.ListHistoryApplications(ctx, api.HistoryQuery{
		PageQuery: api.PageQuery{PageNum: 1, PageSize: filterOptionsPageSize},
	})
	if err != nil {
		h.logger.Warn("Failed to load history filter options", zap.Error(err))
		return FilterOptions{}, err
	}

	opts := DeriveFilterOptions(page.Records)

	h.mu.Lock()
	h.options = opts
	h.mu.Unlock()
	return opts, nil
}

// DeriveFilterOptions computes filter choices from history records
func DeriveFilterOptions(records []entity.ApplicationHistory) FilterOptions {
	opts := FilterOptions{Approvers: []string{}, Months: []string{}}
	seenApprover := map[string]bool{}
	seenMonth := map[string]bool{}

	for _, r := range records {
		if r.ApproverName != "" && !seenApprover[r.ApproverName] {
			seenApprover[r.ApproverName] = true
			opts.Approvers = append(opts.Approvers, r.ApproverName)
		}

		ts := r.ApproveTime
		if ts == "" {
			ts = r.SubmitTime
		}
		if month, ok := format.MonthOf(ts); ok && !seenMonth[month] {
			seenMonth[month] = true
			opts.Months = append(opts.Months, month)
		}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(opts.Months)))
	return opts
}

// Withdraw pulls back a pending application and reloads the list. Anything
// not pending is refused locally without a request.
func (h *History) Withdraw(ctx context.Context, app entity.ApplicationHistory) error {
	if !CanWithdraw(app.Status) {
		return fmt.Errorf("%w: status %d", ErrWithdrawNotAllowed, app.Status)
	}

	if err := h.client.WithdrawApplication(ctx, app.AppID); err != nil {
		h.logger.Warn("Failed to withdraw application", zap.Int64("app_id", app.AppID), zap.Error(err))
		if errors.Is(err, api.ErrAuthExpired) {
			return err
		}
		return &WithdrawError{Message: api.Message(err, DefaultWithdrawError), Err: err}
	}

	h.logger.Info("Application withdrawn", zap.Int64("app_id", app.AppID), zap.String("app_no", app.AppNo))
	publish(ctx, h.dispatcher, h.logger, event.NewEvent(event.TypeApplicationWithdrawn, app.AppID, map[string]interface{}{
		"app_no": app.AppNo,
	}))

	return h.Load(ctx)
}

// Snapshot returns the current state
func (h *History) Snapshot() HistorySnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HistorySnapshot{Filter: h.filter, List: h.list, Options: h.options}
}

// WithdrawError carries the message to show for a failed withdraw
type WithdrawError struct {
	Message string
	Err     error
}

func (e *WithdrawError) Error() string { return e.Message }

func (e *WithdrawError) Unwrap() error { return e.Err }
