// Package report is the view-model behind the report center: a monthly
// organisation summary plus a drill-down into one department. The two
// regions load independently and each only applies its latest fetch.
package report

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/api"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/format"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/viewmodel"
)

const (
	DefaultSummaryError = "统计数据获取失败"
	DefaultDetailError  = "部门报表获取失败"
)

// Fetcher loads report data
type Fetcher interface {
	GetReportSummary(ctx context.Context, month string) (*entity.ReportSummary, error)
	GetDeptReportDetail(ctx context.Context, deptID int64, month string) (*entity.ReportDeptDetail, error)
}

// Snapshot is the state of the report center at one point in time
type Snapshot struct {
	Month        string
	Summary      viewmodel.Region[entity.ReportSummary]
	Detail       viewmodel.Region[entity.ReportDeptDetail]
	ActiveDeptID int64
	DetailOpen   bool
}

// DisplayMonth is the month the shown data belongs to
func (s Snapshot) DisplayMonth() string {
	if s.Summary.Data != nil && s.Summary.Data.Month != "" {
		return s.Summary.Data.Month
	}
	return s.Month
}

// Chart derives the chart series for the loaded summary
func (s Snapshot) Chart() []ChartPoint {
	if s.Summary.Data == nil {
		return []ChartPoint{}
	}
	return ChartSeries(s.Summary.Data.DeptMonthlyStats)
}

// Cards derives the department tiles for the loaded summary
func (s Snapshot) Cards() []DeptCard {
	return DeptCards(s.Summary.Data)
}

// DetailMembers is the member total of the open department
func (s Snapshot) DetailMembers() int64 {
	return TotalMembers(s.Detail.Data)
}

// Center holds report center state. It is safe for concurrent use.
type Center struct {
	fetcher Fetcher
	logger  *zap.Logger

	summaryGen viewmodel.Generation
	detailGen  viewmodel.Generation
	wg         sync.WaitGroup

	mu    sync.Mutex
	state Snapshot
}

// NewCenter creates a center for month; an empty month means the current one
func NewCenter(fetcher Fetcher, logger *zap.Logger, month string) *Center {
	if month == "" {
		month = format.Month(time.Now())
	}
	return &Center{
		fetcher: fetcher,
		logger:  logger,
		state:   Snapshot{Month: month},
	}
}

// Snapshot returns a copy of the current state
func (c *Center) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Wait blocks until every fetch issued so far has finished
func (c *Center) Wait() {
	c.wg.Wait()
}

// SetMonth selects a month and reloads the summary when it changed
func (c *Center) SetMonth(ctx context.Context, month string) {
	c.mu.Lock()
	if month == c.state.Month {
		c.mu.Unlock()
		return
	}
	c.state.Month = month
	c.mu.Unlock()

	c.Refresh(ctx)
}

// Refresh reloads the summary for the selected month. When a department
// is active, its detail is reloaded for the month the server returned.
func (c *Center) Refresh(ctx context.Context) {
	c.mu.Lock()
	month := c.state.Month
	tok := c.summaryGen.Next()
	c.state.Summary.Begin()
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		summary, err := c.fetcher.GetReportSummary(ctx, month)

		c.mu.Lock()
		if !c.summaryGen.Current(tok) {
			c.mu.Unlock()
			return
		}
		if err != nil {
			c.state.Summary.Fail(errorText(err, DefaultSummaryError))
			c.mu.Unlock()
			c.logger.Warn("Failed to load report summary", zap.String("month", month), zap.Error(err))
			return
		}

		c.state.Summary.Succeed(summary)
		// The refetch is claimed under the same lock so a CloseDept racing
		// with it invalidates the token it holds
		activeDept := c.state.ActiveDeptID
		if activeDept == 0 || summary == nil || !c.state.DetailOpen {
			c.mu.Unlock()
			return
		}
		detailTok := c.beginDetailLocked()
		c.mu.Unlock()

		c.loadDetail(ctx, detailTok, activeDept, summary.Month)
	}()
}

// OpenDept opens the drill-down for a department and loads it for the
// selected month
func (c *Center) OpenDept(ctx context.Context, deptID int64) {
	c.mu.Lock()
	c.state.DetailOpen = true
	month := c.state.Month
	tok := c.beginDetailLocked()
	c.mu.Unlock()

	c.loadDetail(ctx, tok, deptID, month)
}

// CloseDept closes the drill-down. Fetches still in flight are discarded.
func (c *Center) CloseDept() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.detailGen.Invalidate()
	c.state.DetailOpen = false
	c.state.Detail.Reset()
	c.state.ActiveDeptID = 0
}

// beginDetailLocked claims a detail token; c.mu must be held
func (c *Center) beginDetailLocked() viewmodel.Token {
	tok := c.detailGen.Next()
	c.state.Detail.Begin()
	return tok
}

// loadDetail fetches a department and applies it while tok is current
func (c *Center) loadDetail(ctx context.Context, tok viewmodel.Token, deptID int64, month string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		detail, err := c.fetcher.GetDeptReportDetail(ctx, deptID, month)

		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.detailGen.Current(tok) {
			c.logger.Debug("Discarding superseded department detail", zap.Int64("dept_id", deptID))
			return
		}
		if err != nil {
			c.state.Detail.Fail(errorText(err, DefaultDetailError))
			c.logger.Warn("Failed to load department detail",
				zap.Int64("dept_id", deptID),
				zap.String("month", month),
				zap.Error(err))
			return
		}

		if detail != nil {
			detail.Normalize()
		}
		c.state.Detail.Succeed(detail)
		c.state.ActiveDeptID = deptID
	}()
}

func errorText(err error, fallback string) string {
	if errors.Is(err, api.ErrAuthExpired) {
		return ""
	}
	return api.Message(err, fallback)
}
