package report

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/api"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
)

type detailCall struct {
	DeptID int64
	Month  string
}

// mockFetcher is a func-field fake that records detail calls
type mockFetcher struct {
	mu           sync.Mutex
	summaryFn    func(ctx context.Context, month string) (*entity.ReportSummary, error)
	detailFn     func(ctx context.Context, deptID int64, month string) (*entity.ReportDeptDetail, error)
	summaryCalls []string
	detailCalls  []detailCall
}

func (m *mockFetcher) GetReportSummary(ctx context.Context, month string) (*entity.ReportSummary, error) {
	m.mu.Lock()
	m.summaryCalls = append(m.summaryCalls, month)
	m.mu.Unlock()
	return m.summaryFn(ctx, month)
}

func (m *mockFetcher) GetDeptReportDetail(ctx context.Context, deptID int64, month string) (*entity.ReportDeptDetail, error) {
	m.mu.Lock()
	m.detailCalls = append(m.detailCalls, detailCall{deptID, month})
	m.mu.Unlock()
	return m.detailFn(ctx, deptID, month)
}

func (m *mockFetcher) details() []detailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]detailCall(nil), m.detailCalls...)
}

func summaryFor(month string) *entity.ReportSummary {
	return &entity.ReportSummary{
		Month:             month,
		DeptEmployeeStats: []entity.DeptEmployeeStat{{DeptID: 1, DeptName: "研发部", UserCount: 10}},
		DeptMonthlyStats: []entity.DeptMonthlyStat{
			{DeptID: 1, DeptName: "研发部", LeaveTotal: 10, ReimburseTotal: 5, ApprovalRate: entity.NewNumber(80)},
			{DeptID: 2, DeptName: "市场部", LeaveTotal: 2, ReimburseTotal: 0, ApprovalRate: entity.NewNumber(50)},
		},
	}
}

func okFetcher() *mockFetcher {
	return &mockFetcher{
		summaryFn: func(ctx context.Context, month string) (*entity.ReportSummary, error) {
			return summaryFor(month), nil
		},
		detailFn: func(ctx context.Context, deptID int64, month string) (*entity.ReportDeptDetail, error) {
			return &entity.ReportDeptDetail{DeptID: deptID, Month: month}, nil
		},
	}
}

func TestCenter_Refresh(t *testing.T) {
	fetcher := okFetcher()
	c := NewCenter(fetcher, zap.NewNop(), "2024-03")

	c.Refresh(context.Background())
	assert.True(t, c.Snapshot().Summary.Loading)
	c.Wait()

	snap := c.Snapshot()
	assert.False(t, snap.Summary.Loading)
	require.NotNil(t, snap.Summary.Data)
	assert.Equal(t, "2024-03", snap.DisplayMonth())

	chart := snap.Chart()
	require.Len(t, chart, 2)
	assert.Equal(t, ChartPoint{DeptID: 1, Name: "研发部", Total: 15, Approved: 12}, chart[0])

	cards := snap.Cards()
	assert.Equal(t, int64(10), cards[0].MemberCount)
	assert.Equal(t, int64(0), cards[1].MemberCount)
}

func TestCenter_SummaryError(t *testing.T) {
	fetcher := okFetcher()
	fetcher.summaryFn = func(ctx context.Context, month string) (*entity.ReportSummary, error) {
		return nil, &api.NetworkError{Err: assert.AnError}
	}
	c := NewCenter(fetcher, zap.NewNop(), "2024-03")
	c.Refresh(context.Background())
	c.Wait()

	snap := c.Snapshot()
	assert.Equal(t, DefaultSummaryError, snap.Summary.Err)
	assert.Nil(t, snap.Summary.Data)
	assert.Empty(t, snap.Chart())
}

func TestCenter_SetMonthSameMonthIsNoop(t *testing.T) {
	fetcher := okFetcher()
	c := NewCenter(fetcher, zap.NewNop(), "2024-03")
	c.SetMonth(context.Background(), "2024-03")
	c.Wait()
	assert.Empty(t, fetcher.summaryCalls)
}

func TestCenter_OpenDept(t *testing.T) {
	fetcher := okFetcher()
	fetcher.detailFn = func(ctx context.Context, deptID int64, month string) (*entity.ReportDeptDetail, error) {
		if deptID == 9 {
			return nil, &api.ApplicationError{Code: 404, Message: "部门不存在"}
		}
		return &entity.ReportDeptDetail{DeptID: deptID, Month: month, DeptPostStats: []entity.DeptPostStat{{UserCount: 4}, {UserCount: 3}}}, nil
	}
	c := NewCenter(fetcher, zap.NewNop(), "2024-03")

	c.OpenDept(context.Background(), 1)
	c.Wait()
	snap := c.Snapshot()
	assert.True(t, snap.DetailOpen)
	assert.Equal(t, int64(1), snap.ActiveDeptID)
	assert.Equal(t, int64(7), snap.DetailMembers())
	assert.NotNil(t, snap.Detail.Data.LeaveDetails, "detail is normalised")
	assert.Equal(t, []detailCall{{1, "2024-03"}}, fetcher.details())

	c.OpenDept(context.Background(), 9)
	c.Wait()
	snap = c.Snapshot()
	assert.Equal(t, "部门不存在", snap.Detail.Err)
	assert.Equal(t, int64(1), snap.ActiveDeptID, "active department only changes on success")
}

func TestCenter_MonthChangeRefetchesOpenDeptWithServerMonth(t *testing.T) {
	fetcher := okFetcher()
	fetcher.summaryFn = func(ctx context.Context, month string) (*entity.ReportSummary, error) {
		// The server normalises the month it was asked for
		return summaryFor(month + "-normalised"), nil
	}
	c := NewCenter(fetcher, zap.NewNop(), "2024-03")

	c.OpenDept(context.Background(), 1)
	c.Wait()

	c.SetMonth(context.Background(), "2024-04")
	c.Wait()

	calls := fetcher.details()
	require.Len(t, calls, 2)
	assert.Equal(t, detailCall{1, "2024-04-normalised"}, calls[1])
	assert.Equal(t, "2024-04-normalised", c.Snapshot().Detail.Data.Month)
}

func TestCenter_NoDeptRefetchWhenClosed(t *testing.T) {
	fetcher := okFetcher()
	c := NewCenter(fetcher, zap.NewNop(), "2024-03")

	c.OpenDept(context.Background(), 1)
	c.Wait()
	c.CloseDept()

	c.SetMonth(context.Background(), "2024-05")
	c.Wait()

	assert.Len(t, fetcher.details(), 1)
	snap := c.Snapshot()
	assert.False(t, snap.DetailOpen)
	assert.Nil(t, snap.Detail.Data)
}

func TestCenter_CloseDiscardsInFlightDetail(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	fetcher := okFetcher()
	fetcher.detailFn = func(ctx context.Context, deptID int64, month string) (*entity.ReportDeptDetail, error) {
		close(started)
		<-release
		return &entity.ReportDeptDetail{DeptID: deptID, Month: month}, nil
	}
	c := NewCenter(fetcher, zap.NewNop(), "2024-03")

	c.OpenDept(context.Background(), 1)
	<-started
	c.CloseDept()
	close(release)
	c.Wait()

	snap := c.Snapshot()
	assert.False(t, snap.DetailOpen)
	assert.False(t, snap.Detail.Loading)
	assert.Nil(t, snap.Detail.Data)
	assert.Empty(t, snap.Detail.Err)
	assert.Zero(t, snap.ActiveDeptID)
}

func TestCenter_CloseDuringMonthRefetchKeepsDetailClosed(t *testing.T) {
	fetcher := okFetcher()
	c := NewCenter(fetcher, zap.NewNop(), "2024-03")

	c.OpenDept(context.Background(), 1)
	c.Wait()

	release := make(chan struct{})
	started := make(chan struct{})
	fetcher.detailFn = func(ctx context.Context, deptID int64, month string) (*entity.ReportDeptDetail, error) {
		close(started)
		<-release
		return &entity.ReportDeptDetail{DeptID: deptID, Month: month}, nil
	}

	c.SetMonth(context.Background(), "2024-04")
	<-started
	assert.True(t, c.Snapshot().Detail.Loading, "refetch is claimed together with the summary result")
	c.CloseDept()
	close(release)
	c.Wait()

	snap := c.Snapshot()
	require.Len(t, fetcher.details(), 2)
	assert.False(t, snap.DetailOpen)
	assert.False(t, snap.Detail.Loading)
	assert.Nil(t, snap.Detail.Data)
	assert.Zero(t, snap.ActiveDeptID)
	require.NotNil(t, snap.Summary.Data)
	assert.Equal(t, "2024-04", snap.Summary.Data.Month)
}

func TestCenter_CloseDiscardsInFlightError(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	fetcher := okFetcher()
	fetcher.detailFn = func(ctx context.Context, deptID int64, month string) (*entity.ReportDeptDetail, error) {
		close(started)
		<-release
		return nil, &api.ApplicationError{Code: 500, Message: "late failure"}
	}
	c := NewCenter(fetcher, zap.NewNop(), "2024-03")

	c.OpenDept(context.Background(), 2)
	<-started
	c.CloseDept()
	close(release)
	c.Wait()

	assert.Empty(t, c.Snapshot().Detail.Err)
}

func TestCenter_StaleSummaryIgnored(t *testing.T) {
	release := map[string]chan struct{}{"2024-01": make(chan struct{}), "2024-02": make(chan struct{})}
	started := make(chan string, 2)
	fetcher := okFetcher()
	fetcher.summaryFn = func(ctx context.Context, month string) (*entity.ReportSummary, error) {
		started <- month
		<-release[month]
		return summaryFor(month), nil
	}
	c := NewCenter(fetcher, zap.NewNop(), "2024-03")

	c.SetMonth(context.Background(), "2024-01")
	<-started
	c.SetMonth(context.Background(), "2024-02")
	<-started

	close(release["2024-02"])
	close(release["2024-01"])
	c.Wait()

	assert.Equal(t, "2024-02", c.Snapshot().Summary.Data.Month)
}
