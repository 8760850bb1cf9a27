package export

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/application/dispatcher"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/event"
)

func sampleSummary() *entity.ReportSummary {
	return &entity.ReportSummary{
		Month: "2024-03",
		DeptEmployeeStats: []entity.DeptEmployeeStat{
			{DeptID: 1, DeptName: "研发部", UserCount: 12},
			{DeptID: 2, DeptName: "财务部", UserCount: 4},
		},
		ApplicationStats: entity.ApplicationStats{
			Leave: &entity.ApplicationTypeStat{Total: 10, Approved: 8, ApprovalRate: entity.NewNumber(80)},
		},
		DeptMonthlyStats: []entity.DeptMonthlyStat{
			{DeptID: 1, DeptName: "研发部", LeaveTotal: 6, ReimburseTotal: 4, ApprovalRate: entity.NewNumber(75)},
			{DeptID: 2, DeptName: "财务部", LeaveTotal: 1, ReimburseTotal: 0, ApprovalRate: entity.NewNumber(100)},
		},
	}
}

func sampleDetails() []entity.ReportDeptDetail {
	postID := int64(3)
	return []entity.ReportDeptDetail{
		{
			DeptID:   1,
			DeptName: "研发部",
			Month:    "2024-03",
			DeptPostStats: []entity.DeptPostStat{
				{PostID: &postID, PostName: "工程师", UserCount: 10},
				{PostID: nil, UserCount: 1},
			},
			LeaveDetails: []entity.MemberLeaveDetail{
				{UserID: 7, RealName: "张三", Times: 2, Days: entity.NewNumber(1.5)},
			},
			ReimburseDetails: []entity.MemberReimburseDetail{
				{UserID: 7, RealName: "张三", Times: 1, Amount: entity.NewNumber(100.5)},
				{UserID: 8, RealName: "李四", Times: 2, Amount: entity.NewNumber(23)},
			},
		},
		{DeptID: 2, DeptName: "财务部", Month: "2024-03"},
	}
}

func TestReportExporter_Export(t *testing.T) {
	dir := t.TempDir()
	exp := NewReportExporter(dir, nil, zap.NewNop())

	path, err := exp.Export(context.Background(), sampleSummary(), sampleDetails(), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report-2024-03.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, "研发部", "财务部"}, f.GetSheetList())

	rows, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"统计月份", "2024-03"}, rows[1])
	assert.Equal(t, []string{"请假", "10", "8", "80.00%"}, rows[4])
	assert.Equal(t, []string{"报销", "0", "0", "0%"}, rows[5])
	assert.Equal(t, []string{"部门", "请假申请", "报销申请", "合计", "通过率", "预计通过", "部门人数"}, rows[7])
	assert.Equal(t, []string{"研发部", "6", "4", "10", "75.00%", "8", "12"}, rows[8])
	assert.Equal(t, []string{"财务部", "1", "0", "1", "100.00%", "1", "4"}, rows[9])

	dept, err := f.GetRows("研发部")
	require.NoError(t, err)
	assert.Equal(t, []string{"部门人数", "12", "在岗人数", "11"}, dept[2])
	assert.Equal(t, []string{"工程师", "10"}, dept[5])
	assert.Equal(t, []string{"未分配岗位", "1"}, dept[6])

	amount, err := f.GetCellValue("研发部", "C15")
	require.NoError(t, err)
	assert.Equal(t, "¥123.50", amount)
	words, err := f.GetCellValue("研发部", "C16")
	require.NoError(t, err)
	assert.Equal(t, "壹佰贰拾叁元伍角", words)

	empty, err := f.GetRows("财务部")
	require.NoError(t, err)
	assert.Equal(t, "财务部", empty[0][0])
}

func TestReportExporter_PathValidation(t *testing.T) {
	exp := NewReportExporter(t.TempDir(), nil, zap.NewNop())

	_, err := exp.Export(context.Background(), sampleSummary(), nil, "../escape.xlsx")
	assert.ErrorIs(t, err, ErrPathEscapes)

	_, err = exp.Export(context.Background(), nil, nil, "")
	assert.ErrorIs(t, err, ErrNoSummary)

	path, err := exp.Export(context.Background(), sampleSummary(), nil, "march")
	require.NoError(t, err)
	assert.Equal(t, "march.xlsx", filepath.Base(path))
}

func TestReportExporter_DispatchesExported(t *testing.T) {
	d := dispatcher.NewDispatcher()
	var got atomic.Value
	d.Subscribe(event.TypeReportExported, func(ctx context.Context, evt *event.Event) error {
		got.Store(evt.GetPayloadString("path"))
		return nil
	})

	exp := NewReportExporter(t.TempDir(), d, zap.NewNop())
	path, err := exp.Export(context.Background(), sampleSummary(), nil, "")
	require.NoError(t, err)

	require.NoError(t, d.Close())
	assert.Equal(t, path, got.Load())
}

func TestUniqueSheetName(t *testing.T) {
	used := map[string]bool{SummarySheet: true}

	assert.Equal(t, "研发_一组", uniqueSheetName("研发/一组", 1, used))
	assert.Equal(t, "研发_一组(2)", uniqueSheetName("研发:一组", 2, used))
	assert.Equal(t, "部门9", uniqueSheetName("  ", 9, used))

	long := uniqueSheetName("abcdefghijklmnopqrstuvwxyz0123456789", 3, used)
	assert.Len(t, []rune(long), maxSheetNameLen)
}

type stubFetcher struct {
	summary  *entity.ReportSummary
	failDept int64
	noDept   int64

	mu        sync.Mutex
	deptCalls []string
}

func (s *stubFetcher) GetReportSummary(ctx context.Context, month string) (*entity.ReportSummary, error) {
	return s.summary, nil
}

func (s *stubFetcher) GetDeptReportDetail(ctx context.Context, deptID int64, month string) (*entity.ReportDeptDetail, error) {
	s.mu.Lock()
	s.deptCalls = append(s.deptCalls, month)
	s.mu.Unlock()
	if deptID == s.failDept {
		return nil, errors.New("boom")
	}
	if deptID == s.noDept {
		return nil, nil
	}
	return &entity.ReportDeptDetail{DeptID: deptID, Month: month}, nil
}

func TestCollect(t *testing.T) {
	t.Run("details use server month", func(t *testing.T) {
		f := &stubFetcher{summary: sampleSummary()}
		summary, details, err := Collect(context.Background(), f, "")
		require.NoError(t, err)
		assert.Equal(t, "2024-03", summary.Month)
		require.Len(t, details, 2)
		assert.Equal(t, int64(1), details[0].DeptID)
		assert.Equal(t, int64(2), details[1].DeptID)
		assert.Equal(t, []string{"2024-03", "2024-03"}, f.deptCalls)
	})

	t.Run("department failure aborts", func(t *testing.T) {
		f := &stubFetcher{summary: sampleSummary(), failDept: 2}
		_, _, err := Collect(context.Background(), f, "2024-03")
		assert.ErrorContains(t, err, "department 2")
	})

	t.Run("missing summary", func(t *testing.T) {
		_, _, err := Collect(context.Background(), &stubFetcher{}, "2024-03")
		assert.ErrorIs(t, err, ErrNoSummary)
	})

	t.Run("missing department detail is blank", func(t *testing.T) {
		f := &stubFetcher{summary: sampleSummary(), noDept: 2}
		_, details, err := Collect(context.Background(), f, "2024-03")
		require.NoError(t, err)
		require.Len(t, details, 2)
		assert.Equal(t, int64(2), details[1].DeptID)
		assert.Equal(t, "财务部", details[1].DeptName)
		assert.Equal(t, "2024-03", details[1].Month)
		assert.Empty(t, details[1].LeaveDetails)
	})
}
