// Package export writes monthly report data to xlsx workbooks.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/application/dispatcher"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/event"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/format"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/viewmodel/report"
)

const (
	SummarySheet = "部门汇总"

	maxSheetNameLen = 31
)

var (
	ErrNoSummary   = errors.New("report summary is required")
	ErrPathEscapes = errors.New("path escapes export directory")
)

var summaryHeader = []interface{}{"部门", "请假申请", "报销申请", "合计", "通过率", "预计通过", "部门人数"}

// ReportExporter writes report workbooks into one directory
type ReportExporter struct {
	dir        string
	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger
}

// NewReportExporter creates an exporter rooted at dir. The dispatcher may be nil.
func NewReportExporter(dir string, d dispatcher.Dispatcher, logger *zap.Logger) *ReportExporter {
	return &ReportExporter{dir: dir, dispatcher: d, logger: logger}
}

// DefaultFileName is the workbook name used when none is given
func DefaultFileName(month string) string {
	if month == "" {
		return "report.xlsx"
	}
	return fmt.Sprintf("report-%s.xlsx", month)
}

// collectLimit bounds concurrent department requests
const collectLimit = 4

// Collect loads the summary and every department detail of a month.
// Details are fetched concurrently and returned in summary order. An empty
// month lets the server pick; details use the month it answers with.
func Collect(ctx context.Context, fetcher report.Fetcher, month string) (*entity.ReportSummary, []entity.ReportDeptDetail, error) {
	summary, err := fetcher.GetReportSummary(ctx, month)
	if err != nil {
		return nil, nil, err
	}
	if summary == nil {
		return nil, nil, ErrNoSummary
	}

	details := make([]entity.ReportDeptDetail, len(summary.DeptMonthlyStats))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(collectLimit)

	for i, s := range summary.DeptMonthlyStats {
		i, s := i, s
		g.Go(func() error {
			detail, err := fetcher.GetDeptReportDetail(gCtx, s.DeptID, summary.Month)
			if err != nil {
				return fmt.Errorf("failed to load department %d: %w", s.DeptID, err)
			}
			if detail == nil {
				detail = &entity.ReportDeptDetail{DeptID: s.DeptID, DeptName: s.DeptName, Month: summary.Month}
				detail.Normalize()
			}
			details[i] = *detail
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return summary, details, nil
}

// Export writes the workbook and returns its absolute path. name is
// resolved inside the export directory; an empty name uses DefaultFileName.
func (e *ReportExporter) Export(ctx context.Context, summary *entity.ReportSummary, details []entity.ReportDeptDetail, name string) (string, error) {
	if summary == nil {
		return "", ErrNoSummary
	}
	if name == "" {
		name = DefaultFileName(summary.Month)
	}
	if !strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		name += ".xlsx"
	}

	path, err := e.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	e.logger.Info("Exporting report",
		zap.String("month", summary.Month),
		zap.Int("departments", len(details)),
		zap.String("output_path", path))

	f := excelize.NewFile()
	defer f.Close()

	w := &sheetWriter{f: f, logger: e.logger}
	if err := w.styles(); err != nil {
		return "", err
	}

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return "", fmt.Errorf("failed to rename summary sheet: %w", err)
	}
	w.summary(summary)

	used := map[string]bool{SummarySheet: true}
	for i := range details {
		sheet := uniqueSheetName(details[i].DeptName, details[i].DeptID, used)
		if _, err := f.NewSheet(sheet); err != nil {
			return "", fmt.Errorf("failed to create sheet %q: %w", sheet, err)
		}
		w.department(sheet, summary, &details[i])
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	e.logger.Info("Report exported", zap.String("output_path", path))

	if e.dispatcher != nil {
		e.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeReportExported, 0, map[string]interface{}{
			"month": summary.Month,
			"path":  path,
		}))
	}
	return path, nil
}

// resolve joins name onto the export directory and rejects escapes
func (e *ReportExporter) resolve(name string) (string, error) {
	absBase, err := filepath.Abs(e.dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve export directory: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(absBase, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve export path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, name)
	}
	return absPath, nil
}

// uniqueSheetName makes a valid, unused sheet name from a department name
func uniqueSheetName(deptName string, deptID int64, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(deptName))
	name = strings.Trim(name, "'")
	if name == "" {
		name = fmt.Sprintf("部门%d", deptID)
	}
	name = truncateRunes(name, maxSheetNameLen)

	candidate := name
	for i := 2; used[candidate]; i++ {
		suffix := fmt.Sprintf("(%d)", i)
		candidate = truncateRunes(name, maxSheetNameLen-len(suffix)) + suffix
	}
	used[candidate] = true
	return candidate
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// sheetWriter fills cells row by row and logs cell failures instead of
// aborting the export
type sheetWriter struct {
	f      *excelize.File
	logger *zap.Logger

	titleStyle  int
	headerStyle int
}

func (w *sheetWriter) styles() error {
	var err error
	w.titleStyle, err = w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return fmt.Errorf("failed to create title style: %w", err)
	}
	w.headerStyle, err = w.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E8EEF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	return nil
}

func (w *sheetWriter) row(sheet string, row int, values ...interface{}) {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err == nil {
		err = w.f.SetSheetRow(sheet, cell, &values)
	}
	if err != nil {
		w.logger.Warn("Failed to write row",
			zap.String("sheet", sheet),
			zap.Int("row", row),
			zap.Error(err))
	}
}

func (w *sheetWriter) style(sheet string, row, cols, style int) {
	from, _ := excelize.CoordinatesToCellName(1, row)
	to, _ := excelize.CoordinatesToCellName(cols, row)
	if err := w.f.SetCellStyle(sheet, from, to, style); err != nil {
		w.logger.Warn("Failed to style row", zap.String("sheet", sheet), zap.Int("row", row), zap.Error(err))
	}
}

func (w *sheetWriter) title(sheet string, row int, text string) {
	w.row(sheet, row, text)
	w.style(sheet, row, 1, w.titleStyle)
}

func (w *sheetWriter) header(sheet string, row int, values ...interface{}) {
	w.row(sheet, row, values...)
	w.style(sheet, row, len(values), w.headerStyle)
}

func (w *sheetWriter) summary(summary *entity.ReportSummary) {
	sheet := SummarySheet
	w.title(sheet, 1, "月度统计报表")
	w.row(sheet, 2, "统计月份", summary.Month)

	w.header(sheet, 4, "申请类型", "申请总数", "已通过", "通过率")
	row := 5
	for _, t := range []struct {
		label string
		stat  *entity.ApplicationTypeStat
	}{
		{"请假", summary.ApplicationStats.Leave},
		{"报销", summary.ApplicationStats.Reimburse},
	} {
		if t.stat == nil {
			w.row(sheet, row, t.label, 0, 0, format.Rate(nil))
		} else {
			w.row(sheet, row, t.label, t.stat.Total, t.stat.Approved, format.Rate(t.stat.ApprovalRate))
		}
		row++
	}

	row++
	w.header(sheet, row, summaryHeader...)
	row++
	for _, c := range report.DeptCards(summary) {
		w.row(sheet, row, c.DeptName, c.LeaveTotal, c.ReimburseTotal, c.Total, c.RateText, c.Approved, c.MemberCount)
		row++
	}

	if err := w.f.SetColWidth(sheet, "A", "G", 14); err != nil {
		w.logger.Warn("Failed to set column width", zap.String("sheet", sheet), zap.Error(err))
	}
}

func (w *sheetWriter) department(sheet string, summary *entity.ReportSummary, detail *entity.ReportDeptDetail) {
	detail.Normalize()

	w.title(sheet, 1, detail.DeptName)
	w.row(sheet, 2, "统计月份", detail.Month)
	w.row(sheet, 3, "部门人数", report.MemberCount(summary, detail.DeptID), "在岗人数", report.TotalMembers(detail))

	row := 5
	w.header(sheet, row, "岗位", "人数")
	row++
	for _, p := range detail.DeptPostStats {
		name := p.PostName
		if p.PostID == nil && name == "" {
			name = "未分配岗位"
		}
		w.row(sheet, row, name, p.UserCount)
		row++
	}

	row++
	w.header(sheet, row, "请假人员", "请假次数", "请假天数")
	row++
	for _, l := range detail.LeaveDetails {
		w.row(sheet, row, l.RealName, l.Times, cellNumber(l.Days))
		row++
	}

	row++
	w.header(sheet, row, "报销人员", "报销次数", "报销金额")
	row++
	total := decimal.Zero
	for _, r := range detail.ReimburseDetails {
		w.row(sheet, row, r.RealName, r.Times, cellNumber(r.Amount))
		if d, ok := r.Amount.Decimal(); ok {
			total = total.Add(d)
		}
		row++
	}
	w.row(sheet, row, "报销合计", "", format.Currency(total))
	w.row(sheet, row+1, "大写金额", "", AmountInWords(total))

	if err := w.f.SetColWidth(sheet, "A", "C", 16); err != nil {
		w.logger.Warn("Failed to set column width", zap.String("sheet", sheet), zap.Error(err))
	}
}

// cellNumber writes numeric values as numbers and anything else verbatim
func cellNumber(n entity.Number) interface{} {
	if f, ok := n.Float64(); ok {
		return f
	}
	if n.IsNull() || strings.TrimSpace(n.String()) == "" {
		return format.Placeholder
	}
	return n.String()
}
