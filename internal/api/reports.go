package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
	"github.com/Moriarty1227/YIR-ApprovalHub/pkg/utils"
)

// GetReportSummary fetches the monthly summary. An empty month lets the
// server pick the current one. A success without data yields (nil, nil).
func (c *Client) GetReportSummary(ctx context.Context, month string) (*entity.ReportSummary, error) {
	q := url.Values{}
	if month != "" {
		if err := utils.ValidateMonth(month); err != nil {
			return nil, &ValidationError{Field: "month", Message: "月份格式应为YYYY-MM", Err: err}
		}
		q.Set("month", month)
	}
	return get[entity.ReportSummary](ctx, c, "/admin/reports/summary", q)
}

// GetDeptReportDetail fetches one department's drill-down for a month
func (c *Client) GetDeptReportDetail(ctx context.Context, deptID int64, month string) (*entity.ReportDeptDetail, error) {
	q := url.Values{}
	q.Set("deptId", strconv.FormatInt(deptID, 10))
	if month != "" {
		if err := utils.ValidateMonth(month); err != nil {
			return nil, &ValidationError{Field: "month", Message: "月份格式应为YYYY-MM", Err: err}
		}
		q.Set("month", month)
	}

	detail, err := get[entity.ReportDeptDetail](ctx, c, "/admin/reports/dept-detail", q)
	if err != nil || detail == nil {
		return nil, err
	}
	detail.Normalize()
	return detail, nil
}
