package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
	"github.com/Moriarty1227/YIR-ApprovalHub/pkg/utils"
)

// PageQuery selects one page of a list endpoint
type PageQuery struct {
	PageNum  int
	PageSize int
}

func (q PageQuery) values() url.Values {
	v := url.Values{}
	num, size := q.PageNum, q.PageSize
	if num <= 0 {
		num = 1
	}
	if size <= 0 {
		size = 20
	}
	v.Set("pageNum", strconv.Itoa(num))
	v.Set("pageSize", strconv.Itoa(size))
	return v
}

// HistoryQuery filters the applicant's history list. Empty fields are not sent.
type HistoryQuery struct {
	PageQuery
	AppType      string
	Status       *int
	ApproverName string
	StartTime    string
	EndTime      string
}

func (q HistoryQuery) values() url.Values {
	v := q.PageQuery.values()
	if q.AppType != "" {
		v.Set("appType", q.AppType)
	}
	if q.Status != nil {
		v.Set("status", strconv.Itoa(*q.Status))
	}
	if q.ApproverName != "" {
		v.Set("approverName", q.ApproverName)
	}
	if q.StartTime != "" {
		v.Set("startTime", q.StartTime)
	}
	if q.EndTime != "" {
		v.Set("endTime", q.EndTime)
	}
	return v
}

// LeaveForm is the body of a new leave application
type LeaveForm struct {
	LeaveType  int     `json:"leaveType" validate:"min=1,max=4"`
	StartTime  string  `json:"startTime" validate:"required"`
	EndTime    string  `json:"endTime" validate:"required"`
	Days       float64 `json:"days" validate:"gt=0"`
	Reason     string  `json:"reason" validate:"notblank"`
	Attachment string  `json:"attachment,omitempty"`
}

var leaveMessages = map[string]string{
	"leaveType": "请选择请假类型",
	"startTime": "请选择请假时间",
	"endTime":   "请选择请假时间",
	"days":      "请假天数必须大于0",
	"reason":    "请填写请假事由",
}

// Validate checks required fields
func (f *LeaveForm) Validate() error {
	return validateStruct(f, leaveMessages)
}

// ReimburseForm is the body of a new reimbursement application
type ReimburseForm struct {
	ExpenseType       int     `json:"expenseType" validate:"min=1,max=6"`
	Amount            float64 `json:"amount" validate:"amount"`
	OccurDate         string  `json:"occurDate" validate:"required"`
	Reason            string  `json:"reason" validate:"notblank"`
	InvoiceAttachment string  `json:"invoiceAttachment,omitempty"`
}

var reimburseMessages = map[string]string{
	"expenseType": "请选择费用类型",
	"amount":      "报销金额必须大于0",
	"occurDate":   "请选择发生日期",
	"reason":      "请填写报销事由",
}

// Validate checks required fields
func (f *ReimburseForm) Validate() error {
	return validateStruct(f, reimburseMessages)
}

// CreatedApplication is returned when an application is submitted
type CreatedApplication struct {
	AppID int64  `json:"appId"`
	AppNo string `json:"appNo"`
}

// GetApplicationDetail fetches the applicant's view of one application.
// A success without data yields (nil, nil).
func (c *Client) GetApplicationDetail(ctx context.Context, appID int64) (*entity.ApplicationDetailResponse, error) {
	return get[entity.ApplicationDetailResponse](ctx, c, fmt.Sprintf("/applications/%d", appID), nil)
}

// GetAdminApplicationDetail fetches any application through the admin endpoint
func (c *Client) GetAdminApplicationDetail(ctx context.Context, appID int64) (*entity.ApplicationDetailResponse, error) {
	return get[entity.ApplicationDetailResponse](ctx, c, fmt.Sprintf("/admin/applications/%d", appID), nil)
}

// ListHistoryApplications lists the signed-in user's applications
func (c *Client) ListHistoryApplications(ctx context.Context, q HistoryQuery) (*entity.Page[entity.ApplicationHistory], error) {
	page, err := get[entity.Page[entity.ApplicationHistory]](ctx, c, "/applications/history", q.values())
	if err != nil {
		return nil, err
	}
	if page == nil {
		page = &entity.Page[entity.ApplicationHistory]{}
	}
	if page.Records == nil {
		page.Records = []entity.ApplicationHistory{}
	}
	return page, nil
}

// WithdrawApplication pulls back a pending application
func (c *Client) WithdrawApplication(ctx context.Context, appID int64) error {
	_, err := post[struct{}](ctx, c, fmt.Sprintf("/applications/%d/withdraw", appID), nil)
	return err
}

// CreateLeave submits a leave application
func (c *Client) CreateLeave(ctx context.Context, form LeaveForm) (*CreatedApplication, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	form.Reason = utils.SanitizeString(form.Reason)
	return post[CreatedApplication](ctx, c, "/applications/leave", form)
}

// CreateReimburse submits a reimbursement application
func (c *Client) CreateReimburse(ctx context.Context, form ReimburseForm) (*CreatedApplication, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	form.Reason = utils.SanitizeString(form.Reason)
	return post[CreatedApplication](ctx, c, "/applications/reimburse", form)
}
