package detail

import (
	"strings"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/format"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/label"
)

const (
	titleLeave     = "请假"
	titleReimburse = "报销"
	titleGeneric   = "申请详情"

	reasonPlaceholder  = "暂无说明"
	commentPlaceholder = "暂无审批意见"
	systemAuthor       = "系统"
)

// ViewModel is everything the detail view renders
type ViewModel struct {
	Title       string
	Status      label.StatusMeta
	TypeLabel   string
	AppNo       string
	CurrentNode string
	SubmitTime  string
	FinishTime  string

	// At most one of Leave and Reimburse is set
	Leave     *LeaveSection
	Reimburse *ReimburseSection

	History []HistoryRow
}

// LeaveSection is the leave-specific block
type LeaveSection struct {
	TypeLabel  string
	Days       string
	StartTime  string
	EndTime    string
	Reason     string
	Attachment string
}

// ReimburseSection is the reimbursement-specific block
type ReimburseSection struct {
	ExpenseLabel      string
	Amount            string
	OccurDate         string
	Reason            string
	InvoiceAttachment string
}

// HistoryRow is one approval step with its comment
type HistoryRow struct {
	Node          string
	Approver      string
	Action        string
	Time          string
	Comment       string
	CommentAuthor string
}

// Reduce derives the view model from a fetched composite. History keeps
// server order.
func Reduce(resp *entity.ApplicationDetailResponse) *ViewModel {
	if resp == nil {
		return nil
	}

	vm := &ViewModel{
		Status:      label.UnknownStatus,
		TypeLabel:   format.Placeholder,
		AppNo:       format.Placeholder,
		CurrentNode: format.Placeholder,
		SubmitTime:  format.Placeholder,
		FinishTime:  format.Placeholder,
		History:     make([]HistoryRow, 0, len(resp.History)),
	}

	app := resp.Application
	if app != nil {
		vm.Status = label.ApplicationStatus(app.Status)
		vm.TypeLabel = orPlaceholder(label.ApplicationType(app.AppType))
		vm.AppNo = orPlaceholder(app.AppNo)
		vm.CurrentNode = orPlaceholder(app.CurrentNode)
		vm.SubmitTime = format.DateTime(app.SubmitTime)
		vm.FinishTime = format.DateTime(app.FinishTime)
	}

	switch resp.Detail.Kind {
	case entity.DetailKindLeave:
		vm.Leave = reduceLeave(resp.Detail.Leave)
	case entity.DetailKindReimburse:
		vm.Reimburse = reduceReimburse(resp.Detail.Reimburse)
	}

	vm.Title = displayTitle(app, resp.Detail)

	for _, rec := range resp.History {
		vm.History = append(vm.History, reduceHistory(rec))
	}
	return vm
}

func displayTitle(app *entity.Application, d entity.TypeDetail) string {
	var appType, title string
	if app != nil {
		appType, title = app.AppType, app.Title
	}

	switch appType {
	case entity.AppTypeLeave:
		if d.Leave != nil {
			if code, ok := d.Leave.LeaveType.Int(); ok {
				if text, ok := label.LookupLeaveType(code); ok {
					return text
				}
			}
		}
		return titleLeave
	case entity.AppTypeReimburse:
		if d.Reimburse != nil {
			if code, ok := d.Reimburse.ExpenseType.Int(); ok {
				if text, ok := label.LookupExpenseType(code); ok {
					return text
				}
			}
		}
		return titleReimburse
	}

	if title != "" {
		return title
	}
	return titleGeneric
}

func reduceLeave(d *entity.LeaveDetail) *LeaveSection {
	return &LeaveSection{
		TypeLabel:  codeLabel(d.LeaveType, label.LookupLeaveType),
		Days:       format.Number(d.Days),
		StartTime:  format.DateTime(d.StartTime),
		EndTime:    format.DateTime(d.EndTime),
		Reason:     textOr(d.Reason, reasonPlaceholder),
		Attachment: d.Attachment,
	}
}

func reduceReimburse(d *entity.ReimburseDetail) *ReimburseSection {
	return &ReimburseSection{
		ExpenseLabel:      codeLabel(d.ExpenseType, label.LookupExpenseType),
		Amount:            format.Currency(d.Amount),
		OccurDate:         format.DateOnly(d.OccurDate),
		Reason:            textOr(d.Reason, reasonPlaceholder),
		InvoiceAttachment: d.InvoiceAttachment,
	}
}

func reduceHistory(rec entity.ApprovalHistoryRecord) HistoryRow {
	action := format.Placeholder
	if rec.Action != 0 {
		action = label.ApprovalAction(rec.Action)
	}

	author := rec.ApproverName
	if author == "" {
		author = systemAuthor
	}

	return HistoryRow{
		Node:          orPlaceholder(rec.NodeName),
		Approver:      orPlaceholder(rec.ApproverName),
		Action:        action,
		Time:          format.DateTime(rec.ApproveTime),
		Comment:       textOr(rec.Comment, commentPlaceholder),
		CommentAuthor: author,
	}
}

// codeLabel maps a numeric code through lookup, falling back to the raw value
func codeLabel(n entity.Number, lookup func(int) (string, bool)) string {
	if n.IsNull() {
		return format.Placeholder
	}
	if code, ok := n.Int(); ok {
		if text, ok := lookup(code); ok {
			return text
		}
	}
	return orPlaceholder(n.String())
}

func textOr(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

func orPlaceholder(s string) string {
	if s == "" {
		return format.Placeholder
	}
	return s
}
