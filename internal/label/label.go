// Package label maps backend codes to the Chinese display text used across
// the client. All tables are fixed and read-only.
package label

import (
	"strconv"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
)

// Variant is the badge style a status is rendered with
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantSecondary   Variant = "secondary"
	VariantDestructive Variant = "destructive"
	VariantOutline     Variant = "outline"
	VariantSuccess     Variant = "success"
	VariantWarning     Variant = "warning"
)

// StatusMeta is the display text and badge style of an application status
type StatusMeta struct {
	Text    string
	Variant Variant
}

// UnknownStatus is shown for codes outside the table
var UnknownStatus = StatusMeta{Text: "未知状态", Variant: VariantOutline}

var statusTable = map[int]StatusMeta{
	entity.StatusDraft:     {Text: "草稿", Variant: VariantSecondary},
	entity.StatusPending:   {Text: "待审批", Variant: VariantWarning},
	entity.StatusInReview:  {Text: "审批中", Variant: VariantDefault},
	entity.StatusApproved:  {Text: "已通过", Variant: VariantSuccess},
	entity.StatusRejected:  {Text: "已拒绝", Variant: VariantDestructive},
	entity.StatusWithdrawn: {Text: "已撤回", Variant: VariantOutline},
}

var appTypeTable = map[string]string{
	entity.AppTypeLeave:     "请假",
	entity.AppTypeReimburse: "报销",
}

var leaveTypeTable = map[int]string{
	entity.LeaveTypePersonal: "事假",
	entity.LeaveTypeSick:     "病假",
	entity.LeaveTypeAnnual:   "年假",
	entity.LeaveTypeCompOff:  "调休",
}

var expenseTypeTable = map[int]string{
	entity.ExpenseTypeTravel:        "差旅交通费",
	entity.ExpenseTypeEntertainment: "业务招待费",
	entity.ExpenseTypeOffice:        "日常办公费",
	entity.ExpenseTypeTraining:      "培训教育费",
	entity.ExpenseTypeService:       "服务采购费",
	entity.ExpenseTypeOther:         "其他",
}

var actionTable = map[int]string{
	entity.ActionApprove: "同意",
	entity.ActionReject:  "拒绝",
}

// LookupStatus returns the meta for a known status code
func LookupStatus(code int) (StatusMeta, bool) {
	meta, ok := statusTable[code]
	return meta, ok
}

// ApplicationStatus returns the meta for code, UnknownStatus if unmapped
func ApplicationStatus(code int) StatusMeta {
	if meta, ok := statusTable[code]; ok {
		return meta
	}
	return UnknownStatus
}

// LookupApplicationType returns the label of an application type code
func LookupApplicationType(appType string) (string, bool) {
	text, ok := appTypeTable[appType]
	return text, ok
}

// ApplicationType returns the label, or the raw code when unmapped
func ApplicationType(appType string) string {
	if text, ok := appTypeTable[appType]; ok {
		return text
	}
	return appType
}

// LookupLeaveType returns the label of a leave type code
func LookupLeaveType(code int) (string, bool) {
	text, ok := leaveTypeTable[code]
	return text, ok
}

// LeaveType returns the label, or the numeric code when unmapped
func LeaveType(code int) string {
	if text, ok := leaveTypeTable[code]; ok {
		return text
	}
	return strconv.Itoa(code)
}

// LookupExpenseType returns the label of an expense type code
func LookupExpenseType(code int) (string, bool) {
	text, ok := expenseTypeTable[code]
	return text, ok
}

// ExpenseType returns the label, or the numeric code when unmapped
func ExpenseType(code int) string {
	if text, ok := expenseTypeTable[code]; ok {
		return text
	}
	return strconv.Itoa(code)
}

// LookupApprovalAction returns the label of an approval action code
func LookupApprovalAction(code int) (string, bool) {
	text, ok := actionTable[code]
	return text, ok
}

// ApprovalAction returns the label, or the numeric code when unmapped
func ApprovalAction(code int) string {
	if text, ok := actionTable[code]; ok {
		return text
	}
	return strconv.Itoa(code)
}

// Statuses lists every known status code in ascending order
func Statuses() []int {
	return []int{
		entity.StatusDraft, entity.StatusPending, entity.StatusInReview,
		entity.StatusApproved, entity.StatusRejected, entity.StatusWithdrawn,
	}
}
