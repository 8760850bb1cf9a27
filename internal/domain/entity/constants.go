package entity

// Application status codes
const (
	StatusDraft     = 0 // 草稿
	StatusPending   = 1 // 待审批
	StatusInReview  = 2 // 审批中
	StatusApproved  = 3 // 已通过
	StatusRejected  = 4 // 已拒绝
	StatusWithdrawn = 5 // 已撤回
)

// Application types
const (
	AppTypeLeave     = "leave"
	AppTypeReimburse = "reimburse"
)

// Approval actions
const (
	ActionApprove = 1
	ActionReject  = 2
)

// Leave type codes
const (
	LeaveTypePersonal = 1 // 事假
	LeaveTypeSick     = 2 // 病假
	LeaveTypeAnnual   = 3 // 年假
	LeaveTypeCompOff  = 4 // 调休
)

// Expense type codes
const (
	ExpenseTypeTravel        = 1 // 差旅交通费
	ExpenseTypeEntertainment = 2 // 业务招待费
	ExpenseTypeOffice        = 3 // 日常办公费
	ExpenseTypeTraining      = 4 // 培训教育费
	ExpenseTypeService       = 5 // 服务采购费
	ExpenseTypeOther         = 6 // 其他
)

// IsTerminalStatus reports whether an application can no longer move
func IsTerminalStatus(status int) bool {
	switch status {
	case StatusApproved, StatusRejected, StatusWithdrawn:
		return true
	}
	return false
}
