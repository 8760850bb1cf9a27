package entity

// ReportSummary is the organisation-wide monthly report
type ReportSummary struct {
	Month             string             `json:"month"`
	DeptEmployeeStats []DeptEmployeeStat `json:"deptEmployeeStats"`
	PostEmployeeStats []PostEmployeeStat `json:"postEmployeeStats"`
	ApplicationStats  ApplicationStats   `json:"applicationStats"`
	DeptMonthlyStats  []DeptMonthlyStat  `json:"deptMonthlyStats"`
}

// DeptEmployeeStat counts current members of a department
type DeptEmployeeStat struct {
	DeptID    int64  `json:"deptId"`
	DeptName  string `json:"deptName"`
	UserCount int64  `json:"userCount"`
}

// PostEmployeeStat counts current holders of a post
type PostEmployeeStat struct {
	PostID    int64  `json:"postId"`
	PostName  string `json:"postName"`
	UserCount int64  `json:"userCount"`
}

// ApplicationStats splits monthly totals by application type
type ApplicationStats struct {
	Leave     *ApplicationTypeStat `json:"leave,omitempty"`
	Reimburse *ApplicationTypeStat `json:"reimburse,omitempty"`
}

// ApplicationTypeStat is the monthly total for one application type
type ApplicationTypeStat struct {
	Total        int64  `json:"total"`
	Approved     int64  `json:"approved"`
	ApprovalRate Number `json:"approvalRate"`
}

// DeptMonthlyStat aggregates one department in one month. ApprovalRate is
// a percentage in [0, 100] and may be fractional.
type DeptMonthlyStat struct {
	DeptID         int64  `json:"deptId"`
	DeptName       string `json:"deptName"`
	LeaveTotal     int64  `json:"leaveTotal"`
	ReimburseTotal int64  `json:"reimburseTotal"`
	ApprovalRate   Number `json:"approvalRate"`
}

// ReportDeptDetail is the per-department drill-down for one month
type ReportDeptDetail struct {
	DeptID           int64                   `json:"deptId"`
	DeptName         string                  `json:"deptName"`
	Month            string                  `json:"month"`
	DeptPostStats    []DeptPostStat          `json:"deptPostStats"`
	LeaveDetails     []MemberLeaveDetail     `json:"leaveDetails"`
	ReimburseDetails []MemberReimburseDetail `json:"reimburseDetails"`
}

// Normalize replaces missing collections with empty ones
func (d *ReportDeptDetail) Normalize() {
	if d.DeptPostStats == nil {
		d.DeptPostStats = []DeptPostStat{}
	}
	if d.LeaveDetails == nil {
		d.LeaveDetails = []MemberLeaveDetail{}
	}
	if d.ReimburseDetails == nil {
		d.ReimburseDetails = []MemberReimburseDetail{}
	}
}

// DeptPostStat is the post distribution inside a department. PostID is
// nil for members without a post.
type DeptPostStat struct {
	PostID    *int64 `json:"postId"`
	PostName  string `json:"postName"`
	UserCount int64  `json:"userCount"`
}

// MemberLeaveDetail sums one member's leave in the month
type MemberLeaveDetail struct {
	UserID   int64  `json:"userId"`
	RealName string `json:"realName"`
	Times    int64  `json:"times"`
	Days     Number `json:"days"`
}

// MemberReimburseDetail sums one member's reimbursements in the month
type MemberReimburseDetail struct {
	UserID   int64  `json:"userId"`
	RealName string `json:"realName"`
	Times    int64  `json:"times"`
	Amount   Number `json:"amount"`
}
