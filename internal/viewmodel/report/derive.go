package report

import (
	"math"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/format"
)

// ChartPoint is one department bar in the monthly chart
type ChartPoint struct {
	DeptID   int64
	Name     string
	Total    int64
	Approved int64
}

// DeptCard is one department tile of the report center
type DeptCard struct {
	DeptID         int64
	DeptName       string
	LeaveTotal     int64
	ReimburseTotal int64
	Total          int64
	Approved       int64
	RateText       string
	MemberCount    int64
}

// ApprovedEstimate derives the approved count from a total and a
// percentage rate. The result is presentation only and may disagree with
// the real count by rounding. Missing or non-finite rates count as 0.
func ApprovedEstimate(total int64, rate entity.Number) int64 {
	r, ok := rate.Float64()
	if !ok {
		return 0
	}
	ratio := r / 100
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0
	}
	return int64(math.Floor(float64(total)*ratio + 0.5))
}

// ChartSeries derives one point per department monthly stat
func ChartSeries(stats []entity.DeptMonthlyStat) []ChartPoint {
	points := make([]ChartPoint, 0, len(stats))
	for _, s := range stats {
		total := s.LeaveTotal + s.ReimburseTotal
		points = append(points, ChartPoint{
			DeptID:   s.DeptID,
			Name:     s.DeptName,
			Total:    total,
			Approved: ApprovedEstimate(total, s.ApprovalRate),
		})
	}
	return points
}

// MemberCounts indexes deptEmployeeStats by department
func MemberCounts(summary *entity.ReportSummary) map[int64]int64 {
	counts := make(map[int64]int64)
	if summary == nil {
		return counts
	}
	for _, s := range summary.DeptEmployeeStats {
		counts[s.DeptID] = s.UserCount
	}
	return counts
}

// MemberCount returns a department's member count, 0 when it has no entry
func MemberCount(summary *entity.ReportSummary, deptID int64) int64 {
	return MemberCounts(summary)[deptID]
}

// DeptCards derives the department tiles in server order
func DeptCards(summary *entity.ReportSummary) []DeptCard {
	if summary == nil {
		return []DeptCard{}
	}

	counts := MemberCounts(summary)
	cards := make([]DeptCard, 0, len(summary.DeptMonthlyStats))
	for _, s := range summary.DeptMonthlyStats {
		total := s.LeaveTotal + s.ReimburseTotal
		cards = append(cards, DeptCard{
			DeptID:         s.DeptID,
			DeptName:       s.DeptName,
			LeaveTotal:     s.LeaveTotal,
			ReimburseTotal: s.ReimburseTotal,
			Total:          total,
			Approved:       ApprovedEstimate(total, s.ApprovalRate),
			RateText:       format.Rate(s.ApprovalRate),
			MemberCount:    counts[s.DeptID],
		})
	}
	return cards
}

// TotalMembers sums the post distribution of a department detail. It
// reflects current post assignment and can differ from the summary count.
func TotalMembers(detail *entity.ReportDeptDetail) int64 {
	if detail == nil {
		return 0
	}
	var total int64
	for _, p := range detail.DeptPostStats {
		total += p.UserCount
	}
	return total
}
