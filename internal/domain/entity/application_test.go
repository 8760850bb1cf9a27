package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeDetail_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantKind DetailKind
	}{
		{
			name:     "leave detail by leaveType",
			payload:  `{"leaveType":2,"days":1.5,"startTime":"2024-03-01T09:00:00","endTime":"2024-03-02T12:00:00","reason":"flu"}`,
			wantKind: DetailKindLeave,
		},
		{
			name:     "reimburse detail by expenseType",
			payload:  `{"expenseType":1,"amount":128.5,"occurDate":"2024-03-01","reason":"taxi"}`,
			wantKind: DetailKindReimburse,
		},
		{
			name:     "explicit kind wins",
			payload:  `{"kind":"reimburse","leaveType":1,"expenseType":3,"amount":"12"}`,
			wantKind: DetailKindReimburse,
		},
		{
			name:     "null leaveType with populated expenseType is reimbursement",
			payload:  `{"leaveType":null,"expenseType":4,"amount":10}`,
			wantKind: DetailKindReimburse,
		},
		{
			name:     "present but null leaveType alone is still leave",
			payload:  `{"leaveType":null,"days":2}`,
			wantKind: DetailKindLeave,
		},
		{
			name:     "both populated resolves to leave",
			payload:  `{"leaveType":1,"expenseType":1}`,
			wantKind: DetailKindLeave,
		},
		{
			name:     "neither field",
			payload:  `{"reason":"unknown"}`,
			wantKind: DetailKindNone,
		},
		{
			name:     "null payload",
			payload:  `null`,
			wantKind: DetailKindNone,
		},
		{
			name:     "array payload degrades",
			payload:  `[1,2,3]`,
			wantKind: DetailKindNone,
		},
		{
			name:     "undecodable variant degrades",
			payload:  `{"leaveType":1,"startTime":42}`,
			wantKind: DetailKindNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d TypeDetail
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &d))
			assert.Equal(t, tt.wantKind, d.Kind)

			switch tt.wantKind {
			case DetailKindLeave:
				assert.NotNil(t, d.Leave)
				assert.Nil(t, d.Reimburse)
			case DetailKindReimburse:
				assert.Nil(t, d.Leave)
				assert.NotNil(t, d.Reimburse)
			default:
				assert.Nil(t, d.Leave)
				assert.Nil(t, d.Reimburse)
			}
		})
	}
}

func TestApplicationDetailResponse_Decode(t *testing.T) {
	payload := `{
		"application": {"appId": 7, "appNo": "LV202403010001", "appType": "leave", "status": 1, "currentNode": "部门经理审批", "submitTime": "2024-03-01T09:05:00"},
		"detail": {"leaveType": 3, "days": "2", "reason": "annual"},
		"history": [
			{"historyId": 1, "nodeName": "提交", "approverName": "张三", "action": 1, "approveTime": "2024-03-01T09:05:00"},
			{"historyId": 2, "nodeName": "部门经理审批"}
		]
	}`

	var resp ApplicationDetailResponse
	require.NoError(t, json.Unmarshal([]byte(payload), &resp))

	require.NotNil(t, resp.Application)
	assert.Equal(t, int64(7), resp.Application.AppID)
	assert.Nil(t, resp.Application.FinishTime)
	assert.Equal(t, DetailKindLeave, resp.Detail.Kind)

	code, ok := resp.Detail.Leave.LeaveType.Int()
	require.True(t, ok)
	assert.Equal(t, LeaveTypeAnnual, code)

	days, ok := resp.Detail.Leave.Days.Float64()
	require.True(t, ok)
	assert.Equal(t, 2.0, days)

	require.Len(t, resp.History, 2)
	assert.Equal(t, int64(1), resp.History[0].HistoryID)
	assert.Empty(t, resp.History[1].ApproverName)
}

func TestTypeDetail_MarshalJSONTagsVariant(t *testing.T) {
	d := NewReimburseTypeDetail(&ReimburseDetail{ExpenseType: NewNumber(2), Amount: NewNumber(99.9)})

	body, err := json.Marshal(d)
	require.NoError(t, err)

	var back TypeDetail
	require.NoError(t, json.Unmarshal(body, &back))
	assert.Equal(t, DetailKindReimburse, back.Kind)
	assert.Contains(t, string(body), `"kind":"reimburse"`)
}

func TestNumber(t *testing.T) {
	t.Run("number literal", func(t *testing.T) {
		var n Number
		require.NoError(t, json.Unmarshal([]byte(`12.50`), &n))
		f, ok := n.Float64()
		assert.True(t, ok)
		assert.Equal(t, 12.5, f)
		assert.Equal(t, "12.50", n.String())
	})

	t.Run("numeric string", func(t *testing.T) {
		var n Number
		require.NoError(t, json.Unmarshal([]byte(`"80.5"`), &n))
		d, ok := n.Decimal()
		assert.True(t, ok)
		assert.Equal(t, "80.5", d.String())
	})

	t.Run("non numeric string", func(t *testing.T) {
		var n Number
		require.NoError(t, json.Unmarshal([]byte(`"abc"`), &n))
		_, ok := n.Float64()
		assert.False(t, ok)
		assert.False(t, n.IsNull())
		assert.Equal(t, "abc", n.String())
	})

	t.Run("null", func(t *testing.T) {
		var n Number
		require.NoError(t, json.Unmarshal([]byte(`null`), &n))
		assert.True(t, n.IsNull())
	})

	t.Run("int rejects fractions", func(t *testing.T) {
		_, ok := NewNumber(1.5).Int()
		assert.False(t, ok)
		v, ok := NewNumber(4).Int()
		assert.True(t, ok)
		assert.Equal(t, 4, v)
	})
}

func TestIsTerminalStatus(t *testing.T) {
	for status, want := range map[int]bool{
		StatusDraft: false, StatusPending: false, StatusInReview: false,
		StatusApproved: true, StatusRejected: true, StatusWithdrawn: true,
	} {
		assert.Equal(t, want, IsTerminalStatus(status), "status %d", status)
	}
}

func TestReportDeptDetail_Normalize(t *testing.T) {
	var d ReportDeptDetail
	require.NoError(t, json.Unmarshal([]byte(`{"deptName":"研发部","month":"2024-03","leaveDetails":null}`), &d))
	d.Normalize()
	assert.NotNil(t, d.DeptPostStats)
	assert.NotNil(t, d.LeaveDetails)
	assert.NotNil(t, d.ReimburseDetails)
	assert.Empty(t, d.LeaveDetails)
}
