package entity

import (
	"bytes"
	"encoding/json"
)

// Application is the header of one leave or reimbursement request
type Application struct {
	AppID         int64   `json:"appId"`
	AppNo         string  `json:"appNo"`
	AppType       string  `json:"appType"`
	Title         string  `json:"title,omitempty"`
	Status        int     `json:"status"`
	CurrentNode   string  `json:"currentNode,omitempty"`
	ApplicantID   int64   `json:"applicantId,omitempty"`
	ApplicantName string  `json:"applicantName,omitempty"`
	SubmitTime    string  `json:"submitTime,omitempty"`
	FinishTime    *string `json:"finishTime,omitempty"`
}

// IsTerminal reports whether the application reached a final status
func (a *Application) IsTerminal() bool {
	return IsTerminalStatus(a.Status)
}

// LeaveDetail is the leave-specific part of an application
type LeaveDetail struct {
	LeaveType  Number `json:"leaveType"`
	Days       Number `json:"days"`
	StartTime  string `json:"startTime,omitempty"`
	EndTime    string `json:"endTime,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Attachment string `json:"attachment,omitempty"`
}

// ReimburseDetail is the reimbursement-specific part of an application
type ReimburseDetail struct {
	ExpenseType       Number `json:"expenseType"`
	Amount            Number `json:"amount"`
	OccurDate         string `json:"occurDate,omitempty"`
	Reason            string `json:"reason,omitempty"`
	InvoiceAttachment string `json:"invoiceAttachment,omitempty"`
}

// DetailKind tags which variant a TypeDetail carries
type DetailKind string

const (
	DetailKindNone      DetailKind = ""
	DetailKindLeave     DetailKind = "leave"
	DetailKindReimburse DetailKind = "reimburse"
)

// TypeDetail is the type-specific payload of an application. The server
// sends it without a tag, so the variant is resolved when decoding:
// an explicit "kind" wins, then a non-null leaveType, then a non-null
// expenseType, then a present-but-null leaveType, then expenseType.
// Exactly one of Leave/Reimburse is set unless Kind is DetailKindNone.
type TypeDetail struct {
	Kind      DetailKind
	Leave     *LeaveDetail
	Reimburse *ReimburseDetail
	Raw       json.RawMessage
}

// NewLeaveTypeDetail wraps a leave detail
func NewLeaveTypeDetail(d *LeaveDetail) TypeDetail {
	return TypeDetail{Kind: DetailKindLeave, Leave: d}
}

// NewReimburseTypeDetail wraps a reimbursement detail
func NewReimburseTypeDetail(d *ReimburseDetail) TypeDetail {
	return TypeDetail{Kind: DetailKindReimburse, Reimburse: d}
}

// UnmarshalJSON discriminates the variant structurally. Payloads that match
// neither variant, or fail to decode, become DetailKindNone.
func (t *TypeDetail) UnmarshalJSON(data []byte) error {
	*t = TypeDetail{Raw: append(json.RawMessage(nil), data...)}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil
	}

	switch classify(fields) {
	case DetailKindLeave:
		var d LeaveDetail
		if err := json.Unmarshal(data, &d); err == nil {
			t.Kind, t.Leave = DetailKindLeave, &d
		}
	case DetailKindReimburse:
		var d ReimburseDetail
		if err := json.Unmarshal(data, &d); err == nil {
			t.Kind, t.Reimburse = DetailKindReimburse, &d
		}
	}
	return nil
}

// MarshalJSON writes the active variant with an explicit kind tag
func (t TypeDetail) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case DetailKindLeave:
		return marshalTagged(t.Kind, t.Leave)
	case DetailKindReimburse:
		return marshalTagged(t.Kind, t.Reimburse)
	}
	if len(t.Raw) > 0 {
		return t.Raw, nil
	}
	return []byte("null"), nil
}

func marshalTagged(kind DetailKind, v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["kind"], _ = json.Marshal(kind)
	return json.Marshal(fields)
}

func classify(fields map[string]json.RawMessage) DetailKind {
	if raw, ok := fields["kind"]; ok {
		var kind string
		if json.Unmarshal(raw, &kind) == nil {
			switch DetailKind(kind) {
			case DetailKindLeave, DetailKindReimburse:
				return DetailKind(kind)
			}
		}
	}

	leaveRaw, hasLeave := fields["leaveType"]
	expenseRaw, hasExpense := fields["expenseType"]

	switch {
	case hasLeave && !isNull(leaveRaw):
		return DetailKindLeave
	case hasExpense && !isNull(expenseRaw):
		return DetailKindReimburse
	case hasLeave:
		return DetailKindLeave
	case hasExpense:
		return DetailKindReimburse
	}
	return DetailKindNone
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// ApprovalHistoryRecord is one step of the approval trail
type ApprovalHistoryRecord struct {
	HistoryID    int64  `json:"historyId"`
	NodeName     string `json:"nodeName,omitempty"`
	ApproverName string `json:"approverName,omitempty"`
	Action       int    `json:"action,omitempty"`
	ApproveTime  string `json:"approveTime,omitempty"`
	Comment      string `json:"comment,omitempty"`
}

// ApplicationDetailResponse is the composite returned for one application
type ApplicationDetailResponse struct {
	Application *Application            `json:"application"`
	Detail      TypeDetail              `json:"detail"`
	History     []ApprovalHistoryRecord `json:"history"`
}

// ApplicationHistory is a row of the applicant's history list
type ApplicationHistory struct {
	Application
	ApproverName string `json:"approverName,omitempty"`
	ApproveTime  string `json:"approveTime,omitempty"`
}
