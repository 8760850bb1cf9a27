package entity

// Task is one approver's unit of work against an application at a node
type Task struct {
	TaskID        int64  `json:"taskId"`
	AppID         int64  `json:"appId"`
	AppNo         string `json:"appNo"`
	AppType       string `json:"appType,omitempty"`
	Title         string `json:"title"`
	ApplicantName string `json:"applicantName"`
	NodeName      string `json:"nodeName"`
	CreateTime    string `json:"createTime"`

	// Set on completed tasks only
	Action      int    `json:"action,omitempty"`
	Comment     string `json:"comment,omitempty"`
	ApproveTime string `json:"approveTime,omitempty"`
}

// Page is the paginated list envelope used by list endpoints
type Page[T any] struct {
	Records []T   `json:"records"`
	Total   int64 `json:"total"`
}

// UploadFileResult describes a stored attachment
type UploadFileResult struct {
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	FileURL     string `json:"fileUrl"`
	FilePath    string `json:"filePath,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// User is the signed-in account
type User struct {
	UserID   int64    `json:"userId"`
	Username string   `json:"username"`
	RealName string   `json:"realName"`
	DeptName string   `json:"deptName,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// LoginResult is returned by the login endpoint
type LoginResult struct {
	Token    string `json:"token"`
	UserInfo User   `json:"userInfo"`
}
