package tasks

import "errors"

var (
	// ErrNoSelection is returned by Approve when no task is selected
	ErrNoSelection = errors.New("no task selected")

	// ErrWithdrawNotAllowed is returned for applications that are not pending
	ErrWithdrawNotAllowed = errors.New("only pending applications can be withdrawn")
)

const (
	DefaultApproveError  = "审批失败"
	DefaultWithdrawError = "撤回失败"
	DefaultLoadError     = "加载失败"
)
