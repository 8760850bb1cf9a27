package api

import (
	"context"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
)

// ApproveRequest is the approver's decision on a task
type ApproveRequest struct {
	TaskID  int64  `json:"taskId" validate:"gt=0"`
	Action  int    `json:"action" validate:"oneof=1 2"`
	Comment string `json:"comment,omitempty"`
}

var approveMessages = map[string]string{
	"taskId": "请选择审批任务",
	"action": "审批动作只能是同意或拒绝",
}

// ListTodoTasks lists tasks waiting on the signed-in approver
func (c *Client) ListTodoTasks(ctx context.Context, q PageQuery) (*entity.Page[entity.Task], error) {
	return listTasks(ctx, c, "/tasks/todo", q)
}

// ListDoneTasks lists tasks the signed-in approver has completed
func (c *Client) ListDoneTasks(ctx context.Context, q PageQuery) (*entity.Page[entity.Task], error) {
	return listTasks(ctx, c, "/tasks/done", q)
}

func listTasks(ctx context.Context, c *Client, path string, q PageQuery) (*entity.Page[entity.Task], error) {
	page, err := get[entity.Page[entity.Task]](ctx, c, path, q.values())
	if err != nil {
		return nil, err
	}
	if page == nil {
		page = &entity.Page[entity.Task]{}
	}
	if page.Records == nil {
		page.Records = []entity.Task{}
	}
	return page, nil
}

// ApproveTask approves or rejects a task
func (c *Client) ApproveTask(ctx context.Context, req ApproveRequest) error {
	if err := validateStruct(req, approveMessages); err != nil {
		return err
	}
	_, err := post[struct{}](ctx, c, "/tasks/approve", req)
	return err
}
