// Package tasks holds the approver inbox, the completed-task list and the
// applicant's history list with its withdraw action.
package tasks

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/api"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/application/dispatcher"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/event"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/viewmodel"
)

// DefaultPage is the page every list loads
var DefaultPage = api.PageQuery{PageNum: 1, PageSize: 20}

// TodoClient is what the inbox needs from the backend
type TodoClient interface {
	ListTodoTasks(ctx context.Context, q api.PageQuery) (*entity.Page[entity.Task], error)
	ApproveTask(ctx context.Context, req api.ApproveRequest) error
}

// DoneClient lists completed tasks
type DoneClient interface {
	ListDoneTasks(ctx context.Context, q api.PageQuery) (*entity.Page[entity.Task], error)
}

// TaskList is a loaded page of tasks
type TaskList struct {
	Records []entity.Task
	Total   int64
}

// InboxSnapshot is the state of the inbox
type InboxSnapshot struct {
	List      viewmodel.Region[TaskList]
	Selected  *entity.Task
	ActionErr string
}

// Inbox is the approver's todo list with the approve/reject flow
type Inbox struct {
	client     TodoClient
	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger
	gen        viewmodel.Generation

	mu        sync.Mutex
	list      viewmodel.Region[TaskList]
	selected  *entity.Task
	actionErr string
}

// NewInbox creates an inbox. The dispatcher may be nil.
func NewInbox(client TodoClient, d dispatcher.Dispatcher, logger *zap.Logger) *Inbox {
	return &Inbox{client: client, dispatcher: d, logger: logger}
}

// Load fetches the first page of pending tasks
func (in *Inbox) Load(ctx context.Context) error {
	in.mu.Lock()
	tok := in.gen.Next()
	in.list.Begin()
	in.mu.Unlock()

	page, err := in.client.ListTodoTasks(ctx, DefaultPage)

	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.gen.Current(tok) {
		return nil
	}
	if err != nil {
		in.list.Fail(listError(err))
		return err
	}
	in.list.Succeed(&TaskList{Records: page.Records, Total: page.Total})
	return nil
}

// Select makes task the target of the next Approve
func (in *Inbox) Select(task entity.Task) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.selected = &task
	in.actionErr = ""
}

// ClearSelection drops the selected task
func (in *Inbox) ClearSelection() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.selected = nil
	in.actionErr = ""
}

// Selected returns the selected task, nil when none
func (in *Inbox) Selected() *entity.Task {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.selected == nil {
		return nil
	}
	t := *in.selected
	return &t
}

// Approve submits action (approve or reject) with an optional comment for
// the selected task. On success the selection is cleared and the inbox
// reloaded; on failure the selection stays for a retry.
func (in *Inbox) Approve(ctx context.Context, action int, comment string) error {
	task := in.Selected()
	if task == nil {
		return ErrNoSelection
	}

	err := in.client.ApproveTask(ctx, api.ApproveRequest{TaskID: task.TaskID, Action: action, Comment: comment})
	if err != nil {
		in.mu.Lock()
		if !errors.Is(err, api.ErrAuthExpired) {
			in.actionErr = api.Message(err, DefaultApproveError)
		}
		in.mu.Unlock()
		in.logger.Warn("Failed to approve task", zap.Int64("task_id", task.TaskID), zap.Error(err))
		return err
	}

	in.logger.Info("Task processed",
		zap.Int64("task_id", task.TaskID),
		zap.Int64("app_id", task.AppID),
		zap.Int("action", action))

	in.ClearSelection()
	publish(ctx, in.dispatcher, in.logger, event.NewEvent(event.TypeTaskApproved, task.TaskID, map[string]interface{}{
		"app_id": task.AppID,
		"action": action,
	}))

	return in.Load(ctx)
}

// Snapshot returns the current state
func (in *Inbox) Snapshot() InboxSnapshot {
	in.mu.Lock()
	defer in.mu.Unlock()
	s := InboxSnapshot{List: in.list, ActionErr: in.actionErr}
	if in.selected != nil {
		t := *in.selected
		s.Selected = &t
	}
	return s
}

// DoneList is the approver's completed tasks
type DoneList struct {
	client DoneClient
	logger *zap.Logger
	gen    viewmodel.Generation

	mu   sync.Mutex
	list viewmodel.Region[TaskList]
}

// NewDoneList creates an empty list
func NewDoneList(client DoneClient, logger *zap.Logger) *DoneList {
	return &DoneList{client: client, logger: logger}
}

// Load fetches the first page of completed tasks
func (d *DoneList) Load(ctx context.Context) error {
	d.mu.Lock()
	tok := d.gen.Next()
	d.list.Begin()
	d.mu.Unlock()

	page, err := d.client.ListDoneTasks(ctx, DefaultPage)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.gen.Current(tok) {
		return nil
	}
	if err != nil {
		d.list.Fail(listError(err))
		return err
	}
	d.list.Succeed(&TaskList{Records: page.Records, Total: page.Total})
	return nil
}

// Snapshot returns the current list state
func (d *DoneList) Snapshot() viewmodel.Region[TaskList] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.list
}

func listError(err error) string {
	if errors.Is(err, api.ErrAuthExpired) {
		return ""
	}
	return api.Message(err, DefaultLoadError)
}

// publish dispatches evt, logging rather than returning handler failures
func publish(ctx context.Context, d dispatcher.Dispatcher, logger *zap.Logger, evt *event.Event) {
	if d == nil {
		return
	}
	if err := d.Dispatch(ctx, evt); err != nil {
		logger.Error("Event handler failed",
			zap.String("event_type", evt.Type.String()),
			zap.Error(err))
	}
}
