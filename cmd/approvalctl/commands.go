package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/api"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/export"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/format"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/label"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/viewmodel/detail"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/viewmodel/report"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/viewmodel/tasks"
)

const passwordEnv = "APPROVALHUB_PASSWORD"

// displayError carries the message a view-model chose for a failure
type displayError struct {
	msg string
	err error
}

func (e *displayError) Error() string { return e.msg }
func (e *displayError) Unwrap() error { return e.err }

func displayMessage(err error) string {
	var de *displayError
	if errors.As(err, &de) && de.msg != "" {
		return de.msg
	}
	return api.Message(err, err.Error())
}

func (a *app) flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "用法: approvalctl %s\n", commands[name].usage)
		fmt.Fprint(a.stderr, fs.FlagUsages())
	}
	return fs
}

// idArg parses the single positional id of a command
func idArg(fs *pflag.FlagSet, what string) (int64, error) {
	if fs.NArg() != 1 {
		return 0, fmt.Errorf("需要一个%s", what)
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("无效的%s: %s", what, fs.Arg(0))
	}
	return id, nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := a.flags("login")
	username := fs.StringP("username", "u", "", "用户名")
	password := fs.StringP("password", "p", "", "密码, 也可通过 "+passwordEnv+" 提供")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv(passwordEnv)
	}

	res, err := a.c.Client().Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "已登录: %s (%s)\n", res.UserInfo.RealName, res.UserInfo.Username)
	return nil
}

func runLogout(ctx context.Context, a *app, args []string) error {
	if err := a.c.Client().Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "已退出登录")
	return nil
}

func runWhoami(ctx context.Context, a *app, args []string) error {
	sess := a.c.Session()
	user := sess.User()
	if !sess.Authenticated() || user == nil {
		return api.ErrNotAuthenticated
	}

	t := newTable()
	t.add("姓名", orDash(user.RealName))
	t.add("用户名", orDash(user.Username))
	t.add("部门", orDash(user.DeptName))
	t.add("角色", orDash(strings.Join(user.Roles, ", ")))
	return t.render(a.stdout)
}

func runDetail(ctx context.Context, a *app, args []string) error {
	fs := a.flags("detail")
	admin := fs.Bool("admin", false, "通过管理员接口查看")
	if err := fs.Parse(args); err != nil {
		return err
	}
	appID, err := idArg(fs, "申请ID")
	if err != nil {
		return err
	}

	view := a.c.DetailView(*admin)
	defer view.Close()
	view.SetTarget(ctx, appID, true)
	view.Wait()

	st := view.State()
	switch st.Phase {
	case detail.PhaseError:
		return &displayError{msg: st.Err}
	case detail.PhaseEmpty:
		fmt.Fprintln(a.stdout, "暂无数据")
		return nil
	case detail.PhaseReady:
		return writeDetail(a.stdout, st.Model)
	}
	return nil
}

func writeDetail(w io.Writer, vm *detail.ViewModel) error {
	fmt.Fprintf(w, "%s  [%s]\n\n", vm.Title, vm.Status.Text)

	info := newTable()
	info.add("申请编号", vm.AppNo)
	info.add("申请类型", vm.TypeLabel)
	info.add("当前节点", vm.CurrentNode)
	info.add("提交时间", vm.SubmitTime)
	info.add("完成时间", vm.FinishTime)
	switch {
	case vm.Leave != nil:
		info.add("请假类型", vm.Leave.TypeLabel)
		info.add("请假天数", vm.Leave.Days)
		info.add("开始时间", vm.Leave.StartTime)
		info.add("结束时间", vm.Leave.EndTime)
		info.add("请假事由", vm.Leave.Reason)
		info.add("附件", vm.Leave.Attachment)
	case vm.Reimburse != nil:
		info.add("费用类型", vm.Reimburse.ExpenseLabel)
		info.add("报销金额", vm.Reimburse.Amount)
		info.add("发生日期", vm.Reimburse.OccurDate)
		info.add("报销事由", vm.Reimburse.Reason)
		info.add("发票附件", vm.Reimburse.InvoiceAttachment)
	}
	if err := info.render(w); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n审批记录")
	if len(vm.History) == 0 {
		fmt.Fprintln(w, "暂无审批记录")
		return nil
	}
	hist := newTable("节点", "审批人", "操作", "时间", "意见")
	for _, h := range vm.History {
		hist.add(h.Node, h.Approver, h.Action, h.Time, h.CommentAuthor+": "+h.Comment)
	}
	return hist.render(w)
}

func runTodo(ctx context.Context, a *app, args []string) error {
	inbox := a.c.Inbox()
	if err := inbox.Load(ctx); err != nil {
		return &displayError{msg: inbox.Snapshot().List.Err, err: err}
	}
	return writeTasks(a.stdout, inbox.Snapshot().List.Data, false)
}

func runDone(ctx context.Context, a *app, args []string) error {
	done := a.c.DoneList()
	if err := done.Load(ctx); err != nil {
		return &displayError{msg: done.Snapshot().Err, err: err}
	}
	return writeTasks(a.stdout, done.Snapshot().Data, true)
}

func writeTasks(w io.Writer, list *tasks.TaskList, completed bool) error {
	if list == nil || len(list.Records) == 0 {
		fmt.Fprintln(w, "暂无任务")
		return nil
	}

	var t *table
	if completed {
		t = newTable("任务ID", "申请编号", "标题", "申请人", "节点", "结果", "审批时间")
	} else {
		t = newTable("任务ID", "申请编号", "标题", "申请人", "节点", "创建时间")
	}
	for _, task := range list.Records {
		row := []string{
			strconv.FormatInt(task.TaskID, 10),
			task.AppNo,
			orDash(task.Title),
			orDash(task.ApplicantName),
			orDash(task.NodeName),
		}
		if completed {
			row = append(row, label.ApprovalAction(task.Action), format.DateTime(task.ApproveTime))
		} else {
			row = append(row, format.DateTime(task.CreateTime))
		}
		t.add(row...)
	}
	if err := t.render(w); err != nil {
		return err
	}
	fmt.Fprintf(w, "共 %d 条\n", list.Total)
	return nil
}

func parseAction(s string) (int, error) {
	switch strings.ToLower(s) {
	case "approve", "1", "同意":
		return entity.ActionApprove, nil
	case "reject", "2", "拒绝":
		return entity.ActionReject, nil
	}
	return 0, fmt.Errorf("审批动作只能是 approve 或 reject: %s", s)
}

func runApprove(ctx context.Context, a *app, args []string) error {
	fs := a.flags("approve")
	actionText := fs.String("action", "", "approve 或 reject")
	comment := fs.String("comment", "", "审批意见")
	if err := fs.Parse(args); err != nil {
		return err
	}
	taskID, err := idArg(fs, "任务ID")
	if err != nil {
		return err
	}
	action, err := parseAction(*actionText)
	if err != nil {
		return err
	}

	inbox := a.c.Inbox()
	if err := inbox.Load(ctx); err != nil {
		return &displayError{msg: inbox.Snapshot().List.Err, err: err}
	}

	var target *entity.Task
	if list := inbox.Snapshot().List.Data; list != nil {
		for i := range list.Records {
			if list.Records[i].TaskID == taskID {
				target = &list.Records[i]
				break
			}
		}
	}
	if target == nil {
		return fmt.Errorf("待办中没有任务 %d", taskID)
	}

	inbox.Select(*target)
	if err := inbox.Approve(ctx, action, *comment); err != nil {
		return &displayError{msg: inbox.Snapshot().ActionErr, err: err}
	}

	fmt.Fprintf(a.stdout, "已%s: %s\n", label.ApprovalAction(action), target.AppNo)
	return nil
}

func runHistory(ctx context.Context, a *app, args []string) error {
	fs := a.flags("history")
	appType := fs.String("type", "", "leave 或 reimburse")
	status := fs.Int("status", -1, "申请状态编码")
	approver := fs.String("approver", "", "审批人")
	month := fs.String("month", "", "提交月份 YYYY-MM")
	options := fs.Bool("options", false, "列出可选的审批人和月份")
	if err := fs.Parse(args); err != nil {
		return err
	}

	h := a.c.History()
	if *options {
		opts, err := h.LoadFilterOptions(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "审批人: %s\n", orDash(strings.Join(opts.Approvers, ", ")))
		fmt.Fprintf(a.stdout, "月份: %s\n", orDash(strings.Join(opts.Months, ", ")))
		return nil
	}

	f := tasks.Filter{AppType: *appType, ApproverName: *approver, Month: *month}
	if *status >= 0 {
		f.Status = status
	}

	var err error
	if (f == tasks.Filter{}) {
		err = h.Load(ctx)
	} else {
		err = h.SetFilter(ctx, f)
	}
	if err != nil {
		return &displayError{msg: h.Snapshot().List.Err, err: err}
	}

	list := h.Snapshot().List.Data
	if list == nil || len(*list) == 0 {
		fmt.Fprintln(a.stdout, "暂无申请")
		return nil
	}

	t := newTable("申请ID", "申请编号", "类型", "标题", "状态", "当前节点", "提交时间", "审批人")
	for _, rec := range *list {
		t.add(
			strconv.FormatInt(rec.AppID, 10),
			rec.AppNo,
			label.ApplicationType(rec.AppType),
			orDash(rec.Title),
			label.ApplicationStatus(rec.Status).Text,
			orDash(rec.CurrentNode),
			format.DateTime(rec.SubmitTime),
			orDash(rec.ApproverName),
		)
	}
	return t.render(a.stdout)
}

func runWithdraw(ctx context.Context, a *app, args []string) error {
	fs := a.flags("withdraw")
	if err := fs.Parse(args); err != nil {
		return err
	}
	appID, err := idArg(fs, "申请ID")
	if err != nil {
		return err
	}

	resp, err := a.c.Client().GetApplicationDetail(ctx, appID)
	if err != nil {
		return err
	}
	if resp == nil || resp.Application == nil {
		return fmt.Errorf("申请 %d 不存在", appID)
	}

	target := entity.ApplicationHistory{Application: *resp.Application}
	if err := a.c.History().Withdraw(ctx, target); err != nil {
		if errors.Is(err, tasks.ErrWithdrawNotAllowed) {
			return &displayError{
				msg: fmt.Sprintf("当前状态为%s，只有待审批的申请可以撤回", label.ApplicationStatus(target.Status).Text),
				err: err,
			}
		}
		return err
	}

	fmt.Fprintf(a.stdout, "已撤回: %s\n", target.AppNo)
	return nil
}

func runReport(ctx context.Context, a *app, args []string) error {
	fs := a.flags("report")
	month := fs.String("month", "", "统计月份 YYYY-MM, 默认当月")
	deptID := fs.Int64("dept", 0, "展开部门明细")
	if err := fs.Parse(args); err != nil {
		return err
	}

	center := a.c.ReportCenter(*month)
	center.Refresh(ctx)
	center.Wait()

	snap := center.Snapshot()
	if snap.Summary.Err != "" {
		return &displayError{msg: snap.Summary.Err}
	}
	if snap.Summary.Data == nil {
		fmt.Fprintln(a.stdout, "暂无数据")
		return nil
	}
	if err := writeSummary(a.stdout, snap); err != nil {
		return err
	}

	if *deptID == 0 {
		return nil
	}
	center.OpenDept(ctx, *deptID)
	center.Wait()

	snap = center.Snapshot()
	if snap.Detail.Err != "" {
		return &displayError{msg: snap.Detail.Err}
	}
	if snap.Detail.Data == nil {
		fmt.Fprintln(a.stdout, "\n暂无部门数据")
		return nil
	}
	fmt.Fprintln(a.stdout)
	return writeDeptDetail(a.stdout, snap)
}

const chartWidth = 30

func writeSummary(w io.Writer, snap report.Snapshot) error {
	summary := snap.Summary.Data
	fmt.Fprintf(w, "统计月份: %s\n\n", snap.DisplayMonth())

	stats := newTable("类型", "申请总数", "已通过", "通过率")
	for _, s := range []struct {
		name string
		stat *entity.ApplicationTypeStat
	}{{"请假", summary.ApplicationStats.Leave}, {"报销", summary.ApplicationStats.Reimburse}} {
		if s.stat == nil {
			stats.add(s.name, "0", "0", format.Rate(nil))
			continue
		}
		stats.add(s.name, strconv.FormatInt(s.stat.Total, 10), strconv.FormatInt(s.stat.Approved, 10), format.Rate(s.stat.ApprovalRate))
	}
	if err := stats.render(w); err != nil {
		return err
	}

	chart := snap.Chart()
	if len(chart) > 0 {
		fmt.Fprintln(w)
		var peak int64
		for _, p := range chart {
			peak = max(peak, p.Total)
		}
		bars := newTable()
		for _, p := range chart {
			bars.add(p.Name, bar(p.Total, p.Approved, peak), fmt.Sprintf("%d/%d", p.Approved, p.Total))
		}
		if err := bars.render(w); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	cards := newTable("部门ID", "部门", "请假", "报销", "合计", "通过率", "部门人数")
	for _, c := range snap.Cards() {
		cards.add(
			strconv.FormatInt(c.DeptID, 10),
			c.DeptName,
			strconv.FormatInt(c.LeaveTotal, 10),
			strconv.FormatInt(c.ReimburseTotal, 10),
			strconv.FormatInt(c.Total, 10),
			c.RateText,
			strconv.FormatInt(c.MemberCount, 10),
		)
	}
	return cards.render(w)
}

// bar draws total as a bar scaled to peak, the approved share filled
func bar(total, approved, peak int64) string {
	if peak <= 0 || total <= 0 {
		return ""
	}
	n := int(total * chartWidth / peak)
	if n == 0 {
		n = 1
	}
	filled := int(min(approved, total) * int64(n) / total)
	return strings.Repeat("#", filled) + strings.Repeat("-", n-filled)
}

func writeDeptDetail(w io.Writer, snap report.Snapshot) error {
	d := snap.Detail.Data
	fmt.Fprintf(w, "%s  %s  在岗 %d 人\n\n", d.DeptName, d.Month, snap.DetailMembers())

	posts := newTable("岗位", "人数")
	for _, p := range d.DeptPostStats {
		posts.add(orDash(p.PostName), strconv.FormatInt(p.UserCount, 10))
	}
	if err := posts.render(w); err != nil {
		return err
	}

	fmt.Fprintln(w)
	leave := newTable("请假人员", "次数", "天数")
	for _, l := range d.LeaveDetails {
		leave.add(l.RealName, strconv.FormatInt(l.Times, 10), format.Number(l.Days))
	}
	if err := leave.render(w); err != nil {
		return err
	}

	fmt.Fprintln(w)
	reimburse := newTable("报销人员", "次数", "金额")
	for _, r := range d.ReimburseDetails {
		reimburse.add(r.RealName, strconv.FormatInt(r.Times, 10), format.Currency(r.Amount))
	}
	return reimburse.render(w)
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := a.flags("export")
	month := fs.String("month", "", "统计月份 YYYY-MM")
	out := fs.String("out", "", "文件名, 保存在导出目录")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *month == "" {
		*month = a.c.Config().Report.DefaultMonth
	}

	summary, details, err := export.Collect(ctx, a.c.Client(), *month)
	if err != nil {
		return &displayError{msg: api.Message(err, report.DefaultSummaryError), err: err}
	}

	path, err := a.c.Exporter().Export(ctx, summary, details, *out)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "报表已导出: %s\n", path)
	return nil
}

func runUpload(ctx context.Context, a *app, args []string) error {
	fs := a.flags("upload")
	if err := fs.Parse(args); err != nil {
		return err
	}
	uploader := a.c.Uploader()
	if fs.NArg() != 1 {
		return fmt.Errorf("需要一个文件 (%s)", uploader.Hint())
	}

	res, err := uploader.UploadPath(ctx, fs.Arg(0))
	if err != nil {
		return &displayError{msg: uploader.LastError(), err: err}
	}

	t := newTable()
	t.add("文件名", res.FileName)
	t.add("大小", format.Size(res.FileSize))
	t.add("地址", res.FileURL)
	return t.render(a.stdout)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return format.Placeholder
	}
	return s
}
