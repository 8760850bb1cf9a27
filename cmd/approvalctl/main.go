// Command approvalctl is a terminal client for the ApprovalHub backend:
// sign in, work the approval inbox, browse and withdraw applications,
// read the monthly report and export it to a workbook.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"sync/atomic"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/api"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/config"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/container"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/event"
	"github.com/Moriarty1227/YIR-ApprovalHub/pkg/utils"
)

const (
	exitOK          = 0
	exitError       = 1
	exitAuthExpired = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// command is one approvalctl subcommand
type command struct {
	usage   string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

// commands is filled in init because the handlers print their own usage
var commands map[string]command

func init() {
	commands = map[string]command{
		"login":    {"login -u <username> [-p <password>]", "登录并保存会话", runLogin},
		"logout":   {"logout", "退出登录", runLogout},
		"whoami":   {"whoami", "显示当前用户", runWhoami},
		"detail":   {"detail <appId> [--admin]", "查看申请详情", runDetail},
		"todo":     {"todo", "待办审批", runTodo},
		"approve":  {"approve <taskId> --action approve|reject [--comment text]", "审批任务", runApprove},
		"done":     {"done", "已办审批", runDone},
		"history":  {"history [--type leave|reimburse] [--status n] [--approver name] [--month YYYY-MM] [--options]", "我的申请", runHistory},
		"withdraw": {"withdraw <appId>", "撤回待审批的申请", runWithdraw},
		"report":   {"report [--month YYYY-MM] [--dept id]", "月度统计报表", runReport},
		"export":   {"export [--month YYYY-MM] [--out name.xlsx]", "导出月度报表", runExport},
		"upload":   {"upload <file>", "上传附件", runUpload},
	}
}

// app is what every command runs against
type app struct {
	c      *container.Container
	stdout io.Writer
	stderr io.Writer

	expired atomic.Bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := pflag.NewFlagSet("approvalctl", pflag.ContinueOnError)
	global.SetOutput(stderr)
	global.SetInterspersed(false)
	global.Usage = func() { usage(stderr, global) }

	configPath := global.String("config", "configs/config.yaml", "配置文件路径")
	global.String("base-url", "", "后端地址, 覆盖 api.base_url")
	global.Duration("timeout", 0, "请求超时, 覆盖 api.timeout")
	global.String("session-backend", "", "会话存储: file 或 sqlite")
	global.String("session-path", "", "会话文件路径")
	global.String("export-dir", "", "报表导出目录")
	global.String("log-level", "", "日志级别")

	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitError
	}
	if global.NArg() == 0 {
		usage(stderr, global)
		return exitError
	}

	name := global.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "未知命令: %s\n\n", name)
		usage(stderr, global)
		return exitError
	}

	cfg, err := config.LoadWithFlags(*configPath, global)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return exitError
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAgeDays: cfg.Logger.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return exitError
	}
	defer logger.Sync()

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create container: %v\n", err)
		return exitError
	}
	if err := c.Start(ctx); err != nil {
		logger.Error("Failed to start", zap.Error(err))
		fmt.Fprintf(stderr, "启动失败: %v\n", err)
		return exitError
	}

	a := &app{c: c, stdout: stdout, stderr: stderr}
	c.Dispatcher().SubscribeNamed(event.TypeAuthExpired, "login-notice", func(ctx context.Context, evt *event.Event) error {
		if a.expired.CompareAndSwap(false, true) {
			fmt.Fprintln(stderr, "登录已过期，请重新登录: approvalctl login -u <username>")
		}
		return nil
	})

	cmdErr := cmd.run(ctx, a, global.Args()[1:])

	if err := c.Close(); err != nil {
		logger.Warn("Shutdown finished with errors", zap.Error(err))
	}
	return a.exit(cmdErr)
}

// exit reports err and maps it to the process exit code
func (a *app) exit(err error) int {
	switch {
	case a.expired.Load() || errors.Is(err, api.ErrAuthExpired):
		return exitAuthExpired
	case errors.Is(err, api.ErrNotAuthenticated):
		fmt.Fprintln(a.stderr, "尚未登录: approvalctl login -u <username>")
		return exitAuthExpired
	case errors.Is(err, pflag.ErrHelp):
		return exitOK
	case err != nil:
		fmt.Fprintf(a.stderr, "错误: %s\n", displayMessage(err))
		return exitError
	}
	return exitOK
}

func usage(w io.Writer, global *pflag.FlagSet) {
	fmt.Fprintln(w, "用法: approvalctl [全局参数] <命令> [参数]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "命令:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	t := newTable()
	for _, name := range names {
		t.add("  "+commands[name].usage, commands[name].summary)
	}
	_ = t.render(w)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "全局参数:")
	fmt.Fprint(w, global.FlagUsages())
}
