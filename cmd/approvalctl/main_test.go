package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/api/apitest"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/export"
)

type harness struct {
	t      *testing.T
	server *apitest.Server
	dir    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	srv.Handle(http.MethodPost, "/auth/login", func(c *gin.Context) {
		apitest.OK(c, gin.H{"token": "tok-cli", "userInfo": gin.H{
			"userId": 3, "username": "wangwu", "realName": "王五", "deptName": "财务部", "roles": []string{"approver"},
		}})
	})
	return &harness{t: t, server: srv, dir: t.TempDir()}
}

func (h *harness) run(args ...string) (int, string, string) {
	h.t.Helper()
	base := []string{
		"--config", filepath.Join(h.dir, "missing.yaml"),
		"--base-url", h.server.URL(),
		"--session-path", filepath.Join(h.dir, "session.json"),
		"--export-dir", filepath.Join(h.dir, "exports"),
		"--log-level", "fatal",
	}
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append(base, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (h *harness) login() {
	h.t.Helper()
	code, _, stderr := h.run("login", "-u", "wangwu", "-p", "secret")
	require.Equal(h.t, exitOK, code, stderr)
}

func todoHandler(c *gin.Context) {
	apitest.OK(c, gin.H{"total": 1, "records": []gin.H{{
		"taskId": 11, "appId": 21, "appNo": "LV001", "title": "年假申请",
		"applicantName": "张三", "nodeName": "部门经理审批", "createTime": "2024-03-01T09:00:00",
	}}})
}

func TestRun_Usage(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run()
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "用法: approvalctl")

	code, _, stderr = h.run("frobnicate")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "未知命令: frobnicate")
}

func TestRun_LoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)

	code, stdout, _ := h.run("login", "-u", "wangwu", "-p", "secret")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "已登录: 王五 (wangwu)")

	code, stdout, _ = h.run("whoami")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "财务部")
	assert.Contains(t, stdout, "approver")

	code, stdout, _ = h.run("logout")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "已退出登录")

	code, _, stderr := h.run("whoami")
	assert.Equal(t, exitAuthExpired, code)
	assert.Contains(t, stderr, "尚未登录")
}

func TestRun_LoginPasswordFromEnv(t *testing.T) {
	h := newHarness(t)
	t.Setenv(passwordEnv, "secret")

	code, stdout, _ := h.run("login", "--username", "wangwu")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "已登录")

	t.Setenv(passwordEnv, "")
	code, _, stderr := h.run("login", "-u", "wangwu")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "请输入密码")
}

func TestRun_Todo(t *testing.T) {
	h := newHarness(t)
	h.server.Handle(http.MethodGet, "/tasks/todo", todoHandler)
	h.login()

	code, stdout, stderr := h.run("todo")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "LV001")
	assert.Contains(t, stdout, "年假申请")
	assert.Contains(t, stdout, "共 1 条")

	reqs := h.server.Requests()
	assert.Equal(t, "Bearer tok-cli", reqs[len(reqs)-1].Authorization)
}

func TestRun_Approve(t *testing.T) {
	h := newHarness(t)
	h.server.Handle(http.MethodGet, "/tasks/todo", todoHandler)

	var body struct {
		TaskID  int64  `json:"taskId"`
		Action  int    `json:"action"`
		Comment string `json:"comment"`
	}
	h.server.Handle(http.MethodPost, "/tasks/approve", func(c *gin.Context) {
		assert.NoError(t, c.ShouldBindJSON(&body))
		apitest.OK(c, nil)
	})
	h.login()

	code, stdout, stderr := h.run("approve", "11", "--action", "approve", "--comment", "同意休假")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "已同意: LV001")
	assert.Equal(t, int64(11), body.TaskID)
	assert.Equal(t, 1, body.Action)
	assert.Equal(t, "同意休假", body.Comment)

	code, _, stderr = h.run("approve", "99", "--action", "reject")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "待办中没有任务 99")

	code, _, stderr = h.run("approve", "11", "--action", "maybe")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "审批动作只能是")
}

func TestRun_ApproveServerRejects(t *testing.T) {
	h := newHarness(t)
	h.server.Handle(http.MethodGet, "/tasks/todo", todoHandler)
	h.server.Handle(http.MethodPost, "/tasks/approve", func(c *gin.Context) {
		apitest.Fail(c, 400, "任务已被处理")
	})
	h.login()

	code, _, stderr := h.run("approve", "11", "--action", "reject")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "任务已被处理")
}

func TestRun_AuthExpiry(t *testing.T) {
	h := newHarness(t)
	h.server.Handle(http.MethodGet, "/tasks/todo", apitest.Unauthorized)
	h.login()

	code, _, stderr := h.run("todo")
	assert.Equal(t, exitAuthExpired, code)
	assert.Contains(t, stderr, "登录已过期")
	assert.NotContains(t, stderr, "错误:")

	_, err := os.Stat(filepath.Join(h.dir, "session.json"))
	assert.True(t, os.IsNotExist(err), "expired session must be removed")
}

func TestRun_Detail(t *testing.T) {
	h := newHarness(t)
	h.server.Handle(http.MethodGet, "/applications/:id", func(c *gin.Context) {
		if c.Param("id") != "21" {
			apitest.Fail(c, 404, "申请不存在")
			return
		}
		apitest.OK(c, gin.H{
			"application": gin.H{"appId": 21, "appNo": "BX009", "appType": "reimburse", "status": 3, "submitTime": "2024-03-02T10:00:00"},
			"detail":      gin.H{"expenseType": 1, "amount": 356.4, "occurDate": "2024-03-01", "reason": "高铁票"},
			"history": []gin.H{
				{"historyId": 1, "nodeName": "财务审批", "approverName": "王五", "action": 1, "approveTime": "2024-03-03T09:00:00"},
			},
		})
	})
	h.login()

	code, stdout, stderr := h.run("detail", "21")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "已通过")
	assert.Contains(t, stdout, "¥356.40")
	assert.Contains(t, stdout, "高铁票")
	assert.Contains(t, stdout, "暂无审批意见")

	code, _, stderr = h.run("detail", "5")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "申请不存在")

	code, _, stderr = h.run("detail", "abc")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "无效的申请ID")
}

func TestRun_HistoryAndWithdraw(t *testing.T) {
	h := newHarness(t)
	var lastQuery string
	h.server.Handle(http.MethodGet, "/applications/history", func(c *gin.Context) {
		lastQuery = c.Request.URL.RawQuery
		apitest.OK(c, gin.H{"total": 1, "records": []gin.H{
			{"appId": 21, "appNo": "LV001", "appType": "leave", "status": 1, "submitTime": "2024-03-01T09:00:00"},
		}})
	})
	h.server.Handle(http.MethodGet, "/applications/:id", func(c *gin.Context) {
		status := 1
		if c.Param("id") == "22" {
			status = 3
		}
		apitest.OK(c, gin.H{"application": gin.H{"appId": 21, "appNo": "LV001", "appType": "leave", "status": status}})
	})
	h.server.Handle(http.MethodPost, "/applications/:id/withdraw", func(c *gin.Context) {
		apitest.OK(c, nil)
	})
	h.login()

	code, stdout, stderr := h.run("history", "--type", "leave", "--month", "2024-03")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "LV001")
	assert.Contains(t, stdout, "待审批")
	assert.Contains(t, lastQuery, "appType=leave")
	assert.Contains(t, lastQuery, "startTime=")

	code, _, stderr = h.run("history", "--month", "03-2024")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "月份格式应为YYYY-MM")

	code, stdout, stderr = h.run("withdraw", "21")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "已撤回: LV001")
	assert.Equal(t, 1, h.server.Count("/applications/21/withdraw"))

	code, _, stderr = h.run("withdraw", "22")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "只有待审批的申请可以撤回")
	assert.Zero(t, h.server.Count("/applications/22/withdraw"))
}

func reportHandlers(h *harness) {
	h.server.Handle(http.MethodGet, "/admin/reports/summary", func(c *gin.Context) {
		apitest.OK(c, gin.H{
			"month":             "2024-03",
			"deptEmployeeStats": []gin.H{{"deptId": 1, "deptName": "研发部", "userCount": 12}},
			"applicationStats":  gin.H{"leave": gin.H{"total": 6, "approved": 5, "approvalRate": 83.33}},
			"deptMonthlyStats": []gin.H{
				{"deptId": 1, "deptName": "研发部", "leaveTotal": 6, "reimburseTotal": 4, "approvalRate": 75},
			},
		})
	})
	h.server.Handle(http.MethodGet, "/admin/reports/dept-detail", func(c *gin.Context) {
		apitest.OK(c, gin.H{
			"deptId": 1, "deptName": "研发部", "month": c.Query("month"),
			"deptPostStats":    []gin.H{{"postId": 2, "postName": "工程师", "userCount": 11}},
			"reimburseDetails": []gin.H{{"userId": 7, "realName": "张三", "times": 1, "amount": 100.5}},
		})
	})
}

func TestRun_Report(t *testing.T) {
	h := newHarness(t)
	reportHandlers(h)
	h.login()

	code, stdout, stderr := h.run("report", "--month", "2024-03", "--dept", "1")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "统计月份: 2024-03")
	assert.Contains(t, stdout, "83.33%")
	assert.Contains(t, stdout, "75.00%")
	assert.Contains(t, stdout, "8/10")
	assert.Contains(t, stdout, "在岗 11 人")
	assert.Contains(t, stdout, "¥100.50")
}

func TestRun_Export(t *testing.T) {
	h := newHarness(t)
	reportHandlers(h)
	h.login()

	code, stdout, stderr := h.run("export", "--month", "2024-03")
	require.Equal(t, exitOK, code, stderr)

	path := filepath.Join(h.dir, "exports", "report-2024-03.xlsx")
	assert.Contains(t, stdout, path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{export.SummarySheet, "研发部"}, f.GetSheetList())

	code, _, stderr = h.run("export", "--out", "../outside.xlsx")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "escapes")
}

func TestRun_Upload(t *testing.T) {
	h := newHarness(t)
	h.server.Handle(http.MethodPost, "/files/upload", func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		apitest.OK(c, gin.H{"fileName": fh.Filename, "fileSize": fh.Size, "fileUrl": "/uploads/" + fh.Filename})
	})
	h.login()

	path := filepath.Join(h.dir, "invoice.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test"), 0600))

	code, stdout, stderr := h.run("upload", path)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "/uploads/invoice.pdf")
	assert.Contains(t, stdout, "13 B")

	txt := filepath.Join(h.dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain text"), 0600))
	code, _, stderr = h.run("upload", txt)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "不支持的文件类型")
	assert.Equal(t, 1, h.server.Count("/files/upload"))
}
