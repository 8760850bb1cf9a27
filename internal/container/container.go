// Package container wires the client components together and manages
// their lifecycle.
package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/api"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/application/dispatcher"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/config"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/export"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/session"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/upload"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/viewmodel/detail"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/viewmodel/report"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/viewmodel/tasks"
)

// Container owns the session, dispatcher, API client and the helpers
// built on them. Components start in dependency order and close in
// reverse order.
type Container struct {
	config    *config.Config
	logger    *zap.Logger
	clientOps []api.Option

	sessions   *SessionBundle
	dispatcher dispatcher.Dispatcher
	client     *api.Client
	uploader   *upload.Uploader
	exporter   *export.ReportExporter

	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// Option configures a Container
type Option func(*Container)

// WithClientOptions passes options to the API client, e.g. a custom transport
func WithClientOptions(opts ...api.Option) Option {
	return func(c *Container) {
		c.clientOps = append(c.clientOps, opts...)
	}
}

// NewContainer creates a container. Call Start to initialize components.
func NewContainer(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Container{config: cfg, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start initializes components in order:
// 1. Session store and saved session
// 2. Event dispatcher
// 3. API client
// 4. Upload and export helpers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	sessions, err := ProvideSession(&c.config.Session, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize session: %w", err)
	}
	c.sessions = sessions

	c.dispatcher = ProvideDispatcher(c.logger)

	c.client, err = ProvideClient(&c.config.API, c.sessions.Session, c.dispatcher, c.logger, c.clientOps...)
	if err != nil {
		return fmt.Errorf("failed to initialize api client: %w", err)
	}

	c.uploader = ProvideUploader(&c.config.Upload, c.client, c.dispatcher, c.logger)
	c.exporter = ProvideExporter(&c.config.Report, c.dispatcher, c.logger)

	c.ready.Store(true)
	c.logger.Debug("Container started", zap.String("base_url", c.config.API.BaseURL))
	return nil
}

// Close waits for pending event handlers, then releases the session store
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	var errs []error
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}
	if c.sessions != nil && c.sessions.Closer != nil {
		if err := c.sessions.Closer.Close(); err != nil {
			c.logger.Error("Failed to close session store", zap.Error(err))
			errs = append(errs, fmt.Errorf("close session store: %w", err))
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)
	return errors.Join(errs...)
}

// Ready reports whether Start completed
func (c *Container) Ready() bool {
	return c.ready.Load()
}

func (c *Container) Config() *config.Config { return c.config }

func (c *Container) Logger() *zap.Logger { return c.logger }

func (c *Container) Session() *session.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sessions == nil {
		return nil
	}
	return c.sessions.Session
}

func (c *Container) Dispatcher() dispatcher.Dispatcher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dispatcher
}

func (c *Container) Client() *api.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

func (c *Container) Uploader() *upload.Uploader {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.uploader
}

func (c *Container) Exporter() *export.ReportExporter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.exporter
}

// DetailView creates an application detail view. Admin views read the
// admin endpoint.
func (c *Container) DetailView(admin bool, opts ...detail.Option) *detail.View {
	var fetcher detail.Fetcher = c.Client()
	if admin {
		fetcher = adminDetail{c.Client()}
	}
	return detail.NewView(fetcher, c.logger, opts...)
}

func (c *Container) Inbox() *tasks.Inbox {
	return tasks.NewInbox(c.Client(), c.Dispatcher(), c.logger)
}

func (c *Container) DoneList() *tasks.DoneList {
	return tasks.NewDoneList(c.Client(), c.logger)
}

func (c *Container) History() *tasks.History {
	return tasks.NewHistory(c.Client(), c.Dispatcher(), c.logger)
}

// ReportCenter creates a report center for month, falling back to the
// configured default month
func (c *Container) ReportCenter(month string) *report.Center {
	if month == "" {
		month = c.config.Report.DefaultMonth
	}
	return report.NewCenter(c.Client(), c.logger, month)
}

// adminDetail routes detail loads to the admin endpoint
type adminDetail struct {
	client *api.Client
}

func (a adminDetail) GetApplicationDetail(ctx context.Context, appID int64) (*entity.ApplicationDetailResponse, error) {
	return a.client.GetAdminApplicationDetail(ctx, appID)
}
