package container

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/api"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/application/dispatcher"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/config"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/event"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/export"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/session"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/upload"
)

// SessionBundle holds the session and the store behind it. Closer is nil
// for stores without resources.
type SessionBundle struct {
	Store   session.Store
	Session *session.Session
	Closer  io.Closer
}

// ProvideSession opens the configured store and restores any saved session
func ProvideSession(cfg *config.SessionConfig, logger *zap.Logger) (*SessionBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("session config is required")
	}

	bundle := &SessionBundle{}
	switch cfg.Backend {
	case config.SessionBackendSQLite:
		store, err := session.NewSQLiteStore(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		bundle.Store, bundle.Closer = store, store
	default:
		bundle.Store = session.NewFileStore(cfg.Path, logger)
	}

	bundle.Session = session.New(bundle.Store, logger)
	if err := bundle.Session.Load(); err != nil {
		if bundle.Closer != nil {
			bundle.Closer.Close()
		}
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	logger.Debug("Session store ready",
		zap.String("backend", cfg.Backend),
		zap.String("path", cfg.Path),
		zap.Bool("authenticated", bundle.Session.Authenticated()))

	return bundle, nil
}

// AuditHandlerName names the handler that logs user actions
const AuditHandlerName = "audit-log"

// auditedEvents are the user actions written to the log
var auditedEvents = []event.Type{
	event.TypeTaskApproved,
	event.TypeApplicationWithdrawn,
	event.TypeFileUploaded,
	event.TypeReportExported,
}

// ProvideDispatcher creates the client event dispatcher with the audit
// logger subscribed to every user action
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	d := dispatcher.NewDispatcher(dispatcher.WithLogger(dispatcher.ZapLogger(logger)))
	audit := auditHandler(logger)
	for _, t := range auditedEvents {
		d.SubscribeNamed(t, AuditHandlerName, audit)
	}
	return d
}

func auditHandler(logger *zap.Logger) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		logger.Info("Client event",
			zap.String("event_type", string(evt.Type)),
			zap.String("event_id", evt.ID),
			zap.Int64("resource_id", evt.ResourceID),
			zap.Any("payload", evt.Payload),
			zap.Time("timestamp", evt.Timestamp))
		return nil
	}
}

// ProvideClient creates the backend API client
func ProvideClient(cfg *config.APIConfig, sess *session.Session, d dispatcher.Dispatcher, logger *zap.Logger, opts ...api.Option) (*api.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("api config is required")
	}
	if sess == nil {
		return nil, fmt.Errorf("session is required")
	}
	return api.NewClient(api.Config{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
	}, sess, d, logger, opts...), nil
}

// ProvideUploader creates the attachment uploader
func ProvideUploader(cfg *config.UploadConfig, client upload.FileClient, d dispatcher.Dispatcher, logger *zap.Logger) *upload.Uploader {
	return upload.NewUploader(client, d, logger, upload.Config{
		MaxSizeMB: cfg.MaxSizeMB,
		Accept:    cfg.Accept,
	})
}

// ProvideExporter creates the report workbook exporter
func ProvideExporter(cfg *config.ReportConfig, d dispatcher.Dispatcher, logger *zap.Logger) *export.ReportExporter {
	return export.NewReportExporter(cfg.ExportDir, d, logger)
}
