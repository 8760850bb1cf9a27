// Package upload sends single attachments to the backend after checking
// them locally. Oversized or disallowed files never reach the network.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/api"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/application/dispatcher"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/event"
)

const (
	DefaultMaxSizeMB = 10
	DefaultAccept    = "image/*,.pdf"

	// DefaultErrorMessage is shown when a failed upload carries no server message
	DefaultErrorMessage = "上传失败，请稍后重试"

	sniffLen = 3072
)

var (
	ErrFileTooLarge  = errors.New("file too large")
	ErrFileType      = errors.New("file type not accepted")
	ErrUploadPending = errors.New("another upload is in progress")
)

// FileClient is the backend call the uploader delegates to
type FileClient interface {
	UploadFile(ctx context.Context, name string, content io.Reader) (*entity.UploadFileResult, error)
}

// Config limits what may be uploaded
type Config struct {
	MaxSizeMB int
	Accept    string // comma separated, like an HTML accept attribute
}

// Uploader checks and uploads one file at a time
type Uploader struct {
	client     FileClient
	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger
	maxSizeMB  int
	accept     []string

	mu        sync.Mutex
	uploading bool
	lastErr   string
}

// NewUploader creates an uploader; zero config values take the defaults.
// The dispatcher may be nil.
func NewUploader(client FileClient, d dispatcher.Dispatcher, logger *zap.Logger, cfg Config) *Uploader {
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = DefaultMaxSizeMB
	}
	if strings.TrimSpace(cfg.Accept) == "" {
		cfg.Accept = DefaultAccept
	}
	return &Uploader{
		client:     client,
		dispatcher: d,
		logger:     logger,
		maxSizeMB:  cfg.MaxSizeMB,
		accept:     parseAccept(cfg.Accept),
	}
}

// MaxBytes is the largest accepted file size
func (u *Uploader) MaxBytes() int64 {
	return int64(u.maxSizeMB) * 1024 * 1024
}

// Hint describes the limits for display
func (u *Uploader) Hint() string {
	accept := strings.ReplaceAll(strings.Join(u.accept, ","), "image/*", "图片")
	return fmt.Sprintf("支持 %s，单文件不超过 %dMB", accept, u.maxSizeMB)
}

// LastError is the message of the most recent failed upload
func (u *Uploader) LastError() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastErr
}

// Check validates size and the file name's type without reading content
func (u *Uploader) Check(name string, size int64) error {
	if err := u.checkSize(size); err != nil {
		return err
	}
	if !u.accepts(name) {
		return typeError(name)
	}
	return nil
}

func (u *Uploader) checkSize(size int64) error {
	if size > u.MaxBytes() {
		return &api.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("文件大小不能超过 %dMB", u.maxSizeMB),
			Err:     ErrFileTooLarge,
		}
	}
	return nil
}

func typeError(name string) error {
	return &api.ValidationError{
		Field:   "file",
		Message: fmt.Sprintf("不支持的文件类型: %s", filepath.Base(name)),
		Err:     ErrFileType,
	}
}

// Upload checks the file and sends it. size is the declared length of
// content; content longer than the limit fails the upload whatever was
// declared. A name whose extension is not accepted is still allowed when
// the content itself is of an accepted type.
func (u *Uploader) Upload(ctx context.Context, name string, size int64, content io.Reader) (*entity.UploadFileResult, error) {
	if err := u.checkSize(size); err != nil {
		u.setError(err.Error())
		return nil, err
	}
	limited := &limitReader{r: content, remaining: u.MaxBytes(), tooLarge: u.checkSize(u.MaxBytes() + 1)}
	content = limited
	if !u.accepts(name) {
		detected, body, err := sniff(content)
		if err != nil {
			return nil, err
		}
		if !u.acceptsType(detected) {
			err := typeError(name)
			u.setError(err.Error())
			return nil, err
		}
		u.logger.Debug("Accepted file by content", zap.String("file_name", name), zap.String("mime_type", detected))
		content = body
	}

	u.mu.Lock()
	if u.uploading {
		u.mu.Unlock()
		return nil, ErrUploadPending
	}
	u.uploading = true
	u.lastErr = ""
	u.mu.Unlock()

	defer func() {
		u.mu.Lock()
		u.uploading = false
		u.mu.Unlock()
	}()

	result, err := u.client.UploadFile(ctx, name, content)
	if limited.exceeded.Load() {
		u.setError(limited.tooLarge.Error())
		u.logger.Warn("Upload content exceeds limit",
			zap.String("file_name", name),
			zap.Int64("declared_size", size))
		return nil, limited.tooLarge
	}
	if err != nil {
		if !errors.Is(err, api.ErrAuthExpired) {
			u.setError(api.Message(err, DefaultErrorMessage))
		}
		u.logger.Warn("Upload failed", zap.String("file_name", name), zap.Error(err))
		return nil, err
	}

	u.logger.Info("File uploaded",
		zap.String("file_name", result.FileName),
		zap.Int64("file_size", result.FileSize))

	if u.dispatcher != nil {
		u.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeFileUploaded, 0, map[string]interface{}{
			"file_name": result.FileName,
			"file_url":  result.FileURL,
			"file_size": result.FileSize,
		}))
	}
	return result, nil
}

// limitReader fails with tooLarge once more than remaining bytes are read
type limitReader struct {
	r         io.Reader
	remaining int64
	tooLarge  error
	exceeded  atomic.Bool
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.exceeded.Load() {
		return 0, l.tooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded.Store(true)
		return n + int(l.remaining), l.tooLarge
	}
	return n, err
}

// UploadPath uploads a local file. The size limit is checked before the
// file is opened.
func (u *Uploader) UploadPath(ctx context.Context, path string) (*entity.UploadFileResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, &api.ValidationError{Field: "file", Message: "上传文件不能为空"}
	}
	if err := u.checkSize(info.Size()); err != nil {
		u.setError(err.Error())
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return u.Upload(ctx, filepath.Base(path), info.Size(), f)
}

func (u *Uploader) setError(msg string) {
	u.mu.Lock()
	u.lastErr = msg
	u.mu.Unlock()
}

// accepts matches name against extension entries (".pdf") and, through
// the extension's MIME type, against MIME entries ("image/*")
func (u *Uploader) accepts(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, a := range u.accept {
		if strings.HasPrefix(a, ".") && ext == a {
			return true
		}
	}
	mimeType, _, _ := mime.ParseMediaType(mime.TypeByExtension(ext))
	return u.acceptsType(mimeType)
}

// acceptsType matches a MIME type against the MIME entries
func (u *Uploader) acceptsType(mimeType string) bool {
	if mimeType == "" {
		return false
	}
	for _, a := range u.accept {
		switch {
		case strings.HasPrefix(a, "."):
		case strings.HasSuffix(a, "/*"):
			if strings.HasPrefix(mimeType, strings.TrimSuffix(a, "*")) {
				return true
			}
		case mimeType == a:
			return true
		}
	}
	return false
}

// sniff detects the MIME type from the start of content and returns a
// reader that still yields the whole content
func sniff(content io.Reader) (string, io.Reader, error) {
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(content, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("failed to read file: %w", err)
	}
	header = header[:n]

	mimeType, _, _ := mime.ParseMediaType(mimetype.Detect(header).String())
	return mimeType, io.MultiReader(bytes.NewReader(header), content), nil
}

func parseAccept(accept string) []string {
	var out []string
	for _, part := range strings.Split(accept, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Slot holds the attachment of one form field. Removing it is purely
// local; nothing is deleted on the server.
type Slot struct {
	mu      sync.Mutex
	current *entity.UploadFileResult
}

// Set replaces the held attachment
func (s *Slot) Set(res *entity.UploadFileResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = res
}

// Current returns the held attachment, nil when empty
func (s *Slot) Current() *entity.UploadFileResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// URL is the held attachment's URL, empty when none
func (s *Slot) URL() string {
	if cur := s.Current(); cur != nil {
		return cur.FileURL
	}
	return ""
}

// Remove drops the held attachment
func (s *Slot) Remove() {
	s.Set(nil)
}
