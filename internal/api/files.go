package api

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
)

// UploadFile sends one file as multipart field "file". Size checks are the
// caller's job; see package upload.
func (c *Client) UploadFile(ctx context.Context, name string, content io.Reader) (*entity.UploadFileResult, error) {
	if name == "" {
		return nil, NewValidationError("file", "上传文件不能为空")
	}
	res, err := postMultipart[entity.UploadFileResult](ctx, c, "/files/upload", filepath.Base(name), content)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("failed to upload %s: %w", name, ErrEmptyResponse)
	}
	return res, nil
}
