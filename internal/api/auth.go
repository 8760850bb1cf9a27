package api

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
)

type loginRequest struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

var loginMessages = map[string]string{
	"username": "请输入用户名",
	"password": "请输入密码",
}

// Login authenticates and stores token and user in the session
func (c *Client) Login(ctx context.Context, username, password string) (*entity.LoginResult, error) {
	req := loginRequest{Username: strings.TrimSpace(username), Password: password}
	if err := validateStruct(req, loginMessages); err != nil {
		return nil, err
	}

	result, err := post[entity.LoginResult](ctx, c, "/auth/login", req)
	if err != nil {
		return nil, err
	}
	if result == nil || result.Token == "" {
		return nil, fmt.Errorf("failed to sign in: %w", ErrEmptyResponse)
	}

	user := result.UserInfo
	if err := c.session.Set(result.Token, &user); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	c.logger.Info("Signed in", zap.String("username", user.Username), zap.Int64("user_id", user.UserID))
	return result, nil
}

// Logout drops the local session; the backend keeps no server-side state
func (c *Client) Logout(ctx context.Context) error {
	return c.session.Clear()
}
