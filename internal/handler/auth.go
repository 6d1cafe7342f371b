package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/notes-backend/internal/logging"
	"github.com/iliyamo/notes-backend/internal/middleware"
	"github.com/iliyamo/notes-backend/internal/service"
)

// AuthHandler serves the login, registration and current-user endpoints.
type AuthHandler struct {
	Accounts *service.AccountService
	Timeout  time.Duration
	Log      *zap.Logger
}

func NewAuthHandler(accounts *service.AccountService, timeout time.Duration, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{Accounts: accounts, Timeout: timeout, Log: log}
}

// ----- DTOs -----

type loginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type registerReq struct {
	Username string  `json:"username" validate:"required,max=64"`
	Email    string  `json:"email" validate:"required,email,max=255"`
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
	Password string  `json:"password" validate:"required,max=72"`
}

// bcrypt only accepts this many bytes of input.
const maxPasswordBytes = 72

type tokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Token exchanges form-encoded credentials for a bearer token.
func (h *AuthHandler) Token(c echo.Context) error {
	var req loginForm
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	tok, err := h.Accounts.Login(ctx, req.Username, req.Password)
	if err != nil {
		logging.FromContext(ctx, h.Log).Info("login rejected",
			zap.String("username", req.Username), zap.String("reason", service.Reason(err)))
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, tokenResp{AccessToken: tok.AccessToken, TokenType: tok.TokenType})
}

// Register creates an account and returns it without the password hash.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if len(req.Password) > maxPasswordBytes {
		return passwordTooLong(c)
	}
	req.Email = strings.TrimSpace(req.Email)

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	u, err := h.Accounts.Register(ctx, service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u.Public())
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return middleware.Challenge(c, middleware.MsgCouldNotValidate)
	}
	return c.JSON(http.StatusOK, u.Public())
}
