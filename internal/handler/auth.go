package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/vaccination-booking/internal/middleware"
	"github.com/iliyamo/vaccination-booking/internal/model"
	"github.com/iliyamo/vaccination-booking/internal/service"
)

// AuthHandler serves /auth.
type AuthHandler struct {
	svc *service.AuthService
	log *zap.Logger
}

func NewAuthHandler(svc *service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionResp struct {
	Success        bool        `json:"success"`
	Token          string      `json:"token"`
	TokenExpires   time.Time   `json:"tokenExpires"`
	RefreshToken   string      `json:"refreshToken"`
	RefreshExpires time.Time   `json:"refreshExpires"`
	Data           *model.User `json:"data"`
}

func session(c echo.Context, status int, s *service.Session) error {
	return c.JSON(status, sessionResp{
		Success:        true,
		Token:          s.AccessToken.Token,
		TokenExpires:   s.AccessToken.Exp,
		RefreshToken:   s.RefreshToken.Raw,
		RefreshExpires: s.RefreshToken.Exp,
		Data:           s.User,
	})
}

// Register godoc
//
//	@Summary	Register a user
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		service.RegisterInput	true	"Account"
//	@Success	201		{object}	sessionResp
//	@Failure	400		{object}	envelope
//	@Failure	403		{object}	envelope
//	@Failure	409		{object}	envelope
//	@Router		/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var in service.RegisterInput
	if err := bindBody(c, &in); err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.svc.Register(ctx, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return session(c, http.StatusCreated, s)
}

// Login godoc
//
//	@Summary	Sign in
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		service.LoginInput	true	"Credentials"
//	@Success	200		{object}	sessionResp
//	@Failure	401		{object}	envelope
//	@Router		/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var in service.LoginInput
	if err := bindBody(c, &in); err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.svc.Login(ctx, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return session(c, http.StatusOK, s)
}

// Refresh rotates a refresh token.
//
//	@Summary	Refresh tokens
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		refreshReq	true	"Refresh token"
//	@Success	200		{object}	sessionResp
//	@Failure	401		{object}	envelope
//	@Router		/auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bindBody(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return session(c, http.StatusOK, s)
}

// Logout revokes the refresh token given in the body (POST) or the
// refreshToken query parameter. Without one, a bearer token revokes all of
// the caller's sessions.
//
//	@Summary	Sign out
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		refreshToken	query		string		false	"Refresh token to revoke"
//	@Param		request			body		refreshReq	false	"Refresh token to revoke"
//	@Success	200				{object}	envelope
//	@Failure	401				{object}	envelope
//	@Security	BearerAuth
//	@Router		/auth/logout [get]
//	@Router		/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	raw := c.QueryParam("refreshToken")
	if c.Request().Method == http.MethodPost && c.Request().ContentLength != 0 {
		var req refreshReq
		if err := bindBody(c, &req); err != nil {
			return respondError(c, h.log, err)
		}
		if req.RefreshToken != "" {
			raw = req.RefreshToken
		}
	}
	var who *model.Identity
	if id, found := middleware.IdentityFrom(c); found {
		who = &id
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.svc.Logout(ctx, raw, who); err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, http.StatusOK, struct{}{})
}

// Me godoc
//
//	@Summary	Current user
//	@Tags		auth
//	@Produce	json
//	@Success	200	{object}	envelope{data=model.User}
//	@Failure	401	{object}	envelope
//	@Security	BearerAuth
//	@Router		/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.svc.Me(ctx, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, http.StatusOK, u)
}
