package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/vaccination-booking/internal/apperr"
	"github.com/iliyamo/vaccination-booking/internal/model"
	"github.com/iliyamo/vaccination-booking/internal/repository"
	"github.com/iliyamo/vaccination-booking/internal/utils"
)

// AuthConfig carries the token and hashing settings.
type AuthConfig struct {
	JWTSecret        string
	AccessTTLMin     int
	RefreshTTLDays   int
	BcryptCost       int
	AllowAdminSignup bool
}

// RegisterInput is the sign-up payload.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Tel      string `json:"tel" validate:"omitempty,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

// LoginInput is the sign-in payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is what a successful sign-in returns.
type Session struct {
	User         *model.User
	AccessToken  utils.AccessToken
	RefreshToken utils.RefreshToken
}

// AuthService registers users and issues access and refresh tokens.
type AuthService struct {
	store repository.Store
	cfg   AuthConfig
	log   *zap.Logger
}

func NewAuthService(store repository.Store, cfg AuthConfig, log *zap.Logger) *AuthService {
	return &AuthService{store: store, cfg: cfg, log: log.Named("auth")}
}

// Register creates an account and signs it in. The admin role is only
// granted when admin sign-up is enabled.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	role := model.RoleUser
	if in.Role == model.RoleAdmin {
		if !s.cfg.AllowAdminSignup {
			return nil, apperr.Forbidden("admin sign-up is disabled")
		}
		role = model.RoleAdmin
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	u := &model.User{Name: in.Name, Tel: in.Tel, Email: in.Email, Role: role, PasswordHash: hash}
	if err := s.store.Users().Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("email %s is already registered", in.Email)
		}
		return nil, apperr.Internal("create user", err)
	}
	s.log.Info("user registered", zap.Uint64("user_id", u.ID), zap.String("role", u.Role))
	return s.issue(ctx, u)
}

// Login verifies credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	u, err := s.store.Users().GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, apperr.Internal("load user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, in.Password) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	return s.issue(ctx, u)
}

// Refresh exchanges a live refresh token for a new pair. The old refresh
// token is revoked.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperr.Validation("refreshToken is required")
	}
	hash := utils.HashRefreshRaw(raw)
	userID, err := s.store.Tokens().ConsumeRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Unauthorized("invalid refresh token")
		}
		return nil, apperr.Internal("consume refresh token", err)
	}
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Unauthorized("invalid refresh token")
		}
		return nil, apperr.Internal("load user", err)
	}
	return s.issue(ctx, u)
}

// Logout revokes raw when given, otherwise every refresh token of the
// caller. One of the two is required.
func (s *AuthService) Logout(ctx context.Context, raw string, caller *model.Identity) error {
	raw = strings.TrimSpace(raw)
	switch {
	case raw != "":
		if err := s.store.Tokens().RevokeByHash(ctx, utils.HashRefreshRaw(raw)); err != nil {
			return apperr.Internal("revoke refresh token", err)
		}
	case caller != nil:
		if err := s.store.Tokens().RevokeAllForUser(ctx, caller.ID); err != nil {
			return apperr.Internal("revoke refresh tokens", err)
		}
	default:
		return apperr.Unauthorized("refreshToken or bearer token required")
	}
	return nil
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, caller model.Identity) (*model.User, error) {
	u, err := s.store.Users().GetByID(ctx, caller.ID)
	if err != nil {
		return nil, storeError(err, "user", caller.ID)
	}
	return u, nil
}

func (s *AuthService) issue(ctx context.Context, u *model.User) (*Session, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, u.Role, s.cfg.AccessTTLMin)
	if err != nil {
		return nil, apperr.Internal("issue access token", err)
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return nil, apperr.Internal("issue refresh token", err)
	}
	if err := s.store.Tokens().StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, apperr.Internal("store refresh token", err)
	}
	return &Session{User: u, AccessToken: access, RefreshToken: refresh}, nil
}
