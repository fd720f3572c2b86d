package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/vaccination-booking/internal/apperr"
	"github.com/iliyamo/vaccination-booking/internal/model"
	"github.com/iliyamo/vaccination-booking/internal/repository"
	"github.com/iliyamo/vaccination-booking/internal/utils"
)

func newAuth(allowAdmin bool) *AuthService {
	return NewAuthService(repository.NewMemoryStore(), AuthConfig{
		JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4, AllowAdminSignup: allowAdmin,
	}, zap.NewNop())
}

var reg = RegisterInput{Name: "Alice", Tel: "0812345678", Email: "Alice@Example.com ", Password: "secret1"}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuth(false)
	ctx := context.Background()

	s, err := svc.Register(ctx, reg)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", s.User.Email)
	assert.Equal(t, model.RoleUser, s.User.Role)
	assert.NotEmpty(t, s.RefreshToken.Raw)

	id, err := utils.ParseAccessToken("test-secret", s.AccessToken.Token)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, id.ID)

	_, err = svc.Register(ctx, reg)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong!"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret1"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestRegister_Validation(t *testing.T) {
	svc := newAuth(false)

	_, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "not-an-email", Password: "123"})
	require.True(t, apperr.Is(err, apperr.KindValidation))
	var ae *apperr.AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "must be a valid email", ae.Fields["email"])
	assert.Equal(t, "must be at least 6 characters", ae.Fields["password"])
}

func TestRegister_AdminRole(t *testing.T) {
	in := reg
	in.Role = model.RoleAdmin

	_, err := newAuth(false).Register(context.Background(), in)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	s, err := newAuth(true).Register(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, s.User.Role)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc := newAuth(false)
	ctx := context.Background()
	s, err := svc.Register(ctx, reg)
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, s.RefreshToken.Raw)
	require.NoError(t, err)
	assert.NotEqual(t, s.RefreshToken.Raw, next.RefreshToken.Raw)

	_, err = svc.Refresh(ctx, s.RefreshToken.Raw)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, err = svc.Refresh(ctx, "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestRefreshConcurrentUseSucceedsOnce(t *testing.T) {
	svc := newAuth(false)
	ctx := context.Background()
	s, err := svc.Register(ctx, reg)
	require.NoError(t, err)

	const n = 8
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Refresh(ctx, s.RefreshToken.Raw); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
}

func TestLogout(t *testing.T) {
	svc := newAuth(false)
	ctx := context.Background()
	s1, err := svc.Register(ctx, reg)
	require.NoError(t, err)
	s2, err := svc.Login(ctx, LoginInput{Email: reg.Email, Password: reg.Password})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, s1.RefreshToken.Raw, nil))
	_, err = svc.Refresh(ctx, s1.RefreshToken.Raw)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	caller := model.Identity{ID: s2.User.ID, Role: s2.User.Role}
	require.NoError(t, svc.Logout(ctx, "", &caller))
	_, err = svc.Refresh(ctx, s2.RefreshToken.Raw)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	assert.True(t, apperr.Is(svc.Logout(ctx, "", nil), apperr.KindUnauthorized))
}

func TestMe(t *testing.T) {
	svc := newAuth(false)
	s, err := svc.Register(context.Background(), reg)
	require.NoError(t, err)

	u, err := svc.Me(context.Background(), model.Identity{ID: s.User.ID, Role: model.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)

	_, err = svc.Me(context.Background(), model.Identity{ID: 404})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
