package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/habithub/internal/apperr"
	"github.com/geocoder89/habithub/internal/auth"
	"github.com/geocoder89/habithub/internal/domain/user"
	"github.com/geocoder89/habithub/internal/repo/memory"
	"github.com/geocoder89/habithub/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type authFixture struct {
	svc    *AuthService
	users  *memory.UsersRepo
	tokens *auth.Manager
	rec    *fakeAuthRecorder
}

func newAuthFixture() authFixture {
	users := memory.NewUsersRepo()
	tokens := auth.NewManager(testSecret, time.Hour)
	rec := &fakeAuthRecorder{}
	svc := NewAuthService(users, security.NewHasher(4, 4), tokens, quietLogger()).WithMetrics(rec)

	return authFixture{svc: svc, users: users, tokens: tokens, rec: rec}
}

type fakeAuthRecorder struct {
	mu   sync.Mutex
	seen []string
}

func (f *fakeAuthRecorder) ObserveAuth(op, result string) {
	f.mu.Lock()
	f.seen = append(f.seen, op+":"+result)
	f.mu.Unlock()
}

func TestRegisterThenLogin(t *testing.T) {
	fx := newAuthFixture()
	ctx := context.Background()

	reg, err := fx.svc.Register(ctx, RegisterInput{Name: "Alice", Email: "Alice@X.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, MsgUserCreated, reg.Message)
	assert.Equal(t, "alice@x.com", reg.User.Email)
	assert.NotEmpty(t, reg.User.ID)

	res, err := fx.svc.Login(ctx, "alice@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, MsgLoginSuccess, res.Message)
	assert.Equal(t, reg.User.ID, res.User.ID)

	claims, err := fx.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
	assert.Equal(t, "alice@x.com", claims.Email)
	assert.True(t, claims.IssuedAt.Add(time.Hour).Equal(claims.ExpiresAt.Time))

	assert.Equal(t, []string{"register:ok", "login:ok"}, fx.rec.seen)
}

func TestRegister_StoresHashNotPassword(t *testing.T) {
	fx := newAuthFixture()
	ctx := context.Background()

	_, err := fx.svc.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	u, err := fx.users.FindByEmailWithPassword(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.True(t, security.CheckPassword(u.PasswordHash, "secret1"))
}

func TestRegister_DuplicateEmailVariants(t *testing.T) {
	fx := newAuthFixture()
	ctx := context.Background()

	_, err := fx.svc.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	for _, email := range []string{"a@x.com", "A@X.COM", "  a@x.com  "} {
		_, err := fx.svc.Register(ctx, RegisterInput{Name: "Other", Email: email, Password: "secret2"})
		assert.ErrorIs(t, err, ErrEmailAlreadyExists, "email %q", email)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	}

	assert.Equal(t, 1, fx.users.Count())
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	fx := newAuthFixture()
	ctx := context.Background()

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.svc.Register(ctx, RegisterInput{Name: "Racer", Email: "race@x.com", Password: "secret1"})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrEmailAlreadyExists)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, fx.users.Count())
}

// racyDirectory loses the pre-check race: the lookup misses but the insert
// hits the unique constraint.
type racyDirectory struct {
	*memory.UsersRepo
}

func (racyDirectory) FindByEmail(context.Context, string) (user.User, error) {
	return user.User{}, user.ErrNotFound
}

func (racyDirectory) Create(context.Context, string, string, string) (user.User, error) {
	return user.User{}, user.ErrEmailTaken
}

func TestRegister_UniqueViolationMapsToConflict(t *testing.T) {
	svc := NewAuthService(racyDirectory{memory.NewUsersRepo()}, security.NewHasher(4, 1), auth.NewManager(testSecret, time.Hour), quietLogger())

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Alice", Email: "a@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestRegister_Validation(t *testing.T) {
	fx := newAuthFixture()
	ctx := context.Background()

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{name: "missing_name", in: RegisterInput{Email: "a@x.com", Password: "secret1"}},
		{name: "missing_email", in: RegisterInput{Name: "Alice", Password: "secret1"}},
		{name: "missing_password", in: RegisterInput{Name: "Alice", Email: "a@x.com"}},
		{name: "short_name", in: RegisterInput{Name: "Al", Email: "a@x.com", Password: "secret1"}},
		{name: "long_name", in: RegisterInput{Name: strings.Repeat("a", 51), Email: "a@x.com", Password: "secret1"}},
		{name: "short_password", in: RegisterInput{Name: "Alice", Email: "a@x.com", Password: "12345"}},
		{name: "long_password", in: RegisterInput{Name: "Alice", Email: "a@x.com", Password: strings.Repeat("p", 73)}},
		{name: "bad_email", in: RegisterInput{Name: "Alice", Email: "not-an-email", Password: "secret1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.svc.Register(ctx, tt.in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	assert.Equal(t, 0, fx.users.Count())
}

func TestLogin_Failures(t *testing.T) {
	fx := newAuthFixture()
	ctx := context.Background()

	_, err := fx.svc.Register(ctx, RegisterInput{Name: "Alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = fx.svc.Login(ctx, "nobody@x.com", "secret1")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = fx.svc.Login(ctx, "a@x.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidPassword)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = fx.svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	res, err := fx.svc.Login(ctx, " A@X.COM ", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

type failingIssuer struct{}

func (failingIssuer) Issue(string, string) (string, error) {
	return "", errors.New("signing failed")
}

func TestLogin_IssueFailureIsInternal(t *testing.T) {
	users := memory.NewUsersRepo()
	hasher := security.NewHasher(4, 1)
	ctx := context.Background()

	hash, err := hasher.Hash(ctx, "secret1")
	require.NoError(t, err)
	_, err = users.Create(ctx, "Alice", "a@x.com", hash)
	require.NoError(t, err)

	svc := NewAuthService(users, hasher, failingIssuer{}, quietLogger())
	_, err = svc.Login(ctx, "a@x.com", "secret1")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}
