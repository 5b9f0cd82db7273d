package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/versebook/versebook/internal/auth"
	cachemem "github.com/versebook/versebook/internal/cache/memory"
	"github.com/versebook/versebook/internal/domain"
	"github.com/versebook/versebook/internal/repository/memory"
)

func newAuthService(t *testing.T) (*AuthService, *memory.Store) {
	t.Helper()

	store := memory.New()
	cache := cachemem.NewCache()
	t.Cleanup(func() { cache.Close() })

	tokens := auth.NewTokenManager("test-secret", time.Minute, time.Hour)
	svc := NewAuthService(store, cache, tokens, bcrypt.MinCost, zerolog.Nop())
	return svc, store
}

func registration(email string) domain.Document {
	return domain.Document{
		"name":     "Ada Lovelace",
		"age":      float64(36),
		"contact":  "9876543210",
		"city":     "London",
		"email":    email,
		"password": "s3cret",
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, store := newAuthService(t)

	user, err := svc.Register(ctx, registration("ada@example.com"))
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "Ada Lovelace", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)

	// The stored record carries a hash, never the clear password.
	doc, err := store.Get(ctx, svc.def.Collection, user.ID)
	require.NoError(t, err)
	assert.NotContains(t, doc, "password")
	hash := doc.String(domain.FieldPasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
	assert.Equal(t, domain.SelfActor.ID, doc.String(domain.FieldCreatedBy))
}

func TestRegisterRequiresPassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	payload := registration("ada@example.com")
	delete(payload, "password")

	_, err := svc.Register(ctx, payload)
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "password", vErr.Field)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	_, err := svc.Register(ctx, registration("ada@example.com"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registration("ada@example.com"))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	_, err := svc.Register(ctx, registration("ada@example.com"))
	require.NoError(t, err)

	result, err := svc.Login(ctx, "ada@example.com", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "ada@example.com", result.User.Email)
}

func TestLoginWrongPassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	_, err := svc.Register(ctx, registration("ada@example.com"))
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLoginUnknownEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	_, err := svc.Login(ctx, "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoginIgnoresInactiveUsers(t *testing.T) {
	ctx := context.Background()
	svc, store := newAuthService(t)

	user, err := svc.Register(ctx, registration("ada@example.com"))
	require.NoError(t, err)

	err = store.Apply(ctx, svc.def.Collection, user.ID, domain.Document{domain.FieldIsActive: false})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ada@example.com", "s3cret")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRefreshRotatesTokens(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	_, err := svc.Register(ctx, registration("ada@example.com"))
	require.NoError(t, err)
	login, err := svc.Login(ctx, "ada@example.com", "s3cret")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, login.User.ID, refreshed.User.ID)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	_, err := svc.Register(ctx, registration("ada@example.com"))
	require.NoError(t, err)
	login, err := svc.Login(ctx, "ada@example.com", "s3cret")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, login.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	user, err := svc.Register(ctx, registration("ada@example.com"))
	require.NoError(t, err)

	// A well-formed refresh token that was never recorded in the allow-list.
	rogue := auth.NewTokenManager("test-secret", time.Minute, time.Hour)
	token, err := rogue.IssueRefreshToken(user.ID)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	_, err := svc.Register(ctx, registration("ada@example.com"))
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, "ada@example.com", "n3w-pass"))

	_, err = svc.Login(ctx, "ada@example.com", "s3cret")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Login(ctx, "ada@example.com", "n3w-pass")
	assert.NoError(t, err)
}

func TestResetPasswordInvalidatesRecordCache(t *testing.T) {
	ctx := context.Background()

	store := memory.New()
	cache := cachemem.NewCache()
	t.Cleanup(func() { cache.Close() })

	tokens := auth.NewTokenManager("test-secret", time.Minute, time.Hour)
	authSvc := NewAuthService(store, cache, tokens, bcrypt.MinCost, zerolog.Nop())
	users := NewLifecycleService(store, cache, UserDefinition(), time.Hour, zerolog.Nop())

	registered, err := authSvc.Register(ctx, registration("ada@example.com"))
	require.NoError(t, err)

	// Prime the read-through cache with the pre-reset record.
	cached, err := users.Get(ctx, registered.ID)
	require.NoError(t, err)
	oldHash := cached.String(domain.FieldPasswordHash)
	require.NotEmpty(t, oldHash)

	require.NoError(t, authSvc.ResetPassword(ctx, "ada@example.com", "n3w-pass"))

	// The lifecycle read must see the reset, not the cached copy.
	fresh, err := users.Get(ctx, registered.ID)
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, fresh.String(domain.FieldPasswordHash))
	assert.NoError(t, bcrypt.CompareHashAndPassword(
		[]byte(fresh.String(domain.FieldPasswordHash)), []byte("n3w-pass")))

	stored, err := store.Get(ctx, users.Definition().Collection, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.String(domain.FieldUpdatedAt), fresh.String(domain.FieldUpdatedAt))
}

func TestResetPasswordUnknownEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)

	err := svc.ResetPassword(ctx, "nobody@example.com", "n3w-pass")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
