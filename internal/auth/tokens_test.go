package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versebook/versebook/internal/domain"
)

func newTestManager() *TokenManager {
	return NewTokenManager("test-secret", time.Minute, time.Hour)
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	tm := newTestManager()

	token, err := tm.IssueAccessToken("user-1")
	require.NoError(t, err)

	claims, err := tm.Verify(token, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
}

func TestVerifyRejectsWrongType(t *testing.T) {
	tm := newTestManager()

	access, err := tm.IssueAccessToken("user-1")
	require.NoError(t, err)
	refresh, err := tm.IssueRefreshToken("user-1")
	require.NoError(t, err)

	_, err = tm.Verify(access, TokenTypeRefresh)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = tm.Verify(refresh, TokenTypeAccess)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tm := newTestManager()
	other := NewTokenManager("other-secret", time.Minute, time.Hour)

	token, err := other.IssueAccessToken("user-1")
	require.NoError(t, err)

	_, err = tm.Verify(token, TokenTypeAccess)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret", -time.Minute, time.Hour)

	token, err := tm.IssueAccessToken("user-1")
	require.NoError(t, err)

	_, err = tm.Verify(token, TokenTypeAccess)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	tm := newTestManager()

	_, err := tm.Verify("not.a.token", TokenTypeAccess)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRequireMiddleware(t *testing.T) {
	tm := newTestManager()

	var seen domain.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Require(tm)(next)

	t.Run("no token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := tm.IssueAccessToken("user-1")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, seen.Authenticated)
		assert.Equal(t, "user-1", seen.ID)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		token, err := tm.IssueRefreshToken("user-1")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestOptionalMiddleware(t *testing.T) {
	tm := newTestManager()

	var seen domain.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Optional(tm)(next)

	t.Run("anonymous without token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, seen.Authenticated)
		assert.Equal(t, domain.AnonymousActor.ID, seen.ID)
	})

	t.Run("attributed with token", func(t *testing.T) {
		token, err := tm.IssueAccessToken("user-1")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, seen.Authenticated)
	})
}
