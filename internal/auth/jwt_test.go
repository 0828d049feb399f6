package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/segyhp/loanlink/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthenticator() *JWTAuthenticator {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewJWTAuthenticator(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour}, log)
}

func requestWithToken(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/loans", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestCurrentParty_IssuedToken(t *testing.T) {
	a := newAuthenticator()
	token, err := a.IssueToken("Alice@Example.com")
	require.NoError(t, err)

	party, ok := a.CurrentParty(requestWithToken(token))

	assert.True(t, ok)
	assert.Equal(t, "alice@example.com", party)
}

func TestCurrentParty_SubjectFallback(t *testing.T) {
	a := newAuthenticator()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "BOB@example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	party, ok := a.CurrentParty(requestWithToken(token))

	assert.True(t, ok)
	assert.Equal(t, "bob@example.com", party)
}

func TestCurrentParty_Rejected(t *testing.T) {
	a := newAuthenticator()

	wrongSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Email: "alice@example.com"}).
		SignedString([]byte("other-secret"))
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: "alice@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noParty, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing header", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong secret", token: wrongSecret},
		{name: "expired", token: expired},
		{name: "no party claim", token: noParty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := a.CurrentParty(requestWithToken(tt.token))
			assert.False(t, ok)
		})
	}
}

func TestMiddleware(t *testing.T) {
	a := newAuthenticator()
	var seen string
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PartyFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithToken(""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, seen)

	token, err := a.IssueToken("carol@example.com")
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithToken(token))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "carol@example.com", seen)
}

func TestIssueToken_RequiresParty(t *testing.T) {
	_, err := newAuthenticator().IssueToken("  ")
	assert.Error(t, err)
}
