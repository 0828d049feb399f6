package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/segyhp/loanlink/internal/config"
	"github.com/segyhp/loanlink/pkg/response"
	"github.com/segyhp/loanlink/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

type contextKey struct{}

// Claims carries the party identity. Email wins over the subject when both are set.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuthenticator resolves the acting party from an HS256 bearer token.
type JWTAuthenticator struct {
	secret []byte
	ttl    time.Duration
	log    *logrus.Logger
}

func NewJWTAuthenticator(cfg config.AuthConfig, log *logrus.Logger) *JWTAuthenticator {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTAuthenticator{
		secret: []byte(cfg.JWTSecret),
		ttl:    ttl,
		log:    log,
	}
}

// IssueToken signs a token for party.
func (a *JWTAuthenticator) IssueToken(party string) (string, error) {
	party = utils.NormalizeParty(party)
	if party == "" {
		return "", errors.New("party is required")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: party,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   party,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	})
	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// CurrentParty returns the case-folded party named by the request's bearer token.
func (a *JWTAuthenticator) CurrentParty(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", false
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		a.log.WithError(err).Debug("rejected bearer token")
		return "", false
	}

	party := claims.Email
	if party == "" {
		party = claims.Subject
	}
	party = utils.NormalizeParty(party)
	return party, party != ""
}

// Middleware rejects requests without a valid token and stores the party
// on the request context.
func (a *JWTAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		party, ok := a.CurrentParty(r)
		if !ok {
			response.Unauthorized(w, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithParty(r.Context(), party)))
	})
}

func WithParty(ctx context.Context, party string) context.Context {
	return context.WithValue(ctx, contextKey{}, party)
}

// PartyFromContext returns the party stored by Middleware, or "".
func PartyFromContext(ctx context.Context) string {
	party, _ := ctx.Value(contextKey{}).(string)
	return party
}
