package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/segyhp/loanlink/internal/auth"
	"github.com/segyhp/loanlink/internal/config"
	"github.com/segyhp/loanlink/internal/domain"
	"github.com/segyhp/loanlink/internal/notifier"
	"github.com/segyhp/loanlink/internal/repository"
	"github.com/segyhp/loanlink/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type e2eClient struct {
	t      *testing.T
	server *httptest.Server
	tokens map[string]string
}

func setupEndToEnd(t *testing.T) *e2eClient {
	t.Helper()
	log := testLogger()

	store, err := repository.Open(config.DatabaseConfig{
		Driver:      "sqlite3",
		URL:         filepath.Join(t.TempDir(), "e2e.db"),
		BusyTimeout: 5 * time.Second,
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	notify, err := notifier.New(config.NotifierConfig{Transport: "none"}, "http://localhost", nil, nil, log)
	require.NoError(t, err)

	svc := service.NewLoanService(store.Loans(), store.Payments(), store, notify, log, decimal.RequireFromString("0.01"))
	authenticator := auth.NewJWTAuthenticator(config.AuthConfig{JWTSecret: "e2e-secret", TokenTTL: time.Hour}, log)

	router := NewRouter(
		NewLoanHandler(svc, &fakeProofStore{}, 1<<20, log),
		NewHealthHandler(store, nil, time.Second, log),
		authenticator.Middleware,
		log,
	)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	tokens := map[string]string{}
	for _, party := range []string{"alice@example.com", "bob@example.com", "eve@example.com"} {
		token, err := authenticator.IssueToken(party)
		require.NoError(t, err)
		tokens[party] = token
	}

	return &e2eClient{t: t, server: server, tokens: tokens}
}

func (c *e2eClient) call(party, method, path string, body interface{}) (int, envelope) {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.tokens[party])

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestLoanLifecycleEndToEnd(t *testing.T) {
	c := setupEndToEnd(t)

	// Step 1: alice offers bob a loan
	status, env := c.call("alice@example.com", http.MethodPost, "/api/v1/loans", validCreateBody())
	require.Equal(t, http.StatusCreated, status, env.Message)
	assert.Empty(t, env.Warning)

	var created service.MutationResult
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotNil(t, created.Loan)
	assert.Equal(t, domain.LoanStatusPending, created.Loan.Status)
	assert.Equal(t, "bob@example.com", created.Loan.Borrower)
	loanPath := fmt.Sprintf("/api/v1/loans/%d", created.Loan.ID)

	// Step 2: the creator cannot accept their own request
	status, _ = c.call("alice@example.com", http.MethodPost, loanPath+"/accept", nil)
	assert.Equal(t, http.StatusForbidden, status)

	// Step 3: outsiders see nothing
	status, _ = c.call("eve@example.com", http.MethodGet, loanPath, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// Step 4: bob accepts
	status, env = c.call("bob@example.com", http.MethodPost, loanPath+"/accept", nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	var accepted service.MutationResult
	require.NoError(t, json.Unmarshal(env.Data, &accepted))
	assert.Equal(t, domain.LoanStatusActive, accepted.Loan.Status)

	// Step 5: two repayments settle the total
	status, env = c.call("bob@example.com", http.MethodPost, loanPath+"/pay", map[string]interface{}{"amount": "600", "method": "bank transfer"})
	require.Equal(t, http.StatusOK, status, env.Message)
	var first service.PaymentResult
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.True(t, first.NewPaidAmount.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, domain.LoanStatusActive, first.Status)

	status, env = c.call("bob@example.com", http.MethodPost, loanPath+"/pay", map[string]interface{}{"amount": "500"})
	require.Equal(t, http.StatusOK, status, env.Message)
	var second service.PaymentResult
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.True(t, second.NewPaidAmount.Equal(decimal.NewFromInt(1100)))
	assert.Equal(t, domain.LoanStatusCompleted, second.Status)

	// Step 6: the lender's listing shows the settled loan and its history
	status, env = c.call("alice@example.com", http.MethodGet, "/api/v1/loans", nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	var loans []domain.LoanView
	require.NoError(t, json.Unmarshal(env.Data, &loans))
	require.Len(t, loans, 1)
	assert.Equal(t, domain.LoanStatusCompleted, loans[0].Status)
	assert.Equal(t, "lender", loans[0].Role)
	assert.Len(t, loans[0].History, 2)
	assert.True(t, loans[0].Outstanding.IsZero())

	// Step 7: a settled loan cannot be deleted
	status, _ = c.call("alice@example.com", http.MethodDelete, loanPath, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestRejectedLoanClearedEndToEnd(t *testing.T) {
	c := setupEndToEnd(t)

	status, env := c.call("alice@example.com", http.MethodPost, "/api/v1/loans", validCreateBody())
	require.Equal(t, http.StatusCreated, status, env.Message)
	var created service.MutationResult
	require.NoError(t, json.Unmarshal(env.Data, &created))
	loanPath := fmt.Sprintf("/api/v1/loans/%d", created.Loan.ID)

	status, _ = c.call("bob@example.com", http.MethodPost, loanPath+"/reject", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = c.call("bob@example.com", http.MethodPost, loanPath+"/pay", map[string]interface{}{"amount": "10"})
	assert.Equal(t, http.StatusConflict, status)

	status, env = c.call("alice@example.com", http.MethodDelete, loanPath, nil)
	require.Equal(t, http.StatusOK, status, env.Message)

	status, _ = c.call("alice@example.com", http.MethodGet, loanPath, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = c.call("alice@example.com", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
}
