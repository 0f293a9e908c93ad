package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"loyalty-ledger-go/internal/ledger"
	"loyalty-ledger-go/internal/models"
	"loyalty-ledger-go/internal/store"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	server *httptest.Server
	auth   *TokenAuthenticator
	store  *store.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st := store.NewMemoryStore(0)
	l, err := ledger.New(st, ledger.CallerAuthenticator{})
	require.NoError(t, err)

	auth, err := NewTokenAuthenticator(models.ServerConfig{HMACSecret: "test-secret", Issuer: "loyalty-test"})
	require.NoError(t, err)

	handler := NewRouter(RouterConfig{
		Service:        NewLedgerService(l, st),
		Authenticator:  auth,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("metrics")) }),
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testServer{server: srv, auth: auth, store: st}
}

func (ts *testServer) token(t *testing.T, subject models.Identity) string {
	t.Helper()
	token, err := ts.auth.IssueToken(subject, time.Minute)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func decodeError(t *testing.T, body []byte) models.ErrorResponse {
	t.Helper()
	var out models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestRouter_FullFlow(t *testing.T) {
	ts := newTestServer(t)
	shop := ts.token(t, "shop")
	cafe := ts.token(t, "cafe")
	alice := ts.token(t, "alice")

	resp, body := ts.do(t, http.MethodPost, "/v1/merchants", shop, models.RegisterMerchantRequest{Merchant: "shop"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var account models.MerchantAccount
	require.NoError(t, json.Unmarshal(body, &account))
	require.Equal(t, models.MerchantAccount{Address: "shop", IsActive: true}, account)

	resp, _ = ts.do(t, http.MethodPost, "/v1/merchants", cafe, models.RegisterMerchantRequest{Merchant: "cafe"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = ts.do(t, http.MethodPost, "/v1/merchants", shop, models.RegisterMerchantRequest{Merchant: "shop"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "already_registered", decodeError(t, body).Code)

	resp, body = ts.do(t, http.MethodPost, "/v1/points/issue", shop, models.IssuePointsRequest{Merchant: "shop", User: "alice", Points: 100})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.JSONEq(t, `{"user":"alice","points":100}`, string(body))

	resp, body = ts.do(t, http.MethodPost, "/v1/points/redeem", alice, models.RedeemPointsRequest{User: "alice", Merchant: "cafe", Points: 40})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.JSONEq(t, `{"user":"alice","points":60}`, string(body))

	resp, body = ts.do(t, http.MethodPost, "/v1/points/redeem", alice, models.RedeemPointsRequest{User: "alice", Merchant: "cafe", Points: 1000})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "insufficient_points", decodeError(t, body).Code)

	resp, body = ts.do(t, http.MethodGet, "/v1/balances/alice", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"user":"alice","points":60}`, string(body))

	resp, body = ts.do(t, http.MethodGet, "/v1/supply", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"total_supply":60}`, string(body))

	resp, body = ts.do(t, http.MethodGet, "/v1/merchants/shop", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"address":"shop","total_points_issued":100,"is_active":true}`, string(body))
}

func TestRouter_Errors(t *testing.T) {
	ts := newTestServer(t)
	shop := ts.token(t, "shop")
	ghost := ts.token(t, "ghost")

	resp, _ := ts.do(t, http.MethodPost, "/v1/merchants", "", models.RegisterMerchantRequest{Merchant: "shop"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/v1/merchants", "not-a-jwt", models.RegisterMerchantRequest{Merchant: "shop"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := ts.do(t, http.MethodPost, "/v1/merchants", shop, models.RegisterMerchantRequest{Merchant: "other"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "authentication_failed", decodeError(t, body).Code)

	resp, body = ts.do(t, http.MethodPost, "/v1/points/issue", ghost, models.IssuePointsRequest{Merchant: "ghost", User: "alice", Points: 10})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "merchant_not_registered", decodeError(t, body).Code)

	resp, _ = ts.do(t, http.MethodGet, "/v1/merchants/ghost", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = ts.do(t, http.MethodPost, "/v1/points/issue", shop, map[string]any{"merchant": "shop", "user": "alice", "points": -5})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_request", decodeError(t, body).Code)

	resp, _ = ts.do(t, http.MethodPost, "/v1/points/issue", shop, map[string]any{"merchant": "shop", "user": "alice", "points": 1, "rate": 2})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = ts.do(t, http.MethodGet, "/v1/balances/nobody", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"user":"nobody","points":0}`, string(body))
	require.Equal(t, 0, ts.store.Len())
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", string(body))

	resp, body = ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "metrics", string(body))
}

func TestRouter_ConcurrentIssuesConserveSupply(t *testing.T) {
	ts := newTestServer(t)
	shop := ts.token(t, "shop")

	resp, _ := ts.do(t, http.MethodPost, "/v1/merchants", shop, models.RegisterMerchantRequest{Merchant: "shop"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := models.IssuePointsRequest{Merchant: "shop", User: models.Identity(fmt.Sprintf("user-%d", i%4)), Points: 5}
			data, _ := json.Marshal(req)
			httpReq, _ := http.NewRequest(http.MethodPost, ts.server.URL+"/v1/points/issue", bytes.NewReader(data))
			httpReq.Header.Set("Authorization", "Bearer "+shop)
			if r, err := ts.server.Client().Do(httpReq); err == nil {
				r.Body.Close()
			}
		}(i)
	}
	wg.Wait()

	_, body := ts.do(t, http.MethodGet, "/v1/supply", "", nil)
	require.JSONEq(t, `{"total_supply":100}`, string(body))
}

func TestRouter_ConcurrentIssuesReportOwnBalance(t *testing.T) {
	ts := newTestServer(t)
	shop := ts.token(t, "shop")

	resp, _ := ts.do(t, http.MethodPost, "/v1/merchants", shop, models.RegisterMerchantRequest{Merchant: "shop"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	const n = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		balances []int
		failures []string
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, _ := json.Marshal(models.IssuePointsRequest{Merchant: "shop", User: "alice", Points: 1})
			httpReq, _ := http.NewRequest(http.MethodPost, ts.server.URL+"/v1/points/issue", bytes.NewReader(data))
			httpReq.Header.Set("Authorization", "Bearer "+shop)
			r, err := ts.server.Client().Do(httpReq)
			if err != nil {
				mu.Lock()
				failures = append(failures, err.Error())
				mu.Unlock()
				return
			}
			defer r.Body.Close()
			var balance models.BalanceResponse
			err = json.NewDecoder(r.Body).Decode(&balance)
			mu.Lock()
			defer mu.Unlock()
			if err != nil || r.StatusCode != http.StatusOK {
				failures = append(failures, fmt.Sprintf("status %d: %v", r.StatusCode, err))
				return
			}
			balances = append(balances, int(balance.Points))
		}()
	}
	wg.Wait()
	require.Empty(t, failures)

	// Each response carries the balance its own credit produced.
	sort.Ints(balances)
	want := make([]int, n)
	for i := range want {
		want[i] = i + 1
	}
	require.Equal(t, want, balances)
}

func TestLedgerService_ReturnsPostOperationBalance(t *testing.T) {
	st := store.NewMemoryStore(0)
	l, err := ledger.New(st, ledger.CallerAuthenticator{})
	require.NoError(t, err)
	svc := NewLedgerService(l, st)

	shop := models.WithCaller(context.Background(), "shop")
	alice := models.WithCaller(context.Background(), "alice")
	require.NoError(t, svc.RegisterMerchant(shop, "shop"))

	points, err := svc.IssuePoints(shop, "shop", "alice", 100)
	require.NoError(t, err)
	require.Equal(t, uint64(100), points)

	points, err = svc.IssuePoints(shop, "shop", "alice", 50)
	require.NoError(t, err)
	require.Equal(t, uint64(150), points)

	points, err = svc.RedeemPoints(alice, "alice", "shop", 30)
	require.NoError(t, err)
	require.Equal(t, uint64(120), points)

	points, err = svc.RedeemPoints(alice, "alice", "shop", 1000)
	require.ErrorIs(t, err, ledger.ErrInsufficientPoints)
	require.Zero(t, points)
}

func TestTokenAuthenticator(t *testing.T) {
	_, err := NewTokenAuthenticator(models.ServerConfig{})
	require.Error(t, err)

	auth, err := NewTokenAuthenticator(models.ServerConfig{HMACSecret: "secret", Issuer: "loyalty"})
	require.NoError(t, err)

	token, err := auth.IssueToken("alice", time.Minute)
	require.NoError(t, err)
	caller, err := auth.Verify(token)
	require.NoError(t, err)
	require.Equal(t, models.Identity("alice"), caller)

	_, err = auth.IssueToken(" ", time.Minute)
	require.Error(t, err)

	expired, err := auth.IssueToken("alice", -time.Hour)
	require.NoError(t, err)
	_, err = auth.Verify(expired)
	require.Error(t, err)

	other, err := NewTokenAuthenticator(models.ServerConfig{HMACSecret: "other", Issuer: "loyalty"})
	require.NoError(t, err)
	forged, err := other.IssueToken("alice", time.Minute)
	require.NoError(t, err)
	_, err = auth.Verify(forged)
	require.Error(t, err)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = auth.Verify(wrongIssuer)
	require.Error(t, err)

	require.Equal(t, "abc", extractBearer("Bearer abc"))
	require.Equal(t, "abc", extractBearer("bearer  abc "))
	require.Empty(t, extractBearer("Basic abc"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{ledger.ErrAuthenticationFailed, http.StatusForbidden},
		{fmt.Errorf("%w: x", ledger.ErrMerchantNotRegistered), http.StatusNotFound},
		{ledger.ErrAlreadyRegistered, http.StatusConflict},
		{ledger.ErrMerchantInactive, http.StatusConflict},
		{ledger.ErrNoBalance, http.StatusUnprocessableEntity},
		{ledger.ErrInsufficientPoints, http.StatusUnprocessableEntity},
		{ledger.ErrOverflow, http.StatusUnprocessableEntity},
		{ledger.ErrInvalidIdentity, http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, code := statusFor(tt.err)
		require.Equal(t, tt.status, status, tt.err.Error())
		require.False(t, strings.Contains(code, " "))
	}
}
