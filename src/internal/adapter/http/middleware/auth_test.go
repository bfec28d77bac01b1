package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("test-signing-key")

func serve(t *testing.T, header string) (*httptest.ResponseRecorder, domain.Actor) {
	t.Helper()
	var seen domain.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		require.True(t, ok)
		seen = actor
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	BearerAuth(testKey, "core-banking-engine")(next).ServeHTTP(rr, req)
	return rr, seen
}

func TestBearerAuthAllowsValidToken(t *testing.T) {
	token, err := IssueToken(testKey, "core-banking-engine", domain.Actor{ID: "emp-1", Role: domain.RoleEmployee}, time.Hour, time.Now())
	require.NoError(t, err)

	rr, actor := serve(t, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.Actor{ID: "emp-1", Role: domain.RoleEmployee}, actor)
}

func TestBearerAuthRejectsBadTokens(t *testing.T) {
	actor := domain.Actor{ID: "cust-1", Role: domain.RoleCustomer}

	expired, err := IssueToken(testKey, "core-banking-engine", actor, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	wrongKey, err := IssueToken([]byte("other-key"), "core-banking-engine", actor, time.Hour, time.Now())
	require.NoError(t, err)
	wrongIssuer, err := IssueToken(testKey, "someone-else", actor, time.Hour, time.Now())
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "core-banking-engine", Subject: "cust-1"},
		Role:             "CUSTOMER",
	}).SignedString(testKey)
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "core-banking-engine",
			Subject:   "cust-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "ROOT",
	}).SignedString(testKey)
	require.NoError(t, err)

	cases := map[string]string{
		"missing":      "",
		"basic scheme": "Basic Z3JleTprZXk=",
		"garbage":      "Bearer not-a-token",
		"expired":      "Bearer " + expired,
		"wrong key":    "Bearer " + wrongKey,
		"wrong issuer": "Bearer " + wrongIssuer,
		"no expiry":    "Bearer " + noExpiry,
		"unknown role": "Bearer " + badRole,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rr, _ := serve(t, header)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestBearerAuthRequiresSigningKey(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rr := httptest.NewRecorder()
	BearerAuth(nil, "core-banking-engine")(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestIssueTokenRejectsInvalidActor(t *testing.T) {
	_, err := IssueToken(testKey, "core-banking-engine", domain.Actor{Role: domain.RoleAdmin}, time.Hour, time.Now())
	assert.Error(t, err)
}
