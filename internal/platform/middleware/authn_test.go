// Copyright (c) 2026 IP Platform. All rights reserved.

package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipplatform/backend/internal/platform/ctxutil"
	"github.com/ipplatform/backend/internal/platform/middleware"
	"github.com/ipplatform/backend/internal/platform/sec"
)

// fakeVerifier returns a canned result for every token.
type fakeVerifier struct {
	claims *sec.AuthClaims
	err    error
}

func (verifier *fakeVerifier) VerifyToken(_ string, _ sec.TokenType) (*sec.AuthClaims, error) {
	return verifier.claims, verifier.err
}

/*
TestAuthenticate_ErrorCodes verifies that clients can tell an expired token
apart from a malformed one by the machine-readable error code.
*/
func TestAuthenticate_ErrorCodes(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		verifyErr  error
		wantStatus int
		wantCode   string
	}{
		{"expired_token", "Bearer some.jwt.token", sec.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"malformed_token", "Bearer garbage", sec.ErrTokenMalformed, http.StatusUnauthorized, "TOKEN_INVALID"},
		{"wrong_token_type", "Bearer refresh.jwt", sec.ErrTokenWrongType, http.StatusUnauthorized, "TOKEN_INVALID"},
		{"bad_scheme", "Basic dXNlcjpwYXNz", nil, http.StatusUnauthorized, "TOKEN_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &fakeVerifier{err: tt.verifyErr}
			handler := middleware.Authenticate(verifier)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("handler should not be reached")
			}))

			request := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
			request.Header.Set("Authorization", tt.header)
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			assert.Equal(t, tt.wantStatus, recorder.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["code"])
		})
	}
}

/*
TestAuthenticate_Anonymous checks that requests without an Authorization
header pass through unauthenticated instead of being rejected.
*/
func TestAuthenticate_Anonymous(t *testing.T) {
	verifier := &fakeVerifier{err: sec.ErrTokenMalformed}
	var sawPrincipal *sec.AuthClaims

	handler := middleware.Authenticate(verifier)(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		sawPrincipal = ctxutil.GetPrincipal(request.Context())
		writer.WriteHeader(http.StatusOK)
	}))

	request := httptest.NewRequest(http.MethodGet, "/api/v1/patents/search", nil)
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Nil(t, sawPrincipal)
}

/*
TestAuthenticate_ValidToken checks that verified claims reach the handler
through the request context.
*/
func TestAuthenticate_ValidToken(t *testing.T) {
	claims := &sec.AuthClaims{
		PrincipalID: "4f2d9c3e-0000-7000-8000-1234567890ab",
		Role:        sec.RoleAnalyst,
		Class:       sec.ClassAnalyst,
	}
	verifier := &fakeVerifier{claims: claims}

	handler := middleware.Authenticate(verifier)(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		got := ctxutil.GetPrincipal(request.Context())
		require.NotNil(t, got)
		assert.Equal(t, claims.PrincipalID, got.PrincipalID)
		writer.WriteHeader(http.StatusOK)
	}))

	request := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	request.Header.Set("Authorization", "Bearer valid.jwt.token")
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestRequireClass verifies class-based gating with no implicit ordering.
*/
func TestRequireClass(t *testing.T) {
	tests := []struct {
		name       string
		class      sec.PrincipalClass
		allowed    []sec.PrincipalClass
		wantStatus int
	}{
		{"analyst_allowed", sec.ClassAnalyst, []sec.PrincipalClass{sec.ClassAnalyst}, http.StatusOK},
		{"admin_not_analyst", sec.ClassAdmin, []sec.PrincipalClass{sec.ClassAnalyst}, http.StatusForbidden},
		{"either_class", sec.ClassUser, []sec.PrincipalClass{sec.ClassUser, sec.ClassAnalyst}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.RequireClass(tt.allowed...)(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
				writer.WriteHeader(http.StatusOK)
			}))

			claims := &sec.AuthClaims{PrincipalID: "p1", Class: tt.class}
			request := httptest.NewRequest(http.MethodGet, "/api/v1/applications/me", nil)
			request = request.WithContext(ctxutil.WithPrincipal(request.Context(), claims))
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)
			assert.Equal(t, tt.wantStatus, recorder.Code)
		})
	}
}
