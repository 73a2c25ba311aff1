// Copyright (c) 2026 IP Platform. All rights reserved.

package ctxutil_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ipplatform/backend/internal/platform/ctxutil"
	"github.com/ipplatform/backend/internal/platform/sec"
)

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "test-request-id"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithRequestID(ctx, requestID)
	assert.Equal(t, requestID, ctxutil.GetRequestID(ctx))
}

/*
TestContext_Logger verifies that a custom logger can be stored in context.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Initially should return the default logger
	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}

/*
TestContext_Principal verifies that verified claims can be stored in context.
*/
func TestContext_Principal(t *testing.T) {
	ctx := context.Background()
	claims := &sec.AuthClaims{
		PrincipalID: "principal-123",
		Role:        sec.RoleAnalyst,
		Class:       sec.ClassAnalyst,
	}

	// 1. Initially should be nil (anonymous)
	assert.Nil(t, ctxutil.GetPrincipal(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithPrincipal(ctx, claims)
	retrieved := ctxutil.GetPrincipal(ctx)

	assert.NotNil(t, retrieved)
	assert.Equal(t, "principal-123", retrieved.PrincipalID)
	assert.Equal(t, sec.RoleAnalyst, retrieved.Role)
	assert.Equal(t, sec.ClassAnalyst, retrieved.Class)
}
