// Copyright (c) 2026 IP Platform. All rights reserved.

package admin_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipplatform/backend/internal/iam/admin"
	"github.com/ipplatform/backend/internal/iam/auth"
	"github.com/ipplatform/backend/internal/platform/apperr"
	"github.com/ipplatform/backend/internal/platform/sec"
	"github.com/ipplatform/backend/pkg/pagination"
)

type stubAccounts struct {
	auth.AccountRepository
	accounts map[string]*auth.Account
}

func (s *stubAccounts) FindByID(_ context.Context, id string) (*auth.Account, error) {
	if account, ok := s.accounts[id]; ok {
		clone := *account
		return &clone, nil
	}
	return nil, apperr.NotFound("Account not found")
}

func (s *stubAccounts) UpdateStatus(_ context.Context, id string, status auth.AccountStatus) error {
	if account, ok := s.accounts[id]; ok {
		account.Status = status
		return nil
	}
	return apperr.NotFound("Account not found")
}

func (s *stubAccounts) List(_ context.Context, limit, offset int) ([]auth.Account, int, error) {
	all := []auth.Account{}
	for _, account := range s.accounts {
		all = append(all, *account)
	}
	return all, len(all), nil
}

type stubSessions struct {
	auth.SessionRepository
	revoked []string
}

func (s *stubSessions) RevokeAllForSubject(_ context.Context, _ sec.PrincipalClass, subjectID string) error {
	s.revoked = append(s.revoked, subjectID)
	return nil
}

func newService() (*admin.Service, *stubAccounts, *stubSessions) {
	accounts := &stubAccounts{accounts: map[string]*auth.Account{
		"u1": {ID: "u1", Username: "mira.user", Class: sec.ClassUser, Status: auth.StatusActive},
		"a1": {ID: "a1", Username: "ana.lyst", Class: sec.ClassAnalyst, Status: auth.StatusPendingReview},
	}}
	sessions := &stubSessions{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return admin.NewService(accounts, sessions, logger), accounts, sessions
}

/*
TestSuspend verifies suspension from any state plus the session purge, and
the guard against double suspension.
*/
func TestSuspend(t *testing.T) {
	service, accounts, sessions := newService()
	ctx := context.Background()

	account, err := service.Suspend(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, auth.StatusSuspended, account.Status)
	assert.Contains(t, sessions.revoked, "u1")

	// Works from non-ACTIVE states too.
	_, err = service.Suspend(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, auth.StatusSuspended, accounts.accounts["a1"].Status)

	_, err = service.Suspend(ctx, "u1")
	require.Error(t, err)
	assert.Equal(t, 409, apperr.As(err).HTTPStatus)

	_, err = service.Suspend(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, 404, apperr.As(err).HTTPStatus)
}

/*
TestReinstate verifies the SUSPENDED-to-ACTIVE path and its guard.
*/
func TestReinstate(t *testing.T) {
	service, accounts, _ := newService()
	ctx := context.Background()

	// Not suspended yet: rejected.
	_, err := service.Reinstate(ctx, "u1")
	require.Error(t, err)
	assert.Equal(t, 409, apperr.As(err).HTTPStatus)

	_, err = service.Suspend(ctx, "u1")
	require.NoError(t, err)

	account, err := service.Reinstate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, auth.StatusActive, account.Status)
	assert.Equal(t, auth.StatusActive, accounts.accounts["u1"].Status)
}

/*
TestListAccounts verifies the paginated listing wiring.
*/
func TestListAccounts(t *testing.T) {
	service, _, _ := newService()

	accounts, meta, err := service.ListAccounts(context.Background(), pagination.Params{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
	assert.Equal(t, 2, meta.Total)
}
