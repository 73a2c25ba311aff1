// Copyright (c) 2026 IP Platform. All rights reserved.

/*
Package admin implements administrator-side account management: listing
accounts, suspension, and reinstatement.

Suspension touches only the account status. An analyst's application record
has no suspended state; suspending an approved analyst leaves the approved
application in place so reinstatement restores exactly what was suspended.
*/
package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ipplatform/backend/internal/iam/auth"
	"github.com/ipplatform/backend/internal/platform/apperr"
	"github.com/ipplatform/backend/pkg/pagination"
)

// Service implements the administrator account-management use cases.
type Service struct {
	accounts auth.AccountRepository
	sessions auth.SessionRepository
	logger   *slog.Logger
}

// NewService constructs the admin [Service] with its dependencies.
func NewService(accounts auth.AccountRepository, sessions auth.SessionRepository, logger *slog.Logger) *Service {
	return &Service{accounts: accounts, sessions: sessions, logger: logger}
}

/*
ListAccounts returns a page of accounts, newest first.

Parameters:
  - context: context.Context
  - params: pagination.Params

Returns:
  - []auth.Account: One page of accounts
  - *pagination.Meta: Paging metadata
  - error: Storage failures
*/
func (service *Service) ListAccounts(context context.Context, params pagination.Params) ([]auth.Account, *pagination.Meta, error) {
	accounts, total, err := service.accounts.List(context, params.Limit, params.Offset())
	if err != nil {
		return nil, nil, fmt.Errorf("admin_service_list_failed: %w", err)
	}
	meta := pagination.NewMeta(params.Page, params.Limit, total)
	return accounts, &meta, nil
}

/*
Suspend moves an account from any state to SUSPENDED and kills its sessions.

Description: Suspension is the deletion substitute: accounts are never hard
deleted. The session purge makes the suspension take effect immediately, not
at the next token expiry.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - *auth.Account: Suspended account
  - error: NotFound, Conflict when already suspended
*/
func (service *Service) Suspend(context context.Context, accountID string) (*auth.Account, error) {
	account, err := service.accounts.FindByID(context, accountID)
	if err != nil {
		return nil, err
	}
	if account.Status == auth.StatusSuspended {
		return nil, apperr.Conflict("Account is already suspended")
	}

	if err := service.accounts.UpdateStatus(context, accountID, auth.StatusSuspended); err != nil {
		return nil, fmt.Errorf("admin_service_suspend_failed: %w", err)
	}
	if err := service.sessions.RevokeAllForSubject(context, account.Class, accountID); err != nil {
		service.logger.Warn("admin_suspend_revoke_failed", "account_id", accountID, "error", err.Error())
	}

	service.logger.Info("account_suspended", "account_id", accountID, "username", account.Username)

	account.Status = auth.StatusSuspended
	return account, nil
}

/*
Reinstate moves a SUSPENDED account back to ACTIVE.

Description: Only suspension is reversible this way. Accounts parked in the
analyst review pipeline go through the application workflow instead.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - *auth.Account: Reinstated account
  - error: NotFound, Conflict when not suspended
*/
func (service *Service) Reinstate(context context.Context, accountID string) (*auth.Account, error) {
	account, err := service.accounts.FindByID(context, accountID)
	if err != nil {
		return nil, err
	}
	if account.Status != auth.StatusSuspended {
		return nil, apperr.Conflict("Only suspended accounts can be reinstated")
	}

	if err := service.accounts.UpdateStatus(context, accountID, auth.StatusActive); err != nil {
		return nil, fmt.Errorf("admin_service_reinstate_failed: %w", err)
	}

	service.logger.Info("account_reinstated", "account_id", accountID, "username", account.Username)

	account.Status = auth.StatusActive
	return account, nil
}
