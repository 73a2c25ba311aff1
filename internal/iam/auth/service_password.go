// Copyright (c) 2026 IP Platform. All rights reserved.

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ipplatform/backend/internal/platform/apperr"
	"github.com/ipplatform/backend/internal/platform/sec"
)

// # Password Lifecycle

/*
ForgotPassword starts the email-based password reset flow.

Description: Always reports success to the caller, whether or not the email
is known (anti-enumeration). When the account exists and has a local
password, all prior reset tokens are invalidated, a fresh single-use token
is minted, and the reset link is mailed out.

Parameters:
  - context: context.Context
  - email: string
*/
func (service *Service) ForgotPassword(context context.Context, email string) error {
	account, err := service.accounts.FindByEmail(context, email)
	if err != nil {
		// Unknown address: same outward result as success.
		return nil
	}
	if !account.HasPassword() {
		// Google-only accounts have nothing to reset.
		return nil
	}

	// ── 1. Supersede any outstanding tokens ───────────────────────────────
	if err := service.resetTokens.InvalidateForAccount(context, account.ID); err != nil {
		return fmt.Errorf("auth_service_reset_invalidate_failed: %w", err)
	}

	// ── 2. Mint and store a fresh single-use token ────────────────────────
	rawToken, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return fmt.Errorf("auth_service_reset_token_failed: %w", err)
	}

	resetToken := &PasswordResetToken{
		ID:        uuid.New().String(),
		AccountID: account.ID,
		TokenHash: sec.HashToken(rawToken),
		ExpiresAt: time.Now().Add(service.options.ResetTokenTTL),
	}
	if err := service.resetTokens.Create(context, resetToken); err != nil {
		return fmt.Errorf("auth_service_reset_store_failed: %w", err)
	}

	// ── 3. Deliver the link ───────────────────────────────────────────────
	resetLink := service.options.FrontendURL + "/reset-password?token=" + rawToken
	service.notify("password_reset", func() error {
		return service.notifier.SendPasswordReset(account.Email, resetLink)
	})

	return nil
}

/*
ResetPassword completes the email-based reset flow.

Description: The token is single-use: a concurrent duplicate submission
succeeds exactly once. On success every live session of the account is
revoked, so a stolen refresh token dies with the old password.

Parameters:
  - context: context.Context
  - rawToken: string
  - newPassword: string
*/
func (service *Service) ResetPassword(context context.Context, rawToken, newPassword string) error {

	// ── 1. Locate and validate the token ──────────────────────────────────
	resetToken, err := service.resetTokens.FindByTokenHash(context, sec.HashToken(rawToken))
	if err != nil {
		return invalidResetTokenError()
	}
	if !resetToken.Valid() {
		return invalidResetTokenError()
	}

	account, err := service.accounts.FindByID(context, resetToken.AccountID)
	if err != nil {
		return invalidResetTokenError()
	}

	// ── 2. Consume exactly once ───────────────────────────────────────────
	if err := service.resetTokens.Consume(context, resetToken.ID); err != nil {
		if err == ErrResetTokenConsumed {
			return invalidResetTokenError()
		}
		return fmt.Errorf("auth_service_reset_consume_failed: %w", err)
	}

	// ── 3. Rotate the credential and kill every session ───────────────────
	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}
	if err := service.accounts.UpdatePassword(context, account.ID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_reset_update_failed: %w", err)
	}
	if err := service.sessions.RevokeAllForSubject(context, account.Class, account.ID); err != nil {
		return fmt.Errorf("auth_service_reset_revoke_failed: %w", err)
	}

	return nil
}

/*
ChangePassword rotates the password of an authenticated principal.

Description: Requires the current password. Accounts provisioned through
Google sign-in carry no local password and cannot use this flow. On success
every live session is revoked; the client is expected to log in again.

Parameters:
  - context: context.Context
  - accountID: string
  - currentPassword: string
  - newPassword: string
*/
func (service *Service) ChangePassword(context context.Context, accountID, currentPassword, newPassword string) error {
	account, err := service.accounts.FindByID(context, accountID)
	if err != nil {
		return fmt.Errorf("auth_service_change_lookup_failed: %w", err)
	}

	if !account.HasPassword() {
		return apperr.ValidationError("This account uses Google sign-in and has no password to change")
	}
	if !sec.CheckPasswordHash(currentPassword, account.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}
	if err := service.accounts.UpdatePassword(context, account.ID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_change_update_failed: %w", err)
	}
	if err := service.sessions.RevokeAllForSubject(context, account.Class, account.ID); err != nil {
		return fmt.Errorf("auth_service_change_revoke_failed: %w", err)
	}

	return nil
}

// invalidResetTokenError deliberately collapses every failure mode (unknown,
// expired, used) into one message.
func invalidResetTokenError() *apperr.AppError {
	return apperr.Unauthorized("Invalid or expired reset token")
}
