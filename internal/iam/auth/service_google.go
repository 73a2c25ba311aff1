// Copyright (c) 2026 IP Platform. All rights reserved.

package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ipplatform/backend/internal/platform/apperr"
	"github.com/ipplatform/backend/internal/platform/sec"
	"github.com/ipplatform/backend/pkg/username"
)

// Derived usernames get numeric suffixes until one is free; past this many
// collisions something is wrong with the derivation input.
const maxUsernameAttempts = 50

// # Google Sign-In

/*
ProvisionGoogleUser exchanges a verified Google ID token for a session.

Description: Resolution order is: existing federated account by Google
subject, then existing local account by email (which gets the Google subject
linked), then a brand new ACTIVE user account with a username derived from
the Google display name. Lifecycle gates apply the same as password login.

Parameters:
  - context: context.Context
  - rawIDToken: string

Returns:
  - *LoginSession: Transport-ready session identifiers
  - err: Unauthorized, or verification/storage failures
*/
func (service *Service) ProvisionGoogleUser(context context.Context, rawIDToken string) (*LoginSession, error) {
	if service.google == nil {
		return nil, apperr.Unauthorized("Google sign-in is not available")
	}

	// ── 1. Verify the assertion ───────────────────────────────────────────
	identity, err := service.google.Verify(context, rawIDToken)
	if err != nil {
		return nil, apperr.Unauthorized("Google sign-in could not be verified")
	}

	// ── 2. Resolve or provision the account ───────────────────────────────
	account, err := service.resolveGoogleAccount(context, identity)
	if err != nil {
		return nil, err
	}

	// ── 3. Lifecycle gate, same as password login ─────────────────────────
	if account.Status != StatusActive {
		return nil, loginBlockedError(account.Status)
	}

	// ── 4. Token issuance ─────────────────────────────────────────────────
	tokens, err := service.issuePair(context, account.ID, account.Username, account.Role, account.Class, false)
	if err != nil {
		return nil, err
	}

	return &LoginSession{TokenPair: *tokens, Account: account}, nil
}

// resolveGoogleAccount implements subject-first, email-second, create-last.
func (service *Service) resolveGoogleAccount(context context.Context, identity *sec.GoogleIdentity) (*Account, error) {
	if account, err := service.accounts.FindByGoogleSubject(context, identity.Subject); err == nil {
		return account, nil
	}

	if account, err := service.accounts.FindByEmail(context, identity.Email); err == nil {
		// Same mailbox, local registration first. Link rather than duplicate.
		if err := service.accounts.LinkGoogleSubject(context, account.ID, identity.Subject); err != nil {
			return nil, fmt.Errorf("auth_service_google_link_failed: %w", err)
		}
		account.GoogleSubject = identity.Subject
		return account, nil
	}

	return service.createGoogleAccount(context, identity)
}

// createGoogleAccount provisions a passwordless ACTIVE user account.
func (service *Service) createGoogleAccount(context context.Context, identity *sec.GoogleIdentity) (*Account, error) {
	displayName := identity.Name
	if strings.TrimSpace(displayName) == "" {
		displayName, _, _ = strings.Cut(identity.Email, "@")
	}

	chosenUsername, err := service.freeUsername(context, username.FromDisplayName(displayName))
	if err != nil {
		return nil, err
	}

	account := &Account{
		ID:            uuid.New().String(),
		Username:      chosenUsername,
		Email:         identity.Email,
		FullName:      displayName,
		GoogleSubject: identity.Subject,
		Role:          sec.RoleUser,
		Class:         sec.ClassUser,
		Status:        StatusActive,
	}

	if err := service.accounts.Create(context, account); err != nil {
		return nil, fmt.Errorf("auth_service_google_provision_failed: %w", err)
	}

	service.notify("welcome", func() error {
		return service.notifier.SendWelcome(account.Email, account.FullName)
	})

	return account, nil
}

// freeUsername probes derived candidates until one is unclaimed in both
// principal populations.
func (service *Service) freeUsername(context context.Context, base string) (string, error) {
	for attempt := 1; attempt <= maxUsernameAttempts; attempt++ {
		candidate := username.WithSuffix(base, attempt)

		if _, err := service.accounts.FindByUsername(context, candidate); err == nil {
			continue
		}
		if _, err := service.admins.FindByUsername(context, candidate); err == nil {
			continue
		}
		return candidate, nil
	}
	return "", fmt.Errorf("auth_service_username_exhausted: no free candidate for %q", base)
}

// # Administrator Seeding

/*
EnsureSeedAdmin creates the bootstrap administrator if it does not exist.

Description: Invoked at startup. Idempotent: an existing admin with the
configured username is left untouched, including its password. A blank seed
password disables seeding entirely.

Parameters:
  - context: context.Context
  - adminUsername: string
  - adminEmail: string
  - adminPassword: string
*/
func (service *Service) EnsureSeedAdmin(context context.Context, adminUsername, adminEmail, adminPassword string) error {
	if strings.TrimSpace(adminPassword) == "" {
		service.logger.Info("admin_seed_skipped", "reason", "no seed password configured")
		return nil
	}

	if _, err := service.admins.FindByUsername(context, adminUsername); err == nil {
		return nil
	}

	hashedPassword, err := sec.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	admin := &Admin{
		ID:           uuid.New().String(),
		Username:     adminUsername,
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		IsActive:     true,
	}
	if err := service.admins.Create(context, admin); err != nil {
		return fmt.Errorf("auth_service_admin_seed_failed: %w", err)
	}

	service.logger.Info("admin_seeded", "username", adminUsername)
	return nil
}
