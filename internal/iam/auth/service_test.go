// Copyright (c) 2026 IP Platform. All rights reserved.

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipplatform/backend/internal/iam/auth"
	"github.com/ipplatform/backend/internal/platform/apperr"
	"github.com/ipplatform/backend/internal/platform/sec"
)

/*
TestRegister_User verifies that a plain user comes back immediately usable.
*/
func TestRegister_User(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	result, err := h.service.Register(ctx, auth.RegisterInput{
		Username: "mira.user",
		Email:    "mira@example.com",
		Password: "Sup3rSecret",
		FullName: "Mira Usermann",
		Role:     sec.RoleUser,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Account)

	assert.Equal(t, auth.StatusActive, result.Account.Status)
	assert.Equal(t, sec.ClassUser, result.Account.Class)
	assert.Nil(t, result.Tokens, "users do not get tokens at registration")
	assert.False(t, h.apps.created(result.Account.ID))

	session, err := h.service.Login(ctx, auth.LoginInput{
		Username: "mira.user",
		Password: "Sup3rSecret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.Equal(t, result.Account.ID, session.Account.ID)
}

/*
TestRegister_Analyst verifies the analyst carve-out: pending status, an
application shell, and an immediately issued token pair, while general login
stays gated with a status-specific message.
*/
func TestRegister_Analyst(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	result, err := h.service.Register(ctx, auth.RegisterInput{
		Username: "ana.lyst",
		Email:    "ana@example.com",
		Password: "Sup3rSecret",
		FullName: "Ana Lyst",
		Role:     sec.RoleAnalyst,
	})
	require.NoError(t, err)

	assert.Equal(t, auth.StatusPendingDocument, result.Account.Status)
	assert.Equal(t, sec.ClassAnalyst, result.Account.Class)
	require.NotNil(t, result.Tokens, "analysts authenticate document uploads immediately")
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.True(t, h.apps.created(result.Account.ID))

	// The issued refresh token is live and rotatable.
	rotated, err := h.service.Refresh(ctx, result.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, result.Tokens.RefreshToken, rotated.RefreshToken)

	// Password login stays blocked until approval.
	_, err = h.service.Login(ctx, auth.LoginInput{Username: "ana.lyst", Password: "Sup3rSecret"})
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "ACCOUNT_PENDING_DOCUMENT", ae.Code)
}

/*
TestRegister_IdentityConflicts checks uniqueness across both principal
populations: a username or email held by an account OR an admin blocks
registration.
*/
func TestRegister_IdentityConflicts(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.service.EnsureSeedAdmin(ctx, "root", "root@ipplatform.com", "Adm1nSecret"))

	_, err := h.service.Register(ctx, auth.RegisterInput{
		Username: "mira.user",
		Email:    "mira@example.com",
		Password: "Sup3rSecret",
		FullName: "Mira Usermann",
		Role:     sec.RoleUser,
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		email    string
	}{
		{"duplicate_username", "mira.user", "other@example.com"},
		{"duplicate_email", "someone.else", "mira@example.com"},
		{"username_held_by_admin", "root", "third@example.com"},
		{"email_held_by_admin", "fourth.user", "root@ipplatform.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.service.Register(ctx, auth.RegisterInput{
				Username: tt.username,
				Email:    tt.email,
				Password: "Sup3rSecret",
				FullName: "Any Name",
				Role:     sec.RoleUser,
			})
			require.Error(t, err)
			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, 409, ae.HTTPStatus)
		})
	}
}

/*
TestLogin_UniformFailureMessage verifies that an unknown username and a wrong
password are indistinguishable from the outside.
*/
func TestLogin_UniformFailureMessage(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.service.Register(ctx, auth.RegisterInput{
		Username: "mira.user",
		Email:    "mira@example.com",
		Password: "Sup3rSecret",
		FullName: "Mira Usermann",
		Role:     sec.RoleUser,
	})
	require.NoError(t, err)

	_, unknownErr := h.service.Login(ctx, auth.LoginInput{Username: "no.such.user", Password: "Sup3rSecret"})
	_, wrongPassErr := h.service.Login(ctx, auth.LoginInput{Username: "mira.user", Password: "WrongPass1"})

	require.Error(t, unknownErr)
	require.Error(t, wrongPassErr)
	assert.Equal(t, apperr.As(unknownErr).Message, apperr.As(wrongPassErr).Message)
}

/*
TestLogin_GoogleOnlyAccount verifies that a passwordless federated account is
steered toward Google sign-in instead of failing generically.
*/
func TestLogin_GoogleOnlyAccount(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	h.google.identity = &sec.GoogleIdentity{
		Subject: "google-sub-1",
		Email:   "fed@example.com",
		Name:    "Federated Person",
	}
	session, err := h.service.ProvisionGoogleUser(ctx, "raw-id-token")
	require.NoError(t, err)

	_, err = h.service.Login(ctx, auth.LoginInput{Username: session.Account.Username, Password: "anything"})
	require.Error(t, err)
	assert.Contains(t, apperr.As(err).Message, "Google sign-in")
}

/*
TestRefresh_RotationIsSingleUse covers the rotation contract: the old token
dies on use, and presenting it again is treated as theft — every session of
the subject is revoked, including the freshly rotated one.
*/
func TestRefresh_RotationIsSingleUse(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.service.Register(ctx, auth.RegisterInput{
		Username: "mira.user",
		Email:    "mira@example.com",
		Password: "Sup3rSecret",
		FullName: "Mira Usermann",
		Role:     sec.RoleUser,
	})
	require.NoError(t, err)

	session, err := h.service.Login(ctx, auth.LoginInput{Username: "mira.user", Password: "Sup3rSecret"})
	require.NoError(t, err)

	rotated, err := h.service.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)

	// Replaying the spent token triggers the mass revoke.
	_, err = h.service.Refresh(ctx, session.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, "SESSION_EXPIRED", apperr.As(err).Code)
	assert.Equal(t, 0, h.sessions.liveCount(sec.ClassUser, session.Account.ID))

	// The rotated token went down with the rest.
	_, err = h.service.Refresh(ctx, rotated.RefreshToken)
	require.Error(t, err)
}

/*
TestRefresh_ExpiredSession verifies that an expired-but-known token is a
reuse signal, not a silent miss.
*/
func TestRefresh_ExpiredSession(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	accountID := uuid.New().String()
	require.NoError(t, h.accounts.Create(ctx, &auth.Account{
		ID:       accountID,
		Username: "mira.user",
		Email:    "mira@example.com",
		Role:     sec.RoleUser,
		Class:    sec.ClassUser,
		Status:   auth.StatusActive,
	}))

	raw := "stale-refresh-token"
	require.NoError(t, h.sessions.Create(ctx, &auth.RefreshSession{
		ID:           uuid.New().String(),
		TokenHash:    sec.HashToken(raw),
		SubjectClass: sec.ClassUser,
		SubjectID:    accountID,
		ExpiresAt:    time.Now().Add(-time.Minute),
	}))

	_, err := h.service.Refresh(ctx, raw)
	require.Error(t, err)
	assert.Equal(t, "SESSION_EXPIRED", apperr.As(err).Code)

	// A token that was never issued fails differently.
	_, err = h.service.Refresh(ctx, "never-issued")
	require.Error(t, err)
	assert.Equal(t, "TOKEN_INVALID", apperr.As(err).Code)
}

/*
TestLogout_Idempotent verifies that logging out twice, or with a token that
was never issued, reports success.
*/
func TestLogout_Idempotent(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.service.Register(ctx, auth.RegisterInput{
		Username: "mira.user",
		Email:    "mira@example.com",
		Password: "Sup3rSecret",
		FullName: "Mira Usermann",
		Role:     sec.RoleUser,
	})
	require.NoError(t, err)

	session, err := h.service.Login(ctx, auth.LoginInput{Username: "mira.user", Password: "Sup3rSecret"})
	require.NoError(t, err)

	require.NoError(t, h.service.Logout(ctx, session.RefreshToken))
	require.NoError(t, h.service.Logout(ctx, session.RefreshToken))
	require.NoError(t, h.service.Logout(ctx, "never-issued"))

	// The revoked session can no longer rotate.
	_, err = h.service.Refresh(ctx, session.RefreshToken)
	require.Error(t, err)
}

/*
TestResetPassword_SingleUse verifies the one-shot reset contract and the
post-reset session purge.
*/
func TestResetPassword_SingleUse(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	result, err := h.service.Register(ctx, auth.RegisterInput{
		Username: "mira.user",
		Email:    "mira@example.com",
		Password: "Sup3rSecret",
		FullName: "Mira Usermann",
		Role:     sec.RoleUser,
	})
	require.NoError(t, err)

	session, err := h.service.Login(ctx, auth.LoginInput{Username: "mira.user", Password: "Sup3rSecret"})
	require.NoError(t, err)

	raw := "one-shot-reset-token"
	require.NoError(t, h.resetTokens.Create(ctx, &auth.PasswordResetToken{
		ID:        uuid.New().String(),
		AccountID: result.Account.ID,
		TokenHash: sec.HashToken(raw),
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	require.NoError(t, h.service.ResetPassword(ctx, raw, "Fresh3rSecret"))

	// Second use is rejected with the uniform message.
	err = h.service.ResetPassword(ctx, raw, "An0therSecret")
	require.Error(t, err)
	assert.Contains(t, apperr.As(err).Message, "Invalid or expired")

	// Old sessions are dead, old password is gone, new one works.
	_, err = h.service.Refresh(ctx, session.RefreshToken)
	require.Error(t, err)
	_, err = h.service.Login(ctx, auth.LoginInput{Username: "mira.user", Password: "Sup3rSecret"})
	require.Error(t, err)
	_, err = h.service.Login(ctx, auth.LoginInput{Username: "mira.user", Password: "Fresh3rSecret"})
	require.NoError(t, err)
}

/*
TestForgotPassword covers the anti-enumeration contract and supersession of
outstanding tokens.
*/
func TestForgotPassword(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	result, err := h.service.Register(ctx, auth.RegisterInput{
		Username: "mira.user",
		Email:    "mira@example.com",
		Password: "Sup3rSecret",
		FullName: "Mira Usermann",
		Role:     sec.RoleUser,
	})
	require.NoError(t, err)

	// Unknown address reports success and mints nothing.
	require.NoError(t, h.service.ForgotPassword(ctx, "nobody@example.com"))
	assert.Equal(t, 0, h.resetTokens.usableCount(result.Account.ID))

	// Each request supersedes the previous token.
	require.NoError(t, h.service.ForgotPassword(ctx, "mira@example.com"))
	require.NoError(t, h.service.ForgotPassword(ctx, "mira@example.com"))
	assert.Equal(t, 1, h.resetTokens.usableCount(result.Account.ID))
}

/*
TestChangePassword verifies the current-password gate and the session purge
on success.
*/
func TestChangePassword(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	result, err := h.service.Register(ctx, auth.RegisterInput{
		Username: "mira.user",
		Email:    "mira@example.com",
		Password: "Sup3rSecret",
		FullName: "Mira Usermann",
		Role:     sec.RoleUser,
	})
	require.NoError(t, err)

	session, err := h.service.Login(ctx, auth.LoginInput{Username: "mira.user", Password: "Sup3rSecret"})
	require.NoError(t, err)

	err = h.service.ChangePassword(ctx, result.Account.ID, "WrongCurrent1", "Fresh3rSecret")
	require.Error(t, err)
	assert.Contains(t, apperr.As(err).Message, "Current password")

	require.NoError(t, h.service.ChangePassword(ctx, result.Account.ID, "Sup3rSecret", "Fresh3rSecret"))
	assert.Equal(t, 0, h.sessions.liveCount(sec.ClassUser, result.Account.ID))

	_, err = h.service.Refresh(ctx, session.RefreshToken)
	require.Error(t, err)
}

/*
TestProvisionGoogleUser covers the three resolution branches: fresh
provisioning, email linking, and repeat sign-in by subject.
*/
func TestProvisionGoogleUser(t *testing.T) {
	t.Run("provisions_new_account", func(t *testing.T) {
		h := newHarness()
		h.google.identity = &sec.GoogleIdentity{
			Subject: "google-sub-1",
			Email:   "nova@example.com",
			Name:    "Nova Chen",
		}

		session, err := h.service.ProvisionGoogleUser(context.Background(), "raw-id-token")
		require.NoError(t, err)

		assert.Equal(t, auth.StatusActive, session.Account.Status)
		assert.Equal(t, "google-sub-1", session.Account.GoogleSubject)
		assert.False(t, session.Account.HasPassword())
		assert.Equal(t, "nova.chen", session.Account.Username)
	})

	t.Run("links_existing_account_by_email", func(t *testing.T) {
		h := newHarness()
		ctx := context.Background()

		result, err := h.service.Register(ctx, auth.RegisterInput{
			Username: "mira.user",
			Email:    "mira@example.com",
			Password: "Sup3rSecret",
			FullName: "Mira Usermann",
			Role:     sec.RoleUser,
		})
		require.NoError(t, err)

		h.google.identity = &sec.GoogleIdentity{
			Subject: "google-sub-2",
			Email:   "mira@example.com",
			Name:    "Mira Usermann",
		}
		session, err := h.service.ProvisionGoogleUser(ctx, "raw-id-token")
		require.NoError(t, err)

		assert.Equal(t, result.Account.ID, session.Account.ID)
		linked, err := h.accounts.FindByGoogleSubject(ctx, "google-sub-2")
		require.NoError(t, err)
		assert.Equal(t, result.Account.ID, linked.ID)

		// Password login still works after linking.
		_, err = h.service.Login(ctx, auth.LoginInput{Username: "mira.user", Password: "Sup3rSecret"})
		require.NoError(t, err)
	})

	t.Run("repeat_sign_in_by_subject", func(t *testing.T) {
		h := newHarness()
		ctx := context.Background()
		h.google.identity = &sec.GoogleIdentity{
			Subject: "google-sub-3",
			Email:   "repeat@example.com",
			Name:    "Repeat Visitor",
		}

		first, err := h.service.ProvisionGoogleUser(ctx, "raw-id-token")
		require.NoError(t, err)
		second, err := h.service.ProvisionGoogleUser(ctx, "raw-id-token")
		require.NoError(t, err)

		assert.Equal(t, first.Account.ID, second.Account.ID)
	})

	t.Run("rejected_token", func(t *testing.T) {
		h := newHarness()
		_, err := h.service.ProvisionGoogleUser(context.Background(), "garbage")
		require.Error(t, err)
		assert.Equal(t, 401, apperr.As(err).HTTPStatus)
	})
}

/*
TestAdminLogin covers the administrator session path.
*/
func TestAdminLogin(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.service.EnsureSeedAdmin(ctx, "root", "root@ipplatform.com", "Adm1nSecret"))

	session, err := h.service.AdminLogin(ctx, "root", "Adm1nSecret")
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.Equal(t, "root", session.Admin.Username)

	_, err = h.service.AdminLogin(ctx, "root", "WrongPass1")
	require.Error(t, err)
}

/*
TestEnsureSeedAdmin_Idempotent verifies that re-seeding never overwrites an
existing administrator.
*/
func TestEnsureSeedAdmin_Idempotent(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.service.EnsureSeedAdmin(ctx, "root", "root@ipplatform.com", "Adm1nSecret"))
	require.NoError(t, h.service.EnsureSeedAdmin(ctx, "root", "root@ipplatform.com", "DifferentPass1"))

	// The original password still works; the second seed was a no-op.
	_, err := h.service.AdminLogin(ctx, "root", "Adm1nSecret")
	require.NoError(t, err)

	// Blank password disables seeding entirely.
	require.NoError(t, h.service.EnsureSeedAdmin(ctx, "other", "other@ipplatform.com", ""))
	_, err = h.admins.FindByUsername(ctx, "other")
	require.Error(t, err)
}

/*
TestSweepCredentials verifies that dead sessions and spent reset tokens are
purged while live ones survive.
*/
func TestSweepCredentials(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	live := &auth.RefreshSession{
		ID:           uuid.New().String(),
		TokenHash:    sec.HashToken("live"),
		SubjectClass: sec.ClassUser,
		SubjectID:    uuid.New().String(),
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	require.NoError(t, h.sessions.Create(ctx, live))
	require.NoError(t, h.sessions.Create(ctx, &auth.RefreshSession{
		ID:           uuid.New().String(),
		TokenHash:    sec.HashToken("expired"),
		SubjectClass: sec.ClassUser,
		SubjectID:    live.SubjectID,
		ExpiresAt:    time.Now().Add(-time.Hour),
	}))
	require.NoError(t, h.resetTokens.Create(ctx, &auth.PasswordResetToken{
		ID:        uuid.New().String(),
		AccountID: live.SubjectID,
		TokenHash: sec.HashToken("spent"),
		ExpiresAt: time.Now().Add(time.Hour),
		Used:      true,
	}))

	removed, err := h.service.SweepCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = h.sessions.FindByTokenHash(ctx, sec.HashToken("live"))
	require.NoError(t, err)
}
