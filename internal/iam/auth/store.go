// Copyright (c) 2026 IP Platform. All rights reserved.

package auth

import (
	"context"
	"errors"

	"github.com/ipplatform/backend/internal/platform/sec"
)

// # Storage Sentinels

var (
	// ErrSessionConsumed is returned by ConsumeAndRotate when the session was
	// already revoked by a concurrent request. The caller treats this as a
	// reuse signal.
	ErrSessionConsumed = errors.New("auth: refresh session already consumed")

	// ErrResetTokenConsumed is returned by Consume when the reset token was
	// already marked used.
	ErrResetTokenConsumed = errors.New("auth: reset token already consumed")
)

// # Account Data Access

// AccountRepository defines the data access contract for user and analyst accounts.
type AccountRepository interface {

	/*
		Create persists a brand-new account.

		Parameters:
		  - context: context.Context
		  - account: *Account

		Returns:
		  - error: Persistence failures (unique violations surface as Conflict)
	*/
	Create(context context.Context, account *Account) error

	/*
		FindByID returns the account with the given ID.

		Returns:
		  - *Account: Hydrated entity
		  - error: apperr.NotFound or database errors
	*/
	FindByID(context context.Context, id string) (*Account, error)

	/*
		FindByUsername returns the account with the given username.

		Returns:
		  - *Account: Hydrated entity
		  - error: apperr.NotFound or database errors
	*/
	FindByUsername(context context.Context, username string) (*Account, error)

	/*
		FindByEmail returns the account with the given email.

		Returns:
		  - *Account: Hydrated entity
		  - error: apperr.NotFound or database errors
	*/
	FindByEmail(context context.Context, email string) (*Account, error)

	/*
		FindByGoogleSubject returns the account linked to a Google identity.

		Returns:
		  - *Account: Hydrated entity
		  - error: apperr.NotFound or database errors
	*/
	FindByGoogleSubject(context context.Context, subject string) (*Account, error)

	/*
		UpdatePassword replaces only the account's password hash.
	*/
	UpdatePassword(context context.Context, accountID, newHash string) error

	/*
		UpdateStatus moves the account to a new lifecycle state. Callers that
		must keep an application record in lockstep go through the application
		package's transactional transition instead.
	*/
	UpdateStatus(context context.Context, accountID string, status AccountStatus) error

	/*
		LinkGoogleSubject attaches a Google identity to an existing account.
	*/
	LinkGoogleSubject(context context.Context, accountID, subject string) error

	/*
		List returns a page of accounts ordered by creation time (newest first)
		together with the total row count.
	*/
	List(context context.Context, limit, offset int) ([]Account, int, error)
}

// AdminRepository defines the data access contract for administrator accounts.
type AdminRepository interface {

	/*
		Create persists a new administrator. Used only by startup seeding.
	*/
	Create(context context.Context, admin *Admin) error

	/*
		FindByID returns the administrator with the given ID.
	*/
	FindByID(context context.Context, id string) (*Admin, error)

	/*
		FindByUsername returns the administrator with the given username.
	*/
	FindByUsername(context context.Context, username string) (*Admin, error)

	/*
		FindByEmail returns the administrator with the given email.
	*/
	FindByEmail(context context.Context, email string) (*Admin, error)
}

// # Session Data Access

// SessionRepository defines the data access contract for refresh sessions.
type SessionRepository interface {

	/*
		Create persists a new refresh session. The token hash carries a unique
		constraint; a collision is a storage error, never silently ignored.
	*/
	Create(context context.Context, session *RefreshSession) error

	/*
		FindByTokenHash returns the session matching the given token hash,
		INCLUDING revoked and expired rows. Validity is the caller's decision:
		the reuse-detection flow needs to see dead sessions.

		Returns:
		  - *RefreshSession: Hydrated entity
		  - error: apperr.NotFound or database errors
	*/
	FindByTokenHash(context context.Context, tokenHash string) (*RefreshSession, error)

	/*
		ConsumeAndRotate atomically revokes the current session and inserts its
		replacement. The revoke is a compare-and-swap on the revoked flag: when
		a concurrent refresh already consumed the session, no row is updated and
		[ErrSessionConsumed] is returned with nothing inserted.

		Parameters:
		  - context: context.Context
		  - currentID: string (Session being consumed)
		  - replacement: *RefreshSession

		Returns:
		  - error: ErrSessionConsumed or storage failures
	*/
	ConsumeAndRotate(context context.Context, currentID string, replacement *RefreshSession) error

	/*
		Revoke marks a single session as permanently invalidated.
	*/
	Revoke(context context.Context, sessionID string) error

	/*
		RevokeAllForSubject revokes every active session owned by the subject.
		Used for logout-all, password change, and the reuse-detection response.
	*/
	RevokeAllForSubject(context context.Context, class sec.PrincipalClass, subjectID string) error

	/*
		DeleteExpiredOrRevoked physically removes sessions that are expired or
		revoked. Invoked by the background sweep, never on the request path.

		Returns:
		  - int64: Number of rows removed
		  - error: Cleanup failures
	*/
	DeleteExpiredOrRevoked(context context.Context) (int64, error)
}

// # Reset Token Data Access

// ResetTokenRepository defines the data access contract for one-shot
// password reset tokens.
type ResetTokenRepository interface {

	/*
		Create persists a new reset token.
	*/
	Create(context context.Context, token *PasswordResetToken) error

	/*
		FindByTokenHash returns the token row matching the given hash,
		including used and expired rows.
	*/
	FindByTokenHash(context context.Context, tokenHash string) (*PasswordResetToken, error)

	/*
		Consume marks the token used via compare-and-swap. A token already
		consumed by a concurrent request returns [ErrResetTokenConsumed],
		which keeps reset strictly one-shot.
	*/
	Consume(context context.Context, tokenID string) error

	/*
		InvalidateForAccount marks every outstanding token for the account as
		used. Requesting a new reset link kills all previous ones.
	*/
	InvalidateForAccount(context context.Context, accountID string) error

	/*
		DeleteExpiredOrUsed physically removes dead tokens. Invoked by the
		background sweep.

		Returns:
		  - int64: Number of rows removed
		  - error: Cleanup failures
	*/
	DeleteExpiredOrUsed(context context.Context) (int64, error)
}
