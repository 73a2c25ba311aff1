// Copyright (c) 2026 IP Platform. All rights reserved.

// PostgreSQL implementations of the auth storage contracts.
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types so no storage detail leaks past this layer.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ipplatform/backend/internal/platform/apperr"
	"github.com/ipplatform/backend/internal/platform/dberr"
	"github.com/ipplatform/backend/internal/platform/sec"
)

// # Account Repository

// PostgresAccountRepository implements [AccountRepository] using pgx.
type PostgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates the PostgreSQL implementation of [AccountRepository].
func NewAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

const accountColumns = `
	id, username, email, passwordhash, fullname, googlesubject, role, class, status, createdat, updatedat`

func scanAccount(row pgx.Row) (*Account, error) {
	account := &Account{}
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.FullName,
		&account.GoogleSubject,
		&account.Role,
		&account.Class,
		&account.Status,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

/*
Create persists a new account record into the iam.account table.

Description: Deep-persists account metadata, ensuring timestamps are
initialized if not provided. Unique violations on username or email surface
as Conflict.

Parameters:
  - context: context.Context
  - account: *Account (Entity to persist)

Returns:
  - error: Conflict on duplicates, or connectivity errors
*/
func (repository *PostgresAccountRepository) Create(context context.Context, account *Account) error {
	const query = `
		INSERT INTO iam.account (
			id, username, email, passwordhash, fullname, googlesubject, role, class, status, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		account.ID,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.FullName,
		account.GoogleSubject,
		account.Role,
		account.Class,
		account.Status,
		account.CreatedAt,
		account.UpdatedAt,
	)

	if err != nil {
		return dberr.Wrap(err, "postgres_account_repo_create")
	}

	return nil
}

/*
FindByID retrieves an account record by its unique ID.

Returns:
  - *Account: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresAccountRepository) FindByID(context context.Context, id string) (*Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM iam.account WHERE id = $1`

	account, err := scanAccount(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account")
		}
		return nil, fmt.Errorf("postgres_account_repo_find_by_id_failed: %w", err)
	}

	return account, nil
}

/*
FindByUsername retrieves an account record by its unique username.

Returns:
  - *Account: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresAccountRepository) FindByUsername(context context.Context, username string) (*Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM iam.account WHERE username = $1`

	account, err := scanAccount(repository.pool.QueryRow(context, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account")
		}
		return nil, fmt.Errorf("postgres_account_repo_find_by_username_failed: %w", err)
	}

	return account, nil
}

/*
FindByEmail retrieves an account record by its unique email address.

Returns:
  - *Account: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresAccountRepository) FindByEmail(context context.Context, email string) (*Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM iam.account WHERE email = $1`

	account, err := scanAccount(repository.pool.QueryRow(context, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account")
		}
		return nil, fmt.Errorf("postgres_account_repo_find_by_email_failed: %w", err)
	}

	return account, nil
}

/*
FindByGoogleSubject retrieves the account linked to a Google identity.

Returns:
  - *Account: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresAccountRepository) FindByGoogleSubject(context context.Context, subject string) (*Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM iam.account WHERE googlesubject = $1`

	account, err := scanAccount(repository.pool.QueryRow(context, query, subject))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account")
		}
		return nil, fmt.Errorf("postgres_account_repo_find_by_google_failed: %w", err)
	}

	return account, nil
}

/*
UpdatePassword updates only the password hash for a specific account.
*/
func (repository *PostgresAccountRepository) UpdatePassword(context context.Context, accountID, newHash string) error {
	const query = `
		UPDATE iam.account
		SET passwordhash = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, accountID, newHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_account_repo_update_password_failed: %w", err)
	}

	return nil
}

/*
UpdateStatus moves an account to a new lifecycle state.
*/
func (repository *PostgresAccountRepository) UpdateStatus(context context.Context, accountID string, status AccountStatus) error {
	const query = `
		UPDATE iam.account
		SET status = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, accountID, status, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_account_repo_update_status_failed: %w", err)
	}

	return nil
}

/*
LinkGoogleSubject attaches a Google identity to an existing account.
*/
func (repository *PostgresAccountRepository) LinkGoogleSubject(context context.Context, accountID, subject string) error {
	const query = `
		UPDATE iam.account
		SET googlesubject = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, accountID, subject, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_account_repo_link_google_failed: %w", err)
	}

	return nil
}

/*
List returns one page of accounts, newest first, with the total row count.
*/
func (repository *PostgresAccountRepository) List(context context.Context, limit, offset int) ([]Account, int, error) {
	const countQuery = `SELECT COUNT(*) FROM iam.account`

	var total int
	if err := repository.pool.QueryRow(context, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_account_repo_count_failed: %w", err)
	}

	const query = `
		SELECT ` + accountColumns + `
		FROM iam.account
		ORDER BY createdat DESC
		LIMIT $1 OFFSET $2`

	rows, err := repository.pool.Query(context, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_account_repo_list_failed: %w", err)
	}
	defer rows.Close()

	accounts := make([]Account, 0, limit)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_account_repo_list_scan_failed: %w", err)
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_account_repo_list_rows_failed: %w", err)
	}

	return accounts, total, nil
}

// # Admin Repository

// PostgresAdminRepository implements [AdminRepository] using pgx.
type PostgresAdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates the PostgreSQL implementation of [AdminRepository].
func NewAdminRepository(pool *pgxpool.Pool) *PostgresAdminRepository {
	return &PostgresAdminRepository{pool: pool}
}

const adminColumns = `id, username, email, passwordhash, fullname, isactive, createdat`

func scanAdmin(row pgx.Row) (*Admin, error) {
	admin := &Admin{}
	err := row.Scan(
		&admin.ID,
		&admin.Username,
		&admin.Email,
		&admin.PasswordHash,
		&admin.FullName,
		&admin.IsActive,
		&admin.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return admin, nil
}

/*
Create persists a new administrator record. Used only by startup seeding.
*/
func (repository *PostgresAdminRepository) Create(context context.Context, admin *Admin) error {
	const query = `
		INSERT INTO iam.admin (id, username, email, passwordhash, fullname, isactive, createdat)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		admin.ID,
		admin.Username,
		admin.Email,
		admin.PasswordHash,
		admin.FullName,
		admin.IsActive,
		admin.CreatedAt,
	)

	if err != nil {
		return dberr.Wrap(err, "postgres_admin_repo_create")
	}

	return nil
}

/*
FindByID retrieves an administrator by their unique ID.
*/
func (repository *PostgresAdminRepository) FindByID(context context.Context, id string) (*Admin, error) {
	const query = `SELECT ` + adminColumns + ` FROM iam.admin WHERE id = $1`

	admin, err := scanAdmin(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Administrator")
		}
		return nil, fmt.Errorf("postgres_admin_repo_find_by_id_failed: %w", err)
	}

	return admin, nil
}

/*
FindByUsername retrieves an administrator by their unique username.
*/
func (repository *PostgresAdminRepository) FindByUsername(context context.Context, username string) (*Admin, error) {
	const query = `SELECT ` + adminColumns + ` FROM iam.admin WHERE username = $1`

	admin, err := scanAdmin(repository.pool.QueryRow(context, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Administrator")
		}
		return nil, fmt.Errorf("postgres_admin_repo_find_by_username_failed: %w", err)
	}

	return admin, nil
}

/*
FindByEmail retrieves an administrator by their unique email.
*/
func (repository *PostgresAdminRepository) FindByEmail(context context.Context, email string) (*Admin, error) {
	const query = `SELECT ` + adminColumns + ` FROM iam.admin WHERE email = $1`

	admin, err := scanAdmin(repository.pool.QueryRow(context, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Administrator")
		}
		return nil, fmt.Errorf("postgres_admin_repo_find_by_email_failed: %w", err)
	}

	return admin, nil
}

// # Session Repository

// PostgresSessionRepository implements [SessionRepository] using pgx.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates the PostgreSQL implementation of [SessionRepository].
func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

const sessionColumns = `id, tokenhash, subjectclass, subjectid, rememberme, expiresat, revoked, createdat`

func scanSession(row pgx.Row) (*RefreshSession, error) {
	session := &RefreshSession{}
	err := row.Scan(
		&session.ID,
		&session.TokenHash,
		&session.SubjectClass,
		&session.SubjectID,
		&session.RememberMe,
		&session.ExpiresAt,
		&session.Revoked,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

/*
Create persists a new refresh session into the iam.refresh_session table.

Description: Records an issued refresh credential. The tokenhash column
carries a unique constraint; a collision surfaces as Conflict.
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *RefreshSession) error {
	const query = `
		INSERT INTO iam.refresh_session (
			id, tokenhash, subjectclass, subjectid, rememberme, expiresat, revoked, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		session.ID,
		session.TokenHash,
		session.SubjectClass,
		session.SubjectID,
		session.RememberMe,
		session.ExpiresAt,
		session.Revoked,
		session.CreatedAt,
	)

	if err != nil {
		return dberr.Wrap(err, "postgres_session_repo_create")
	}

	return nil
}

/*
FindByTokenHash retrieves a session by its unique token hash.

Description: Returns the row even when revoked or expired. The reuse
detection flow needs to observe dead sessions, so no validity filter
is applied here.

Returns:
  - *RefreshSession: Hydrated session
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresSessionRepository) FindByTokenHash(context context.Context, tokenHash string) (*RefreshSession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM iam.refresh_session WHERE tokenhash = $1`

	session, err := scanSession(repository.pool.QueryRow(context, query, tokenHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session")
		}
		return nil, fmt.Errorf("postgres_session_repo_find_failed: %w", err)
	}

	return session, nil
}

/*
ConsumeAndRotate atomically revokes a session and inserts its replacement.

Description: The revoke is a compare-and-swap UPDATE scoped to revoked=FALSE.
When zero rows are affected, a concurrent request already consumed the
session: the transaction aborts with [ErrSessionConsumed] and nothing is
inserted. A duplicate refresh can therefore never succeed twice.

Parameters:
  - context: context.Context
  - currentID: string
  - replacement: *RefreshSession

Returns:
  - error: ErrSessionConsumed, or storage failures
*/
func (repository *PostgresSessionRepository) ConsumeAndRotate(context context.Context, currentID string, replacement *RefreshSession) error {
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_rotate_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(context) }()

	// ── 1. Compare-and-swap revoke of the consumed session ────────────────
	const revokeQuery = `
		UPDATE iam.refresh_session
		SET revoked = TRUE
		WHERE id = $1 AND revoked = FALSE`

	tag, err := transaction.Exec(context, revokeQuery, currentID)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_rotate_revoke_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionConsumed
	}

	// ── 2. Insert the replacement session ─────────────────────────────────
	if replacement.CreatedAt.IsZero() {
		replacement.CreatedAt = time.Now()
	}

	const insertQuery = `
		INSERT INTO iam.refresh_session (
			id, tokenhash, subjectclass, subjectid, rememberme, expiresat, revoked, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = transaction.Exec(context, insertQuery,
		replacement.ID,
		replacement.TokenHash,
		replacement.SubjectClass,
		replacement.SubjectID,
		replacement.RememberMe,
		replacement.ExpiresAt,
		replacement.Revoked,
		replacement.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_rotate_insert_failed: %w", err)
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres_session_repo_rotate_commit_failed: %w", err)
	}

	return nil
}

/*
Revoke marks a single session as revoked.
*/
func (repository *PostgresSessionRepository) Revoke(context context.Context, sessionID string) error {
	const query = `UPDATE iam.refresh_session SET revoked = TRUE WHERE id = $1`
	_, err := repository.pool.Exec(context, query, sessionID)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_revoke_failed: %w", err)
	}
	return nil
}

/*
RevokeAllForSubject marks every active session of a subject as revoked.

Description: Security nuking of all active sessions for one principal.
*/
func (repository *PostgresSessionRepository) RevokeAllForSubject(context context.Context, class sec.PrincipalClass, subjectID string) error {
	const query = `
		UPDATE iam.refresh_session
		SET revoked = TRUE
		WHERE subjectclass = $1 AND subjectid = $2 AND revoked = FALSE`

	_, err := repository.pool.Exec(context, query, class, subjectID)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_revoke_all_failed: %w", err)
	}
	return nil
}

/*
DeleteExpiredOrRevoked permanently removes dead sessions.

Description: Cleanup task to reclaim storage. Runs on the background sweep
schedule, never on the request path.
*/
func (repository *PostgresSessionRepository) DeleteExpiredOrRevoked(context context.Context) (int64, error) {
	const query = `DELETE FROM iam.refresh_session WHERE expiresat <= NOW() OR revoked = TRUE`

	tag, err := repository.pool.Exec(context, query)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_sweep_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// # Reset Token Repository

// PostgresResetTokenRepository implements [ResetTokenRepository] using pgx.
type PostgresResetTokenRepository struct {
	pool *pgxpool.Pool
}

// NewResetTokenRepository creates the PostgreSQL implementation of [ResetTokenRepository].
func NewResetTokenRepository(pool *pgxpool.Pool) *PostgresResetTokenRepository {
	return &PostgresResetTokenRepository{pool: pool}
}

/*
Create persists a new one-shot password reset token.
*/
func (repository *PostgresResetTokenRepository) Create(context context.Context, token *PasswordResetToken) error {
	const query = `
		INSERT INTO iam.password_reset_token (id, accountid, tokenhash, expiresat, used, createdat)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		token.ID,
		token.AccountID,
		token.TokenHash,
		token.ExpiresAt,
		token.Used,
		token.CreatedAt,
	)

	if err != nil {
		return dberr.Wrap(err, "postgres_reset_token_repo_create")
	}

	return nil
}

/*
FindByTokenHash retrieves a reset token row by hash, including used rows.
*/
func (repository *PostgresResetTokenRepository) FindByTokenHash(context context.Context, tokenHash string) (*PasswordResetToken, error) {
	const query = `
		SELECT id, accountid, tokenhash, expiresat, used, createdat
		FROM iam.password_reset_token
		WHERE tokenhash = $1`

	token := &PasswordResetToken{}
	err := repository.pool.QueryRow(context, query, tokenHash).Scan(
		&token.ID,
		&token.AccountID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.Used,
		&token.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Reset token")
		}
		return nil, fmt.Errorf("postgres_reset_token_repo_find_failed: %w", err)
	}

	return token, nil
}

/*
Consume marks a reset token used via compare-and-swap on the used flag.
*/
func (repository *PostgresResetTokenRepository) Consume(context context.Context, tokenID string) error {
	const query = `
		UPDATE iam.password_reset_token
		SET used = TRUE
		WHERE id = $1 AND used = FALSE`

	tag, err := repository.pool.Exec(context, query, tokenID)
	if err != nil {
		return fmt.Errorf("postgres_reset_token_repo_consume_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrResetTokenConsumed
	}

	return nil
}

/*
InvalidateForAccount marks every outstanding reset token for the account used.
*/
func (repository *PostgresResetTokenRepository) InvalidateForAccount(context context.Context, accountID string) error {
	const query = `
		UPDATE iam.password_reset_token
		SET used = TRUE
		WHERE accountid = $1 AND used = FALSE`

	_, err := repository.pool.Exec(context, query, accountID)
	if err != nil {
		return fmt.Errorf("postgres_reset_token_repo_invalidate_failed: %w", err)
	}
	return nil
}

/*
DeleteExpiredOrUsed permanently removes dead reset tokens.
*/
func (repository *PostgresResetTokenRepository) DeleteExpiredOrUsed(context context.Context) (int64, error) {
	const query = `DELETE FROM iam.password_reset_token WHERE expiresat <= NOW() OR used = TRUE`

	tag, err := repository.pool.Exec(context, query)
	if err != nil {
		return 0, fmt.Errorf("postgres_reset_token_repo_sweep_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
