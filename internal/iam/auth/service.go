// Copyright (c) 2026 IP Platform. All rights reserved.

/*
Core identity orchestration: register, login, refresh rotation, logout.

Architecture:

  - Service: Orchestrates business logic over narrow repository contracts.
  - Repository: Abstracted interfaces for the Postgres stores.
  - Security: Bcrypt password hashing and RSA-signed JWTs via platform/sec.

The service is critical for security. Any changes to hashing, registration,
or login logic must be reviewed by the security team.
*/
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ipplatform/backend/internal/platform/apperr"
	"github.com/ipplatform/backend/internal/platform/mail"
	"github.com/ipplatform/backend/internal/platform/sec"
)

// # Contracts & Types

// ApplicationCreator is the one-directional hook into the analyst review
// workflow: registration creates the empty application record, everything
// after that belongs to the application package.
type ApplicationCreator interface {
	CreateEmpty(context context.Context, accountID string) error
}

// GoogleVerifier validates a Google ID token and returns the asserted identity.
type GoogleVerifier interface {
	Verify(context context.Context, rawIDToken string) (*sec.GoogleIdentity, error)
}

// Options carries the tunable lifetimes and links for the service.
type Options struct {
	RefreshTTL    time.Duration
	RememberMeTTL time.Duration
	ResetTokenTTL time.Duration
	FrontendURL   string
}

// Service implements the authentication and account lifecycle use cases.
type Service struct {
	accounts    AccountRepository
	admins      AdminRepository
	sessions    SessionRepository
	resetTokens ResetTokenRepository
	apps        ApplicationCreator
	tokens      sec.TokenIssuer
	google      GoogleVerifier
	notifier    mail.Notifier
	logger      *slog.Logger
	options     Options
}

// NewService constructs the auth [Service] with its dependencies.
//
// The google verifier may be nil when Google sign-in is not configured;
// the Google provisioning endpoint then rejects all exchanges.
func NewService(
	accounts AccountRepository,
	admins AdminRepository,
	sessions SessionRepository,
	resetTokens ResetTokenRepository,
	apps ApplicationCreator,
	tokens sec.TokenIssuer,
	google GoogleVerifier,
	notifier mail.Notifier,
	logger *slog.Logger,
	options Options,
) *Service {
	if options.RefreshTTL <= 0 {
		options.RefreshTTL = DefaultRefreshTTL
	}
	if options.RememberMeTTL <= 0 {
		options.RememberMeTTL = DefaultRememberMeTTL
	}
	if options.ResetTokenTTL <= 0 {
		options.ResetTokenTTL = DefaultResetTokenTTL
	}

	return &Service{
		accounts:    accounts,
		admins:      admins,
		sessions:    sessions,
		resetTokens: resetTokens,
		apps:        apps,
		tokens:      tokens,
		google:      google,
		notifier:    notifier,
		logger:      logger,
		options:     options,
	}
}

// TokenPair is the transport-ready result of a successful authentication.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new principal.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Role     sec.Role // RoleUser or RoleAnalyst
}

// RegisterResult carries the created account plus, for analysts, the
// immediately issued token pair.
type RegisterResult struct {
	Account *Account
	// Tokens is non-nil only for analyst registrations: the new analyst must
	// be able to authenticate the document-upload calls even though general
	// login stays gated until approval.
	Tokens *TokenPair
}

/*
Register validates, hashes, and persists a brand new account.

Description: Enrolls a user (immediately ACTIVE) or an analyst (gated behind
document review). Username and email uniqueness is enforced across BOTH the
account and admin populations since all principals share one token namespace.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *RegisterResult: Created entity, plus tokens for analysts
  - error: Conflict (if identity exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*RegisterResult, error) {

	// ── 1. Cross-class uniqueness ─────────────────────────────────────────
	if err := service.checkIdentityFree(context, input.Username, input.Email); err != nil {
		return nil, err
	}

	// ── 2. Hash credentials ───────────────────────────────────────────────
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// ── 3. Construct the account in its starting state ────────────────────
	account := &Account{
		ID:           uuid.New().String(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		FullName:     input.FullName,
		Role:         input.Role,
		Class:        sec.ClassUser,
		Status:       StatusActive,
	}
	if input.Role == sec.RoleAnalyst {
		account.Class = sec.ClassAnalyst
		account.Status = StatusPendingDocument
	}

	if err := service.accounts.Create(context, account); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	// ── 4. Role-specific side effects ─────────────────────────────────────
	result := &RegisterResult{Account: account}

	if input.Role == sec.RoleAnalyst {
		// The empty application record anchors the document review workflow.
		if err := service.apps.CreateEmpty(context, account.ID); err != nil {
			return nil, fmt.Errorf("auth_service_create_application_failed: %w", err)
		}

		service.notify("analyst_pending", func() error {
			return service.notifier.SendAnalystPending(account.Email, account.FullName)
		})

		// Immediate token pair so document-upload calls can authenticate.
		tokens, err := service.issuePair(context, account.ID, account.Username, account.Role, account.Class, false)
		if err != nil {
			return nil, err
		}
		result.Tokens = tokens
		return result, nil
	}

	service.notify("welcome", func() error {
		return service.notifier.SendWelcome(account.Email, account.FullName)
	})

	return result, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Username   string // Username or email
	Password   string
	RememberMe bool
}

// LoginSession represents a successfully established session.
type LoginSession struct {
	TokenPair
	Account *Account
}

/*
Login validates credentials and issues a token pair.

Description: Unknown principals and wrong passwords produce one identical
generic message (anti-enumeration). Once credentials match, a non-ACTIVE
status produces a status-specific message instead, so the client can route
the caller to the right screen. This state leak is deliberate and scoped to
post-authentication state only.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Transport-ready session identifiers
  - err: Unauthorized or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {

	// ── 1. Flexible lookup by username or email ───────────────────────────
	account, err := service.accounts.FindByUsername(context, input.Username)
	if err != nil {
		account, err = service.accounts.FindByEmail(context, input.Username)
	}
	if err != nil {
		return nil, apperr.Unauthorized("Invalid username or password")
	}

	// ── 2. Credential verification ────────────────────────────────────────
	if !account.HasPassword() {
		return nil, apperr.Unauthorized("This account uses Google sign-in. Please continue with Google.")
	}
	if !sec.CheckPasswordHash(input.Password, account.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid username or password")
	}

	// ── 3. Lifecycle gate ─────────────────────────────────────────────────
	if account.Status != StatusActive {
		return nil, loginBlockedError(account.Status)
	}

	// ── 4. Token issuance ─────────────────────────────────────────────────
	tokens, err := service.issuePair(context, account.ID, account.Username, account.Role, account.Class, input.RememberMe)
	if err != nil {
		return nil, err
	}

	return &LoginSession{TokenPair: *tokens, Account: account}, nil
}

// AdminSession represents a successfully established administrator session.
type AdminSession struct {
	TokenPair
	Admin *Admin
}

/*
AdminLogin authenticates a seeded administrator.

Description: Admins have a simpler lifecycle (active/inactive) and no
remember-me option. The issued tokens carry the ADMIN class tag.

Parameters:
  - context: context.Context
  - username: string
  - password: string

Returns:
  - *AdminSession: Transport-ready session identifiers
  - err: Unauthorized or internal failures
*/
func (service *Service) AdminLogin(context context.Context, username, password string) (*AdminSession, error) {
	admin, err := service.admins.FindByUsername(context, username)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid username or password")
	}

	if !sec.CheckPasswordHash(password, admin.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid username or password")
	}

	if !admin.IsActive {
		return nil, apperr.Unauthorized("This administrator account has been deactivated")
	}

	tokens, err := service.issuePair(context, admin.ID, admin.Username, sec.RoleAdmin, sec.ClassAdmin, false)
	if err != nil {
		return nil, err
	}

	return &AdminSession{TokenPair: *tokens, Admin: admin}, nil
}

// # Session Management

/*
Refresh implements refresh token rotation with reuse detection.

Description: The presented token is looked up by hash. A token that is known
but no longer valid is treated as a theft signal: every session of that
subject is revoked and the caller must log in again. A valid token is
consumed and replaced atomically, so a concurrent duplicate refresh succeeds
exactly once.

Parameters:
  - context: context.Context
  - rawRefreshToken: string

Returns:
  - *TokenPair: Rotated credentials
  - err: Unauthorized or storage failures
*/
func (service *Service) Refresh(context context.Context, rawRefreshToken string) (*TokenPair, error) {

	// ── 1. Hash lookup ────────────────────────────────────────────────────
	session, err := service.sessions.FindByTokenHash(context, sec.HashToken(rawRefreshToken))
	if err != nil {
		return nil, apperr.Unauthorized("Invalid refresh token").WithCode("TOKEN_INVALID")
	}

	// ── 2. Reuse detection ────────────────────────────────────────────────
	if !session.Valid() {
		_ = service.sessions.RevokeAllForSubject(context, session.SubjectClass, session.SubjectID)
		return nil, sessionExpiredError()
	}

	// ── 3. Resolve the subject and re-read its current role ──────────────
	subjectID, username, role, class, err := service.resolveSubject(context, session)
	if err != nil {
		_ = service.sessions.RevokeAllForSubject(context, session.SubjectClass, session.SubjectID)
		return nil, err
	}

	// ── 4. Mint the replacement pair ──────────────────────────────────────
	accessToken, err := service.tokens.IssueAccessToken(subjectID, username, role, class, AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_access_token_failed: %w", err)
	}

	ttl := service.refreshTTL(session.RememberMe)
	newRefreshToken, err := service.tokens.IssueRefreshToken(subjectID, username, class, ttl)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	expiresAt := time.Now().Add(ttl)
	replacement := &RefreshSession{
		ID:           uuid.New().String(),
		TokenHash:    sec.HashToken(newRefreshToken),
		SubjectClass: class,
		SubjectID:    subjectID,
		RememberMe:   session.RememberMe,
		ExpiresAt:    expiresAt,
	}

	// ── 5. Atomic rotation ────────────────────────────────────────────────
	if err := service.sessions.ConsumeAndRotate(context, session.ID, replacement); err != nil {
		if err == ErrSessionConsumed {
			// Lost the race: someone else just spent this token.
			_ = service.sessions.RevokeAllForSubject(context, session.SubjectClass, session.SubjectID)
			return nil, sessionExpiredError()
		}
		return nil, fmt.Errorf("auth_service_rotate_failed: %w", err)
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     newRefreshToken,
		RefreshExpiresAt: expiresAt,
	}, nil
}

/*
Logout permanently revokes one session.

Description: Idempotent. An unknown or already-revoked token is treated as a
successful logout.

Parameters:
  - context: context.Context
  - rawRefreshToken: string
*/
func (service *Service) Logout(context context.Context, rawRefreshToken string) error {
	session, err := service.sessions.FindByTokenHash(context, sec.HashToken(rawRefreshToken))
	if err != nil {
		return nil
	}

	if err := service.sessions.Revoke(context, session.ID); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	return nil
}

/*
LogoutAll revokes every session of the given subject.
*/
func (service *Service) LogoutAll(context context.Context, class sec.PrincipalClass, subjectID string) error {
	if err := service.sessions.RevokeAllForSubject(context, class, subjectID); err != nil {
		return fmt.Errorf("auth_service_logout_all_failed: %w", err)
	}
	return nil
}

// # Profile Resolution

/*
Profile resolves the authenticated principal's own record.

Returns:
  - any: *Account or *Admin depending on the principal class
  - err: NotFound or storage failures
*/
func (service *Service) Profile(context context.Context, class sec.PrincipalClass, subjectID string) (any, error) {
	if class == sec.ClassAdmin {
		return service.admins.FindByID(context, subjectID)
	}
	return service.accounts.FindByID(context, subjectID)
}

// # Maintenance

/*
SweepCredentials deletes expired or dead refresh sessions and reset tokens.

Description: Invoked by the background scheduler. Failures are logged by the
caller and retried on the next cycle; they never affect request handling.

Returns:
  - int64: Total rows removed
  - err: Cleanup failures
*/
func (service *Service) SweepCredentials(context context.Context) (int64, error) {
	sessionsRemoved, err := service.sessions.DeleteExpiredOrRevoked(context)
	if err != nil {
		return 0, err
	}

	tokensRemoved, err := service.resetTokens.DeleteExpiredOrUsed(context)
	if err != nil {
		return sessionsRemoved, err
	}

	return sessionsRemoved + tokensRemoved, nil
}

// # Internal Helpers

// checkIdentityFree enforces username/email uniqueness across accounts AND admins.
func (service *Service) checkIdentityFree(context context.Context, username, email string) error {
	if _, err := service.accounts.FindByUsername(context, username); err == nil {
		return apperr.Conflict("Username is already taken")
	}
	if _, err := service.admins.FindByUsername(context, username); err == nil {
		return apperr.Conflict("Username is already taken")
	}
	if _, err := service.accounts.FindByEmail(context, email); err == nil {
		return apperr.Conflict("Email is already registered")
	}
	if _, err := service.admins.FindByEmail(context, email); err == nil {
		return apperr.Conflict("Email is already registered")
	}
	return nil
}

// issuePair mints an access+refresh pair and persists the tracking session.
func (service *Service) issuePair(
	context context.Context,
	subjectID, username string,
	role sec.Role,
	class sec.PrincipalClass,
	rememberMe bool,
) (*TokenPair, error) {
	accessToken, err := service.tokens.IssueAccessToken(subjectID, username, role, class, AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	ttl := service.refreshTTL(rememberMe)
	refreshToken, err := service.tokens.IssueRefreshToken(subjectID, username, class, ttl)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	expiresAt := time.Now().Add(ttl)
	session := &RefreshSession{
		ID:           uuid.New().String(),
		TokenHash:    sec.HashToken(refreshToken),
		SubjectClass: class,
		SubjectID:    subjectID,
		RememberMe:   rememberMe,
		ExpiresAt:    expiresAt,
	}

	if err := service.sessions.Create(context, session); err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: expiresAt,
	}, nil
}

// refreshTTL maps the remember-me flag to the configured session lifetime.
func (service *Service) refreshTTL(rememberMe bool) time.Duration {
	if rememberMe {
		return service.options.RememberMeTTL
	}
	return service.options.RefreshTTL
}

// resolveSubject loads the session's owner and re-reads role and status.
// Role is never trusted from the old token: a downgrade or suspension takes
// effect at the next rotation.
func (service *Service) resolveSubject(context context.Context, session *RefreshSession) (subjectID, username string, role sec.Role, class sec.PrincipalClass, err error) {
	if session.SubjectClass == sec.ClassAdmin {
		admin, findErr := service.admins.FindByID(context, session.SubjectID)
		if findErr != nil || !admin.IsActive {
			return "", "", "", "", apperr.Unauthorized("Administrator account is no longer active")
		}
		return admin.ID, admin.Username, sec.RoleAdmin, sec.ClassAdmin, nil
	}

	account, findErr := service.accounts.FindByID(context, session.SubjectID)
	if findErr != nil {
		return "", "", "", "", apperr.Unauthorized("Account no longer exists")
	}

	// Pending analysts keep their registration carve-out; suspended and
	// rejected principals lose the ability to rotate.
	if account.Status == StatusSuspended || account.Status == StatusRejected {
		return "", "", "", "", loginBlockedError(account.Status)
	}

	return account.ID, account.Username, account.Role, account.Class, nil
}

// notify fires a best-effort notification without blocking the caller.
// A delivery failure never rolls back the state transition that caused it.
func (service *Service) notify(template string, send func() error) {
	logger := service.logger
	go func() {
		if err := send(); err != nil {
			logger.Warn("mail_send_failed",
				slog.String("template", template),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// sessionExpiredError is the uniform response to any reuse signal.
func sessionExpiredError() *apperr.AppError {
	return apperr.Unauthorized("Session expired. Please log in again.").WithCode("SESSION_EXPIRED")
}

// loginBlockedError maps a non-ACTIVE status to its client-facing message.
func loginBlockedError(status AccountStatus) *apperr.AppError {
	switch status {
	case StatusPendingDocument:
		return apperr.Unauthorized("Your analyst account is awaiting document upload. Please upload your verification documents.").
			WithCode("ACCOUNT_PENDING_DOCUMENT")
	case StatusPendingReview:
		return apperr.Unauthorized("Your analyst application is under review. You will be notified once a decision is made.").
			WithCode("ACCOUNT_PENDING_REVIEW")
	case StatusRejected:
		return apperr.Unauthorized("Your analyst application has been rejected. Please contact support.").
			WithCode("ACCOUNT_REJECTED")
	case StatusSuspended:
		return apperr.Unauthorized("Your account has been suspended. Please contact support.").
			WithCode("ACCOUNT_SUSPENDED")
	default:
		return apperr.Unauthorized("Your account is not active")
	}
}
