// Copyright (c) 2026 IP Platform. All rights reserved.

/*
Package auth implements the identity and session management layer.

It defines the core domain entities (Account, Admin, RefreshSession,
PasswordResetToken) and the business logic for authentication, credential
rotation, and account lifecycle.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no
external dependencies and encapsulate all business rules related to identity.
The platform has three disjoint principal populations (users, analysts,
admins) sharing one token format; users and analysts live in the account
table, admins in their own table with a simpler active/inactive lifecycle.
*/
package auth

import (
	"time"

	"github.com/ipplatform/backend/internal/platform/sec"
)

// # Account Lifecycle

// AccountStatus is the lifecycle state of a user or analyst account.
//
// Only ACTIVE accounts may obtain an access token through the general login
// path. Analyst accounts walk PENDING_DOCUMENT → PENDING_REVIEW → ACTIVE
// (or REJECTED) through the application review workflow.
type AccountStatus string

const (
	StatusActive          AccountStatus = "ACTIVE"
	StatusPendingDocument AccountStatus = "PENDING_DOCUMENT"
	StatusPendingReview   AccountStatus = "PENDING_REVIEW"
	StatusRejected        AccountStatus = "REJECTED"
	StatusSuspended       AccountStatus = "SUSPENDED"
)

// # Domain Entities

// Account represents a registered user or analyst principal.
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	// PasswordHash is empty for accounts provisioned through Google sign-in.
	PasswordHash string `json:"-"`
	FullName     string `json:"full_name"`
	// GoogleSubject is the stable Google account identifier for federated logins.
	GoogleSubject string         `json:"-"`
	Role          sec.Role       `json:"role"`
	Class         sec.PrincipalClass `json:"class"`
	Status        AccountStatus  `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// HasPassword reports whether the account can authenticate with a password.
func (account *Account) HasPassword() bool {
	return account.PasswordHash != ""
}

// Admin represents a seeded administrator. Admins cannot self-register and
// have only an active/inactive lifecycle.
type Admin struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// RefreshSession is the durable record of an issued refresh credential.
// Access tokens are never persisted; this row is the only durable credential.
type RefreshSession struct {
	ID string `json:"id"`
	// TokenHash is the SHA-256 digest of the raw refresh token. The raw value
	// exists only in the client's hands.
	TokenHash    string             `json:"-"`
	SubjectClass sec.PrincipalClass `json:"subject_class"`
	SubjectID    string             `json:"subject_id"`
	RememberMe   bool               `json:"remember_me"`
	ExpiresAt    time.Time          `json:"expires_at"`
	Revoked      bool               `json:"revoked"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Valid reports whether the session can still be redeemed for a new pair.
func (session *RefreshSession) Valid() bool {
	return !session.Revoked && time.Now().Before(session.ExpiresAt)
}

// PasswordResetToken is a one-shot credential for the forgot-password flow.
type PasswordResetToken struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

// Valid reports whether the token can still be consumed.
func (token *PasswordResetToken) Valid() bool {
	return !token.Used && time.Now().Before(token.ExpiresAt)
}

// # Field Identifiers

// Global field names for validation and identity mapping in the auth domain.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldFullName        = "full_name"
	FieldRole            = "role"
	FieldToken           = "token"
	FieldIDToken         = "id_token"
	FieldRefreshToken    = "refresh_token"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldAccessToken     = "access_token"
	FieldTokenType       = "token_type"
	FieldExpiresIn       = "expires_in"
	FieldAccount         = "account"
	FieldMessage         = "message"
)
