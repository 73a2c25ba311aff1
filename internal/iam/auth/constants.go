// Copyright (c) 2026 IP Platform. All rights reserved.

package auth

import "time"

// # Authentication Constraints

const (
	// AccessTokenTTL is the duration a JWT access token remains valid.
	// We keep it short (15m) to minimize the impact of a leaked token.
	AccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTTL is the refresh session lifetime when the client did
	// not ask to be remembered. Overridable through configuration.
	DefaultRefreshTTL = 7 * 24 * time.Hour

	// DefaultRememberMeTTL is the extended refresh session lifetime for
	// remember-me logins. Overridable through configuration.
	DefaultRememberMeTTL = 30 * 24 * time.Hour

	// DefaultResetTokenTTL is the lifetime of a password reset token.
	// Short-lived (1 hour) for security.
	DefaultResetTokenTTL = 60 * time.Minute

	// ResetTokenLength is the byte length of the random password reset token.
	ResetTokenLength = 32
)
