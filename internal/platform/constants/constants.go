// Copyright (c) 2026 IP Platform. All rights reserved.

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: burst capacities and IP tracking TTLs.
  - Security: JWT issuer and the bearer header format.
  - Maintenance: credential sweep cadence.

Using this package keeps magic strings and magic numbers out of business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "ipplatform-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	// Generous enough for multipart document uploads over slow links.
	DefaultReadTimeout = 15 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 15 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 50.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 100

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "ipplatform.com"

	// HeaderAuthorization is the bearer credential header.
	HeaderAuthorization = "Authorization"

	// BearerPrefix is the expected Authorization header scheme.
	BearerPrefix = "Bearer "
)

// # Credential Maintenance

const (
	// SweepInterval is how often expired/revoked refresh sessions and consumed
	// password reset tokens are purged from the database.
	SweepInterval = 24 * time.Hour

	// SweepInitialDelay defers the first sweep so it never competes with startup.
	SweepInitialDelay = 1 * time.Minute
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # Document Upload Limits

const (
	// MaxDocumentBytes is the per-file limit for analyst identity documents.
	MaxDocumentBytes = 5 * 1024 * 1024
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldMeta    = "meta"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldStatus  = "status"
)

// # Database Schemas

const (
	SchemaIAM    = "iam"
	SchemaPatent = "patent"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixPatentSearch = "patent:search:"
	RedisPrefixPatentDetail = "patent:detail:"
)
