// Copyright (c) 2026 IP Platform. All rights reserved.

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, JWT signing) from
// the domain logic. It acts as an infrastructure service injected into the
// application layer via narrow interfaces ([TokenIssuer], middleware's
// TokenVerifier).
package sec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// # Token Types

// TokenType distinguishes the two credentials the signer can mint. A refresh
// token presented where an access token is required (or vice versa) fails
// verification with [ErrTokenWrongType].
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// # Verification Errors

var (
	// ErrTokenExpired is returned when the token signature is valid but the
	// expiry has passed. Clients receiving this should call refresh, not re-login.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenMalformed is returned for any structural or signature failure.
	ErrTokenMalformed = errors.New("sec: token malformed or signature invalid")

	// ErrTokenWrongType is returned when the embedded type claim does not
	// match what the caller expects.
	ErrTokenWrongType = errors.New("sec: token type mismatch")
)

// AuthClaims represents the payload embedded inside a signed token.
//
// # Why custom claims?
//
// By embedding the principal ID, role, and principal class directly inside
// the JWT, the request authenticator can reconstruct the caller's identity
// WITHOUT querying the database on the request fast path. Refresh tokens
// deliberately omit the role claim: role is re-read from storage at rotation
// time, so a role downgrade takes effect on the next refresh.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	PrincipalID string         `json:"uid"`
	Role        Role           `json:"rol,omitempty"`
	Class       PrincipalClass `json:"cls"`
	TokenType   TokenType      `json:"typ"`
}

// TokenIssuer is the signing half of the credential signer, as consumed by
// the auth orchestrator.
type TokenIssuer interface {
	IssueAccessToken(principalID, username string, role Role, class PrincipalClass, timeToLive time.Duration) (string, error)
	IssueRefreshToken(principalID, username string, class PrincipalClass, timeToLive time.Duration) (string, error)
}

// TokenService handles generation and verification of JWT tokens using RS256.
//
// The key pair is process-wide static configuration: loaded once at startup,
// never mutated. Rotating key material is a redeploy, not a code change.
type TokenService struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
}

// NewTokenService creates a new TokenService.
// It reads RSA keys from the provided filesystem paths.
func NewTokenService(privateKeyPath, publicKeyPath, issuer string) (*TokenService, error) {
	privateKeyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read private key from %s: %w", privateKeyPath, err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse private key: %w", err)
	}

	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read public key from %s: %w", publicKeyPath, err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse public key: %w", err)
	}

	return &TokenService{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
	}, nil
}

// NewTokenServiceFromKeys constructs a TokenService from in-memory keys.
// Used by tests; production wiring goes through [NewTokenService].
func NewTokenServiceFromKeys(privateKey *rsa.PrivateKey, issuer string) *TokenService {
	return &TokenService{
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
		issuer:     issuer,
	}
}

// IssueAccessToken creates a short-lived token carrying role and class claims.
func (service *TokenService) IssueAccessToken(principalID, username string, role Role, class PrincipalClass, timeToLive time.Duration) (string, error) {
	return service.sign(AuthClaims{
		PrincipalID: principalID,
		Role:        role,
		Class:       class,
		TokenType:   TokenTypeAccess,
	}, username, timeToLive)
}

// IssueRefreshToken creates a long-lived token carrying only subject identity
// and a refresh type marker. The raw string doubles as the durable session key,
// so each token gets a unique jti: two tokens minted for the same subject in
// the same second must still differ byte-for-byte.
func (service *TokenService) IssueRefreshToken(principalID, username string, class PrincipalClass, timeToLive time.Duration) (string, error) {
	claims := AuthClaims{
		PrincipalID: principalID,
		Class:       class,
		TokenType:   TokenTypeRefresh,
	}
	claims.ID = uuid.New().String()
	return service.sign(claims, username, timeToLive)
}

func (service *TokenService) sign(claims AuthClaims, username string, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    service.issuer,
		ID:        claims.ID,
		IssuedAt:  jwt.NewNumericDate(currentTime),
		ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(service.privateKey)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// VerifyToken checks the signature and validity of a JWT string and enforces
// the embedded type claim.
//
// # Returns
//   - [ErrTokenExpired] when past expiry (signature still valid).
//   - [ErrTokenMalformed] for any structural or signature failure.
//   - [ErrTokenWrongType] when typ does not match expectedType.
func (service *TokenService) VerifyToken(tokenString string, expectedType TokenType) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.publicKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	if claims.TokenType != expectedType {
		return nil, ErrTokenWrongType
	}

	return claims, nil
}
