// Copyright (c) 2026 IP Platform. All rights reserved.

package sec

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"
)

// GoogleIdentity is the subset of a verified Google ID token the platform
// needs for account provisioning.
type GoogleIdentity struct {
	// Subject is Google's stable account identifier.
	Subject string
	Email   string
	Name    string
	Picture string
}

// GoogleVerifier validates Google-issued ID tokens against a client ID.
type GoogleVerifier struct {
	clientID string
}

// NewGoogleVerifier constructs a verifier bound to the OAuth client ID.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID}
}

// Verify validates the ID token signature, audience, and issuer, and extracts
// the profile claims used for provisioning.
func (verifier *GoogleVerifier) Verify(ctx context.Context, rawIDToken string) (*GoogleIdentity, error) {
	if strings.TrimSpace(rawIDToken) == "" {
		return nil, errors.New("sec: missing id token")
	}
	if strings.TrimSpace(verifier.clientID) == "" {
		return nil, errors.New("sec: google sign-in is not configured")
	}

	payload, err := idtoken.Validate(ctx, rawIDToken, verifier.clientID)
	if err != nil {
		return nil, fmt.Errorf("sec: google id token rejected: %w", err)
	}

	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return nil, fmt.Errorf("sec: unexpected google issuer: %s", payload.Issuer)
	}

	identity := &GoogleIdentity{Subject: payload.Subject}
	identity.Email = strings.ToLower(strings.TrimSpace(stringClaim(payload.Claims, "email")))
	identity.Name = stringClaim(payload.Claims, "name")
	identity.Picture = stringClaim(payload.Claims, "picture")

	if identity.Email == "" {
		return nil, errors.New("sec: google id token carries no email claim")
	}

	return identity, nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	if raw, ok := claims[key]; ok {
		if value, ok := raw.(string); ok {
			return value
		}
	}
	return ""
}
