// Copyright (c) 2026 IP Platform. All rights reserved.

// Package username derives ASCII usernames from arbitrary Unicode names.
//
// # Usage
//
// Accounts provisioned through Google sign-in arrive with a display name but
// no chosen username. This package turns "José Å. Righetti" into a valid
// handle like "jose.a.righetti", with numeric suffixes for collisions.
package username

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// disallowed matches any run of characters outside the username alphabet.
	disallowed = regexp.MustCompile(`[^a-z0-9._-]+`)
	// multiDot collapses consecutive separator dots into one.
	multiDot = regexp.MustCompile(`\.{2,}`)
)

// FromDisplayName converts a display name into a lowercase ASCII username.
//
// # Transformation Pipeline
//
// 1. Normalizes to NFD (decomposes accented chars: é → e + combining acute).
// 2. Removes combining marks (accents).
// 3. Converts to lowercase.
// 4. Replaces whitespace runs with single dots.
// 5. Drops remaining disallowed characters and trims edge separators.
//
// Falls back to "user" when nothing usable survives the pipeline.
func FromDisplayName(name string) string {
	// 1. Normalize and remove accents
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn))
	result, _, _ := transform.String(t, name)

	// 2. Lowercase
	result = strings.ToLower(result)

	// 3. Whitespace becomes the dot separator
	result = strings.Join(strings.Fields(result), ".")

	// 4. Drop anything outside the allowed alphabet
	result = disallowed.ReplaceAllString(result, "")
	result = multiDot.ReplaceAllString(result, ".")
	result = strings.Trim(result, "._-")

	if result == "" {
		return "user"
	}
	return result
}

// WithSuffix appends a numeric collision suffix: "jose.righetti" + 2 returns
// "jose.righetti2". A suffix below 2 returns the base unchanged.
func WithSuffix(base string, n int) string {
	if n < 2 {
		return base
	}
	return fmt.Sprintf("%s%d", base, n)
}

// isMn reports whether r is a Unicode non-spacing mark (e.g., accents).
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
