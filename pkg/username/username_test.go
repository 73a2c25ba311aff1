// Copyright (c) 2026 IP Platform. All rights reserved.

package username_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ipplatform/backend/pkg/username"
)

/*
TestFromDisplayName covers the accent-stripping derivation pipeline.
*/
func TestFromDisplayName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Jane Doe", "jane.doe"},
		{"accents", "José Righetti", "jose.righetti"},
		{"extra_whitespace", "  Jane   Doe  ", "jane.doe"},
		{"symbols_dropped", "Jane @ Doe!", "jane.doe"},
		{"cjk_falls_back", "山田太郎", "user"},
		{"empty_falls_back", "", "user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, username.FromDisplayName(tt.input))
		})
	}
}

/*
TestWithSuffix checks collision suffix formatting.
*/
func TestWithSuffix(t *testing.T) {
	assert.Equal(t, "jane.doe", username.WithSuffix("jane.doe", 0))
	assert.Equal(t, "jane.doe", username.WithSuffix("jane.doe", 1))
	assert.Equal(t, "jane.doe2", username.WithSuffix("jane.doe", 2))
	assert.Equal(t, "jane.doe17", username.WithSuffix("jane.doe", 17))
}
