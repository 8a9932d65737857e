// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoalesceString(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{name: "configured value wins", values: []string{"http", "grpc"}, want: "http"},
		{name: "falls back past empty values", values: []string{"", "", "grpc"}, want: "grpc"},
		{name: "whitespace counts as set", values: []string{" ", "grpc"}, want: " "},
		{name: "all empty", values: []string{"", ""}, want: ""},
		{name: "no values", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CoalesceString(tt.values...))
		})
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("ROSTER_TEST_PROTOCOL", "http")
	assert.Equal(t, "http", EnvOr("ROSTER_TEST_PROTOCOL", "grpc"))

	t.Setenv("ROSTER_TEST_PROTOCOL", "")
	assert.Equal(t, "grpc", EnvOr("ROSTER_TEST_PROTOCOL", "grpc"))

	assert.Equal(t, "lfx-v2-event-roster-service", EnvOr("ROSTER_TEST_UNSET_NAME", defaultServiceName))
}
