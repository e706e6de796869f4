package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/nowplaying/internal/adapter/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func envFrom(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestRun_MintsVerifiableToken(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	var out bytes.Buffer

	err := run([]string{"-ttl", "2h"}, &out, envFrom(map[string]string{
		usernameEnv: "wall-admin",
		secretEnv:   testSecret,
	}), clock)
	require.NoError(t, err)

	token := strings.TrimSpace(out.String())
	verifier := auth.NewTokenAuthenticator(testSecret, "wall-admin", clock)

	principal, err := verifier.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "wall-admin", principal.Subject)

	clock.Advance(2*time.Hour + time.Second)
	_, err = verifier.VerifyToken(context.Background(), token)
	assert.Error(t, err, "token must expire after the requested ttl")
}

func TestRun_FlagsOverrideEnvironment(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var out bytes.Buffer

	err := run([]string{"-username", "ops", "-secret", testSecret}, &out, envFrom(map[string]string{
		usernameEnv: "ignored",
		secretEnv:   "also-ignored-but-long-enough-0000000",
	}), clock)
	require.NoError(t, err)

	verifier := auth.NewTokenAuthenticator(testSecret, "ops", clock)
	_, err = verifier.VerifyToken(context.Background(), strings.TrimSpace(out.String()))
	assert.NoError(t, err)
}

func TestRun_RejectsBadInput(t *testing.T) {
	full := map[string]string{usernameEnv: "admin", secretEnv: testSecret}

	tests := []struct {
		name    string
		args    []string
		env     map[string]string
		wantErr string
	}{
		{"missing credentials", nil, map[string]string{}, "are required"},
		{"short secret", nil, map[string]string{usernameEnv: "admin", secretEnv: "short"}, "at least 32 characters"},
		{"negative ttl", []string{"-ttl", "-1h"}, full, "ttl must be positive"},
		{"ttl too long", []string{"-ttl", "9000h"}, full, "at most"},
		{"unknown flag", []string{"-forever"}, full, "flag provided but not defined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer

			err := run(tt.args, &out, envFrom(tt.env), clockwork.NewFakeClock())

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, out.String())
		})
	}
}
