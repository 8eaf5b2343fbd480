package main

import (
	"bytes"
	"testing"

	"planets-universe/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		checkFix, checkDryRun, checkOnly, checkOutput = false, false, "", "text"
		application = nil
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"migrate", "check", "generate", "redistribute-home-planets", "translate-planet-types"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestCheck_RejectsBadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"dry run without fix", []string{"check", "--dry-run"}},
		{"unknown category", []string{"check", "--fix", "--only", "counts,warp"}},
		{"unknown format", []string{"check", "--output", "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, errors.ErrorTypeValidation, errors.GetType(err))
			assert.Equal(t, 2, errors.ExitCode(err))
		})
	}
}

func TestRootFlags(t *testing.T) {
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("seed"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("metrics-file"))
	assert.NotNil(t, checkCmd.Flags().Lookup("only"))
}
