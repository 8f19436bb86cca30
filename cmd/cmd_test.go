package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	t.Parallel()

	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"serve", "ask", "ingest", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestCheckRequiredEnv(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		require.Error(t, checkRequiredEnv())
	})

	t.Run("key present", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "test-key")
		require.NoError(t, checkRequiredEnv())
	})
}
