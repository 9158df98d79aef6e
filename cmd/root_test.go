package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/postal-enrich/internal/model"
)

func subcommandNames(c *cobra.Command) map[string]bool {
	names := make(map[string]bool)
	for _, sub := range c.Commands() {
		names[sub.Name()] = true
	}
	return names
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := subcommandNames(rootCmd)
	for _, name := range []string{"enrich", "zip", "runs", "config"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "postal-enrich", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestEnrichCommand_Flags(t *testing.T) {
	input := enrichCmd.Flags().Lookup("input")
	require.NotNil(t, input, "enrich command should have --input flag")
	assert.Equal(t, []string{"true"}, input.Annotations[cobra.BashCompOneRequiredFlag])

	limit := enrichCmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "0", limit.DefValue)

	for _, name := range []string{"output", "dry-run", "no-prompt"} {
		assert.NotNil(t, enrichCmd.Flags().Lookup(name), "enrich should have --%s flag", name)
	}
}

func TestEnrichCommand_HelpNamesInputColumns(t *testing.T) {
	for _, col := range []string{"FIRST_NAME", "LAST_NAME", "STREET", "ZIP"} {
		assert.Contains(t, model.InputColumns, col)
		assert.Contains(t, enrichCmd.Long, col)
	}
	assert.NotContains(t, enrichCmd.Long, "ADDRESS")
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := subcommandNames(runsCmd)
	assert.True(t, names["list"])
	assert.True(t, names["show"])

	limit := runsListCmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "50", limit.DefValue)
	assert.NotNil(t, runsListCmd.Flags().Lookup("status"))
}

func TestZipCommand_Args(t *testing.T) {
	assert.Error(t, zipCmd.Args(zipCmd, nil))
	assert.NoError(t, zipCmd.Args(zipCmd, []string{"62701"}))
	assert.NotNil(t, zipCmd.Flags().Lookup("no-cache"))
}

func TestConfigCommand_HasShow(t *testing.T) {
	assert.True(t, subcommandNames(configCmd)["show"])
}
