package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"migrate", "stage", "process", "status", "rejects", "catalog", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "subsidy-etl", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestStageCommand_Flags(t *testing.T) {
	for _, name := range []string{"type", "file", "sheet", "header-row", "delimiter", "batch-size", "truncate"} {
		assert.NotNil(t, stageCmd.Flags().Lookup(name), "stage should have --%s flag", name)
	}
	assert.Equal(t, "1000", stageCmd.Flags().Lookup("batch-size").DefValue)
	assert.Equal(t, "false", stageCmd.Flags().Lookup("truncate").DefValue)
}

func TestProcessCommand_Flags(t *testing.T) {
	flag := processCmd.Flags().Lookup("validator")
	require.NotNil(t, flag)
	assert.Equal(t, "flexible", flag.DefValue)

	flag = processCmd.Flags().Lookup("all")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)

	assert.NotNil(t, processCmd.Flags().Lookup("type"))
	assert.NotNil(t, processCmd.Flags().Lookup("batch-size"))
}

func TestRejectsCommand_Flags(t *testing.T) {
	flag := rejectsCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "100", flag.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "8080", flag.DefValue)
}

func TestCatalogCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range catalogCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["seed"])
	assert.True(t, names["list"])
}
