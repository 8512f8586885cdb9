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

	for _, name := range []string{"map", "districts", "precincts", "fetch-blocks"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "blockassign", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)

	flag := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, flag)
	assert.Equal(t, "v", flag.Shorthand)
}

func TestMapCommand_Flags(t *testing.T) {
	for _, name := range []string{"output", "format", "dataset", "workers", "derive-prefix", "sources-table", "id-property", "region-property"} {
		assert.NotNil(t, mapCmd.Flags().Lookup(name), "map should have --%s flag", name)
	}
	assert.Equal(t, "o", mapCmd.Flags().Lookup("output").Shorthand)
	assert.Equal(t, "-1", mapCmd.Flags().Lookup("derive-prefix").DefValue)
}

func TestPresetCommands_Flags(t *testing.T) {
	for _, c := range rootCmd.Commands() {
		if c.Name() != "districts" && c.Name() != "precincts" {
			continue
		}
		for _, name := range []string{"output", "format", "dataset", "workers", "derive-prefix"} {
			assert.NotNil(t, c.Flags().Lookup(name), "%s should have --%s flag", c.Name(), name)
		}
		assert.Nil(t, c.Flags().Lookup("sources-table"))
	}
}

func TestFetchBlocksCommand_Flags(t *testing.T) {
	for _, name := range []string{"state", "year", "dest", "product"} {
		assert.NotNil(t, fetchBlocksCmd.Flags().Lookup(name), "fetch-blocks should have --%s flag", name)
	}
	assert.Equal(t, "TABBLOCK20", fetchBlocksCmd.Flags().Lookup("product").DefValue)
}
