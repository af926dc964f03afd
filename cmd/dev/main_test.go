package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_VersionFlag(t *testing.T) {
	root := newRootCmd()
	flag := root.PersistentFlags().Lookup("version")
	require.NotNil(t, flag)
	assert.Equal(t, "latest", flag.DefValue)

	build, _, err := root.Find([]string{"build"})
	require.NoError(t, err)
	assert.Nil(t, build.LocalNonPersistentFlags().Lookup("version"))
	assert.NotNil(t, build.InheritedFlags().Lookup("version"))
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"build", "changelog", "test", "lint", "integration-test"} {
		c, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, c.Name())
	}
}
