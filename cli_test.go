package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCommand()

	for _, path := range [][]string{
		{"serve"},
		{"migrate"},
		{"migrate", "version"},
		{"operator", "add"},
		{"operator", "set-tier"},
		{"operator", "set-status"},
	} {
		cmd, rest, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Empty(t, rest, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestOperatorCommandArgs(t *testing.T) {
	root := newRootCommand()

	add, _, err := root.Find([]string{"operator", "add"})
	require.NoError(t, err)
	assert.Error(t, add.Args(add, nil))
	assert.NoError(t, add.Args(add, []string{"+15550001111"}))
	assert.Equal(t, "user", add.Flag("tier").DefValue)

	setTier, _, err := root.Find([]string{"operator", "set-tier"})
	require.NoError(t, err)
	assert.Error(t, setTier.Args(setTier, []string{"+15550001111"}))
	assert.NoError(t, setTier.Args(setTier, []string{"+15550001111", "admin"}))
}
