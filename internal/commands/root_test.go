package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "ledgerbotd", root.Use)

	names := make(map[string]bool)
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["queue"])

	flag := root.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestQueueCommandSubcommands(t *testing.T) {
	root := NewRootCommand()
	queue, _, err := root.Find([]string{"queue"})
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, cmd := range queue.Commands() {
		names[cmd.Name()] = true
	}
	assert.True(t, names["status"])
	assert.True(t, names["retry"])
	assert.True(t, names["sweep"])
}
