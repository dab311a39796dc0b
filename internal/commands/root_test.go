package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()

	assert.Equal(t, "coindesk", root.Use)
	assert.NotEmpty(t, root.Version)

	registered := make(map[string]bool)
	for _, c := range root.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range []string{"fetch", "recategorize", "notify", "export", "map", "migrate"} {
		assert.True(t, registered[name], "command %q not registered", name)
	}
}
