package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand()

	require.NotNil(t, cmd)
	assert.Equal(t, "version", cmd.Use)
	assert.Equal(t, []string{"v"}, cmd.Aliases)
	assert.NotNil(t, cmd.Run)
	assert.Nil(t, cmd.RunE)
	assert.False(t, cmd.HasSubCommands())

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "picorelay dev")
	assert.Contains(t, out.String(), "Go: go")
}
