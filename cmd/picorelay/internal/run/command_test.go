package run

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/picorelay/pkg/config"
)

func TestNewRunCommand(t *testing.T) {
	cmd := NewRunCommand()

	require.NotNil(t, cmd)

	assert.Equal(t, "run", cmd.Use)
	assert.Equal(t, "Start the Telegram relay", cmd.Short)
	assert.Equal(t, []string{"r"}, cmd.Aliases)

	assert.True(t, cmd.HasExample())
	assert.False(t, cmd.HasSubCommands())

	assert.Nil(t, cmd.Run)
	assert.NotNil(t, cmd.RunE)

	assert.NotNil(t, cmd.Flags().Lookup("debug"))
	assert.NotNil(t, cmd.Flags().ShorthandLookup("d"))
}

func TestNewStack_RequiresCredentials(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Relay.ThreadsFile = filepath.Join(t.TempDir(), "threads.json")

	_, err := NewStack(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, config.ErrMissingToken)

	cfg.Telegram.Token = "123:abc"
	_, err = NewStack(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, config.ErrMissingOwner)
}
