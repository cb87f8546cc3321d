package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Setup replaces the default logger, so these tests do not run in parallel.

func TestConfigCommand_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "masonry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("layout:\n  column_width: 240\n  column_gutter: 12\n"), 0o600))

	env := NewEnv()
	env.ConfigPath = path

	cmd := NewConfigCommand(env)

	var out bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "column_width: 240")
	assert.Contains(t, out.String(), "row_gutter: 12")
	assert.Contains(t, out.String(), "read_timeout: 30s")
}

func TestConfigCommand_JSON(t *testing.T) {
	env := NewEnv()
	env.ConfigPath = filepath.Join(t.TempDir(), "masonry.yaml")
	require.NoError(t, os.WriteFile(env.ConfigPath, []byte("server:\n  port: 9090\n"), 0o600))

	cmd := NewConfigCommand(env)

	var out bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--json"})

	require.NoError(t, cmd.Execute())

	var decoded map[string]map[string]any

	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.InDelta(t, 9090, decoded["server"]["port"], 0)
}

func TestConfigCommand_InvalidConfig(t *testing.T) {
	env := NewEnv()
	env.ConfigPath = filepath.Join(t.TempDir(), "masonry.yaml")
	require.NoError(t, os.WriteFile(env.ConfigPath, []byte("layout:\n  column_width: -1\n"), 0o600))

	cmd := NewConfigCommand(env)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	require.Error(t, cmd.Execute())
}
