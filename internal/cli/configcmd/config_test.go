package configcmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryankumar/procpool/internal/config"
	"github.com/aryankumar/procpool/internal/util"
)

const sampleConfig = `defaults:
  workers: 4
  timeout: 1m
profiles:
  batch:
    workers: 16
    policy: log-and-continue
    description: nightly jobs
  quick:
    timeout: 5s
`

// withConfig points the commands at a fresh config file holding content
func withConfig(t *testing.T, content string) string {
	t.Helper()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "procpool.yaml")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	viper.Set("config", path)
	viper.Set("no-color", true)
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewConfigCmd()
	cmd.SetArgs(args)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)

	err := cmd.Execute()
	return out.String(), err
}

func TestSettingsRows(t *testing.T) {
	rows := SettingsRows(config.Settings{
		Timeout:      time.Minute,
		StartTimeout: 10 * time.Second,
		Policy:       "propagate",
		OutputFormat: "table",
	})

	assert.Equal(t, []string{"KEY", "VALUE"}, rows.Headers)
	assert.Equal(t, []string{"workers", "auto"}, rows.Rows[0])
	assert.Equal(t, []string{"timeout", "1m0s"}, rows.Rows[1])
	assert.Equal(t, []string{"noColor", "false"}, rows.Rows[5])
}

func TestProfileRows(t *testing.T) {
	path := withConfig(t, sampleConfig)

	manager := config.NewManager(path)
	_, err := manager.Load()
	require.NoError(t, err)

	rows := ProfileRows(manager, "quick")
	require.Len(t, rows.Rows, 2)
	assert.Equal(t, []string{"", "batch", "16", "", "log-and-continue", "nightly jobs"}, rows.Rows[0])
	assert.Equal(t, []string{"*", "quick", "", "5s", "", ""}, rows.Rows[1])
}

func TestViewCmd(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		withConfig(t, sampleConfig)

		out, err := execute(t, "view")
		require.NoError(t, err)
		assert.Contains(t, out, "workers")
		assert.Contains(t, out, "4")
		assert.Contains(t, out, "1m0s")
	})

	t.Run("profile", func(t *testing.T) {
		withConfig(t, sampleConfig)
		viper.Set("profile", "batch")

		out, err := execute(t, "view")
		require.NoError(t, err)
		assert.Contains(t, out, "16")
		assert.Contains(t, out, "log-and-continue")
	})

	t.Run("unknown profile", func(t *testing.T) {
		withConfig(t, sampleConfig)
		viper.Set("profile", "nope")

		_, err := execute(t, "view")
		assert.ErrorIs(t, err, util.ErrInvalidConfig)
	})
}

func TestProfilesCmd(t *testing.T) {
	t.Run("lists profiles", func(t *testing.T) {
		withConfig(t, sampleConfig)

		out, err := execute(t, "profiles")
		require.NoError(t, err)
		assert.Contains(t, out, "batch")
		assert.Contains(t, out, "nightly jobs")
	})

	t.Run("no profiles", func(t *testing.T) {
		withConfig(t, "")

		out, err := execute(t, "profiles")
		require.NoError(t, err)
		assert.Contains(t, out, "No profiles configured")
	})
}

func TestSetAndRemoveProfile(t *testing.T) {
	path := withConfig(t, sampleConfig)

	_, err := execute(t, "set-profile", "heavy", "--workers", "32", "--timeout", "2h", "--description", "big boxes")
	require.NoError(t, err)

	manager := config.NewManager(path)
	_, err = manager.Load()
	require.NoError(t, err)

	heavy, ok := manager.GetProfile("heavy")
	require.True(t, ok)
	assert.Equal(t, 32, heavy.Workers)
	assert.Equal(t, 2*time.Hour, heavy.Timeout)
	assert.Equal(t, "big boxes", heavy.Description)

	// Existing profiles survive the rewrite
	_, ok = manager.GetProfile("batch")
	assert.True(t, ok)

	_, err = execute(t, "remove-profile", "heavy")
	require.NoError(t, err)

	manager = config.NewManager(path)
	_, err = manager.Load()
	require.NoError(t, err)
	_, ok = manager.GetProfile("heavy")
	assert.False(t, ok)

	_, err = execute(t, "remove-profile", "heavy")
	assert.Error(t, err)
}

func TestSetProfileRejectsInvalidSettings(t *testing.T) {
	withConfig(t, sampleConfig)

	_, err := execute(t, "set-profile", "bad", "--policy", "sometimes")
	assert.ErrorIs(t, err, util.ErrInvalidConfig)
}
