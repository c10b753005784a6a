package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	// Point at a config file that does not exist so only defaults apply.
	err := Init(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)

	settings := Get()
	assert.Equal(t, "http://localhost:8002/api/v1", settings.Server.URL)
	assert.Equal(t, 90, settings.Server.Timeout)
	assert.Empty(t, settings.Server.Token)
	assert.Equal(t, ".maestro/history", settings.Chat.HistoryDir)
	assert.Equal(t, time.Duration(0), settings.Chat.ModeRevertAfter)
	assert.Equal(t, "info", settings.Logging.Level)
	assert.False(t, settings.Logging.Persist)
}

func TestInitReadsConfigFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfgPath := filepath.Join(t.TempDir(), "settings.yaml")
	content := []byte(`server:
  url: https://maestro.example.com/api/v1
  token: secret-token
chat:
  mode_revert_after: 45s
`)
	require.NoError(t, os.WriteFile(cfgPath, content, 0644))

	err := Init(cfgPath)
	require.NoError(t, err)

	settings := Get()
	assert.Equal(t, "https://maestro.example.com/api/v1", settings.Server.URL)
	assert.Equal(t, "secret-token", settings.Server.Token)
	assert.Equal(t, 45*time.Second, settings.Chat.ModeRevertAfter)
	// Values absent from the file keep their defaults.
	assert.Equal(t, 90, settings.Server.Timeout)
}

func TestEnvOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("MAESTRO_SERVER_URL", "http://env-host:9000/api/v1")
	t.Setenv("MAESTRO_TOKEN", "env-token")
	t.Setenv("MAESTRO_PROJECT_ID", "proj-env")

	err := Init(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)

	settings := Get()
	assert.Equal(t, "http://env-host:9000/api/v1", settings.Server.URL)
	assert.Equal(t, "env-token", settings.Server.Token)
	assert.Equal(t, "proj-env", settings.Project.ID)
}

func TestBuildSettingsPath(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfgPath := filepath.Join(t.TempDir(), "conf", "settings.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(cfgPath), 0755))
	require.NoError(t, Init(cfgPath))

	got := BuildSettingsPath("system.log")
	assert.Equal(t, filepath.Join(filepath.Dir(cfgPath), "system.log"), got)
}

func TestWriteDefaultConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfgPath := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	require.NoError(t, Init(cfgPath))

	require.NoError(t, WriteDefaultConfig())

	_, err := os.Stat(cfgPath)
	assert.NoError(t, err)
}
