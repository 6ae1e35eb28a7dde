package daemon_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windrun-ai/workflowcore/core"
	"github.com/windrun-ai/workflowcore/daemon"
)

func TestConfigLoader_DefaultsWithoutConfigFile(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(cwd) }()

	cfg, err := daemon.NewConfigLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.WorkspaceID)
	assert.Equal(t, core.CacheBackendMemory, cfg.CacheBackend)
	assert.Equal(t, []string{"./packs"}, cfg.PackDirs)
}

func TestConfigLoader_ExplicitFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workflowcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
workspace_id: acme
cache_backend: redis
redis_addr: "127.0.0.1:6379"
parallelism: 4
pack_dirs:
  - ./packs
  - ./extra-packs
`), 0o600))

	cfg, err := daemon.NewConfigLoader().WithConfigFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.WorkspaceID)
	assert.Equal(t, core.CacheBackendRedis, cfg.CacheBackend)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
	assert.Equal(t, 4, cfg.Parallelism)
	assert.Equal(t, []string{"./packs", "./extra-packs"}, cfg.PackDirs)
}

func TestConfigLoader_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workflowcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workspace_id: from-file\n"), 0o600))

	t.Setenv("WORKFLOWCORE_WORKSPACE_ID", "from-env")

	cfg, err := daemon.NewConfigLoader().WithConfigFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.WorkspaceID)
}

func TestValidateWorkspaceConfig_RequiresRedisAddrForRedisBackend(t *testing.T) {
	cfg := core.DefaultWorkspaceConfig()
	cfg.CacheBackend = core.CacheBackendRedis
	cfg.RedisAddr = ""

	err := daemon.ValidateWorkspaceConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis_addr")
}

func TestValidateWorkspaceConfig_RejectsEmptyPackDirs(t *testing.T) {
	cfg := core.DefaultWorkspaceConfig()
	cfg.PackDirs = nil

	err := daemon.ValidateWorkspaceConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pack_dirs")
}

func TestValidateWorkspaceConfig_AcceptsDefaults(t *testing.T) {
	assert.NoError(t, daemon.ValidateWorkspaceConfig(core.DefaultWorkspaceConfig()))
}
