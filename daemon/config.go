// Package daemon runs compiled workflows unattended: a viper-backed
// workspace configuration loader and a cron-driven scheduler that executes
// WorkflowSpec files on a timer instead of in response to an interactive
// compile/execute call.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/windrun-ai/workflowcore/core"
)

const (
	projectConfigName = "workflowcore.yaml"
	homeConfigDir     = ".workflowcore"
	homeConfigName    = "config.yaml"
	envPrefix         = "WORKFLOWCORE"
)

// ConfigLoader resolves a WorkspaceConfig from defaults, an optional config
// file, and WORKFLOWCORE_* environment variables, in that precedence order
// (environment wins, then file, then defaults).
type ConfigLoader struct {
	v          *viper.Viper
	configFile string
	mu         sync.Mutex
}

// NewConfigLoader returns an empty loader; Load applies the workspace
// defaults.
func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{v: viper.New()}
}

// WithConfigFile pins an explicit config file path, bypassing discovery.
func (l *ConfigLoader) WithConfigFile(path string) *ConfigLoader {
	l.configFile = path
	return l
}

// Viper exposes the underlying instance for CLI persistent-flag binding.
func (l *ConfigLoader) Viper() *viper.Viper {
	return l.v
}

// Load reads configuration from all sources and returns the resolved
// WorkspaceConfig. A missing config file is not an error; defaults apply.
func (l *ConfigLoader) Load() (core.WorkspaceConfig, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.setDefaults()

	l.v.SetEnvPrefix(envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if err := l.configureSource(); err != nil {
		return core.WorkspaceConfig{}, err
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return core.WorkspaceConfig{}, fmt.Errorf("daemon: reading config: %w", err)
		}
	}

	var cfg core.WorkspaceConfig
	if err := l.v.Unmarshal(&cfg); err != nil {
		return core.WorkspaceConfig{}, fmt.Errorf("daemon: unmarshaling config: %w", err)
	}
	return cfg, nil
}

// configureSource points viper at an explicit file or the discovery path:
// ./workflowcore.yaml first, then ~/.workflowcore/config.yaml.
func (l *ConfigLoader) configureSource() error {
	if clean := strings.TrimSpace(l.configFile); clean != "" {
		l.v.SetConfigFile(clean)
		return nil
	}

	if _, err := os.Stat(projectConfigName); err == nil {
		l.v.SetConfigFile(projectConfigName)
		return nil
	}

	l.v.SetConfigName("config")
	l.v.SetConfigType("yaml")
	l.v.AddConfigPath(".")
	home, err := os.UserHomeDir()
	if err == nil {
		l.v.AddConfigPath(filepath.Join(home, homeConfigDir))
	}
	return nil
}

// ConfigFileUsed returns the path viper actually read, empty if none.
func (l *ConfigLoader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *ConfigLoader) setDefaults() {
	def := core.DefaultWorkspaceConfig()
	l.v.SetDefault("workspace_id", def.WorkspaceID)
	l.v.SetDefault("default_policy.name", def.DefaultPolicy.Name)
	l.v.SetDefault("pack_dirs", def.PackDirs)
	l.v.SetDefault("cache_backend", string(def.CacheBackend))
	l.v.SetDefault("redis_addr", def.RedisAddr)
	l.v.SetDefault("parallelism", def.Parallelism)
	l.v.SetDefault("data_dir", def.DataDir)
	l.v.SetDefault("trace_db_path", def.TraceDBPath)
}

// ValidateWorkspaceConfig performs cross-field checks a viper Unmarshal alone
// cannot express.
func ValidateWorkspaceConfig(cfg core.WorkspaceConfig) error {
	if strings.TrimSpace(cfg.WorkspaceID) == "" {
		return fmt.Errorf("daemon: workspace_id is required")
	}
	if len(cfg.PackDirs) == 0 {
		return fmt.Errorf("daemon: pack_dirs must name at least one directory")
	}
	switch cfg.CacheBackend {
	case core.CacheBackendMemory:
	case core.CacheBackendRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return fmt.Errorf("daemon: redis_addr is required when cache_backend is %q", core.CacheBackendRedis)
		}
	default:
		return fmt.Errorf("daemon: unsupported cache_backend %q", cfg.CacheBackend)
	}
	if cfg.Parallelism < 0 {
		return fmt.Errorf("daemon: parallelism must not be negative")
	}
	return nil
}
