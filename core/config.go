package core

// CacheBackend selects where the runner looks up and stores build results.
type CacheBackend string

const (
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendRedis  CacheBackend = "redis"
)

// WorkspaceConfig is the workspace-level configuration loaded once at startup
// and threaded through the compiler, registry, runner, and daemon. It is the
// serializable shape that the CLI's persistent flags and the daemon's viper
// loader both populate.
type WorkspaceConfig struct {
	WorkspaceID string `mapstructure:"workspace_id" json:"workspace_id" yaml:"workspace_id"`

	DefaultPolicy Policy `mapstructure:"default_policy" json:"default_policy" yaml:"default_policy"`

	PackDirs []string `mapstructure:"pack_dirs" json:"pack_dirs" yaml:"pack_dirs"`

	CacheBackend  CacheBackend `mapstructure:"cache_backend" json:"cache_backend" yaml:"cache_backend"`
	RedisAddr     string       `mapstructure:"redis_addr" json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	Parallelism   int          `mapstructure:"parallelism" json:"parallelism" yaml:"parallelism"`
	DataDir       string       `mapstructure:"data_dir" json:"data_dir" yaml:"data_dir"`
	TraceDBPath   string       `mapstructure:"trace_db_path" json:"trace_db_path" yaml:"trace_db_path"`
}

// DefaultWorkspaceConfig returns sensible defaults for a freshly initialized
// workspace: in-memory cache, zero parallelism (meaning "let the runner pick
// one based on detected CPU count"), and a permissive default policy.
func DefaultWorkspaceConfig() WorkspaceConfig {
	return WorkspaceConfig{
		WorkspaceID:   "default",
		DefaultPolicy: DefaultPolicy(),
		PackDirs:      []string{"./packs"},
		CacheBackend:  CacheBackendMemory,
		Parallelism:   0,
		DataDir:       "./data",
		TraceDBPath:   "./data/traces.db",
	}
}
