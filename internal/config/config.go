package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	NodeName string

	Query   QueryConfig
	Table   TableConfig
	Storage StorageConfig
	Ring    RingConfig
	IPC     IPCConfig
}

type QueryConfig struct {
	MaxQuantaSpan   int           // Max sub-queries per query; exceed -> too_many_subqueries
	SubQueryTimeout time.Duration // Per sub-query storage deadline
	Workers         int           // Number of query workers (0 = auto)
	QueueDepth      int           // Pending query queue capacity
}

type TableConfig struct {
	ActivationWait time.Duration // Polling ceiling for table activation
	HelperCacheLen int           // LRU capacity for per-table helper modules
}

type StorageConfig struct {
	Path         string // SQLite database path
	FetchRetries int    // Storage retry budget for transient errors
}

type RingConfig struct {
	Partitions int      // Hash-bin count; must match across the cluster
	NVal       int      // Replication factor
	Members    []string // Static member list (this node included)
}

type IPCConfig struct {
	SocketPath string
	EnableTCP  bool
	TCPPort    int
}

func DefaultConfig() *Config {
	return &Config{
		NodeName: "tskv@127.0.0.1",
		Query: QueryConfig{
			MaxQuantaSpan:   5000,
			SubQueryTimeout: 10 * time.Second,
			Workers:         0, // 0 = NumCPU
			QueueDepth:      100,
		},
		Table: TableConfig{
			ActivationWait: 30 * time.Second,
			HelperCacheLen: 128,
		},
		Storage: StorageConfig{
			Path:         "./data/tskv.db",
			FetchRetries: 10,
		},
		Ring: RingConfig{
			Partitions: 64,
			NVal:       3,
			Members:    nil, // empty = single-node ring of NodeName
		},
		IPC: IPCConfig{
			SocketPath: "/tmp/tskv.sock",
			EnableTCP:  false,
			TCPPort:    0,
		},
	}
}

// Load reads a config file (optional) and TSKV_-prefixed environment
// variables over the defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	cfg := DefaultConfig()

	v.SetDefault("node_name", cfg.NodeName)
	v.SetDefault("query.max_quanta_span", cfg.Query.MaxQuantaSpan)
	v.SetDefault("query.sub_query_timeout", cfg.Query.SubQueryTimeout)
	v.SetDefault("query.workers", cfg.Query.Workers)
	v.SetDefault("query.queue_depth", cfg.Query.QueueDepth)
	v.SetDefault("table.activation_wait", cfg.Table.ActivationWait)
	v.SetDefault("table.helper_cache_len", cfg.Table.HelperCacheLen)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("storage.fetch_retries", cfg.Storage.FetchRetries)
	v.SetDefault("ring.partitions", cfg.Ring.Partitions)
	v.SetDefault("ring.n_val", cfg.Ring.NVal)
	v.SetDefault("ring.members", cfg.Ring.Members)
	v.SetDefault("ipc.socket_path", cfg.IPC.SocketPath)
	v.SetDefault("ipc.enable_tcp", cfg.IPC.EnableTCP)
	v.SetDefault("ipc.tcp_port", cfg.IPC.TCPPort)

	v.SetEnvPrefix("TSKV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg.NodeName = v.GetString("node_name")
	cfg.Query.MaxQuantaSpan = v.GetInt("query.max_quanta_span")
	cfg.Query.SubQueryTimeout = v.GetDuration("query.sub_query_timeout")
	cfg.Query.Workers = v.GetInt("query.workers")
	cfg.Query.QueueDepth = v.GetInt("query.queue_depth")
	cfg.Table.ActivationWait = v.GetDuration("table.activation_wait")
	cfg.Table.HelperCacheLen = v.GetInt("table.helper_cache_len")
	cfg.Storage.Path = v.GetString("storage.path")
	cfg.Storage.FetchRetries = v.GetInt("storage.fetch_retries")
	cfg.Ring.Partitions = v.GetInt("ring.partitions")
	cfg.Ring.NVal = v.GetInt("ring.n_val")
	cfg.Ring.Members = v.GetStringSlice("ring.members")
	cfg.IPC.SocketPath = v.GetString("ipc.socket_path")
	cfg.IPC.EnableTCP = v.GetBool("ipc.enable_tcp")
	cfg.IPC.TCPPort = v.GetInt("ipc.tcp_port")

	return cfg, nil
}
