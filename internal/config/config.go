// Package config loads VaultMCP configuration from YAML with defaults and
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vaultmcp/vaultmcp/internal/chunk"
	"github.com/vaultmcp/vaultmcp/internal/embed"
	verrs "github.com/vaultmcp/vaultmcp/internal/errors"
)

// Environment overrides, highest priority.
const (
	EnvVaultPath = "VAULTMCP_VAULT_PATH"
	EnvDataDir   = "VAULTMCP_DATA_DIR"
)

// Config is the complete VaultMCP configuration.
type Config struct {
	Vault      VaultConfig      `yaml:"vault"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Sync       SyncConfig       `yaml:"sync"`
	Watch      WatchConfig      `yaml:"watch"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// VaultConfig locates the document folder and the index data directory.
type VaultConfig struct {
	// Path is the folder being indexed.
	Path string `yaml:"path"`
	// DataDir holds the index files. Defaults to <path>/.vaultmcp.
	DataDir string `yaml:"data_dir"`
	// MaxFileSizeMB bounds how large a file gets extracted.
	MaxFileSizeMB int `yaml:"max_file_size_mb"`
}

// ChunkingConfig sizes chunks, in tokens.
type ChunkingConfig struct {
	ChunkTokens   int `yaml:"chunk_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`
}

// EmbeddingsConfig selects and configures the embedding backend.
type EmbeddingsConfig struct {
	// Provider is "ollama" or "static".
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	OllamaHost string `yaml:"ollama_host"`
	BatchSize  int    `yaml:"batch_size"`
	CacheSize  int    `yaml:"cache_size"`
}

// SyncConfig tunes the reconciliation pass.
type SyncConfig struct {
	Workers int `yaml:"workers"`
}

// WatchConfig tunes the filesystem watcher.
type WatchConfig struct {
	// Debounce coalesces bursts of events per path.
	Debounce time.Duration `yaml:"debounce"`
}

// LoggingConfig configures the log output.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	FilePath string `yaml:"file_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Vault: VaultConfig{
			MaxFileSizeMB: 10,
		},
		Chunking: ChunkingConfig{
			ChunkTokens:   chunk.DefaultChunkTokens,
			OverlapTokens: chunk.DefaultOverlapTokens,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "ollama",
			Model:      embed.DefaultOllamaModel,
			Dimensions: embed.DefaultOllamaDimensions,
			OllamaHost: embed.DefaultOllamaHost,
			BatchSize:  embed.DefaultBatchSize,
			CacheSize:  embed.DefaultCacheSize,
		},
		Sync: SyncConfig{
			Workers: 0, // auto
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration: defaults, then the YAML file at path (optional,
// "" tries the default location), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, verrs.ConfigError(fmt.Sprintf("parse %s", path), err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file is fine; defaults apply.
	default:
		return Config{}, verrs.New(verrs.ErrCodeConfigNotFound, fmt.Sprintf("read %s", path), err)
	}

	if v := os.Getenv(EnvVaultPath); v != "" {
		cfg.Vault.Path = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.Vault.DataDir = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultPath is ~/.vaultmcp/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".vaultmcp", "config.yaml")
}

// Validate checks ranges and fills derived defaults.
func (c *Config) Validate() error {
	if c.Chunking.ChunkTokens <= 0 {
		return verrs.ConfigError(
			fmt.Sprintf("chunk_tokens must be positive, got %d", c.Chunking.ChunkTokens), nil)
	}
	if c.Chunking.OverlapTokens < 0 || c.Chunking.OverlapTokens >= c.Chunking.ChunkTokens {
		return verrs.ConfigError(
			fmt.Sprintf("overlap_tokens %d must be in [0, chunk_tokens)", c.Chunking.OverlapTokens), nil)
	}
	switch c.Embeddings.Provider {
	case "ollama", "static":
	default:
		return verrs.ConfigError(
			fmt.Sprintf("unknown embeddings provider %q", c.Embeddings.Provider), nil)
	}
	if c.Embeddings.Provider == "ollama" && c.Embeddings.Dimensions <= 0 {
		return verrs.ConfigError("embeddings dimensions must be positive", nil)
	}
	if c.Vault.MaxFileSizeMB <= 0 {
		c.Vault.MaxFileSizeMB = 10
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = 500 * time.Millisecond
	}
	if c.Vault.Path != "" && c.Vault.DataDir == "" {
		c.Vault.DataDir = filepath.Join(c.Vault.Path, ".vaultmcp")
	}
	return nil
}

// MaxFileSize returns the extraction size limit in bytes.
func (c *Config) MaxFileSize() int64 {
	return int64(c.Vault.MaxFileSizeMB) << 20
}
