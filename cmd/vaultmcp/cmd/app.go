package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vaultmcp/vaultmcp/internal/config"
	"github.com/vaultmcp/vaultmcp/internal/embed"
	"github.com/vaultmcp/vaultmcp/internal/index"
	"github.com/vaultmcp/vaultmcp/internal/logging"
	"github.com/vaultmcp/vaultmcp/internal/search"
	"github.com/vaultmcp/vaultmcp/internal/store"
)

// app bundles the wired components every command works with.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	store    *store.Store
	embedder embed.Embedder
	syncer   *index.Syncer
	engine   *search.Engine

	logCleanup func()
}

// newApp loads configuration, sets up logging, picks an embedder, and opens
// the store. logToStderr controls whether log lines are mirrored to stderr;
// commands whose stdout is consumed by a client keep stderr quiet.
func newApp(ctx context.Context, flags *rootFlags, logToStderr bool) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.vaultPath != "" {
		cfg.Vault.Path = flags.vaultPath
		cfg.Vault.DataDir = filepath.Join(flags.vaultPath, ".vaultmcp")
	}
	if cfg.Vault.Path == "" {
		return nil, errors.New("no vault configured: pass --vault, set vault.path in the config file, or set VAULTMCP_VAULT_PATH")
	}

	logCfg := logging.Config{
		Level:         cfg.Logging.Level,
		FilePath:      cfg.Logging.FilePath,
		MaxSizeMB:     10,
		MaxFiles:      3,
		WriteToStderr: logToStderr,
	}
	if logCfg.FilePath == "" {
		logCfg.FilePath = logging.DefaultLogPath()
	}
	if flags.debug {
		logCfg.Level = "debug"
	}
	log, logCleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)

	embedder := buildEmbedder(ctx, cfg, log)

	if err := os.MkdirAll(cfg.Vault.DataDir, 0o755); err != nil {
		logCleanup()
		return nil, err
	}
	st, err := store.Open(ctx, store.Config{
		Dir:        cfg.Vault.DataDir,
		Dimensions: embedder.Dimensions(),
	})
	if err != nil {
		logCleanup()
		return nil, err
	}
	if err := st.SetModel(ctx, embedder.ModelName()); err != nil {
		_ = st.Close()
		logCleanup()
		return nil, err
	}

	syncer, err := index.NewSyncer(st, embedder, index.Config{
		DataDir:       cfg.Vault.DataDir,
		Workers:       cfg.Sync.Workers,
		BatchSize:     cfg.Embeddings.BatchSize,
		ChunkTokens:   cfg.Chunking.ChunkTokens,
		OverlapTokens: cfg.Chunking.OverlapTokens,
		MaxFileSize:   cfg.MaxFileSize(),
	}, log)
	if err != nil {
		_ = st.Close()
		logCleanup()
		return nil, err
	}

	return &app{
		cfg:        cfg,
		log:        log,
		store:      st,
		embedder:   embedder,
		syncer:     syncer,
		engine:     search.NewEngine(st, embedder, log),
		logCleanup: logCleanup,
	}, nil
}

// buildEmbedder picks the embedding backend from config. An unreachable
// Ollama falls back to static embeddings so the CLI stays usable offline.
func buildEmbedder(ctx context.Context, cfg config.Config, log *slog.Logger) embed.Embedder {
	var inner embed.Embedder
	switch cfg.Embeddings.Provider {
	case "static":
		inner = embed.NewStaticEmbedder()
	default:
		ollama := embed.NewOllamaEmbedder(embed.OllamaConfig{
			Host:       cfg.Embeddings.OllamaHost,
			Model:      cfg.Embeddings.Model,
			Dimensions: cfg.Embeddings.Dimensions,
		})
		if ollama.Available(ctx) {
			inner = ollama
		} else {
			log.Warn("ollama unavailable, falling back to static embeddings",
				slog.String("host", cfg.Embeddings.OllamaHost),
				slog.String("model", cfg.Embeddings.Model))
			inner = embed.NewStaticEmbedder()
		}
	}
	return embed.NewCachedEmbedder(inner, cfg.Embeddings.CacheSize)
}

// Close releases the store and the embedder.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("store close failed", slog.String("error", err.Error()))
	}
	if err := a.embedder.Close(); err != nil {
		a.log.Warn("embedder close failed", slog.String("error", err.Error()))
	}
	if a.logCleanup != nil {
		a.logCleanup()
	}
}
