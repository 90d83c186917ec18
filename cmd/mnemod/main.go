// Package main implements mnemod, the mnemo cache server daemon: an
// in-memory, memcached-text-protocol key-value cache with LRU eviction.
//
// The daemon wires four components:
//   - a StripedLRU cache holding the data under a bounded byte budget
//   - an Executor worker pool running one work unit per client connection
//   - the protocol codec translating between the wire and the cache
//   - a TCP server owning the listener and connection lifecycles
//
// Configuration:
//   - MNEMO_CONFIG: path to a YAML config file (optional)
//   - MNEMO_LISTEN: listen address (default ":11211")
//   - MNEMO_CACHE_BYTES, MNEMO_CACHE_SHARDS: cache sizing
//   - MNEMO_POOL_*: worker pool sizing
//   - MNEMO_DEBUG: any non-empty value enables debug logging
//
// Example usage:
//
//	# 256 MiB cache over 16 shards on the default port
//	MNEMO_CACHE_BYTES=268435456 MNEMO_CACHE_SHARDS=16 ./mnemod
//
//	# Talk to it with any memcached client
//	printf 'set k 0 0 5\r\nhello\r\nget k\r\nquit\r\n' | nc localhost 11211
//
// Exit codes:
//   - 0: normal shutdown via SIGINT/SIGTERM
//   - 1: bad configuration or failure to bind the listen address
package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dreamware/mnemo/internal/config"
	"github.com/dreamware/mnemo/internal/executor"
	"github.com/dreamware/mnemo/internal/server"
	"github.com/dreamware/mnemo/internal/storage"
)

// exit is a variable to allow tests to intercept fatal termination.
var exit = os.Exit

// main assembles and runs the daemon:
//  1. Loads configuration (defaults → file → environment)
//  2. Builds the logger, cache, and worker pool
//  3. Starts the TCP server
//  4. Waits for SIGINT/SIGTERM
//  5. Shuts down gracefully: closes live connections and drains the pool
func main() {
	log, err := newLogger()
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		exit(1)
		return
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load(os.Getenv("MNEMO_CONFIG"))
	if err != nil {
		log.Error("configuration rejected", zap.Error(err))
		exit(1)
		return
	}

	store, err := storage.NewStripedLRU(cfg.Cache.MaxBytes, cfg.Cache.Shards)
	if err != nil {
		log.Error("cache construction failed", zap.Error(err))
		exit(1)
		return
	}

	pool, err := executor.New("conn-workers",
		cfg.Pool.QueueCap, cfg.Pool.LowWatermark, cfg.Pool.HighWatermark,
		cfg.Pool.IdleTime(), log)
	if err != nil {
		log.Error("pool construction failed", zap.Error(err))
		exit(1)
		return
	}

	srv := server.New(store, pool, cfg.MaxItemBytes, log)
	if err := srv.Start(cfg.Listen); err != nil {
		pool.Stop(true)
		log.Error("server start failed", zap.Error(err))
		exit(1)
		return
	}

	log.Info("mnemod running",
		zap.String("listen", cfg.Listen),
		zap.Int("cache_bytes", cfg.Cache.MaxBytes),
		zap.Int("shards", cfg.Cache.Shards),
		zap.Int("workers_low", cfg.Pool.LowWatermark),
		zap.Int("workers_high", cfg.Pool.HighWatermark),
	)

	// Wait for a shutdown signal.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	srv.Shutdown()

	stats := srv.Stats()
	log.Info("final cache state",
		zap.Int("entries", stats.Cache.Entries),
		zap.Int("bytes", stats.Cache.Bytes),
		zap.Uint64("hits", stats.Cache.Hits),
		zap.Uint64("misses", stats.Cache.Misses),
		zap.Uint64("evictions", stats.Cache.Evictions),
	)
}

// newLogger builds the process logger: production JSON output, debug level
// when MNEMO_DEBUG is set.
func newLogger() (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if os.Getenv("MNEMO_DEBUG") != "" {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zcfg.Build()
}
