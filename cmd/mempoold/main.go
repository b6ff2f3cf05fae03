// Command mempoold runs the mempool core as a standalone process: it wires
// Config, the chain-tip view, and the Scheduler's periodic orphan sweep and
// persistence, then waits for a shutdown signal. It does not speak P2P or
// RPC itself — those are external collaborators that would call into the
// Mempool built here by mempool.New.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/btcnode/core/pkg/mempool"
	"github.com/btcnode/core/pkg/monitoring"
	"github.com/btcnode/core/pkg/storage"
	"github.com/btcnode/core/pkg/utxo"
)

func main() {
	log := monitoring.NewLogger(monitoring.INFO).WithField("component", "mempoold")

	cfg := mempool.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	log.Info("=== Mempool core starting ===")
	log.Info(cfg.String())

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}

	db, err := storage.OpenDatabase(filepath.Join(cfg.DataDir, "chainstate"))
	if err != nil {
		log.Fatalf("open chain state database: %v", err)
	}
	defer db.Close()
	chainState := storage.NewChainState(db)

	// A full node would persist its UTXO set to db too; this process only
	// needs enough of a Validator to exercise admission end to end, so it
	// starts from an empty in-memory set. Nothing in this process adds
	// coins to it; RemoveForBlock/ReorgDisconnect update only the mempool.
	validator := mempool.NewUTXOValidator(utxo.NewUTXOSet())

	pool := mempool.New(cfg, validator, chainState)

	path := mempool.DefaultPath(cfg.DataDir)
	if n, err := pool.LoadFromDisk(path); err != nil {
		log.Errorf("failed to load persisted mempool: %v", err)
	} else if n > 0 {
		log.Infof("loaded %d transactions from %s", n, path)
	}

	ctx, cancel := context.WithCancel(context.Background())
	scheduler := mempool.NewScheduler(pool)

	done := make(chan struct{})
	go func() {
		defer close(done)
		scheduler.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping scheduler...")
	cancel()
	<-done
	log.Info("mempool core stopped")
}
