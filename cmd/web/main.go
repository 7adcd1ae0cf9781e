// cmd/web/main.go
//
// eventsite – HTTP entry point.
//
// Start-up
// --------
//
//  1. Console logger for the bootstrap phase.
//
//  2. Load config (koanf layers, Vault references).
//
//  3. Start daily rotating logger (tees to console when running in a TTY).
//
//  4. Wire DB, caches, DNS checkers, services, and jobs (internal/app).
//
//  5. Serve HTTP, run the SSL activation worker and the re-verification
//     schedule until SIGINT/SIGTERM.
//
// Components register themselves through the blank imports below; each
// adds its own routes to the shared router.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/yanizio/eventsite/internal/app"
	"github.com/yanizio/eventsite/internal/logger"

	_ "github.com/yanizio/eventsite/components/checkdomain"
	_ "github.com/yanizio/eventsite/components/domains"
	_ "github.com/yanizio/eventsite/components/health"
	_ "github.com/yanizio/eventsite/components/pages"
	_ "github.com/yanizio/eventsite/components/public"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	boot := logger.Console("info")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Config ──────────────────────────────────────────────────────
	//
	cfg, err := app.LoadConfig(ctx)
	if err != nil {
		boot.Fatalw("load config", "err", err)
	}

	//
	// ── 2.  File logger ─────────────────────────────────────────────────
	//
	log, err := logger.New(cfg.Paths.Root, cfg.Log.Level, runningInTTY())
	if err != nil {
		boot.Fatalw("start logger", "err", err)
	}
	defer func() { _ = log.Sync() }()

	//
	// ── 3.  Wiring ──────────────────────────────────────────────────────
	//
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalw("bootstrap", "err", err)
	}
	defer a.Close()

	//
	// ── 4.  Run until signalled ─────────────────────────────────────────
	//
	if err := a.Run(ctx); err != nil {
		log.Errorw("shutdown with error", "err", err)
		a.Close()
		os.Exit(1)
	}
	log.Infow("shutdown complete")
}
