// cmd/domainctl/main.go
//
// Operator CLI for custom domains.  Shares config and packages with the
// server, so results match what the API would return.
//
// Usage
// -----
//
//	domainctl check <host>        run the authorization chain, print JSON
//	domainctl verify <domain-id>  live DNS check, persist the outcome
//	domainctl dns <host>          DNS check only, nothing is written
//	domainctl migrate             apply pending schema migrations
//
// Exit status is 0 on success, 1 on failure, 2 on usage errors.  `check`
// exits 3 when the host is not authorized so scripts can branch on it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yanizio/eventsite/internal/app"
	"github.com/yanizio/eventsite/internal/config"
	"github.com/yanizio/eventsite/internal/database"
	"github.com/yanizio/eventsite/internal/domain"
	"github.com/yanizio/eventsite/internal/logger"
)

const (
	exitOK           = 0
	exitErr          = 1
	exitUsage        = 2
	exitUnauthorized = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("domainctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	timeout := fs.Duration("timeout", 30*time.Second, "overall deadline")
	level := fs.String("log-level", "warn", "log level (debug, info, warn, error)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: domainctl [flags] check <host> | verify <domain-id> | dns <host> | migrate")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	cmd, rest := fs.Arg(0), fs.Args()
	if len(rest) > 0 {
		rest = rest[1:]
	}
	if !validUsage(cmd, rest) {
		fs.Usage()
		return exitUsage
	}

	log := logger.Console(*level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	cfg, err := app.LoadConfig(ctx)
	if err != nil {
		log.Errorw("load config", "err", err)
		return exitErr
	}

	if cmd == "migrate" {
		return migrate(ctx, cfg, stderr)
	}
	if cmd == "dns" {
		return dnsOnly(ctx, cfg, rest[0], stdout, stderr)
	}

	// check and verify need the full wiring, but never schema changes.
	cfg.Database.Migrate = false
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Errorw("bootstrap", "err", err)
		return exitErr
	}
	defer a.Close()

	switch cmd {
	case "check":
		res, err := a.Chain.Authorize(ctx, rest[0])
		if err != nil {
			fmt.Fprintln(stderr, "check failed:", err)
			return exitErr
		}
		printJSON(stdout, res)
		if !res.Authorized {
			return exitUnauthorized
		}
	case "verify":
		res, err := a.Domains.Verify(ctx, rest[0])
		if err != nil {
			fmt.Fprintln(stderr, "verify failed:", err)
			return exitErr
		}
		printJSON(stdout, res)
	}
	return exitOK
}

func validUsage(cmd string, rest []string) bool {
	switch cmd {
	case "check", "verify", "dns":
		return len(rest) == 1 && rest[0] != ""
	case "migrate":
		return len(rest) == 0
	default:
		return false
	}
}

func migrate(ctx context.Context, cfg *config.Config, stderr io.Writer) int {
	db, err := database.Open(ctx, cfg.Database.DSN, cfg.Database.Password)
	if err != nil {
		fmt.Fprintln(stderr, "open database:", err)
		return exitErr
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		fmt.Fprintln(stderr, err)
		return exitErr
	}
	return exitOK
}

func dnsOnly(ctx context.Context, cfg *config.Config, host string, stdout, stderr io.Writer) int {
	checker, err := app.NewChecker(ctx, cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitErr
	}
	res, err := checker.Check(ctx, domain.Normalize(host))
	if err != nil {
		fmt.Fprintln(stderr, "dns check failed:", err)
		return exitErr
	}
	printJSON(stdout, res)
	if !res.Verified {
		return exitUnauthorized
	}
	return exitOK
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
