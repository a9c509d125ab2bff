package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"

	"finledger/internal/config"
	"finledger/internal/database"
	"finledger/internal/middleware"
	"finledger/internal/server"
	"finledger/internal/services"
)

var commands = []subcommands.Command{
	&validateCmd{},
	&fixCmd{},
	&cleanupCmd{},
	&reconcileCmd{},
}

// withIntegrity opens the configured database and hands its integrity
// service to fn.
func withIntegrity(fn func(services.IntegrityServicer) error) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return subcommands.ExitFailure
	}

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		return subcommands.ExitFailure
	}
	defer dbManager.Close()

	if err := dbManager.RunMigrations(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		return subcommands.ExitFailure
	}

	svc := server.NewServices(dbManager.DB(), cfg)
	if err := fn(svc.Integrity); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type validateCmd struct {
	strict bool
}

func (*validateCmd) Name() string     { return "validate" }
func (*validateCmd) Synopsis() string { return "scan the ledger for orphans and balance drift without changing anything" }
func (*validateCmd) Usage() string {
	return `ledgerctl validate [-strict]

  Prints the validation report as JSON. With -strict the command exits
  non-zero when any issue is found.
`
}

func (p *validateCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&p.strict, "strict", false, "Exit with failure when the ledger is not healthy.")
}

func (p *validateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withIntegrity(func(integrity services.IntegrityServicer) error {
		report, err := integrity.RunValidations()
		if err != nil {
			return err
		}
		if err := printJSON(os.Stdout, report); err != nil {
			return err
		}
		if p.strict && !report.Healthy() {
			return fmt.Errorf("ledger has %d orphaned transactions and %d balance discrepancies",
				report.OrphanedTransactions, report.BalanceDiscrepancies)
		}
		return nil
	})
}

type fixCmd struct{}

func (*fixCmd) Name() string     { return "fix" }
func (*fixCmd) Synopsis() string { return "recalculate the balances of drifted accounts" }
func (*fixCmd) Usage() string {
	return `ledgerctl fix

  Recomputes stored balances from the ledger for accounts that disagree with
  it, and prints what changed.
`
}

func (*fixCmd) SetFlags(*flag.FlagSet) {}

func (*fixCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withIntegrity(func(integrity services.IntegrityServicer) error {
		fix, err := integrity.AutoFixBalanceDiscrepancies()
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, fix)
	})
}

type cleanupCmd struct{}

func (*cleanupCmd) Name() string     { return "cleanup" }
func (*cleanupCmd) Synopsis() string { return "soft-delete transactions whose account no longer exists" }
func (*cleanupCmd) Usage() string {
	return `ledgerctl cleanup
`
}

func (*cleanupCmd) SetFlags(*flag.FlagSet) {}

func (*cleanupCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withIntegrity(func(integrity services.IntegrityServicer) error {
		removed, err := integrity.CleanupOrphanedTransactions()
		if err != nil {
			return err
		}
		fmt.Printf("removed %d orphaned transaction(s)\n", removed)
		return nil
	})
}

type reconcileCmd struct{}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "run a full manual reconciliation" }
func (*reconcileCmd) Usage() string {
	return `ledgerctl reconcile

  Validates, removes orphans, recalculates every account and validates
  again. Prints the combined report as JSON.
`
}

func (*reconcileCmd) SetFlags(*flag.FlagSet) {}

func (*reconcileCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withIntegrity(func(integrity services.IntegrityServicer) error {
		report, err := integrity.RunManualReconciliation()
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, report)
	})
}

type tokenCmd struct {
	device string
	ttl    time.Duration
}

func (*tokenCmd) Name() string     { return "token" }
func (*tokenCmd) Synopsis() string { return "issue a device token for the API" }
func (*tokenCmd) Usage() string {
	return `ledgerctl token -device <name> [-ttl <duration>]

  Signs a bearer token with JWT_SECRET. The device name is recorded as the
  actor in the audit log.
`
}

func (p *tokenCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.device, "device", "", "Name of the device the token is issued to.")
	f.DurationVar(&p.ttl, "ttl", 0, "Token lifetime (defaults to JWT_EXPIRES_IN).")
}

func (p *tokenCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.device == "" {
		fmt.Fprintln(os.Stderr, "-device is required")
		return subcommands.ExitUsageError
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	ttl := p.ttl
	if ttl <= 0 {
		ttl = cfg.JWTExpirationDur
	}

	token, err := middleware.GenerateDeviceToken([]byte(cfg.JWTSecret), p.device, ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Println(token)
	return subcommands.ExitSuccess
}
