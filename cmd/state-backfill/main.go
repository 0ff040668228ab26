// Command state-backfill audits lead statuses against their desk's active
// states and, with --apply, maps each flagged lead onto a state.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"deskcrm_backend/internal/adapters"
	desksrepo "deskcrm_backend/internal/desks/repository"
	desksservice "deskcrm_backend/internal/desks/service"
	"deskcrm_backend/internal/leads/backfill"
	leadsrepo "deskcrm_backend/internal/leads/repository"
	"deskcrm_backend/platform/config"
	"deskcrm_backend/platform/db"
	"deskcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

type options struct {
	apply bool
	actor string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "state-backfill:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, uuid.UUID, error) {
	var opts options
	flagSet := pflag.NewFlagSet("state-backfill", pflag.ContinueOnError)
	flagSet.BoolVar(&opts.apply, "apply", false, "map flagged leads onto a state and write history")
	flagSet.StringVar(&opts.actor, "actor", "", "user id recorded as changed_by on backfilled history (required with --apply)")

	if err := flagSet.Parse(args); err != nil {
		return options{}, uuid.Nil, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return options{}, uuid.Nil, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if !opts.apply {
		return opts, uuid.Nil, nil
	}

	actor, err := uuid.Parse(opts.actor)
	if err != nil {
		return options{}, uuid.Nil, errors.New("--actor must be a user id when --apply is set")
	}
	return opts, actor, nil
}

func run(args []string) error {
	opts, actor, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	transitions := desksservice.NewTransitions(desksrepo.New(pool), log)
	auditor := backfill.New(leadsrepo.New(pool), adapters.NewDeskGraphLoader(transitions), log)

	report := struct {
		Scan  backfill.ScanReport   `json:"scan"`
		Apply *backfill.ApplyReport `json:"apply,omitempty"`
	}{}

	report.Scan, err = auditor.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	if opts.apply {
		applied, err := auditor.Apply(ctx, actor)
		if err != nil {
			return fmt.Errorf("apply: %w", err)
		}
		report.Apply = &applied
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
