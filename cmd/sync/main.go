// Command sync runs pipeline stages by hand, outside the worker's cron.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ttms-project/backend/internal/codex"
	"github.com/ttms-project/backend/internal/config"
	"github.com/ttms-project/backend/internal/db"
	"github.com/ttms-project/backend/internal/logger"
	"github.com/ttms-project/backend/internal/models"
	"github.com/ttms-project/backend/internal/notify"
	"github.com/ttms-project/backend/internal/scheduler"
	"github.com/ttms-project/backend/internal/store"
	"github.com/ttms-project/backend/internal/store/memory"
)

var useMemory bool

type runtime struct {
	cfg   *config.Config
	svcs  scheduler.Services
	close func()
}

func setup() (*runtime, error) {
	if useMemory && os.Getenv("DATABASE_URL") == "" {
		_ = os.Setenv("DATABASE_URL", "memory://")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Configure(cfg.Log.Level, cfg.Log.Encoding); err != nil {
		return nil, err
	}

	var (
		st      store.Store
		rdb     *redis.Client
		closers []func()
	)
	if useMemory {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("failed to start in-memory redis: %w", err)
		}
		closers = append(closers, mr.Close)
		rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		st = memory.New()
		logger.Info("Using in-memory store")
	} else {
		pgDB, err := db.ConnectPostgres(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if rdb, err = db.ConnectRedis(cfg); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		st = db.NewRepository(pgDB)
	}

	svcs := scheduler.NewServices(st, codex.NewClient(cfg), rdb, notify.NewFromConfig(cfg, rdb), cfg)
	return &runtime{
		cfg:  cfg,
		svcs: svcs,
		close: func() {
			svcs.Close()
			_ = rdb.Close()
			for _, c := range closers {
				c()
			}
		},
	}, nil
}

// stageCmd builds a command that runs fn once against a fresh runtime.
func stageCmd(use, short string, args cobra.PositionalArgs, fn func(ctx context.Context, rt *runtime, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.close()
			return fn(cmd.Context(), rt, args)
		},
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "sync",
		Short:        "Run TTMS pipeline stages manually",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&useMemory, "memory", false, "run against an in-memory store and Redis")

	root.AddCommand(
		stageCmd("tokens", "Refresh the token table from the signal source", cobra.NoArgs,
			func(ctx context.Context, rt *runtime, _ []string) error {
				n, err := rt.svcs.Tokens.Refresh(ctx, time.Now().UTC())
				if err != nil {
					return err
				}
				fmt.Printf("✅ Stored %d tokens\n", n)
				return nil
			}),
		stageCmd("holders", "Sample holder counts and rescore holders", cobra.NoArgs,
			func(ctx context.Context, rt *runtime, _ []string) error {
				n, err := rt.svcs.Holders.Run(ctx, time.Now().UTC())
				if err != nil {
					return err
				}
				fmt.Printf("✅ Scored holders of %d tokens\n", n)
				return nil
			}),
		stageCmd("volume", "Refresh volumes and record today's sample", cobra.NoArgs,
			func(ctx context.Context, rt *runtime, _ []string) error {
				if err := rt.svcs.Volumes.Run(ctx, time.Now().UTC()); err != nil {
					return err
				}
				fmt.Println("✅ Volume refresh completed")
				return nil
			}),
		stageCmd("score", "Solve and publish the current scores", cobra.NoArgs,
			func(ctx context.Context, rt *runtime, _ []string) error {
				scores, err := rt.svcs.Scores.Solve(ctx, time.Now().UTC())
				if err != nil {
					return err
				}
				fmt.Printf("✅ Scored %d tokens\n", len(scores))
				return nil
			}),
		stageCmd("rollup", "Shift today's averages into the daily history", cobra.NoArgs,
			func(ctx context.Context, rt *runtime, _ []string) error {
				n, err := rt.svcs.Hourly.Rollup(ctx, time.Now().UTC())
				if err != nil {
					return err
				}
				fmt.Printf("✅ Rolled up %d daily averages\n", n)
				return nil
			}),
		stageCmd("snapshot <3am|9am|3pm|9pm>", "Take and announce a checkpoint snapshot now", cobra.ExactArgs(1),
			func(ctx context.Context, rt *runtime, args []string) error {
				now := time.Now().UTC()
				snap, err := rt.svcs.Snapshots.Take(ctx, args[0], now)
				if errors.Is(err, store.ErrDuplicateKey) {
					fmt.Printf("⚠️ %s snapshot already taken this hour\n", args[0])
					return nil
				}
				if err != nil {
					return err
				}
				if err := rt.svcs.Snapshots.Announce(ctx, snap); err != nil {
					return err
				}
				if models.IsSessionTag(snap.Tag) {
					if err := rt.svcs.Portfolio.Rotate(ctx, snap.Tag, snap, now); err != nil {
						return err
					}
				}
				fmt.Printf("✅ Stored %s snapshot\n", snap.Tag)
				return nil
			}),
		stageCmd("pipeline", "Run one full hourly cycle", cobra.NoArgs,
			func(ctx context.Context, rt *runtime, _ []string) error {
				sched := scheduler.New(rt.svcs, rt.cfg, logger.L())
				report := sched.RunHourly(ctx, time.Now().UTC())
				for _, s := range report.Stages {
					status := "ok"
					if s.Err != nil {
						status = s.Err.Error()
					}
					fmt.Printf("%-10s %8s  %s\n", s.Stage, s.Duration.Round(time.Millisecond), status)
				}
				if failed := report.Failed(); len(failed) > 0 {
					return fmt.Errorf("stages failed: %v", failed)
				}
				return nil
			}),
	)
	return root
}

func main() {
	defer logger.Sync()
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		logger.Error("sync failed: %v", err)
		os.Exit(1)
	}
}
