package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"playoff-migration/internal/api"
	"playoff-migration/internal/config"
	"playoff-migration/internal/constants"
	"playoff-migration/internal/domain"
	fxmodules "playoff-migration/internal/fx"
	"playoff-migration/internal/middleware"
	"playoff-migration/internal/repository"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// app is what every command needs from the dependency graph.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	registry *api.Registry
	runs     *repository.RunRepository
	scopes   *domain.ScopeTable
	db       *sql.DB
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:           "playoff-migrate",
		Short:         "Copy design and data between Playoff games",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newMigrateCmd(),
		newExportCmd(),
		newImportCmd(),
		newLeaderboardCmd(),
		newRunsCmd(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp builds the dependency graph, runs fn and tears the graph down.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	var a app
	return start(ctx, &a, fn, fxmodules.Module, fx.Populate(&a.cfg, &a.logger, &a.registry, &a.runs, &a.scopes, &a.db))
}

// withJournal is withApp for commands that need neither game handles nor
// the scope table.
func withJournal(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	var a app
	return start(ctx, &a, fn, fxmodules.JournalModule, fx.Populate(&a.cfg, &a.logger, &a.runs, &a.db))
}

func start(ctx context.Context, a *app, fn func(ctx context.Context, a *app) error, opts ...fx.Option) error {
	fxApp := fx.New(append(opts, fx.NopLogger)...)
	if err := fxApp.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		if err := fxApp.Stop(stopCtx); err != nil {
			a.logger.Warn().Err(err).Msg("shutdown failed")
		}
	}()

	return fn(ctx, a)
}

// game returns the handle of role with every call logged under a request id.
func (a *app) game(role string) (middleware.Game, error) {
	client, err := a.registry.Game(role)
	if err != nil {
		return nil, err
	}
	return middleware.RequestID(a.logger)(client), nil
}

func parseKinds(names []string, fallback []domain.Kind) ([]domain.Kind, error) {
	if len(names) == 0 {
		return fallback, nil
	}
	kinds := make([]domain.Kind, 0, len(names))
	for _, name := range names {
		k, ok := domain.ParseKind(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidArgument, name)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func printReports(cmd *cobra.Command, kinds []domain.Kind, reports map[domain.Kind]*domain.KindReport) {
	out := cmd.OutOrStdout()
	for _, k := range kinds {
		rep, ok := reports[k]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "%-20s deleted=%d created=%d skipped=%d joined=%d replayed=%d\n",
			k, rep.Deleted, rep.Created, rep.Skipped, rep.Joined, rep.Replayed)
	}
}
