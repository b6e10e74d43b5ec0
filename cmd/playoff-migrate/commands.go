package main

import (
	"context"
	"encoding/json"
	"fmt"
	"playoff-migration/internal/config"
	"playoff-migration/internal/constants"
	"playoff-migration/internal/domain"
	"playoff-migration/internal/service"
	"time"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var (
		from, to     string
		design, data bool
		scoped       bool
		kindNames    []string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Wipe the destination game and recreate it from the source game",
		Long: `Migrate copies each entity kind by deleting the destination collection and
recreating it from the source. Design goes before data; player instances also
replay team memberships and action feeds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if scoped && !cmd.Flags().Changed("to") {
				to = config.RoleScoped
			}

			var fallback []domain.Kind
			if design || !data {
				fallback = append(fallback, domain.DesignKinds...)
			}
			if data || !design {
				fallback = append(fallback, domain.DataKinds...)
			}
			kinds, err := parseKinds(kindNames, fallback)
			if err != nil {
				return err
			}

			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				source, err := a.game(from)
				if err != nil {
					return err
				}
				destination, err := a.game(to)
				if err != nil {
					return err
				}

				params := service.PipelineParams{
					Source:          source,
					Destination:     destination,
					SourceRole:      from,
					DestinationRole: to,
					Journal:         a.runs,
					Logger:          a.logger,
				}
				if scoped {
					params.Scopes = a.scopes
				}

				pipeline, err := service.NewPipeline(params)
				if err != nil {
					return err
				}

				runCtx, cancel := context.WithTimeout(ctx, constants.RunTimeout)
				defer cancel()

				reports, err := pipeline.Run(runCtx, kinds)
				printReports(cmd, kinds, reports)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", config.RoleOriginal, "Source game role")
	cmd.Flags().StringVar(&to, "to", config.RoleCloned, "Destination game role")
	cmd.Flags().BoolVar(&design, "design", false, "Migrate design only (teams, metrics, actions, leaderboards)")
	cmd.Flags().BoolVar(&data, "data", false, "Migrate data only (team and player instances)")
	cmd.Flags().BoolVar(&scoped, "scoped", false, "Use custom leaderboard scopes and recompute feed scopes")
	cmd.Flags().StringSliceVar(&kindNames, "kinds", nil, "Explicit kinds in order, e.g. metric-design,action-design")

	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		from, dir string
		kindNames []string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the source game to JSON files",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(kindNames, domain.AllKinds)
			if err != nil {
				return err
			}

			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				source, err := a.game(from)
				if err != nil {
					return err
				}
				if dir == "" {
					dir = a.cfg.ExportDir
				}

				counts, err := service.NewExporter(a.logger).Export(ctx, source, dir, kinds)
				for _, k := range kinds {
					if n, ok := counts[k]; ok {
						fmt.Fprintf(cmd.OutOrStdout(), "%-20s %d\n", k, n)
					}
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", config.RoleOriginal, "Game role to export")
	cmd.Flags().StringVar(&dir, "dir", "", "Output directory (default EXPORT_DIR)")
	cmd.Flags().StringSliceVar(&kindNames, "kinds", nil, "Kinds to export (default all)")

	return cmd
}

func newImportCmd() *cobra.Command {
	var (
		to, dir   string
		kindNames []string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Wipe the destination game and recreate it from JSON files",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(kindNames, domain.AllKinds)
			if err != nil {
				return err
			}

			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				destination, err := a.game(to)
				if err != nil {
					return err
				}
				if dir == "" {
					dir = a.cfg.ExportDir
				}

				reports, err := service.NewImporter(a.logger).Import(ctx, destination, dir, kinds)
				printReports(cmd, kinds, reports)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&to, "to", config.RoleCloned, "Game role to import into")
	cmd.Flags().StringVar(&dir, "dir", "", "Input directory (default EXPORT_DIR)")
	cmd.Flags().StringSliceVar(&kindNames, "kinds", nil, "Kinds to import (default all)")

	return cmd
}

func newLeaderboardCmd() *cobra.Command {
	var (
		game string
		opts domain.LeaderboardOptions
	)

	cmd := &cobra.Command{
		Use:   "leaderboard <leaderboard-id>",
		Short: "Print the all-time standings of a runtime leaderboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				g, err := a.game(game)
				if err != nil {
					return err
				}

				board, err := service.NewReader(a.logger).GetLeaderboard(ctx, g, args[0], opts)
				if err != nil {
					return err
				}

				out, err := json.MarshalIndent(board, "", "    ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&game, "game", config.RoleCloned, "Game role to read from")
	cmd.Flags().StringVar(&opts.PlayerID, "player", "", "Player id the standings are read for")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum entries")
	cmd.Flags().StringVar(&opts.TeamInstanceID, "team-instance", "", "Team instance id for team-scoped boards")
	cmd.Flags().StringVar(&opts.ScopeID, "scope-id", "", "Scope id for custom-scoped boards")

	return cmd
}

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List journaled migration runs, or the steps of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJournal(cmd.Context(), func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()

				if len(args) == 1 {
					steps, err := a.runs.Steps(ctx, args[0])
					if err != nil {
						return err
					}
					for _, s := range steps {
						fmt.Fprintf(out, "%s %-20s %-8s %-8s %s %s\n",
							s.At.Format(time.RFC3339), s.Kind, s.Operation, s.Status, s.EntityID, s.Error)
					}
					return nil
				}

				runs, err := a.runs.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				for _, r := range runs {
					fmt.Fprintf(out, "%s %s %-9s %s -> %s %s\n",
						r.ID, r.StartedAt.Format(time.RFC3339), r.Status, r.SourceRole, r.DestinationRole, r.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to list")

	return cmd
}
