package fx

import (
	"context"
	"database/sql"
	"playoff-migration/internal/api"
	"playoff-migration/internal/config"
	"playoff-migration/internal/database"
	"playoff-migration/internal/logger"
	"playoff-migration/internal/repository"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// ProvideLogger filters the base logger at the configured level.
func ProvideLogger(base zerolog.Logger, cfg *config.Config) zerolog.Logger {
	return logger.WithLevel(base, cfg.LogLevel)
}

func closeDatabase(lc fx.Lifecycle, db *sql.DB, log zerolog.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("error closing database connection")
				return err
			}
			return nil
		},
	})
}

// JournalModule is the graph of commands that only read the run journal.
var JournalModule = fx.Options(
	fx.Provide(fx.Annotate(logger.New, fx.ResultTags(`name:"base"`))),
	fx.Provide(fx.Annotate(config.Load, fx.ParamTags(`name:"base"`))),
	fx.Provide(fx.Annotate(ProvideLogger, fx.ParamTags(`name:"base"`))),
	fx.Provide(database.New),
	fx.Provide(repository.NewRunRepository),
	fx.Invoke(closeDatabase),
)

var Module = fx.Options(
	JournalModule,
	fx.Provide(config.LoadScopeTable),
	// game handles
	fx.Provide(api.NewRegistry),
)
