package cmd

import (
	"context"

	"github.com/Laisky/errors/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/files-manager/internal/web/files"
	"github.com/Laisky/files-manager/library/log"
)

var migrateCMD = &cobra.Command{
	Use:   "migrate",
	Short: "migrate",
	Long:  `create the mongodb indexes, then exit`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMigrate(context.Background(), files.LoadSettingsFromConfig()); err != nil {
			log.Logger.Panic("migrate", zap.Error(err))
		}
	},
}

// runMigrate connects the document store, which ensures its indexes.
func runMigrate(ctx context.Context, settings files.Settings) error {
	if settings.StoreBackend != files.BackendMongo {
		return errors.Errorf("nothing to migrate for store backend %q", settings.StoreBackend)
	}

	// sessions are not needed to build indexes
	settings.SessionBackend = files.BackendMemory
	app, err := files.Initialize(ctx, settings)
	if err != nil {
		return errors.Wrap(err, "connect document store")
	}

	log.Logger.Info("indexes are up to date")
	return errors.Wrap(app.Close(ctx), "close")
}

func init() {
	rootCMD.AddCommand(migrateCMD)
}
