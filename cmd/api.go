package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/files-manager/internal/web"
	"github.com/Laisky/files-manager/internal/web/files"
	"github.com/Laisky/files-manager/library/log"
)

var apiCMD = &cobra.Command{
	Use:   "api",
	Short: "api",
	Long:  `run the files manager HTTP API`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if err := runAPI(ctx); err != nil {
			log.Logger.Panic("run api", zap.Error(err))
		}
	},
}

func runAPI(ctx context.Context) error {
	app, err := files.Initialize(ctx, files.LoadSettingsFromConfig())
	if err != nil {
		return errors.Wrap(err, "init files app")
	}
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			log.Logger.Warn("close files app", zap.Error(err))
		}
	}()

	server, err := web.NewServer(app, web.ServerOptions{
		Debug:         gconfig.S.GetBool("debug"),
		URLPrefix:     gconfig.S.GetString("settings.web.url_prefix"),
		CORSHosts:     gconfig.S.GetStringSlice("settings.web.cors_hosts"),
		DisableMetric: gconfig.S.GetBool("settings.web.disable_metric"),
	})
	if err != nil {
		return errors.Wrap(err, "new server")
	}

	return web.RunServer(ctx, gconfig.S.GetString("listen"), server)
}

func init() {
	rootCMD.AddCommand(apiCMD)
}
