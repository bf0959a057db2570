package main

import (
	"github.com/spf13/cobra"

	"render-crawler/pkg/config"
	"render-crawler/pkg/render"
	"render-crawler/pkg/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve crawls over HTTP (GET /crawl?urls=...&match=...)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := setupLogger(root.logLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			appCfg, err := loadConfig(root.configFile, log, func(cfg *config.AppConfig) {
				if host != "" {
					cfg.Host = host
				}
				if port > 0 {
					cfg.Port = port
				}
			})
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			logEntry := log.WithField("component", "serve")
			srv, err := server.New(appCfg, render.NewLauncher(appCfg, logEntry), logEntry)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(ctx, appCfg.Addr())
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (default from config or HOST, then localhost)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config or PORT, then 3000)")
	return cmd
}
