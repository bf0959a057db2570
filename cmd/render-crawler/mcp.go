package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"render-crawler/pkg/mcp"
)

func newMcpServerCmd(root *rootOptions) *cobra.Command {
	var transport string
	var port int

	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Start an MCP (Model Context Protocol) server exposing the crawl tools",
		Long: `Start an MCP (Model Context Protocol) server for AI tool integration.

Available MCP Tools:
  crawl           Crawl and return the pages (blocks until done)
  start_crawl     Start a background crawl and return a job ID
  get_job_status  Get the status and pages of a crawl job
  cancel_job      Cancel a running crawl job`,
		Example: `  # stdio transport (for desktop MCP clients)
  render-crawler mcp-server --config config.yaml

  # SSE transport on port 8080
  render-crawler mcp-server --transport sse --port 8080`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// MCP speaks on stdout, logs go to stderr
			log, err := setupLogger(root.logLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			appCfg, err := loadConfig(root.configFile, log, nil)
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.ServerConfig{
				AppConfig: appCfg,
				Transport: transport,
				Port:      port,
				Logger:    log,
			})
			if err != nil {
				return fmt.Errorf("creating MCP server: %w", err)
			}
			defer func() { _ = server.Shutdown(context.Background()) }()

			log.Infof("Starting MCP server (transport: %s)", transport)
			if err := server.Run(); err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport type (stdio, sse)")
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP port (for sse transport)")
	return cmd
}
