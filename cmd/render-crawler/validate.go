package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"render-crawler/pkg/config"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file and print the effective settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCfg, err := config.Load(root.configFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			warnings, err := appCfg.Validate()
			for _, w := range warnings {
				fmt.Fprintf(out, "WARN: %s\n", w)
			}
			if err != nil {
				return fmt.Errorf("ERROR: %w", err)
			}

			fmt.Fprintf(out, "OK: Configuration valid (engine=%s, format=%s, max_urls_to_crawl=%d, max_concurrency=%d, addr=%s, cache=%s/%d)\n",
				appCfg.Engine, appCfg.ContentFormat, appCfg.MaxUrlsToCrawl, appCfg.MaxConcurrency, appCfg.Addr(),
				appCfg.Cache.Strategy, appCfg.Cache.MaxSize)
			return nil
		},
	}
}
