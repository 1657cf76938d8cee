package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/randomizedcoder/go-sidecar-shell/internal/metrics"
)

func newStatusCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of a running shell through its metrics endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *cfgFile)
			if err != nil {
				return err
			}
			if cfg.MetricsAddr == "" {
				return errors.New("no metrics address: pass --metrics host:port")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			client := &http.Client{Timeout: cfg.HTTPTimeout}
			families, err := metrics.Scrape(ctx, client, "http://"+cfg.MetricsAddr+"/metrics")
			if err != nil {
				return fmt.Errorf("scrape %s: %w", cfg.MetricsAddr, err)
			}
			s := metrics.StatusFrom(families)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "State:            %s\n", orDash(s.State))
			fmt.Fprintf(w, "Ready:            %t\n", s.Ready)
			fmt.Fprintf(w, "Sidecar running:  %t\n", s.SidecarRunning)
			fmt.Fprintf(w, "Sidecar starts:   %d\n", s.Starts)
			fmt.Fprintf(w, "Sidecar exits:    %d\n", s.Exits)

			results := make([]string, 0, len(s.Resolutions))
			for r := range s.Resolutions {
				results = append(results, r)
			}
			sort.Strings(results)
			for _, r := range results {
				fmt.Fprintf(w, "Resolved (%s): %d\n", r, s.Resolutions[r])
			}
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
