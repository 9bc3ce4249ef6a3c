package main

import (
	"time"

	"github.com/spf13/cobra"

	"attachr/internal/api"
	"attachr/internal/config"
)

type pingResult struct {
	APIURL    string `json:"api_url" yaml:"api_url"`
	Public    bool   `json:"public" yaml:"public"`
	LatencyMS int64  `json:"latency_ms" yaml:"latency_ms"`
}

func newPingCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	var public bool
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the upload backend is reachable",
		Args:  noArgs("ping"),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(cfg.APIURL, cfg.PublicAPIURL)
			start := time.Now()
			base, err := client.Ping(cmd.Context(), public)
			if err != nil {
				return err
			}
			result := pingResult{APIURL: base, Public: public, LatencyMS: time.Since(start).Milliseconds()}
			if flags.structured() {
				return writeStructured(result)
			}
			return writePlain("ok %s (%dms)\n", result.APIURL, result.LatencyMS)
		},
	}
	cmd.Flags().BoolVar(&public, "public", false, "check the public API base")
	return cmd
}
