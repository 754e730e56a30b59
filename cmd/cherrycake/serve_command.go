package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cherrycake/internal/serverrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var opts serverrun.Options

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the cherrycake.me server in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts.Ready = func(addr string) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Listening on http://%s\n", addr)
			}
			return serverrun.Run(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Bind, "bind", "", "Listen address (overrides server.bind)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.Development, "dev", false, "Include source locations in logs")
	return cmd
}
