package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cherrycake/internal/player"
	"cherrycake/internal/view"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var (
		embed    bool
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "play <visualization>",
		Short: "Play a visualization loop in the terminal",
		Long: "Play drives the visualization's loop clock at the configured display rate.\n" +
			"On a terminal it shows a live view until q is pressed; otherwise it prints\n" +
			"status lines for one loop or the --for duration.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, def, err := ctx.definition(args[0])
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := ctx.logger(cmd.ErrOrStderr())
			v := view.Mount(runCtx, view.NewLoader(cfg), def, view.Presentation(cfg, embed), logger)
			err = player.Play(runCtx, v, player.Options{
				Hz:     cfg.Loop.DisplayHz,
				For:    duration,
				Out:    cmd.OutOrStdout(),
				In:     cmd.InOrStdin(),
				Logger: logger,
			})
			if err != nil && runCtx.Err() != nil {
				return context.Canceled
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&embed, "embed", false, "Use the embedded presentation frame rate")
	cmd.Flags().DurationVar(&duration, "for", 0, "Stop after this long (default: one loop when not on a terminal)")
	return cmd
}
