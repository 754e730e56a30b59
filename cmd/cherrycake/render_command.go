package main

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cherrycake/internal/fileutil"
	"cherrycake/internal/loop"
	"cherrycake/internal/view"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var (
		progress float64
		at       time.Duration
		embed    bool
		output   string
	)

	cmd := &cobra.Command{
		Use:   "render <visualization>",
		Short: "Render one frame of a visualization as SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, def, err := ctx.definition(args[0])
			if err != nil {
				return err
			}
			p, err := frameProgress(progress, at, cmd.Flags().Changed("at"), def.LoopDuration)
			if err != nil {
				return err
			}
			lib, err := ctx.library(cmd)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			status, err := lib.Snapshot(cmd.Context(), &buf, def.Name, p, view.Presentation(cfg, embed))
			if err != nil {
				return fmt.Errorf("render %s: %w", def.Name, err)
			}

			target := strings.TrimSpace(output)
			if target == "" || target == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := fileutil.WriteAtomic(target, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", target, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s at %.1f%% (%s) to %s\n", def.Name, status.Progress*100, status.Cursor, target)
			return nil
		},
	}

	cmd.Flags().Float64Var(&progress, "progress", 0, "Loop position in [0,1); values of 1 or more wrap")
	cmd.Flags().DurationVar(&at, "at", 0, "Elapsed loop time, e.g. 45s (overrides --progress)")
	cmd.Flags().BoolVar(&embed, "embed", false, "Use the embedded layout without titles and legends")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the SVG to this file instead of stdout")
	return cmd
}

// frameProgress resolves the loop position from either an elapsed time or a
// progress fraction.
func frameProgress(progress float64, at time.Duration, useAt bool, loopDuration time.Duration) (float64, error) {
	if useAt {
		if at < 0 {
			return 0, errors.New("--at must not be negative")
		}
		return loop.Progress(at, loopDuration), nil
	}
	if math.IsNaN(progress) || math.IsInf(progress, 0) || progress < 0 {
		return 0, fmt.Errorf("--progress must be a non-negative number, got %v", progress)
	}
	return math.Mod(progress, 1), nil
}
