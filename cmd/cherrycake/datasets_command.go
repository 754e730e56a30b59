package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cherrycake/internal/dataset"
	"cherrycake/internal/view"
)

type datasetsReport struct {
	Source    string                `json:"source"`
	Remote    bool                  `json:"remote"`
	Documents []view.DocumentStatus `json:"documents"`
}

func newDatasetsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "Check that every analysis document loads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			loader := view.NewLoader(cfg)
			docs := view.Inspect(cmd.Context(), loader, view.Catalog(cfg))
			failed := 0
			for _, d := range docs {
				if d.Status != dataset.StatusReady {
					failed++
				}
			}

			if jsonOutput {
				if err := writeJSON(cmd, datasetsReport{Source: loader.Base(), Remote: loader.Remote(), Documents: docs}); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Source: %s\n", loader.Base())
				rows := make([][]string, 0, len(docs))
				for _, d := range docs {
					rows = append(rows, []string{
						d.Ref,
						string(d.Status),
						strconv.Itoa(d.Records),
						strings.Join(d.UsedBy, ", "),
						d.Duration.Round(time.Millisecond).String(),
						d.Error,
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					{title: "Document"},
					{title: "Status"},
					{title: "Records", align: alignRight},
					{title: "Used by", maxWidth: 30},
					{title: "Time", align: alignRight},
					{title: "Error", maxWidth: 50},
				}, rows))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d dataset documents unavailable", failed, len(docs))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
