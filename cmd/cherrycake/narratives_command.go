package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cherrycake/internal/dataset"
	"cherrycake/internal/narrative"
	"cherrycake/internal/view"
)

func newNarrativesCommand(ctx *commandContext) *cobra.Command {
	var (
		kindFlag   string
		langFlag   string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "narratives [term]",
		Short: "Search the Korean and English narratives",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			term := ""
			if len(args) == 1 {
				term = args[0]
			}
			kind := narrative.ParseKind(kindFlag)
			lang := narrative.ParseLang(langFlag)

			var data dataset.Narratives
			if err := view.NewLoader(cfg).Fetch(cmd.Context(), dataset.NarrativesFile, &data); err != nil {
				return err
			}
			entries := narrative.Search(&data, term, kind)
			if jsonOutput {
				if entries == nil {
					entries = []narrative.Entry{}
				}
				return writeJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No %s narratives match %q\n", kind, term)
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					fmt.Sprintf("%d", e.ID),
					measureRange(e.Measures),
					e.Text(lang),
					strings.Join(e.Keywords, ", "),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{title: "ID", align: alignRight},
				{title: "Measures"},
				{title: "Narrative", maxWidth: 60},
				{title: "Keywords", maxWidth: 30},
			}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "clusters", "Collection: clusters, segments or measures")
	cmd.Flags().StringVar(&langFlag, "lang", "ko", "Language: ko or en")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func measureRange(m [2]float64) string {
	if m[0] == 0 && m[1] == 0 {
		return "-"
	}
	if m[0] == m[1] {
		return fmt.Sprintf("m.%g", m[0])
	}
	return fmt.Sprintf("m.%g-%g", m[0], m[1])
}
