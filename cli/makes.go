package cli

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newMakesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "makes",
		Short: "List the manufacturers in the registry",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Key", "Name", "Purges", "Collector"})
			for _, m := range a.registry.Manufacturers {
				collector := "--input only"
				if m.Site != nil {
					collector = "site"
					if m.Site.Render {
						collector = "site (browser)"
					}
				}
				t.AppendRow(table.Row{m.Key, m.Name, strings.Join(m.Identity(), ", "), collector})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
		},
	}
}
