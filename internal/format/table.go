package format

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// WriteGroupTable renders the log group listing as a table.
func WriteGroupTable(w io.Writer, groups []string) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateHeader = true
	tw.Style().Options.DrawBorder = true

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: 100},
	})

	tw.AppendHeader(table.Row{"#", "Log Group"})
	for i, group := range groups {
		tw.AppendRow(table.Row{i + 1, group})
	}
	tw.Render()
}
