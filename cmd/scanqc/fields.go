package main

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-scanqc/internal/config"
	"github.com/cwbudde/algo-scanqc/mapping/grid"
)

func (a *app) fieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List the configured survey fields and their grids.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printFields(cmd.OutOrStdout(), a.cfg)
		},
	}
}

func printFields(w io.Writer, cfg *config.Config) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Field", "RA", "Dec", "Radius", "Pixel", "Grid", "Selected"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignRight
	})

	format := func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }

	var data [][]string
	for _, f := range cfg.Fields {
		size := "invalid"
		if g, err := grid.New(f); err == nil {
			size = strconv.Itoa(g.NX()) + "x" + strconv.Itoa(g.NY())
		}

		selected := ""
		if f.Name == cfg.Field {
			selected = "*"
		}

		data = append(data, []string{
			f.Name, format(f.CenterRA), format(f.CenterDec),
			format(f.RadiusDeg), format(f.PixelArcmin), size, selected,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}

	return table.Render()
}
