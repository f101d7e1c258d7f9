package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/airfoil-geometry/internal/airfoil"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
)

func newShowCmd(c *cli) *cobra.Command {
	var rs resampleFlags
	var points bool
	cmd := &cobra.Command{
		Use:   "show CODE",
		Short: "Print a summary of one airfoil's geometry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.app(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			g, err := a.Loader.Load(ctx, args[0])
			if err != nil {
				return err
			}
			contour := g.Contour()
			label := "parsed"
			if rs.enabled() {
				n, scheme, ratio, err := rs.resolve(c.cfg.Resample)
				if err != nil {
					return err
				}
				if err := g.Resample(n, scheme, ratio); err != nil {
					return err
				}
				contour = g.InterpolatedContour()
				label = fmt.Sprintf("resampled n=%d %s ratio=%g", n, scheme, ratio)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, summaryTable(g, label, contour).Render())
			if points {
				fmt.Fprintln(out, pointsTable(contour).Render())
			}
			return nil
		},
	}
	rs.bind(cmd)
	cmd.Flags().BoolVar(&points, "points", false, "also print every contour point")
	return cmd
}

func summaryTable(g *airfoil.Geometry, label string, contour model.Contour) table.Writer {
	p := g.Parsed()
	w := table.NewWriter()
	w.SetTitle(g.Code())
	w.AppendRows([]table.Row{
		{"split", g.SplitMethod().String()},
		{"raw points", g.Raw().Len()},
		{"suction points", p.Suction.Len()},
		{"pressure points", p.Pressure.Len()},
		{"max suction y", fmt.Sprintf("%.6f", p.Suction.MaxY())},
		{"contour", label},
		{"contour points", len(contour)},
		{"signed area", fmt.Sprintf("%.6f", contour.SignedArea())},
	})
	return w
}

func pointsTable(contour model.Contour) table.Writer {
	w := table.NewWriter()
	w.AppendHeader(table.Row{"#", "x", "y"})
	for i, p := range contour {
		w.AppendRow(table.Row{i, fmt.Sprintf("%.6f", p.X), fmt.Sprintf("%.6f", p.Y)})
	}
	return w
}
