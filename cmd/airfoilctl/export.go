package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/airfoil-geometry/internal/airfoil"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
	"github.com/mohammed-shakir/airfoil-geometry/internal/source/uiuc"
)

func newExportCmd(c *cli) *cobra.Command {
	var rs resampleFlags
	var format, outPath string
	cmd := &cobra.Command{
		Use:   "export CODE",
		Short: "Write an airfoil contour as Selig .dat, SVG or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			write, err := exporter(format)
			if err != nil {
				return err
			}
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
			if rs.enabled() {
				n, scheme, ratio, err := rs.resolve(c.cfg.Resample)
				if err != nil {
					return err
				}
				if err := g.Resample(n, scheme, ratio); err != nil {
					return err
				}
				contour = g.InterpolatedContour()
			}

			w, closeOut, err := openOutput(cmd, outPath)
			if err != nil {
				return err
			}
			if err := write(w, g.Code(), contour); err != nil {
				_ = closeOut()
				return err
			}
			return closeOut()
		},
	}
	rs.bind(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "dat", "output format: dat, svg or json")
	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "output file, - for stdout")
	return cmd
}

type exportFunc func(w io.Writer, code string, contour model.Contour) error

func exporter(format string) (exportFunc, error) {
	switch strings.ToLower(format) {
	case "dat":
		return uiuc.WriteDat, nil
	case "svg":
		return airfoil.WriteSVG, nil
	case "json":
		return writeContourJSON, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want dat, svg or json)", format)
	}
}

func writeContourJSON(w io.Writer, code string, contour model.Contour) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Code string    `json:"code"`
		X    []float64 `json:"x"`
		Y    []float64 `json:"y"`
	}{code, contour.Xs(), contour.Ys()})
}
