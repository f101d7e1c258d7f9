package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/airfoil-geometry/internal/source/uiuc"
)

func newIndexCmd(c *cli) *cobra.Command {
	var bucket string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "List catalog buckets, or the codes of one bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := c.app(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			idx, err := a.Index.Index(ctx)
			if err != nil {
				return err
			}
			var w table.Writer
			if bucket == "" {
				w = bucketTable(idx)
			} else {
				codes, ok := idx[bucket]
				if !ok {
					return fmt.Errorf("bucket %q not in catalog", bucket)
				}
				w = table.NewWriter()
				w.AppendHeader(table.Row{"#", "code"})
				for i, code := range codes {
					w.AppendRow(table.Row{i + 1, code})
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), w.Render())
			return nil
		},
	}
	cmd.Flags().StringVarP(&bucket, "bucket", "b", "", "list the codes of this bucket")
	return cmd
}

func bucketTable(idx uiuc.Index) table.Writer {
	w := table.NewWriter()
	w.AppendHeader(table.Row{"bucket", "airfoils"})
	for _, b := range idx.Buckets() {
		w.AppendRow(table.Row{b, len(idx[b])})
	}
	w.AppendFooter(table.Row{"total", idx.Len()})
	return w
}
