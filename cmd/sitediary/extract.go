package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/site-diary/internal/convert"
)

func extractCmd(a *app) *cobra.Command {
	var out string
	var showText bool

	cmd := &cobra.Command{
		Use:   "extract <pdf>",
		Short: "Extract a draft diary record from a site report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := convert.ReadDocument(args[0])
			if err != nil {
				return err
			}
			res, err := a.extractor().Extract(cmd.Context(), doc)
			if err != nil {
				return err
			}
			if showText {
				fmt.Fprintln(cmd.OutOrStdout(), res.Text)
				return nil
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return writeRecord(w, res.Record)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the record JSON to this file instead of stdout")
	cmd.Flags().BoolVar(&showText, "text", false, "print the cleaned text layer instead of the record")
	return cmd
}
