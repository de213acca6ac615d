package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/site-diary/internal/convert"
	"github.com/thywilljoshua/site-diary/internal/metrics"
)

func convertCmd(a *app) *cobra.Command {
	var out string
	var name string
	var writeJSON bool
	var writeXLSX bool
	var keepDraft bool

	cmd := &cobra.Command{
		Use:   "convert <pdf>",
		Short: "Convert a site report into a Daily Diary PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := convert.ReadDocument(args[0])
			if err != nil {
				return err
			}
			enh, err := a.enhancer(cmd.Context())
			if err != nil {
				return err
			}

			conf := convert.Config{
				OutDir:             out,
				Name:               name,
				WriteJSON:          writeJSON,
				WriteXLSX:          writeXLSX,
				KeepDraftOnAIError: keepDraft,
				Extractor:          a.extractor(),
				Enhancer:           enh,
				Renderer:           a.renderer(),
				Metrics:            metrics.New(),
				Logger:             a.log,
			}

			res, err := convert.Run(cmd.Context(), doc, conf)
			if err != nil {
				return err
			}
			b, _ := json.MarshalIndent(res, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&name, "name", "", "base name of the output files (default: derived from the report name)")
	cmd.Flags().BoolVar(&writeJSON, "json", true, "also write the record as JSON")
	cmd.Flags().BoolVar(&writeXLSX, "xlsx", false, "also write an XLSX workbook")
	cmd.Flags().BoolVar(&keepDraft, "keep-draft", false, "render the extracted draft if AI enhancement fails")
	return cmd
}
