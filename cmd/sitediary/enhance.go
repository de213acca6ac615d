package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/site-diary/internal/convert"
)

func enhanceCmd(a *app) *cobra.Command {
	var source string
	var textFile string

	cmd := &cobra.Command{
		Use:   "enhance <record.json|->",
		Short: "Refine a diary record with the configured AI provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.AIEnabled() {
				return errors.New("enhance needs an AI provider, e.g. --ai gemini")
			}
			rec, err := readRecord(args[0])
			if err != nil {
				return err
			}
			rec.Fill()

			var raw string
			switch {
			case textFile != "":
				b, err := os.ReadFile(textFile)
				if err != nil {
					return err
				}
				raw = string(b)
			case source != "":
				doc, err := convert.ReadDocument(source)
				if err != nil {
					return err
				}
				res, err := a.extractor().Extract(cmd.Context(), doc)
				if err != nil {
					return err
				}
				raw = res.Text
			}

			enh, err := a.enhancer(cmd.Context())
			if err != nil {
				return err
			}
			out, err := enh.Enhance(cmd.Context(), rec, raw)
			if err != nil {
				return err
			}
			return writeRecord(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "original PDF report to take the raw text from")
	cmd.Flags().StringVar(&textFile, "text", "", "file holding the raw report text")
	return cmd
}
