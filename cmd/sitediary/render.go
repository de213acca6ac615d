package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/site-diary/internal/diary"
	"github.com/thywilljoshua/site-diary/internal/logger"
	"github.com/thywilljoshua/site-diary/internal/render"
)

func renderCmd(a *app) *cobra.Command {
	var out string
	var xlsx string

	cmd := &cobra.Command{
		Use:   "render <record.json|->",
		Short: "Render a reviewed diary record to PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := readRecord(args[0])
			if err != nil {
				return err
			}

			b, err := a.renderer().Render(rec)
			if err != nil {
				var vErr *diary.ValidationError
				if errors.As(err, &vErr) {
					for _, p := range vErr.Problems {
						fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", p.Field, p.Message)
					}
				}
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return err
			}
			a.log.Info("Diary rendered", logger.String("path", out), logger.Int("bytes", len(b)))

			if xlsx != "" {
				wb, err := render.ExportXLSX(rec)
				if err != nil {
					return err
				}
				if err := os.WriteFile(xlsx, wb, 0o644); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "daily-diary.pdf", "output PDF path")
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "also write an XLSX workbook to this path")
	return cmd
}
