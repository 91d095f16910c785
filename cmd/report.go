package cmd

import (
	"context"
	"os"

	"github.com/borkh/paper-prep/internal/pipeline"
	"github.com/borkh/paper-prep/internal/report"
	"github.com/spf13/cobra"
)

var flagFormat string

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [root]",
		Short: "Print the ranking without writing any files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Root = args[0]
			}
			out, err := pipeline.Run(context.Background(), pipeline.Options{Config: cfg})
			if err != nil {
				return err
			}
			return report.Generate(out, flagFormat, os.Stdout)
		},
	}
	addPipelineFlags(cmd)
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown, json)")
	return cmd
}
