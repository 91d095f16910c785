package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/borkh/paper-prep/internal/paper"
	"github.com/borkh/paper-prep/internal/pipeline"
	"github.com/borkh/paper-prep/internal/report"
	"github.com/spf13/cobra"
)

func newTablesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Aggregate a sweep and write the LaTeX artifacts",
		Long: "Scan the sweep root for run directories, aggregate the configured " +
			"metrics across seeds, and write the results table, winner sections, " +
			"report include and best_model link into the output directory.",
		RunE: runTables,
	}
	addPipelineFlags(cmd)
	return cmd
}

func runTables(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out, err := pipeline.Run(context.Background(), pipeline.Options{Config: cfg})
	if err != nil {
		return err
	}

	w := paper.New(cfg)
	if _, err := w.WriteAll(out); err != nil {
		return err
	}
	fmt.Printf("Output directory: %s\n", w.OutDir)
	if len(out.Diagnostics) > 0 {
		fmt.Printf("%d incidents recorded in diagnostics.txt\n", len(out.Diagnostics))
	}
	if _, ok := out.Primary().Winner(); !ok {
		fmt.Println("No configuration met the seed threshold; table written without bold cells.")
	}

	fmt.Println("\n--- Ranking ---")
	return report.Generate(out, "table", os.Stdout)
}
