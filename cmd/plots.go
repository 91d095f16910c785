package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/borkh/paper-prep/internal/charts"
	"github.com/borkh/paper-prep/internal/optuna"
	"github.com/borkh/paper-prep/internal/paper"
	"github.com/borkh/paper-prep/internal/pipeline"
	"github.com/spf13/cobra"
)

var flagAllPlots bool

func newPlotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plots",
		Short: "Render training curves and study plots as PNGs",
		Long: "Draw per-seed training curves for the winning configurations into " +
			"the output images directory, plus optimization history and parameter " +
			"importances when the sweep carries an optuna database.",
		RunE: runPlots,
	}
	addPipelineFlags(cmd)
	cmd.Flags().BoolVar(&flagAllPlots, "all", false, "plot every configuration, not only the winners")
	return cmd
}

func runPlots(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()

	out, err := pipeline.Run(ctx, pipeline.Options{Config: cfg})
	if err != nil {
		return err
	}

	w := paper.New(cfg)
	if err := w.EnsureLayout(); err != nil {
		return err
	}

	keys := make([]string, 0, len(out.Winners))
	if flagAllPlots {
		keys = out.RowKeys
	} else {
		for _, d := range out.Winners {
			keys = append(keys, d.Entry.Group.Key)
		}
	}

	count := 0
	for _, key := range keys {
		dir := w.ImagesDir(key)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		for _, col := range out.Columns {
			var curves []charts.Curve
			for _, rs := range out.Curves(key, col.Name) {
				curves = append(curves, charts.Curve{
					Label:  fmt.Sprintf("seed %d", rs.Seed),
					Series: rs.Series,
				})
			}
			path := filepath.Join(dir, paper.Slug(col.Name)+".png")
			if err := charts.MetricCurves(curves, key, col.Display, path); err != nil {
				log.Printf("warning: %s / %s: %v", key, col.Name, err)
				continue
			}
			fmt.Printf("Wrote %s\n", path)
			count++
		}
	}

	n, err := studyPlots(ctx, cfg.Root, w)
	if err != nil {
		log.Printf("warning: study plots: %v", err)
	}
	count += n

	fmt.Printf("%d plots written\n", count)
	return nil
}

// studyPlots renders one optimization history and one parameter
// importance chart per study found in the sweep's optuna database.
func studyPlots(ctx context.Context, root string, w *paper.Writer) (int, error) {
	dbPath := optuna.FindDB(root)
	if dbPath == "" {
		return 0, nil
	}
	st, err := optuna.Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer st.Close()

	studies, err := st.Studies(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, study := range studies {
		trials, err := st.Trials(ctx, study.ID)
		if err != nil {
			return count, err
		}
		if len(trials) == 0 {
			continue
		}
		dir := filepath.Join(w.OutDir, "images", "study-"+paper.Slug(study.Name))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return count, err
		}

		values := make([]float64, len(trials))
		for i, tr := range trials {
			values[i] = tr.Value
		}
		histPath := filepath.Join(dir, "optimization-history.png")
		if err := charts.OptimizationHistory(values, study.Maximize(), study.Name, histPath); err != nil {
			return count, err
		}
		fmt.Printf("Wrote %s\n", histPath)
		count++

		if imps := optuna.Importance(trials); len(imps) > 0 {
			names := make([]string, len(imps))
			scores := make([]float64, len(imps))
			for i, imp := range imps {
				names[i] = imp.Name
				scores[i] = imp.Score
			}
			impPath := filepath.Join(dir, "param-importances.png")
			if err := charts.ParamImportances(names, scores, impPath); err != nil {
				return count, err
			}
			fmt.Printf("Wrote %s\n", impPath)
			count++
		}
	}
	return count, nil
}
