package cmd

import (
	"errors"
	"os"

	"github.com/borkh/paper-prep/internal/config"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "paperprep.yaml"

var cfgFile string

var (
	flagRoot        string
	flagOut         string
	flagMetrics     []string
	flagSplit       string
	flagSigDigits   int
	flagMinSeeds    int
	flagTopK        int
	flagWorkers     int
	flagExclude     []string
	flagSeedPattern string
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "paperprep",
		Short: "Turn experiment sweep logs into paper-ready LaTeX tables",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigFile, "config file path")
	root.AddCommand(newTablesCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newPlotsCmd())
	root.AddCommand(newCheckCmd())
	return root
}

// addPipelineFlags registers the overrides shared by every command
// that aggregates a sweep.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagRoot, "root", "", "sweep root directory")
	cmd.Flags().StringVar(&flagOut, "out", "", "output directory (default <root>/paper)")
	cmd.Flags().StringSliceVar(&flagMetrics, "metric", nil, "metric tag to aggregate, repeatable")
	cmd.Flags().StringVar(&flagSplit, "split", "", "split prefix tried before the bare tag, e.g. test")
	cmd.Flags().IntVar(&flagSigDigits, "sig-digits", 0, "significant digits in table cells")
	cmd.Flags().IntVar(&flagMinSeeds, "min-seeds", 0, "seeds required before a configuration can win")
	cmd.Flags().IntVar(&flagTopK, "top-k", 0, "winners to detail")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "concurrent run readers (default one per CPU)")
	cmd.Flags().StringSliceVar(&flagExclude, "exclude", nil, "directory name to skip while scanning, repeatable")
	cmd.Flags().StringVar(&flagSeedPattern, "seed-pattern", "", "seed directory regexp with one capture group")
}

// parseConfig reads the config file when present and layers flag
// overrides on top. Only the default file may be absent; a path given
// explicitly must exist.
func parseConfig() (*config.Config, error) {
	cfg, err := config.Parse(cfgFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || cfgFile != defaultConfigFile {
			return nil, err
		}
		cfg = &config.Config{}
	}
	applyOverrides(cfg)
	return cfg, nil
}

// loadConfig is parseConfig plus validation, for the commands that run
// the full pipeline and need metrics configured.
func loadConfig() (*config.Config, error) {
	cfg, err := parseConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config) {
	if flagRoot != "" {
		cfg.Root = flagRoot
	}
	if flagOut != "" {
		cfg.OutputDir = flagOut
	}
	if len(flagMetrics) > 0 {
		cfg.Metrics = nil
		for _, m := range flagMetrics {
			cfg.Metrics = append(cfg.Metrics, config.Metric{Name: m})
		}
	}
	if flagSplit != "" {
		cfg.Split = flagSplit
	}
	if flagSigDigits > 0 {
		cfg.SigDigits = flagSigDigits
	}
	if flagMinSeeds > 0 {
		cfg.MinSeeds = flagMinSeeds
	}
	if flagTopK > 0 {
		cfg.TopK = flagTopK
	}
	if flagWorkers > 0 {
		cfg.Workers = flagWorkers
	}
	if len(flagExclude) > 0 {
		cfg.Exclude = append(cfg.Exclude, flagExclude...)
	}
	if flagSeedPattern != "" {
		cfg.SeedPattern = flagSeedPattern
	}
}
