package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/borkh/paper-prep/internal/discovery"
	"github.com/borkh/paper-prep/internal/pipeline"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [root]",
		Short: "List discovered configurations, seeds and skipped directories",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := parseConfig()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Root = args[0]
			}
			if cfg.Root == "" {
				return fmt.Errorf("no experiment root configured")
			}

			conv, err := discovery.CompileConvention(cfg.SeedPattern)
			if err != nil {
				return err
			}
			snap, err := discovery.Scan(cfg.Root, conv, pipeline.ScanExcludes(cfg))
			if err != nil {
				return err
			}

			fmt.Printf("Configurations under %s:\n", cfg.Root)
			for _, g := range snap.Groups {
				seeds := make([]string, len(g.Runs))
				for i, r := range g.Runs {
					seeds[i] = strconv.Itoa(r.Seed)
				}
				fmt.Printf("  - %s (seeds: %s)\n", g.Key, strings.Join(seeds, ", "))
			}
			if len(snap.Skipped) > 0 {
				fmt.Println("\nSkipped:")
				for _, s := range snap.Skipped {
					fmt.Printf("  - %s: %s\n", s.Path, s.Reason)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flagRoot, "root", "", "sweep root directory")
	cmd.Flags().StringSliceVar(&flagExclude, "exclude", nil, "directory name to skip while scanning, repeatable")
	cmd.Flags().StringVar(&flagSeedPattern, "seed-pattern", "", "seed directory regexp with one capture group")
	return cmd
}
