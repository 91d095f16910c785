package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/borkh/paper-prep/internal/paper"
	"github.com/borkh/paper-prep/internal/texlive"
	"github.com/spf13/cobra"
)

var flagCheckImage string

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compile the generated fragments in a TeX Live container",
		Long: "Write a throwaway harness that inputs every table and section " +
			"fragment, compile it with latexmk inside a container, and report " +
			"whether the artifacts build cleanly before they reach a paper.",
		RunE: runCheck,
	}
	cmd.Flags().StringVar(&flagRoot, "root", "", "sweep root directory")
	cmd.Flags().StringVar(&flagOut, "out", "", "output directory (default <root>/paper)")
	cmd.Flags().StringVar(&flagCheckImage, "image", "", "TeX Live image (default "+texlive.DefaultImage+")")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := parseConfig()
	if err != nil {
		return err
	}

	dir := paper.New(cfg).OutDir
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("no artifacts to check: %w", err)
	}

	image := cfg.Check.Image
	if flagCheckImage != "" {
		image = flagCheckImage
	}

	fmt.Printf("Compiling fragments under %s...\n", dir)
	res, err := texlive.Check(context.Background(), &texlive.Opts{
		Image:   image,
		Dir:     dir,
		Timeout: cfg.CheckTimeout(),
		UserID:  strconv.Itoa(os.Getuid()),
	})
	if err != nil {
		return err
	}
	if !res.Passed() {
		fmt.Printf("FAIL (exit %d after %s)\n%s\n", res.ExitCode, res.Duration.Round(time.Second), res.Log)
		return fmt.Errorf("fragments do not compile")
	}
	fmt.Printf("OK (%s)\n", res.Duration.Round(time.Second))
	return nil
}
