package main

import (
	"os"

	"github.com/borkh/paper-prep/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
