package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:     "zinc",
	Short:   "Zinc language compiler, VM and prover toolchain",
	Version: "0.1.0",
}
