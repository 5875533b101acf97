package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var buildOut string

var buildCmd = &cobra.Command{
	Use:   "build <source.zn>",
	Short: "Compile a source file into a bytecode container (.znb)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading source: %w", err)
		}

		compiled, err := compileSource(string(src))
		if err != nil {
			return err
		}

		out := buildOut
		if out == "" {
			out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".znb"
		}
		if err := writeContainer(out, compiled); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "", "output container path (default: <source>.znb)")
	rootCmd.AddCommand(buildCmd)
}
