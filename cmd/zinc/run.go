package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/informatter/zinclang/constraint"
	"github.com/informatter/zinclang/field"
	"github.com/informatter/zinclang/vm"
	"github.com/informatter/zinclang/witness"
)

func runProgram(cmd *cobra.Command, containerPath, witnessPath string, debug bool) error {
	p, err := loadContainer(containerPath)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(witnessPath)
	if err != nil {
		return fmt.Errorf("reading witness: %w", err)
	}

	inputCells, err := witness.Decode(p.Types, p.Input, raw)
	if err != nil {
		return fmt.Errorf("decoding witness: %w", err)
	}

	var opts []vm.Option
	if debug {
		opts = append(opts, vm.WithDebug(true), vm.WithOutput(cmd.ErrOrStderr()))
	}
	machine := vm.New(field.Modulus, opts...)
	outputCells, err := machine.Run(p, inputCells, constraint.NewNullSystem())
	if err != nil {
		return fmt.Errorf("run error: %w", err)
	}

	output, err := witness.Encode(p.Types, p.Output, outputCells)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(output))
	return nil
}

var runCmd = &cobra.Command{
	Use:   "run <program.znb> <witness.json>",
	Short: "Execute a bytecode container against witness JSON, printing its output",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProgram(cmd, args[0], args[1], false)
	},
}

var debugCmd = &cobra.Command{
	Use:   "debug <program.znb> <witness.json>",
	Short: "Execute a bytecode container with Dbg output enabled",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProgram(cmd, args[0], args[1], true)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(debugCmd)
}
