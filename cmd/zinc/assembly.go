package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/informatter/zinclang/bytecode"
)

var assemblyCmd = &cobra.Command{
	Use:   "assembly <program.znb>",
	Short: "Print a bytecode container's canonical mnemonic disassembly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadContainer(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), bytecode.Disassemble(p))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(assemblyCmd)
}
