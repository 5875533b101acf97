// Command zinc is the compiler/VM front end: it lexes, parses, type-checks
// and emits bytecode containers from source, runs or debugs them against a
// witness, prints their disassembly, drives the prover contract, and hosts
// a line-at-a-time REPL.
//
// Built on cobra (replacing the teacher's flag+github.com/google/subcommands
// dispatch in main.go/cmd_*.go) — see DESIGN.md.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "💥 %s\n", err)
		os.Exit(1)
	}
}
