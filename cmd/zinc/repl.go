package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/informatter/zinclang/constraint"
	"github.com/informatter/zinclang/field"
	"github.com/informatter/zinclang/lexer"
	"github.com/informatter/zinclang/token"
	"github.com/informatter/zinclang/types"
	"github.com/informatter/zinclang/vm"
)

// isInputReady mirrors the teacher's cmd_repl_compiled.go brace-balance +
// trailing-token heuristic: wait for more lines while braces are unbalanced
// or the last token is one that obviously expects a continuation.
func isInputReady(tokens []token.Token) bool {
	balance := 0
	for _, tok := range tokens {
		switch tok.Type {
		case token.LCUR:
			balance++
		case token.RCUR:
			balance--
		}
	}
	if balance > 0 {
		return false
	}

	last := lastNonEOF(tokens)
	if last == nil {
		return true
	}
	switch last.Type {
	case token.ADDITION, token.SUBTRACTION, token.MULTIPLICATION, token.DIVISION, token.ASSIGN,
		token.EQ, token.NE, token.LT, token.LE,
		token.GT, token.GE, token.COMMA, token.LPA,
		token.LCUR, token.IF, token.ELSE, token.FOR, token.FN,
		token.LET, token.CONST, token.AND, token.OR:
		return false
	}
	return true
}

func lastNonEOF(tokens []token.Token) *token.Token {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].Type != token.EOF {
			return &tokens[i]
		}
	}
	return nil
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive session: each complete program is compiled and run",
	RunE: func(cmd *cobra.Command, args []string) error {
		rl, err := readline.New(">>> ")
		if err != nil {
			return fmt.Errorf("starting readline: %w", err)
		}
		defer rl.Close()

		fmt.Fprintln(cmd.OutOrStdout(), "Zinc REPL — type a complete program (must define fn main) and press enter.")

		var buffer strings.Builder
		for {
			prompt := ">>> "
			if buffer.Len() > 0 {
				prompt = "... "
			}
			rl.SetPrompt(prompt)

			line, err := rl.Readline()
			if err == readline.ErrInterrupt {
				buffer.Reset()
				continue
			}
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}

			if strings.TrimSpace(line) == "exit" && buffer.Len() == 0 {
				return nil
			}

			if buffer.Len() > 0 {
				buffer.WriteString("\n")
			}
			buffer.WriteString(line)
			source := buffer.String()

			tokens, lexErr := lexer.ScanAll(source)
			if lexErr != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), lexErr)
				buffer.Reset()
				continue
			}
			if !isInputReady(tokens) {
				continue
			}

			compiled, compileErr := compileSource(source)
			buffer.Reset()
			if compileErr != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), compileErr)
				continue
			}

			if types.Kind(compiled.Input.Kind) != types.KindUnit {
				fmt.Fprintln(cmd.ErrOrStderr(), "repl only runs nullary main functions; use `zinc run` for programs that take input")
				continue
			}

			machine := vm.New(field.Modulus)
			outputCells, runErr := machine.Run(compiled, nil, constraint.NewNullSystem())
			if runErr != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), runErr)
				continue
			}
			for _, c := range outputCells {
				fmt.Fprintln(cmd.OutOrStdout(), c.String())
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
