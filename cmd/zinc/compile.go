package main

import (
	"fmt"
	"os"

	"github.com/informatter/zinclang/bytecode"
	"github.com/informatter/zinclang/internal/diagnostic"
	"github.com/informatter/zinclang/lexer"
	"github.com/informatter/zinclang/parser"
	"github.com/informatter/zinclang/semantic"
)

// compileSource runs the full lexer -> parser -> semantic -> bytecode
// pipeline over src, printing a caret-underlined diagnostic to os.Stderr
// for semantic errors (the only stage with enough context for one) before
// returning a plain error cobra can report without re-printing it.
func compileSource(src string) (*bytecode.Program, error) {
	tokens, err := lexer.ScanAll(src)
	if err != nil {
		return nil, fmt.Errorf("lexing error: %w", err)
	}

	statements, err := parser.ParseProgram(tokens)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	prog, serr := semantic.Check(statements)
	if serr != nil {
		diagnostic.Print(os.Stderr, src, diagnostic.Location{
			Line:   serr.Location.Line,
			Column: serr.Location.Column,
		}, serr.Error())
		return nil, fmt.Errorf("semantic checking failed")
	}

	compiled, err := bytecode.Emit(prog)
	if err != nil {
		return nil, fmt.Errorf("emit error: %w", err)
	}
	return compiled, nil
}

func loadContainer(path string) (*bytecode.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading container: %w", err)
	}
	p, err := bytecode.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding container: %w", err)
	}
	return p, nil
}

func writeContainer(path string, p *bytecode.Program) error {
	data, err := bytecode.Encode(p)
	if err != nil {
		return fmt.Errorf("encoding container: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing container: %w", err)
	}
	return nil
}
