// Package testrunner is the "surrounding test harness" spec §5 describes:
// it distributes independent programs across worker goroutines (each
// owning its own compiler and VM instance, with no shared mutable state
// besides a counting summary guarded by a single mutex), and checks each
// program's declared test cases against its actual output.
//
// Test cases are embedded directly in a source file as `//#`-prefixed
// JSON lines, the same convention original_source's zinc-tester/src/
// data.rs parses (`TestData{cases: [...], ignore}` with one `TestCase`
// per input/expect pair and an optional should_panic flag for cases
// that are expected to fail rather than succeed).
package testrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"github.com/informatter/zinclang/bytecode"
	"github.com/informatter/zinclang/constraint"
	"github.com/informatter/zinclang/field"
	"github.com/informatter/zinclang/lexer"
	"github.com/informatter/zinclang/parser"
	"github.com/informatter/zinclang/semantic"
	"github.com/informatter/zinclang/vm"
	"github.com/informatter/zinclang/witness"
)

// TestCase is one (input, expected output) pair declared against a
// source file, optionally expected to fail rather than succeed.
type TestCase struct {
	Name        string          `json:"case"`
	ShouldPanic bool            `json:"should_panic"`
	Ignore      bool            `json:"ignore"`
	Input       json.RawMessage `json:"input"`
	Expect      json.RawMessage `json:"expect"`
}

// TestData is the decoded `//#` JSON block of a source file.
type TestData struct {
	Cases  []TestCase `json:"cases"`
	Ignore bool       `json:"ignore"`
}

const linePrefix = "//#"

// ParseTestData extracts every `//#`-prefixed line from source, joins
// them back into one JSON document, and decodes it.
func ParseTestData(source string) (*TestData, error) {
	var b strings.Builder
	for _, line := range strings.Split(source, "\n") {
		if rest, ok := strings.CutPrefix(line, linePrefix); ok {
			b.WriteString(rest)
		}
	}
	if b.Len() == 0 {
		return &TestData{}, nil
	}
	var data TestData
	if err := json.Unmarshal([]byte(b.String()), &data); err != nil {
		return nil, fmt.Errorf("parsing test data: %w", err)
	}
	return &data, nil
}

// File pairs a name (for reporting) with the source to compile and test.
type File struct {
	Name   string
	Source string
}

// Summary is the one piece of state every worker shares (spec §5): a
// counting summary guarded by a single mutex, no condition variables,
// lock scope limited to increment + optional line-print.
type Summary struct {
	mu     sync.Mutex
	out    io.Writer
	Passed int
	Failed int
}

// NewSummary returns a Summary that prints a line per recorded result to
// out, or one that only counts if out is nil.
func NewSummary(out io.Writer) *Summary {
	return &Summary{out: out}
}

func (s *Summary) record(ok bool, format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.Passed++
	} else {
		s.Failed++
	}
	if s.out != nil {
		fmt.Fprintf(s.out, format+"\n", args...)
	}
}

// Run compiles and checks every file's test cases, distributing files
// across up to maxParallelism worker goroutines (<= 0 means
// min(NumCPU, GOMAXPROCS), mirroring the teacher-adjacent corpus's own
// worker-pool sizing convention). It returns the first unexpected error
// any worker produced; per-case pass/fail outcomes are recorded on
// summary rather than returned, since one bad case must not stop the
// rest of the suite from running.
func Run(ctx context.Context, files []File, maxParallelism int, summary *Summary) error {
	if maxParallelism <= 0 {
		maxParallelism = runtime.GOMAXPROCS(-1)
		if cpus := runtime.NumCPU(); maxParallelism > cpus {
			maxParallelism = cpus
		}
	}

	grp, _ := errgroup.WithContext(ctx)
	grp.SetLimit(maxParallelism)

	for _, f := range files {
		grp.Go(func() error {
			return runFile(f, summary)
		})
	}
	return grp.Wait()
}

func runFile(f File, summary *Summary) error {
	data, err := ParseTestData(f.Source)
	if err != nil {
		return fmt.Errorf("%s: %w", f.Name, err)
	}
	if data.Ignore {
		return nil
	}

	for _, tc := range data.Cases {
		if tc.Ignore {
			continue
		}
		runCase(f.Name, f.Source, tc, summary)
	}
	return nil
}

// runCase compiles and runs one case in its own VM and constraint-system
// instance (spec §5: "each worker owns an independent compiler + VM
// instance and independent constraint system" — true per-case here, not
// just per-file, since sibling cases in one fixture may disagree on
// whether the program should even compile).
func runCase(fileName, source string, tc TestCase, summary *Summary) {
	label := fmt.Sprintf("%s::%s", fileName, tc.Name)

	failed, panicMsg := func() (failed bool, panicMsg string) {
		defer func() {
			if r := recover(); r != nil {
				failed = true
				panicMsg = fmt.Sprint(r)
			}
		}()
		failed = runCaseBody(source, tc)
		return
	}()

	if tc.ShouldPanic {
		summary.record(failed, "%s: should_panic case %s", passFail(failed), label)
		return
	}
	if panicMsg != "" {
		summary.record(false, "FAIL %s: panicked: %s", label, panicMsg)
		return
	}
	summary.record(!failed, "%s %s", passFail(!failed), label)
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

// runCaseBody reports true on failure (a compile error, a run error, or
// a value mismatch), false on success. It never returns an error since
// runCase only needs pass/fail plus the recovered panic message, if any.
func runCaseBody(source string, tc TestCase) bool {
	compiled, err := compile(source)
	if err != nil {
		return true
	}

	inputCells, err := witness.Decode(compiled.Types, compiled.Input, tc.Input)
	if err != nil {
		return true
	}

	machine := vm.New(field.Modulus)
	outputCells, err := machine.Run(compiled, inputCells, constraint.NewNullSystem())
	if err != nil {
		return true
	}

	output, err := witness.Encode(compiled.Types, compiled.Output, outputCells)
	if err != nil {
		return true
	}

	var got, want any
	if err := json.Unmarshal(output, &got); err != nil {
		return true
	}
	if err := json.Unmarshal(tc.Expect, &want); err != nil {
		return true
	}
	return cmp.Diff(want, got) != ""
}

func compile(src string) (*bytecode.Program, error) {
	tokens, err := lexer.ScanAll(src)
	if err != nil {
		return nil, err
	}
	statements, err := parser.ParseProgram(tokens)
	if err != nil {
		return nil, err
	}
	prog, serr := semantic.Check(statements)
	if serr != nil {
		return nil, serr
	}
	return bytecode.Emit(prog)
}
