package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders p's Code as the canonical assembly text form spec §6
// names: one mnemonic per line, operands space-separated. Grounded on the
// teacher's compiler/ast_compiler.go DiassembleBytecode/DiassembleInstruction
// pair (an opcode-keyed switch producing one formatted line per
// instruction); generalized here from the teacher's single OP_CONSTANT
// case to this instruction set's full opcode table, and driven by the
// OpCodeDefinition table instead of a per-opcode switch since every
// operand here is a plain index or count with no special-case formatting
// the teacher's jump-target opcodes needed.
func Disassemble(p *Program) string {
	instrs, err := p.Instructions()
	if err != nil {
		return fmt.Sprintf("<malformed bytecode: %s>", err)
	}
	var b strings.Builder
	for _, in := range instrs {
		def, err := Get(in.Op)
		if err != nil {
			continue
		}
		b.WriteString(def.Name)
		for _, operand := range in.Operands {
			b.WriteByte(' ')
			fmt.Fprintf(&b, "%d", operand)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
