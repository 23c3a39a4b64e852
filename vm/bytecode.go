package vm

import (
	"fmt"
	"math"
	"strings"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Word is one slot of the instruction tape. Opcodes take one word; inline
// operands take OperandWords more.
type Word uint32

// Opcode represents a single tape instruction.
type Opcode Word

const (
	OpNeg          Opcode = 0x00 // negate top of stack
	OpAdd          Opcode = 0x01 // second + top
	OpSub          Opcode = 0x02 // second - top
	OpMul          Opcode = 0x03 // second * top
	OpDiv          Opcode = 0x04 // second / top
	OpPushConst    Opcode = 0x05 // push inline float64 (FloatWords words)
	OpCallAccessor Opcode = 0x06 // push accessor(item) (AccessorWords words: side-table index)
)

// Inline operand widths, in words.
const (
	FloatWords    = 2 // float64 bits, low word first
	AccessorWords = 1 // index into the machine's accessor table
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo describes an opcode's layout and stack effect.
type OpcodeInfo struct {
	Name         string
	OperandWords int // inline operand words following the opcode
	StackPop     int
	StackPush    int
}

var opcodeInfo = [...]OpcodeInfo{
	OpNeg:          {"NEG", 0, 1, 1},
	OpAdd:          {"ADD", 0, 2, 1},
	OpSub:          {"SUB", 0, 2, 1},
	OpMul:          {"MUL", 0, 2, 1},
	OpDiv:          {"DIV", 0, 2, 1},
	OpPushConst:    {"PUSH_CONST", FloatWords, 0, 1},
	OpCallAccessor: {"CALL_ACCESSOR", AccessorWords, 0, 1},
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	return int(op) < len(opcodeInfo)
}

// Info returns metadata for the opcode.
func (op Opcode) Info() OpcodeInfo {
	if op.Valid() {
		return opcodeInfo[op]
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", Word(op))}
}

// Name returns the opcode mnemonic.
func (op Opcode) Name() string {
	return op.Info().Name
}

// OperandWords returns the number of inline operand words.
func (op Opcode) OperandWords() int {
	return op.Info().OperandWords
}

func (op Opcode) String() string {
	return op.Name()
}

// ---------------------------------------------------------------------------
// Inline operands
// ---------------------------------------------------------------------------

// EncodeFloat splits v into its two tape words, low word first.
func EncodeFloat(v float64) (lo, hi Word) {
	bits := math.Float64bits(v)
	return Word(bits), Word(bits >> 32)
}

// DecodeFloat reassembles a float64 from its tape words.
func DecodeFloat(lo, hi Word) float64 {
	return math.Float64frombits(uint64(lo) | uint64(hi)<<32)
}

// ---------------------------------------------------------------------------
// TapeWriter: fixed-size tape emission
// ---------------------------------------------------------------------------

// TapeWriter emits instructions into a tape whose size was computed before
// emission started. It never grows the tape: writing past the end, or
// finishing short of it, means the size computation was wrong and is a
// FatalError.
type TapeWriter struct {
	tape []Word
	pc   int
}

// NewTapeWriter allocates a tape of exactly size words.
func NewTapeWriter(size int) *TapeWriter {
	return &TapeWriter{tape: make([]Word, size)}
}

// Len returns the number of words emitted so far.
func (w *TapeWriter) Len() int {
	return w.pc
}

func (w *TapeWriter) put(words ...Word) {
	if w.pc+len(words) > len(w.tape) {
		panic(fatalf("tape overflow at word %d: precomputed size %d", w.pc, len(w.tape)))
	}
	w.pc += copy(w.tape[w.pc:], words)
}

// Emit emits an operand-less opcode.
func (w *TapeWriter) Emit(op Opcode) {
	w.put(Word(op))
}

// EmitConst emits PUSH_CONST v.
func (w *TapeWriter) EmitConst(v float64) {
	lo, hi := EncodeFloat(v)
	w.put(Word(OpPushConst), lo, hi)
}

// EmitAccessor emits CALL_ACCESSOR index.
func (w *TapeWriter) EmitAccessor(index int) {
	w.put(Word(OpCallAccessor), Word(index))
}

// Finish returns the tape, which must be completely filled.
func (w *TapeWriter) Finish() []Word {
	if w.pc != len(w.tape) {
		panic(fatalf("wrong tape size calculation: emitted %d of %d words", w.pc, len(w.tape)))
	}
	tape := w.tape
	w.tape, w.pc = nil, 0
	return tape
}

// ---------------------------------------------------------------------------
// Tape decoding
// ---------------------------------------------------------------------------

// Decode reads the instruction at ip and returns it with its inline
// operands and the offset of the next instruction. Execution, teardown
// and disassembly all step through a tape with this layout.
func Decode(tape []Word, ip int) (op Opcode, operands []Word, next int, err error) {
	op = Opcode(tape[ip])
	if !op.Valid() {
		return op, nil, ip + 1, fmt.Errorf("unknown opcode 0x%02X at word %d", Word(op), ip)
	}
	next = ip + 1 + op.OperandWords()
	if next > len(tape) {
		return op, nil, next, fmt.Errorf("%s at word %d: truncated operands", op, ip)
	}
	return op, tape[ip+1 : next], next, nil
}

// Disassemble renders a tape one instruction per line. Accessor operands
// are shown by name when names covers their index.
func Disassemble(tape []Word, names []string) string {
	var sb strings.Builder
	for ip := 0; ip < len(tape); {
		op, operands, next, err := Decode(tape, ip)
		if err != nil {
			fmt.Fprintf(&sb, "%04d  <%v>\n", ip, err)
			break
		}
		fmt.Fprintf(&sb, "%04d  %s", ip, op)
		switch op {
		case OpPushConst:
			fmt.Fprintf(&sb, " %g", DecodeFloat(operands[0], operands[1]))
		case OpCallAccessor:
			idx := int(operands[0])
			if idx < len(names) {
				fmt.Fprintf(&sb, " #%d (%s)", idx, names[idx])
			} else {
				fmt.Fprintf(&sb, " #%d", idx)
			}
		}
		sb.WriteByte('\n')
		ip = next
	}
	return sb.String()
}

// StackProfile simulates the stack effect of a tape without executing it.
// It returns the highest stack depth reached and the depth at the end.
func StackProfile(tape []Word) (peak, final int, err error) {
	depth := 0
	for ip := 0; ip < len(tape); {
		op, _, next, err := Decode(tape, ip)
		if err != nil {
			return peak, depth, err
		}
		info := op.Info()
		if depth < info.StackPop {
			return peak, depth, fmt.Errorf("%s at word %d: stack underflow", op, ip)
		}
		depth += info.StackPush - info.StackPop
		peak = max(peak, depth)
		ip = next
	}
	return peak, depth, nil
}
