package vm

import (
	"github.com/chazu/exprscore/accessor"
)

// ---------------------------------------------------------------------------
// Machine: stack interpreter for a compiled tape
// ---------------------------------------------------------------------------

// Machine executes one compiled tape against items of type T.
//
// A Machine owns its tape, its value stack and the accessor side table the
// tape's CALL_ACCESSOR operands index into. The stack is allocated once,
// sized to the depth computed at compile time, and mutated in place by
// Eval: a Machine must not be used by more than one goroutine at a time.
// Build one Machine per goroutine from the same Program instead.
type Machine[T any] struct {
	tape      []Word
	stack     []float64
	accessors []accessor.Typed[T]
}

// NewMachine takes ownership of tape and accessors. Every CALL_ACCESSOR
// site in tape must already hold one Retain on the accessor it names;
// Close releases them.
func NewMachine[T any](tape []Word, stackDepth int, accessors []accessor.Typed[T]) *Machine[T] {
	return &Machine[T]{
		tape:      tape,
		stack:     make([]float64, stackDepth),
		accessors: accessors,
	}
}

// Eval runs the tape against item. It does not allocate.
func (m *Machine[T]) Eval(item *T) float64 {
	tape := m.tape
	stack := m.stack
	sp := 0

	for ip := 0; ip < len(tape); {
		op := Opcode(tape[ip])
		ip++
		switch op {
		case OpNeg:
			stack[sp-1] = -stack[sp-1]

		case OpAdd:
			sp--
			stack[sp-1] += stack[sp]

		case OpSub:
			sp--
			stack[sp-1] -= stack[sp]

		case OpMul:
			sp--
			stack[sp-1] *= stack[sp]

		case OpDiv:
			sp--
			stack[sp-1] /= stack[sp]

		case OpPushConst:
			stack[sp] = DecodeFloat(tape[ip], tape[ip+1])
			sp++
			ip += FloatWords

		case OpCallAccessor:
			stack[sp] = m.accessors[tape[ip]].Eval(item)
			sp++
			ip += AccessorWords

		default:
			panic(fatalf("unknown opcode 0x%02X at word %d", Word(op), ip-1))
		}
	}

	if sp != 1 {
		panic(fatalf("stack holds %d values after execution, want 1", sp))
	}
	return stack[0]
}

// Close releases the accessors retained by the tape's CALL_ACCESSOR sites
// and drops the tape and stack. It walks the tape with Decode, the same
// layout Eval steps through. Close is idempotent; a closed Machine must not
// be evaluated again.
func (m *Machine[T]) Close() error {
	if m.tape == nil {
		return nil
	}
	for ip := 0; ip < len(m.tape); {
		op, operands, next, err := Decode(m.tape, ip)
		if err != nil {
			panic(fatalf("teardown: %v", err))
		}
		if op == OpCallAccessor {
			accessor.Release(m.accessors[operands[0]])
		}
		ip = next
	}
	m.tape = nil
	m.stack = nil
	m.accessors = nil
	return nil
}

// Tape returns the machine's instruction tape. Callers must not modify it.
func (m *Machine[T]) Tape() []Word {
	return m.tape
}

// StackDepth returns the size of the preallocated value stack.
func (m *Machine[T]) StackDepth() int {
	return len(m.stack)
}

// Accessors returns the accessor side table, indexed by CALL_ACCESSOR operand.
func (m *Machine[T]) Accessors() []accessor.Typed[T] {
	return m.accessors
}

// Disassemble renders the machine's tape with accessor names resolved.
func (m *Machine[T]) Disassemble() string {
	names := make([]string, len(m.accessors))
	for i, a := range m.accessors {
		names[i] = a.Name()
	}
	return Disassemble(m.tape, names)
}
