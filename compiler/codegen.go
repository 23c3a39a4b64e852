package compiler

import (
	"github.com/chazu/exprscore/accessor"
	"github.com/chazu/exprscore/vm"
)

// ---------------------------------------------------------------------------
// Codegen: Compile a Program to a vm tape
// ---------------------------------------------------------------------------
//
// Compilation is three passes over the tree: TapeSize and StackDepth size
// the tape and the value stack exactly, then a single emission pass fills
// the tape in postfix order. Nothing is reallocated during emission and
// nothing is allocated during evaluation.

// TapeSize returns the number of tape words op compiles to.
func TapeSize(op Operand) int {
	switch n := op.(type) {
	case *FloatLiteral:
		return 1 + vm.FloatWords
	case *AccessorRef:
		return 1 + vm.AccessorWords
	case *Signed:
		size := TapeSize(n.Operand)
		if n.Negative() {
			size++ // NEG
		}
		return size
	case *Program:
		size := TapeSize(n.First)
		for _, oper := range n.Rest {
			size += TapeSize(oper.Operand) + 1 // operand, then its operator
		}
		return size
	}
	panic(InvalidOperand("TapeSize", op))
}

// StackDepth returns the number of values live on the VM stack at the
// deepest point of evaluating op.
func StackDepth(op Operand) int {
	switch n := op.(type) {
	case *FloatLiteral, *AccessorRef:
		return 1
	case *Signed:
		return StackDepth(n.Operand)
	case *Program:
		depth := StackDepth(n.First)
		for _, oper := range n.Rest {
			// The left partial result holds one slot while the right
			// operand is computed.
			depth = max(depth, 1+StackDepth(oper.Operand))
		}
		return depth
	}
	panic(InvalidOperand("StackDepth", op))
}

// Compiler compiles Programs to vm Machines over item type T.
type Compiler[T any] struct {
	w     *vm.TapeWriter
	table []accessor.Typed[T]
	index map[int]int // binding slot -> side table index
}

// CompileBytecode compiles prog into a self-contained Machine. Every
// accessor in prog must be bound against T, otherwise a
// *accessor.TypeBindingError is returned and nothing is retained.
func CompileBytecode[T any](prog *Program) (*vm.Machine[T], error) {
	if prog == nil {
		panic(InvalidOperand("CompileBytecode", nil))
	}
	return (&Compiler[T]{}).Compile(prog)
}

// Compile compiles prog. A Compiler may be reused; each call produces an
// independent Machine.
func (c *Compiler[T]) Compile(prog *Program) (*vm.Machine[T], error) {
	size := TapeSize(prog)
	depth := StackDepth(prog)

	c.table = nil
	c.index = make(map[int]int)
	if err := c.resolve(prog); err != nil {
		return nil, err
	}

	c.w = vm.NewTapeWriter(size)
	c.emit(prog)
	tape := c.w.Finish()
	table := c.table
	c.w, c.table, c.index = nil, nil, nil

	log.Debugf("compiled %s: %d words, stack depth %d, %d accessors", prog, size, depth, len(table))
	return vm.NewMachine(tape, depth, table), nil
}

// resolve type-checks every accessor against T and builds the side table,
// one entry per distinct binding slot.
func (c *Compiler[T]) resolve(prog *Program) error {
	var err error
	Walk(prog, func(op Operand) bool {
		ref, ok := op.(*AccessorRef)
		if !ok {
			return true
		}
		if _, seen := c.index[ref.Slot]; seen {
			return true
		}
		var typed accessor.Typed[T]
		if typed, err = accessor.As[T](ref.Accessor); err != nil {
			return false
		}
		c.index[ref.Slot] = len(c.table)
		c.table = append(c.table, typed)
		return true
	})
	return err
}

func (c *Compiler[T]) emit(op Operand) {
	switch n := op.(type) {
	case *FloatLiteral:
		c.w.EmitConst(n.Value)
	case *AccessorRef:
		// One retain per call site; Machine.Close releases per site.
		accessor.Retain(n.Accessor)
		c.w.EmitAccessor(c.index[n.Slot])
	case *Signed:
		c.emit(n.Operand)
		if n.Negative() {
			c.w.Emit(vm.OpNeg)
		}
	case *Program:
		c.emit(n.First)
		for _, oper := range n.Rest {
			opc, ok := binaryOpcodes[oper.Operator]
			if !ok {
				panic(InvalidOperand("emit", n))
			}
			c.emit(oper.Operand)
			c.w.Emit(opc)
		}
	default:
		panic(InvalidOperand("emit", op))
	}
}

var binaryOpcodes = map[Operator]vm.Opcode{
	OpAdd: vm.OpAdd,
	OpSub: vm.OpSub,
	OpMul: vm.OpMul,
	OpDiv: vm.OpDiv,
}
