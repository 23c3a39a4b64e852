package hash

// ---------------------------------------------------------------------------
// Frozen hashing AST types.
//
// These are stripped-down parallels of compiler/ast.go with no position
// data, no accessors and no redundant structure. Programs that differ only
// in parenthesization of a left fold or in doubled signs produce identical
// hashing ASTs.
// ---------------------------------------------------------------------------

// HNode is the interface implemented by all hashing AST nodes.
type HNode interface {
	hnode() // marker method
}

// HConst is a numeric literal.
type HConst struct{ Value float64 }

// HSymbol is a reference to a bound symbol, by name.
type HSymbol struct{ Name string }

// HNeg negates its operand.
type HNeg struct{ Operand HNode }

// HFold is a left fold: First, then each step applied in order.
type HFold struct {
	First HNode
	Steps []HStep
}

// HStep is one operator application of a fold.
type HStep struct {
	Operator byte // '+', '-', '*' or '/'
	Operand  HNode
}

func (*HConst) hnode()  {}
func (*HSymbol) hnode() {}
func (*HNeg) hnode()    {}
func (*HFold) hnode()   {}
