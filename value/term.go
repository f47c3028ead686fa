package value

import "fmt"

// TermOp identifies a term node kind.
type TermOp uint8

// Term node kinds.
const (
	TermVar TermOp = iota
	TermConst
	TermExtract
	TermZeroExt
	TermAdd
	TermSub
	TermAnd
	TermOr
	TermXor
	TermShl
	TermLShr
	TermAShr
)

// Term is a node of the reference expression tree. It exists so the
// symbolic path is exercisable without an external constraint engine;
// it builds terms and applies only trivial simplifications, it does not
// solve anything.
type Term struct {
	Op    TermOp
	Name  string // TermVar
	Value uint64 // TermConst
	Off   int    // TermExtract
	A, B  *Term
	width int
}

var _ Expr = (*Term)(nil)

// Width returns the term's bit-width.
func (t *Term) Width() int { return t.width }

func (t *Term) String() string {
	switch t.Op {
	case TermVar:
		return fmt.Sprintf("%s:%d", t.Name, t.width)
	case TermConst:
		return fmt.Sprintf("0x%x:%d", t.Value, t.width)
	case TermExtract:
		return fmt.Sprintf("extract(%s, %d, %d)", t.A, t.Off, t.width)
	case TermZeroExt:
		return fmt.Sprintf("zext(%s, %d)", t.A, t.width)
	default:
		return fmt.Sprintf("op%d(%s, %s)", t.Op, t.A, t.B)
	}
}

// Var builds a free variable term.
func Var(name string, width int) *Term {
	return &Term{Op: TermVar, Name: name, width: width}
}

// TermBuilder is the reference Builder over Term trees.
type TermBuilder struct{}

var _ Builder = TermBuilder{}

// Const builds a constant term.
func (TermBuilder) Const(v uint64, width int) Expr {
	return &Term{Op: TermConst, Value: v, width: width}
}

// Extract builds an extraction term. Extracting the full width is the
// identity; extraction of an extraction folds into one node.
func (tb TermBuilder) Extract(e Expr, offset, width int) Expr {
	t := e.(*Term)
	if offset == 0 && width == t.width {
		return t
	}
	if t.Op == TermExtract {
		return &Term{Op: TermExtract, A: t.A, Off: t.Off + offset, width: width}
	}
	return &Term{Op: TermExtract, A: t, Off: offset, width: width}
}

// ZeroExt builds a zero-extension term.
func (TermBuilder) ZeroExt(e Expr, width int) Expr {
	t := e.(*Term)
	if width == t.width {
		return t
	}
	return &Term{Op: TermZeroExt, A: t, width: width}
}

func binary(op TermOp, a, b Expr) Expr {
	ta := a.(*Term)
	tb := b.(*Term)
	return &Term{Op: op, A: ta, B: tb, width: ta.width}
}

// Add builds an addition term.
func (TermBuilder) Add(a, b Expr) Expr { return binary(TermAdd, a, b) }

// Sub builds a subtraction term.
func (TermBuilder) Sub(a, b Expr) Expr { return binary(TermSub, a, b) }

// And builds a bitwise-and term.
func (TermBuilder) And(a, b Expr) Expr { return binary(TermAnd, a, b) }

// Or builds a bitwise-or term.
func (TermBuilder) Or(a, b Expr) Expr { return binary(TermOr, a, b) }

// Xor builds a bitwise-xor term.
func (TermBuilder) Xor(a, b Expr) Expr { return binary(TermXor, a, b) }

// ShiftLeft builds a logical-shift-left term.
func (TermBuilder) ShiftLeft(a, b Expr) Expr { return binary(TermShl, a, b) }

// LogicalShiftRight builds a logical-shift-right term.
func (TermBuilder) LogicalShiftRight(a, b Expr) Expr { return binary(TermLShr, a, b) }

// ArithShiftRight builds an arithmetic-shift-right term.
func (TermBuilder) ArithShiftRight(a, b Expr) Expr { return binary(TermAShr, a, b) }
