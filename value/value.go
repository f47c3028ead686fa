// Package value provides the value domain shared by the register file,
// operands and memory: fixed-width unsigned integers that are either
// concrete or opaque symbolic expressions owned by an external constraint
// engine. Every operation is implemented once per representation and
// dispatched polymorphically; call sites never branch on which one they
// hold.
//
// Values are immutable. Copying a register file or a snapshot may share
// Value references freely.
package value

import (
	"fmt"
	"math/big"
)

// Expr is an opaque symbolic expression of known bit-width, produced and
// owned by the external expression engine.
type Expr interface {
	Width() int
}

// Builder is the boundary to the external expression engine: the term
// constructors this layer needs. TermBuilder in this package is a
// reference implementation; deployments inject their own.
type Builder interface {
	Const(v uint64, width int) Expr
	Extract(e Expr, offset, width int) Expr
	ZeroExt(e Expr, width int) Expr
	Add(a, b Expr) Expr
	Sub(a, b Expr) Expr
	And(a, b Expr) Expr
	Or(a, b Expr) Expr
	Xor(a, b Expr) Expr
	ShiftLeft(a, b Expr) Expr
	LogicalShiftRight(a, b Expr) Expr
	ArithShiftRight(a, b Expr) Expr
}

// Value is a fixed-width unsigned integer, concrete or symbolic.
type Value interface {
	// Width returns the bit-width.
	Width() int

	// Extract returns the width bits starting at offset (bit 0 is the
	// least significant).
	Extract(offset, width int) (Value, error)

	// Extend zero-extends to the given width.
	Extend(width int) (Value, error)

	// Fits reports whether the value is guaranteed to satisfy
	// 0 <= v < 2^width.
	Fits(width int) bool

	// IsZero reports (known, zero): whether the zero-comparison has a
	// definite answer, and the answer when it does.
	IsZero() (known, zero bool)

	// Equal reports structural equality. Used by snapshots and tests;
	// semantic equality of symbolic terms is the constraint engine's
	// business.
	Equal(other Value) bool

	// Uint64 returns the concrete value when it exists and fits in 64
	// bits.
	Uint64() (uint64, bool)
}

// Concrete is a concrete fixed-width unsigned integer. Widths above 64
// bits (e.g. 128-bit SIMD registers) are supported; the payload is kept in
// a big.Int masked to the width.
type Concrete struct {
	width int
	bits  *big.Int
}

var _ Value = Concrete{}

// NewConcrete builds a concrete value from a uint64, masked to width.
func NewConcrete(v uint64, width int) Concrete {
	return NewConcreteBig(new(big.Int).SetUint64(v), width)
}

// NewConcreteBig builds a concrete value from a big.Int, masked to width.
// The input is copied.
func NewConcreteBig(v *big.Int, width int) Concrete {
	if width <= 0 {
		panic(fmt.Sprintf("value: non-positive width %d", width))
	}
	masked := new(big.Int).Set(v)
	mask := new(big.Int).Lsh(big.NewInt(1), uint(width))
	mask.Sub(mask, big.NewInt(1))
	masked.And(masked, mask)
	return Concrete{width: width, bits: masked}
}

// Width returns the bit-width.
func (c Concrete) Width() int { return c.width }

// Big returns a copy of the payload.
func (c Concrete) Big() *big.Int { return new(big.Int).Set(c.bits) }

// Uint64 returns the payload when it fits in 64 bits.
func (c Concrete) Uint64() (uint64, bool) {
	if !c.bits.IsUint64() {
		return 0, false
	}
	return c.bits.Uint64(), true
}

// Extract returns the width bits starting at offset.
func (c Concrete) Extract(offset, width int) (Value, error) {
	if err := checkExtract(c.width, offset, width); err != nil {
		return nil, err
	}
	shifted := new(big.Int).Rsh(c.bits, uint(offset))
	return NewConcreteBig(shifted, width), nil
}

// Extend zero-extends to the given width.
func (c Concrete) Extend(width int) (Value, error) {
	if width < c.width {
		return nil, fmt.Errorf("value: cannot extend %d bits to %d", c.width, width)
	}
	return Concrete{width: width, bits: c.bits}, nil
}

// Fits reports whether the payload is below 2^width.
func (c Concrete) Fits(width int) bool {
	return c.bits.BitLen() <= width
}

// IsZero reports whether the payload is zero. Always known.
func (c Concrete) IsZero() (bool, bool) {
	return true, c.bits.Sign() == 0
}

// Equal reports equality with another concrete value of the same width.
func (c Concrete) Equal(other Value) bool {
	o, ok := other.(Concrete)
	if !ok {
		return false
	}
	return c.width == o.width && c.bits.Cmp(o.bits) == 0
}

func (c Concrete) String() string {
	return fmt.Sprintf("0x%x:%d", c.bits, c.width)
}

// Symbolic wraps an expression from the external engine together with the
// builder used to derive new expressions from it.
type Symbolic struct {
	node    Expr
	builder Builder
}

var _ Value = Symbolic{}

// NewSymbolic wraps an expression node.
func NewSymbolic(node Expr, builder Builder) Symbolic {
	if node == nil || builder == nil {
		panic("value: symbolic value needs a node and a builder")
	}
	return Symbolic{node: node, builder: builder}
}

// Node returns the wrapped expression.
func (s Symbolic) Node() Expr { return s.node }

// Width returns the expression's bit-width.
func (s Symbolic) Width() int { return s.node.Width() }

// Extract builds an extraction expression over the node.
func (s Symbolic) Extract(offset, width int) (Value, error) {
	if err := checkExtract(s.Width(), offset, width); err != nil {
		return nil, err
	}
	return Symbolic{node: s.builder.Extract(s.node, offset, width), builder: s.builder}, nil
}

// Extend builds a zero-extension expression over the node.
func (s Symbolic) Extend(width int) (Value, error) {
	if width < s.Width() {
		return nil, fmt.Errorf("value: cannot extend %d bits to %d", s.Width(), width)
	}
	if width == s.Width() {
		return s, nil
	}
	return Symbolic{node: s.builder.ZeroExt(s.node, width), builder: s.builder}, nil
}

// Fits reports whether the expression's declared width guarantees the
// bound. A symbolic value of width w always satisfies v < 2^w; nothing
// tighter is known without solving.
func (s Symbolic) Fits(width int) bool {
	return s.Width() <= width
}

// IsZero is unknown without solving.
func (s Symbolic) IsZero() (bool, bool) {
	return false, false
}

// Uint64 reports no concrete value; a symbolic expression has none
// without solving.
func (s Symbolic) Uint64() (uint64, bool) {
	return 0, false
}

// Equal reports node identity.
func (s Symbolic) Equal(other Value) bool {
	o, ok := other.(Symbolic)
	if !ok {
		return false
	}
	return s.node == o.node
}

func (s Symbolic) String() string {
	return fmt.Sprintf("<sym:%d>", s.Width())
}

func checkExtract(have, offset, width int) error {
	if offset < 0 || width <= 0 || offset+width > have {
		return fmt.Errorf("value: extract [%d,%d) out of %d bits", offset, offset+width, have)
	}
	return nil
}
