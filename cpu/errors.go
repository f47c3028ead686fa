package cpu

import (
	"fmt"

	"github.com/sarchlab/symarch/insts"
)

// The four errors below are modeling gaps, not transient faults. They are
// non-recoverable at this layer and propagate unchanged to the owning
// exploration engine. Anything this layer cannot model must fail with one
// of them rather than approximate: approximate semantics silently
// invalidate every later result on the path.

// InvalidRegisterError reports an unrecognized register name.
type InvalidRegisterError struct {
	Name string
}

func (e *InvalidRegisterError) Error() string {
	return fmt.Sprintf("cpu: invalid register %q", e.Name)
}

// ValueOutOfRangeError reports a register write whose value exceeds the
// target register's width.
type ValueOutOfRangeError struct {
	Register string
	Width    int
}

func (e *ValueOutOfRangeError) Error() string {
	return fmt.Sprintf("cpu: value does not fit %d-bit register %s", e.Width, e.Register)
}

// UnsupportedOperandKindError reports an operand kind, addressing mode or
// operand feature that is not modeled.
type UnsupportedOperandKindError struct {
	Kind   insts.OperandKind
	Detail string
}

func (e *UnsupportedOperandKindError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("cpu: unsupported operand kind %s", e.Kind)
	}
	return fmt.Sprintf("cpu: unsupported %s operand: %s", e.Kind, e.Detail)
}

// UnsupportedInstructionError reports a canonical mnemonic with no
// registered handler.
type UnsupportedInstructionError struct {
	Mnemonic string
}

func (e *UnsupportedInstructionError) Error() string {
	return fmt.Sprintf("cpu: unsupported instruction %s", e.Mnemonic)
}
