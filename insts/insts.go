// Package insts defines the decoder boundary: decoded instructions and the
// typed operand descriptors the cpu package binds against. The decoder
// itself lives outside this module; it only needs to produce these values.
package insts

import "fmt"

// OperandKind classifies a decoded operand.
type OperandKind uint8

// Operand kinds.
const (
	KindInvalid OperandKind = iota
	KindRegister
	KindImmediate
	KindCompileTimeImmediate
	KindFloatingPointImmediate
	KindMemory
)

// String returns the operand kind name.
func (k OperandKind) String() string {
	switch k {
	case KindRegister:
		return "register"
	case KindImmediate:
		return "immediate"
	case KindCompileTimeImmediate:
		return "compile-time-immediate"
	case KindFloatingPointImmediate:
		return "floating-point-immediate"
	case KindMemory:
		return "memory"
	default:
		return fmt.Sprintf("invalid(%d)", uint8(k))
	}
}

// ShiftType represents a shift applied to a register operand.
type ShiftType uint8

// Shift types.
const (
	ShiftNone ShiftType = iota
	ShiftLSL
	ShiftLSR
	ShiftASR
	ShiftROR
)

// Shift is the optional shift metadata attached to a register operand.
type Shift struct {
	Type   ShiftType
	Amount uint8
}

// MemRef describes a memory operand's addressing fields:
// base + index*scale + displacement. Base and Index are register names;
// an empty name means the field is absent.
type MemRef struct {
	Base  string
	Index string
	Scale int64
	Disp  int64
}

// OperandDescriptor is one decoded operand. Kind selects which of the
// payload fields is meaningful.
type OperandDescriptor struct {
	Kind  OperandKind
	Reg   string  // KindRegister
	Imm   int64   // KindImmediate, KindCompileTimeImmediate
	FPImm float64 // KindFloatingPointImmediate
	Mem   MemRef  // KindMemory
	Shift Shift   // optional, register operands only
}

// Instruction is one decoded instruction as reported by the decoder.
type Instruction struct {
	// Mnemonic is the decoder's uppercase instruction name. It may still
	// need canonicalization before dispatch.
	Mnemonic string

	// Text is the full mnemonic text as printed by the decoder (e.g.
	// "lsr x0, x1, #3"). Used as a disambiguation hint when the decoder
	// reports distinct operations under one generic mnemonic.
	Text string

	// Address is the instruction's address.
	Address uint64

	// Size is the instruction width in bytes.
	Size uint8

	// Operands are the decoded operands in operand order.
	Operands []OperandDescriptor
}
