package cpu

import (
	"fmt"
	"strings"

	"github.com/sarchlab/symarch/arch"
	"github.com/sarchlab/symarch/insts"
	"github.com/sarchlab/symarch/value"
)

// NewAArch64 creates an AArch64 CPU with the standard dispatcher.
func NewAArch64(opts ...Option) *CPU {
	return New(arch.AArch64(), NewAArch64Dispatcher(), opts...)
}

// NewAArch64Dispatcher builds the AArch64 dispatcher: the decoder-quirk
// renamer, the mnemonic alias table, and the registered handlers.
//
// The handler set demonstrates the handler contract over a representative
// slice of the ISA; it is nowhere near the full instruction set.
func NewAArch64Dispatcher() *Dispatcher {
	d := NewDispatcher()
	d.SetRenamer(aarch64Renamer)

	// Spellings of the same operation.
	d.Alias("MOVZ", "MOV")

	d.Register("MOV", handleMOV)
	d.Register("NOP", handleNOP)
	d.Register("B", handleB)
	d.Register("RET", handleRET)

	d.Register("ADD", binaryHandler("ADD", value.OpAdd, false))
	d.Register("ADDS", binaryHandler("ADDS", value.OpAdd, true))
	d.Register("SUB", binaryHandler("SUB", value.OpSub, false))
	d.Register("SUBS", binaryHandler("SUBS", value.OpSub, true))
	d.Register("AND", binaryHandler("AND", value.OpAnd, false))
	d.Register("ANDS", binaryHandler("ANDS", value.OpAnd, true))
	d.Register("ORR", binaryHandler("ORR", value.OpOr, false))
	d.Register("EOR", binaryHandler("EOR", value.OpXor, false))
	d.Register("LSL", binaryHandler("LSL", value.OpShiftLeft, false))
	d.Register("LSR", binaryHandler("LSR", value.OpLogicalShiftRight, false))
	d.Register("ASR", binaryHandler("ASR", value.OpArithShiftRight, false))

	return d
}

// aarch64Renamer works around decoders that label the immediate shift
// forms as a generic MOV; the mnemonic text still spells the real
// operation. No-op on names it produces, so canonicalization stays
// idempotent.
func aarch64Renamer(name, text string) string {
	if name != "MOV" {
		return name
	}
	t := strings.ToLower(text)
	switch {
	case strings.HasPrefix(t, "lsr"):
		return "LSR"
	case strings.HasPrefix(t, "lsl"):
		return "LSL"
	case strings.HasPrefix(t, "asr"):
		return "ASR"
	}
	return name
}

// handleMOV implements MOV: dest <- src.
func handleMOV(c *CPU, ops []*Operand) error {
	if len(ops) != 2 {
		return fmt.Errorf("cpu: MOV expects 2 operands, got %d", len(ops))
	}
	v, err := ops[1].Read(destWidth(c, ops[0]), false)
	if err != nil {
		return err
	}
	return ops[0].Write(v, 0)
}

// handleNOP implements NOP.
func handleNOP(_ *CPU, _ []*Operand) error {
	return nil
}

// handleB implements the unconditional immediate branch: PC <- target.
func handleB(c *CPU, ops []*Operand) error {
	if len(ops) != 1 {
		return fmt.Errorf("cpu: B expects 1 operand, got %d", len(ops))
	}
	target, err := ops[0].Read(c.desc.AddressBits(), false)
	if err != nil {
		return err
	}
	return c.SetPC(target)
}

// handleRET implements RET: PC <- LR.
func handleRET(c *CPU, _ []*Operand) error {
	lr, err := c.regs.Read(c.desc.LinkRegister())
	if err != nil {
		return err
	}
	return c.SetPC(lr)
}

// binaryHandler builds a three-operand data-processing handler:
// dest <- src1 op src2, with condition flags staged for the S forms.
func binaryHandler(name string, op value.BinaryOp, setFlags bool) Handler {
	return func(c *CPU, ops []*Operand) error {
		if len(ops) != 3 {
			return fmt.Errorf("cpu: %s expects 3 operands, got %d", name, len(ops))
		}

		w := destWidth(c, ops[0])
		x, err := readAligned(ops[1], w)
		if err != nil {
			return err
		}
		y, err := readAligned(ops[2], w)
		if err != nil {
			return err
		}

		res, err := value.Apply(c.builder, op, x, y)
		if err != nil {
			return err
		}
		if err := ops[0].Write(res, 0); err != nil {
			return err
		}

		if setFlags {
			stageFlags(c, name, op, x, y, res, w)
		}
		return nil
	}
}

// destWidth returns the natural width of a destination operand: the
// register view's width, or the address width for anything else.
func destWidth(c *CPU, o *Operand) int {
	if o.Kind() == insts.KindRegister {
		if spec, ok := c.desc.Resolve(o.Descriptor().Reg); ok {
			return spec.Width
		}
	}
	return c.desc.AddressBits()
}

// readAligned reads an operand at the given width, zero-extending
// narrower register views.
func readAligned(o *Operand, width int) (value.Value, error) {
	v, err := o.Read(width, false)
	if err != nil {
		return nil, err
	}
	if v.Width() < width {
		return v.Extend(width)
	}
	return v, nil
}

// stageFlags computes NZCV for an S-form result when all inputs are
// concrete, and otherwise records the gap explicitly. Symbolic flag
// computation belongs to the constraint engine, not this layer.
func stageFlags(c *CPU, name string, op value.BinaryOp, x, y, res value.Value, width int) {
	cx, xok := x.(value.Concrete)
	cy, yok := y.(value.Concrete)
	cr, rok := res.(value.Concrete)
	if !xok || !yok || !rok {
		c.MarkFlagsUnmodeled(name)
		return
	}

	f := Flags{
		N: cr.Big().Bit(width-1) == 1,
		Z: cr.Big().Sign() == 0,
	}

	switch op {
	case value.OpAdd:
		sum := cx.Big()
		sum.Add(sum, cy.Big())
		f.C = sum.BitLen() > width
		f.V = signBit(cx, width) == signBit(cy, width) &&
			signBit(cx, width) != signBit(cr, width)
	case value.OpSub:
		// C is the no-borrow flag on this architecture.
		f.C = cx.Big().Cmp(cy.Big()) >= 0
		f.V = signBit(cx, width) != signBit(cy, width) &&
			signBit(cy, width) == signBit(cr, width)
	default:
		// Logical S forms leave C and V clear.
	}

	c.SetFlags(f)
}

func signBit(v value.Concrete, width int) uint {
	return v.Big().Bit(width - 1)
}
