package cpu

import (
	"math"

	"github.com/sarchlab/symarch/insts"
	"github.com/sarchlab/symarch/value"
)

// Operand binds one decoded operand descriptor to the CPU it reads and
// writes against. Operands are ephemeral: created when an instruction is
// wrapped for execution, gone when the step ends.
type Operand struct {
	cpu  *CPU
	desc insts.OperandDescriptor
}

// Kind returns the operand's kind tag.
func (o *Operand) Kind() insts.OperandKind {
	return o.desc.Kind
}

// Descriptor returns the raw decode descriptor.
func (o *Operand) Descriptor() insts.OperandDescriptor {
	return o.desc
}

// Read returns the operand's value. widthBits == 0 means the operand's
// natural width. wantCarry requests the shifter carry-out, which is not
// modeled yet and therefore fails rather than being silently ignored.
func (o *Operand) Read(widthBits int, wantCarry bool) (value.Value, error) {
	if wantCarry {
		return nil, &UnsupportedOperandKindError{
			Kind: o.desc.Kind, Detail: "carry-out not modeled",
		}
	}

	switch o.desc.Kind {
	case insts.KindRegister:
		return o.readRegister(widthBits)
	case insts.KindImmediate, insts.KindCompileTimeImmediate:
		return o.immediate(widthBits), nil
	case insts.KindFloatingPointImmediate:
		// The literal's IEEE-754 double encoding; the value domain is
		// bit-level.
		return value.NewConcrete(math.Float64bits(o.desc.FPImm), 64), nil
	case insts.KindMemory:
		addr, err := o.Address()
		if err != nil {
			return nil, err
		}
		w := widthBits
		if w == 0 {
			w = o.cpu.desc.AddressBits()
		}
		return o.cpu.mem.Read(addr, w)
	default:
		return nil, &UnsupportedOperandKindError{Kind: o.desc.Kind}
	}
}

// Write stores v through the operand. widthBits == 0 means the value's
// own width. Only register and memory destinations are modeled.
func (o *Operand) Write(v value.Value, widthBits int) error {
	switch o.desc.Kind {
	case insts.KindRegister:
		return o.cpu.regs.Write(o.desc.Reg, v)
	case insts.KindMemory:
		addr, err := o.Address()
		if err != nil {
			return err
		}
		w := widthBits
		if w == 0 {
			w = v.Width()
		}
		return o.cpu.mem.Write(addr, v, w)
	default:
		return &UnsupportedOperandKindError{
			Kind: o.desc.Kind, Detail: "not writable",
		}
	}
}

// Address computes a memory operand's effective address:
// base + index*scale + displacement. Symbolic address components are not
// modeled by this layer and fail closed.
func (o *Operand) Address() (value.Value, error) {
	if o.desc.Kind != insts.KindMemory {
		return nil, &UnsupportedOperandKindError{
			Kind: o.desc.Kind, Detail: "not a memory operand",
		}
	}

	bits := o.cpu.desc.AddressBits()
	addr := uint64(0)

	if o.desc.Mem.Base != "" {
		base, err := o.component(o.desc.Mem.Base)
		if err != nil {
			return nil, err
		}
		addr += base
	}
	if o.desc.Mem.Index != "" {
		index, err := o.component(o.desc.Mem.Index)
		if err != nil {
			return nil, err
		}
		scale := o.desc.Mem.Scale
		if scale == 0 {
			scale = 1
		}
		addr += index * uint64(scale)
	}
	addr += uint64(o.desc.Mem.Disp)

	return value.NewConcrete(addr, bits), nil
}

func (o *Operand) component(reg string) (uint64, error) {
	v, err := o.cpu.regs.Read(reg)
	if err != nil {
		return 0, err
	}
	u, ok := v.Uint64()
	if !ok {
		return 0, &UnsupportedOperandKindError{
			Kind: insts.KindMemory, Detail: "symbolic address component " + reg,
		}
	}
	return u, nil
}

func (o *Operand) readRegister(widthBits int) (value.Value, error) {
	if o.desc.Shift.Type != insts.ShiftNone {
		return nil, &UnsupportedOperandKindError{
			Kind: o.desc.Kind, Detail: "shifted register operand not modeled",
		}
	}
	v, err := o.cpu.regs.Read(o.desc.Reg)
	if err != nil {
		return nil, err
	}
	if widthBits != 0 && widthBits < v.Width() {
		return v.Extract(0, widthBits)
	}
	return v, nil
}

func (o *Operand) immediate(widthBits int) value.Value {
	w := widthBits
	if w == 0 {
		w = o.cpu.desc.AddressBits()
	}
	return value.NewConcrete(uint64(o.desc.Imm), w)
}
