package cpu

import (
	"errors"

	"github.com/sarchlab/symarch/value"
)

// ErrArgumentsExhausted is returned by an argument stream that has no
// further locations to yield (syscall conventions never spill to the
// stack).
var ErrArgumentsExhausted = errors.New("cpu: argument locations exhausted")

// Argument is one argument location: a register name, or a stack-slot
// address when Register is empty.
type Argument struct {
	Register string
	Address  value.Value
}

// ArgumentStream yields argument locations lazily and exactly once each:
// the convention's registers in order, then (unless capped) successive
// stack slots at increasing offsets from the stack pointer captured when
// the stream was created.
type ArgumentStream struct {
	cpu        *CPU
	regs       []string
	idx        int
	stackBase  uint64
	stackReady bool
	nextOffset uint64
	capped     bool
}

// Next returns the next argument location.
func (s *ArgumentStream) Next() (Argument, error) {
	if s.idx < len(s.regs) {
		reg := s.regs[s.idx]
		s.idx++
		return Argument{Register: reg}, nil
	}
	if s.capped {
		return Argument{}, ErrArgumentsExhausted
	}

	if !s.stackReady {
		sp, err := s.cpu.regs.Read(s.cpu.desc.StackPointer())
		if err != nil {
			return Argument{}, err
		}
		base, ok := sp.Uint64()
		if !ok {
			return Argument{}, &UnsupportedOperandKindError{
				Detail: "symbolic stack pointer in argument marshalling",
			}
		}
		s.stackBase = base
		s.stackReady = true
	}

	addr := s.stackBase + s.nextOffset
	s.nextOffset += uint64(s.cpu.desc.AddressBits() / 8)
	return Argument{
		Address: value.NewConcrete(addr, s.cpu.desc.AddressBits()),
	}, nil
}

// ReadArgument loads the value at an argument location.
func (c *CPU) ReadArgument(a Argument) (value.Value, error) {
	if a.Register != "" {
		return c.regs.Read(a.Register)
	}
	return c.mem.Read(a.Address, c.desc.AddressBits())
}

// WriteArgument stores a value at an argument location.
func (c *CPU) WriteArgument(a Argument, v value.Value) error {
	if a.Register != "" {
		return c.regs.Write(a.Register, v)
	}
	return c.mem.Write(a.Address, v, c.desc.AddressBits())
}

// Abi marshals function-call arguments and results for the CPU's calling
// convention. It is stateless beyond the CPU binding: construct one per
// marshalling operation and discard it.
type Abi struct {
	cpu *CPU
}

// NewAbi binds a calling-convention ABI to a CPU.
func NewAbi(c *CPU) *Abi {
	return &Abi{cpu: c}
}

// Arguments returns the lazy argument-location stream: the argument
// registers in their defined order, then stack slots.
func (a *Abi) Arguments() *ArgumentStream {
	return &ArgumentStream{
		cpu:  a.cpu,
		regs: a.cpu.desc.ArgumentRegisters(),
	}
}

// WriteResult stores a function result in the return-value register.
func (a *Abi) WriteResult(v value.Value) error {
	return a.cpu.regs.Write(a.cpu.desc.ReturnRegister(), v)
}

// Ret performs the architecture's return transfer: restore the program
// counter from the link register, or pop the return address from the
// stack on architectures without one.
func (a *Abi) Ret() error {
	c := a.cpu
	if c.desc.ReturnViaLink() {
		lr, err := c.regs.Read(c.desc.LinkRegister())
		if err != nil {
			return err
		}
		return c.SetPC(lr)
	}

	sp, err := c.regs.Read(c.desc.StackPointer())
	if err != nil {
		return err
	}
	ret, err := c.mem.Read(sp, c.desc.AddressBits())
	if err != nil {
		return err
	}
	if err := c.SetPC(ret); err != nil {
		return err
	}
	slot := value.NewConcrete(uint64(c.desc.AddressBits()/8), sp.Width())
	newSP, err := value.Add(c.builder, sp, slot)
	if err != nil {
		return err
	}
	return c.regs.Write(c.desc.StackPointer(), newSP)
}

// SyscallAbi marshals syscall numbers, arguments and results for the
// CPU's syscall convention.
type SyscallAbi struct {
	cpu *CPU
}

// NewSyscallAbi binds a syscall ABI to a CPU.
func NewSyscallAbi(c *CPU) *SyscallAbi {
	return &SyscallAbi{cpu: c}
}

// Number reads the syscall-number register.
func (a *SyscallAbi) Number() (value.Value, error) {
	return a.cpu.regs.Read(a.cpu.desc.SyscallNumberRegister())
}

// Arguments returns the argument-location stream, capped at the
// convention's fixed register count. Syscall arguments never spill to the
// stack, no matter how many are requested.
func (a *SyscallAbi) Arguments() *ArgumentStream {
	return &ArgumentStream{
		cpu:    a.cpu,
		regs:   a.cpu.desc.SyscallArgumentRegisters(),
		capped: true,
	}
}

// WriteResult stores a syscall result in the convention's result register.
func (a *SyscallAbi) WriteResult(v value.Value) error {
	return a.cpu.regs.Write(a.cpu.desc.SyscallReturnRegister(), v)
}
