package cpu

import (
	"io"

	goerrors "github.com/go-errors/errors"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/symarch/arch"
	"github.com/sarchlab/symarch/insts"
	"github.com/sarchlab/symarch/mem"
	"github.com/sarchlab/symarch/value"
)

// NZCV bit positions, counting from the right.
const (
	flagBitN = 31
	flagBitZ = 30
	flagBitC = 29
	flagBitV = 28
)

// Flags holds one instruction's computed condition flags before they are
// committed to the register file.
type Flags struct {
	N, Z, C, V bool
}

// CPU composes a register file, a memory, and an instruction dispatcher
// for one modeled hardware thread. Execution is strictly sequential: one
// decoded instruction runs to completion before the next begins. The
// exploration engine owns concurrency across CPU snapshots.
type CPU struct {
	desc    *arch.Descriptor
	regs    *RegFile
	mem     mem.Memory
	disp    *Dispatcher
	builder value.Builder
	log     *logrus.Logger

	// Flags are staged when an instruction computes them and committed to
	// the NZCV register before the next instruction executes, so a
	// flag-reading instruction never observes stale values.
	stagedFlags    *Flags
	flagsUnmodeled bool

	instructionCount uint64
}

// Option configures a CPU.
type Option func(*CPU)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(log *logrus.Logger) Option {
	return func(c *CPU) {
		c.log = log
	}
}

// WithMemory sets the memory subsystem.
func WithMemory(m mem.Memory) Option {
	return func(c *CPU) {
		c.mem = m
	}
}

// WithBuilder sets the expression builder used for symbolic values.
func WithBuilder(b value.Builder) Option {
	return func(c *CPU) {
		c.builder = b
	}
}

// WithAliases adds mnemonic aliases to the dispatcher.
func WithAliases(aliases map[string]string) Option {
	return func(c *CPU) {
		for from, to := range aliases {
			c.disp.Alias(from, to)
		}
	}
}

// New creates a CPU for the given architecture and dispatcher.
func New(desc *arch.Descriptor, disp *Dispatcher, opts ...Option) *CPU {
	c := &CPU{
		desc: desc,
		disp: disp,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.builder == nil {
		c.builder = value.TermBuilder{}
	}
	if c.mem == nil {
		c.mem = mem.NewSparseMemory(1 << uint(desc.AddressBits()/2))
	}
	if c.log == nil {
		c.log = logrus.New()
		c.log.SetOutput(io.Discard)
	}
	c.regs = NewRegFile(desc)
	return c
}

// Descriptor returns the architecture descriptor.
func (c *CPU) Descriptor() *arch.Descriptor { return c.desc }

// RegFile returns the register file.
func (c *CPU) RegFile() *RegFile { return c.regs }

// Memory returns the memory subsystem.
func (c *CPU) Memory() mem.Memory { return c.mem }

// Builder returns the expression builder.
func (c *CPU) Builder() value.Builder { return c.builder }

// InstructionCount returns the number of instructions executed.
func (c *CPU) InstructionCount() uint64 { return c.instructionCount }

// ReadRegister reads a register by name.
func (c *CPU) ReadRegister(name string) (value.Value, error) {
	return c.regs.Read(name)
}

// WriteRegister writes a register by name.
func (c *CPU) WriteRegister(name string, v value.Value) error {
	return c.regs.Write(name, v)
}

// PC returns the program counter.
func (c *CPU) PC() (value.Value, error) {
	return c.regs.Read(c.desc.ProgramCounter())
}

// SetPC writes the program counter.
func (c *CPU) SetPC(v value.Value) error {
	return c.regs.Write(c.desc.ProgramCounter(), v)
}

// SetFlags stages condition flags computed by the current instruction.
// They are committed to the NZCV register before the next instruction
// executes.
func (c *CPU) SetFlags(f Flags) {
	staged := f
	c.stagedFlags = &staged
	c.flagsUnmodeled = false
}

// MarkFlagsUnmodeled records that the current instruction architecturally
// defines flag updates this layer does not compute. The gap is explicit:
// it is logged, and stale staged flags are discarded rather than
// committed.
func (c *CPU) MarkFlagsUnmodeled(mnemonic string) {
	c.stagedFlags = nil
	c.flagsUnmodeled = true
	c.log.WithFields(logrus.Fields{
		"mnemonic": mnemonic,
	}).Warn("condition flags not modeled for instruction")
}

// FlagsUnmodeled reports whether the most recent flag-setting instruction
// left its flag updates unmodeled.
func (c *CPU) FlagsUnmodeled() bool { return c.flagsUnmodeled }

// commitFlags folds staged flags into the NZCV register. Committing
// requires the current NZCV value to be concrete; staged flags themselves
// are always concrete (symbolic flag computation is out of scope for this
// layer).
func (c *CPU) commitFlags() error {
	if c.stagedFlags == nil {
		return nil
	}
	flagsReg := c.desc.FlagsRegister()
	if flagsReg == "" {
		return &UnsupportedOperandKindError{Detail: "architecture has no flags register"}
	}
	cur, err := c.regs.Read(flagsReg)
	if err != nil {
		return err
	}
	bits, ok := cur.Uint64()
	if !ok {
		return &UnsupportedOperandKindError{Detail: "symbolic NZCV register"}
	}

	bits &^= uint64(1)<<flagBitN | uint64(1)<<flagBitZ | uint64(1)<<flagBitC | uint64(1)<<flagBitV
	if c.stagedFlags.N {
		bits |= 1 << flagBitN
	}
	if c.stagedFlags.Z {
		bits |= 1 << flagBitZ
	}
	if c.stagedFlags.C {
		bits |= 1 << flagBitC
	}
	if c.stagedFlags.V {
		bits |= 1 << flagBitV
	}

	c.stagedFlags = nil
	return c.regs.Write(flagsReg, value.NewConcrete(bits, cur.Width()))
}

// Execute runs one decoded instruction: commit pending flags, canonicalize
// the mnemonic, bind operands, dispatch. Handler failures come back
// wrapped with stack context; the typed cause stays reachable through
// errors.As.
func (c *CPU) Execute(inst *insts.Instruction) error {
	if err := c.commitFlags(); err != nil {
		return goerrors.Wrap(err, 0)
	}

	canonical := c.disp.Canonicalize(inst.Mnemonic, inst.Text)
	handler, err := c.disp.Lookup(canonical)
	if err != nil {
		return err
	}

	ops := make([]*Operand, len(inst.Operands))
	for i, desc := range inst.Operands {
		ops[i] = &Operand{cpu: c, desc: desc}
	}

	c.log.WithFields(logrus.Fields{
		"pc":       inst.Address,
		"mnemonic": canonical,
		"operands": len(ops),
	}).Debug("executing instruction")

	pcBefore, err := c.PC()
	if err != nil {
		return goerrors.Wrap(err, 0)
	}

	if err := handler(c, ops); err != nil {
		return goerrors.Wrap(err, 0)
	}
	c.instructionCount++

	return c.advancePC(inst, pcBefore)
}

// advancePC moves PC past the instruction unless the handler already
// redirected it (a branch) or PC is symbolic.
func (c *CPU) advancePC(inst *insts.Instruction, pcBefore value.Value) error {
	if inst.Size == 0 {
		return nil
	}
	pcAfter, err := c.PC()
	if err != nil {
		return goerrors.Wrap(err, 0)
	}
	if !pcAfter.Equal(pcBefore) {
		return nil
	}
	pc, ok := pcAfter.Uint64()
	if !ok {
		return nil
	}
	next := value.NewConcrete(pc+uint64(inst.Size), c.desc.AddressBits())
	if err := c.SetPC(next); err != nil {
		return goerrors.Wrap(err, 0)
	}
	return nil
}

// Snapshot captures the CPU's register state and staged-flag bookkeeping.
// The result is safe to hold across further execution: values are
// immutable and the maps are copies.
type Snapshot struct {
	Registers      map[string]value.Value
	StagedFlags    *Flags
	FlagsUnmodeled bool
}

// Snapshot captures the current state for forking or persistence.
func (c *CPU) Snapshot() Snapshot {
	s := Snapshot{
		Registers:      c.regs.Snapshot(),
		FlagsUnmodeled: c.flagsUnmodeled,
	}
	if c.stagedFlags != nil {
		staged := *c.stagedFlags
		s.StagedFlags = &staged
	}
	return s
}

// Restore replaces the CPU's register state and staged-flag bookkeeping
// from a snapshot taken on the same architecture.
func (c *CPU) Restore(s Snapshot) error {
	if err := c.regs.Restore(s.Registers); err != nil {
		return err
	}
	c.flagsUnmodeled = s.FlagsUnmodeled
	if s.StagedFlags != nil {
		staged := *s.StagedFlags
		c.stagedFlags = &staged
	} else {
		c.stagedFlags = nil
	}
	return nil
}
