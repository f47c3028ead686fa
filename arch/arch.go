// Package arch provides immutable per-architecture descriptors: the
// register table with its alias layer, and the calling/syscall convention
// metadata. A Descriptor is built once at process start and shared
// read-only by every register file of that architecture.
package arch

import (
	"fmt"
	"sort"
)

// RegisterSpec describes one exposed register name: the top-level register
// that stores it and the width of this view in bits.
type RegisterSpec struct {
	Name   string
	Parent string
	Width  int
}

// Config is the input to New. All slices and maps are copied; the
// resulting Descriptor does not alias the Config.
type Config struct {
	// Name identifies the architecture (e.g. "aarch64").
	Name string

	// Machine is the kernel machine name (uname -m).
	Machine string

	// Table lists every exposed register. Each entry's Parent must name a
	// table entry whose parent is itself and whose width is >= the
	// entry's width.
	Table []RegisterSpec

	// Aliases maps alternate names onto table names (e.g. "STACK" -> "SP").
	Aliases map[string]string

	// Excluded names registers hidden from CanonicalRegisters because
	// some consumers cannot model them.
	Excluded []string

	// ArgumentRegisters is the ordered calling-convention argument list.
	ArgumentRegisters []string

	// ReturnRegister receives function results.
	ReturnRegister string

	// SyscallNumberRegister holds the syscall number.
	SyscallNumberRegister string

	// SyscallArgumentRegisters is the ordered, fixed syscall argument
	// list. Syscall arguments never spill to the stack.
	SyscallArgumentRegisters []string

	// SyscallReturnRegister receives syscall results.
	SyscallReturnRegister string

	// LinkRegister holds the return address when ReturnViaLink is set.
	LinkRegister string

	// ReturnViaLink selects link-register return transfer; when false,
	// the return address is popped from the stack.
	ReturnViaLink bool

	// StackPointer and ProgramCounter name the architecture's stack
	// pointer and program counter registers.
	StackPointer   string
	ProgramCounter string

	// FlagsRegister names the condition-flags register, if the
	// architecture has one.
	FlagsRegister string

	// AddressBits is the address width in bits.
	AddressBits int

	// MaxInstructionWidth is the widest encoding in bytes.
	MaxInstructionWidth int
}

// Descriptor is an immutable architecture description.
type Descriptor struct {
	name    string
	machine string

	table    map[string]RegisterSpec
	aliases  map[string]string
	excluded map[string]struct{}

	argumentRegs   []string
	returnReg      string
	syscallNumReg  string
	syscallArgRegs []string
	syscallRetReg  string
	linkReg        string
	returnViaLink  bool
	stackPointer   string
	programCounter string
	flagsRegister  string
	addressBits    int
	maxInstWidth   int
}

// New validates a Config and builds a Descriptor. Violations of the table
// invariants are programmer errors in a static table and panic.
func New(cfg Config) *Descriptor {
	d := &Descriptor{
		name:           cfg.Name,
		machine:        cfg.Machine,
		table:          make(map[string]RegisterSpec, len(cfg.Table)),
		aliases:        make(map[string]string, len(cfg.Aliases)),
		excluded:       make(map[string]struct{}, len(cfg.Excluded)),
		argumentRegs:   append([]string(nil), cfg.ArgumentRegisters...),
		returnReg:      cfg.ReturnRegister,
		syscallNumReg:  cfg.SyscallNumberRegister,
		syscallArgRegs: append([]string(nil), cfg.SyscallArgumentRegisters...),
		syscallRetReg:  cfg.SyscallReturnRegister,
		linkReg:        cfg.LinkRegister,
		returnViaLink:  cfg.ReturnViaLink,
		stackPointer:   cfg.StackPointer,
		programCounter: cfg.ProgramCounter,
		flagsRegister:  cfg.FlagsRegister,
		addressBits:    cfg.AddressBits,
		maxInstWidth:   cfg.MaxInstructionWidth,
	}

	for _, spec := range cfg.Table {
		if _, ok := d.table[spec.Name]; ok {
			panic(fmt.Sprintf("arch %s: duplicate register %s", cfg.Name, spec.Name))
		}
		d.table[spec.Name] = spec
	}

	for _, spec := range d.table {
		parent, ok := d.table[spec.Parent]
		if !ok {
			panic(fmt.Sprintf("arch %s: register %s has unknown parent %s",
				cfg.Name, spec.Name, spec.Parent))
		}
		if parent.Parent != parent.Name {
			panic(fmt.Sprintf("arch %s: parent %s of %s is not top-level",
				cfg.Name, spec.Parent, spec.Name))
		}
		if parent.Width < spec.Width {
			panic(fmt.Sprintf("arch %s: register %s (%d bits) wider than parent %s (%d bits)",
				cfg.Name, spec.Name, spec.Width, parent.Name, parent.Width))
		}
	}

	for alias, target := range cfg.Aliases {
		if _, ok := d.table[target]; !ok {
			panic(fmt.Sprintf("arch %s: alias %s targets unknown register %s",
				cfg.Name, alias, target))
		}
		d.aliases[alias] = target
	}

	for _, name := range cfg.Excluded {
		if _, ok := d.table[name]; !ok {
			panic(fmt.Sprintf("arch %s: excluded register %s not in table", cfg.Name, name))
		}
		d.excluded[name] = struct{}{}
	}

	for _, name := range conventionRegisters(cfg) {
		if name == "" {
			continue
		}
		if !d.Contains(name) {
			panic(fmt.Sprintf("arch %s: convention register %s not in table", cfg.Name, name))
		}
	}

	return d
}

func conventionRegisters(cfg Config) []string {
	regs := []string{
		cfg.ReturnRegister, cfg.SyscallNumberRegister, cfg.SyscallReturnRegister,
		cfg.StackPointer, cfg.ProgramCounter, cfg.FlagsRegister,
	}
	if cfg.ReturnViaLink {
		regs = append(regs, cfg.LinkRegister)
	}
	regs = append(regs, cfg.ArgumentRegisters...)
	regs = append(regs, cfg.SyscallArgumentRegisters...)
	return regs
}

// Name returns the architecture name.
func (d *Descriptor) Name() string { return d.name }

// Machine returns the kernel machine name.
func (d *Descriptor) Machine() string { return d.machine }

// AddressBits returns the address width in bits.
func (d *Descriptor) AddressBits() int { return d.addressBits }

// MaxInstructionWidth returns the widest encoding in bytes.
func (d *Descriptor) MaxInstructionWidth() int { return d.maxInstWidth }

// Contains reports whether name is a recognized register name or alias.
func (d *Descriptor) Contains(name string) bool {
	if _, ok := d.aliases[name]; ok {
		return true
	}
	_, ok := d.table[name]
	return ok
}

// Resolve follows the alias layer and returns the spec for name.
func (d *Descriptor) Resolve(name string) (RegisterSpec, bool) {
	if target, ok := d.aliases[name]; ok {
		name = target
	}
	spec, ok := d.table[name]
	return spec, ok
}

// ParentWidth returns the declared width of a top-level register.
func (d *Descriptor) ParentWidth(parent string) int {
	return d.table[parent].Width
}

// AllRegisters returns every recognized register name, sorted.
func (d *Descriptor) AllRegisters() []string {
	names := make([]string, 0, len(d.table))
	for name := range d.table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CanonicalRegisters returns AllRegisters minus the exclusion set.
func (d *Descriptor) CanonicalRegisters() []string {
	names := make([]string, 0, len(d.table))
	for name := range d.table {
		if _, excluded := d.excluded[name]; excluded {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TopLevelRegisters returns the names of registers that are their own
// parent, sorted. Register files allocate one storage cell per entry.
func (d *Descriptor) TopLevelRegisters() []string {
	var names []string
	for name, spec := range d.table {
		if spec.Parent == name {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ArgumentRegisters returns the calling-convention argument registers in
// order.
func (d *Descriptor) ArgumentRegisters() []string {
	return append([]string(nil), d.argumentRegs...)
}

// ReturnRegister returns the function-result register.
func (d *Descriptor) ReturnRegister() string { return d.returnReg }

// SyscallNumberRegister returns the syscall-number register.
func (d *Descriptor) SyscallNumberRegister() string { return d.syscallNumReg }

// SyscallArgumentRegisters returns the fixed syscall argument registers in
// order.
func (d *Descriptor) SyscallArgumentRegisters() []string {
	return append([]string(nil), d.syscallArgRegs...)
}

// SyscallReturnRegister returns the syscall-result register.
func (d *Descriptor) SyscallReturnRegister() string { return d.syscallRetReg }

// LinkRegister returns the link register name (empty if none).
func (d *Descriptor) LinkRegister() string { return d.linkReg }

// ReturnViaLink reports whether return transfer restores the program
// counter from the link register (true) or pops it from the stack (false).
func (d *Descriptor) ReturnViaLink() bool { return d.returnViaLink }

// StackPointer returns the stack-pointer register name.
func (d *Descriptor) StackPointer() string { return d.stackPointer }

// ProgramCounter returns the program-counter register name.
func (d *Descriptor) ProgramCounter() string { return d.programCounter }

// FlagsRegister returns the condition-flags register name (empty if the
// architecture has none).
func (d *Descriptor) FlagsRegister() string { return d.flagsRegister }
