// Package cpu models CPU state for symbolic binary analysis: the register
// file with hardware partial-register aliasing, operand binding for
// decoded instructions, mnemonic canonicalization and handler dispatch,
// and the calling/syscall conventions. Values everywhere may be concrete
// or symbolic; see the value package.
package cpu

import (
	"github.com/sarchlab/symarch/arch"
	"github.com/sarchlab/symarch/value"
)

// RegFile owns one storage cell per top-level register of its
// architecture. Narrower register names resolve through the architecture
// descriptor: reads extract the low bits of the parent cell, writes
// replace the parent cell entirely (zero-extension-on-write).
type RegFile struct {
	desc  *arch.Descriptor
	cells map[string]value.Value
}

// NewRegFile creates a register file for the architecture with every cell
// zeroed. Symbolic cells carry their own expression builder, so the
// register file needs none of its own.
func NewRegFile(desc *arch.Descriptor) *RegFile {
	cells := make(map[string]value.Value)
	for _, name := range desc.TopLevelRegisters() {
		cells[name] = value.NewConcrete(0, desc.ParentWidth(name))
	}
	return &RegFile{desc: desc, cells: cells}
}

// Contains reports whether name is a recognized register name or alias.
func (r *RegFile) Contains(name string) bool {
	return r.desc.Contains(name)
}

// Read returns the value of the named register. For a narrow view of a
// wider parent it returns the low bits, via a concrete mask or a symbolic
// extraction term as the stored value dictates.
func (r *RegFile) Read(name string) (value.Value, error) {
	spec, ok := r.desc.Resolve(name)
	if !ok {
		return nil, &InvalidRegisterError{Name: name}
	}
	cell := r.cells[spec.Parent]
	if spec.Width < cell.Width() {
		return cell.Extract(0, spec.Width)
	}
	return cell, nil
}

// Write stores v into the named register. The value must satisfy
// 0 <= v < 2^width for the named view. The parent cell's entire stored
// value is replaced: writing a narrower view zero-extends into the full
// parent register. Correct for the AArch64 general-purpose and SIMD&FP
// families; any new register family must re-validate this rule against
// the architecture reference before reusing it.
func (r *RegFile) Write(name string, v value.Value) error {
	spec, ok := r.desc.Resolve(name)
	if !ok {
		return &InvalidRegisterError{Name: name}
	}
	if !v.Fits(spec.Width) {
		return &ValueOutOfRangeError{Register: name, Width: spec.Width}
	}

	parentWidth := r.desc.ParentWidth(spec.Parent)
	stored := v
	if v.Width() > spec.Width {
		// A wide value whose payload fits the narrow view; normalize to
		// the view's width before extending.
		narrowed, err := v.Extract(0, spec.Width)
		if err != nil {
			return err
		}
		stored = narrowed
	}
	if stored.Width() < parentWidth {
		extended, err := stored.Extend(parentWidth)
		if err != nil {
			return err
		}
		stored = extended
	}

	r.cells[spec.Parent] = stored
	return nil
}

// CanonicalRegisters returns the recognized register set minus the
// architecture's exclusion set.
func (r *RegFile) CanonicalRegisters() []string {
	return r.desc.CanonicalRegisters()
}

// AllRegisters returns the full recognized register set.
func (r *RegFile) AllRegisters() []string {
	return r.desc.AllRegisters()
}

// Snapshot returns the flat top-level-register state. Values are
// immutable, so the snapshot and the live register file may share them;
// mutating one after the snapshot cannot affect the other.
func (r *RegFile) Snapshot() map[string]value.Value {
	out := make(map[string]value.Value, len(r.cells))
	for name, v := range r.cells {
		out[name] = v
	}
	return out
}

// Restore replaces the register state from a snapshot taken on the same
// architecture.
func (r *RegFile) Restore(snapshot map[string]value.Value) error {
	for name, v := range snapshot {
		spec, ok := r.desc.Resolve(name)
		if !ok || spec.Parent != name {
			return &InvalidRegisterError{Name: name}
		}
		if !v.Fits(spec.Width) {
			return &ValueOutOfRangeError{Register: name, Width: spec.Width}
		}
	}
	for name, v := range snapshot {
		r.cells[name] = v
	}
	return nil
}
