package cpu

import "strings"

// Handler implements one canonical instruction: a deterministic state
// transition over the CPU's register file and memory, given the bound
// operand list.
type Handler func(*CPU, []*Operand) error

// Renamer resolves decoder quirks: given an uppercase mnemonic and the
// decoder's full mnemonic text, it returns the mnemonic the operation
// should dispatch under. A Renamer must be a no-op on names it has
// already produced, so canonicalization stays idempotent.
type Renamer func(mnemonic, text string) string

// Dispatcher maps canonical uppercase mnemonics to handlers. Dispatch is
// data: the table is populated once from a registration list, then only
// read.
type Dispatcher struct {
	handlers map[string]Handler
	aliases  map[string]string
	renamer  Renamer
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]Handler),
		aliases:  make(map[string]string),
	}
}

// SetRenamer installs the architecture's decoder-quirk renamer.
func (d *Dispatcher) SetRenamer(r Renamer) {
	d.renamer = r
}

// Register binds a canonical mnemonic to a handler.
func (d *Dispatcher) Register(name string, h Handler) {
	d.handlers[strings.ToUpper(name)] = h
}

// Alias maps an alternate spelling of an operation onto its canonical
// mnemonic. Chains are resolved at registration so lookup stays a single
// step and canonicalization stays idempotent.
func (d *Dispatcher) Alias(from, to string) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if target, ok := d.aliases[to]; ok {
		to = target
	}
	d.aliases[from] = to
	for alias, target := range d.aliases {
		if target == from {
			d.aliases[alias] = to
		}
	}
}

// Canonicalize normalizes a decoder-reported mnemonic: uppercase, decoder
// quirk renames (using the mnemonic text hint), then the alias table.
// Deterministic and idempotent.
func (d *Dispatcher) Canonicalize(mnemonic, text string) string {
	name := strings.ToUpper(mnemonic)
	if d.renamer != nil {
		name = d.renamer(name, text)
	}
	if target, ok := d.aliases[name]; ok {
		name = target
	}
	return name
}

// Lookup returns the handler for a canonical mnemonic.
func (d *Dispatcher) Lookup(canonical string) (Handler, error) {
	h, ok := d.handlers[canonical]
	if !ok {
		return nil, &UnsupportedInstructionError{Mnemonic: canonical}
	}
	return h, nil
}
