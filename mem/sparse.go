package mem

import (
	"fmt"
	"math/big"

	akitamem "github.com/sarchlab/akita/v4/mem/mem"

	"github.com/sarchlab/symarch/value"
)

// symbolicStore is one symbolic write: a value of widthBits starting at a
// concrete address.
type symbolicStore struct {
	v         value.Value
	widthBits int
}

// SparseMemory implements Memory over an Akita backing store for concrete
// bytes plus an overlay for symbolic stores. Addresses must be concrete;
// symbolic addresses are rejected with ErrSymbolicAddress, which keeps
// this implementation fail-closed while richer ones stay possible behind
// the Memory interface.
type SparseMemory struct {
	storage *akitamem.Storage
	overlay map[uint64]symbolicStore
}

var _ Memory = (*SparseMemory)(nil)

// NewSparseMemory creates a sparse memory with the given capacity in
// bytes. The backing store allocates lazily, so a full 4 GiB (or larger)
// address space costs nothing until touched.
func NewSparseMemory(capacity uint64) *SparseMemory {
	return &SparseMemory{
		storage: akitamem.NewStorage(capacity),
		overlay: make(map[uint64]symbolicStore),
	}
}

// Read reads widthBits of memory at addr, little-endian.
func (m *SparseMemory) Read(addr value.Value, widthBits int) (value.Value, error) {
	a, n, err := m.checkAccess(addr, widthBits)
	if err != nil {
		return nil, err
	}

	if store, ok := m.overlay[a]; ok && store.widthBits == widthBits {
		return store.v, nil
	}
	if err := m.checkOverlap(a, n); err != nil {
		return nil, err
	}

	data, err := m.storage.Read(a, uint64(n))
	if err != nil {
		return nil, fmt.Errorf("mem: read at 0x%x: %w", a, err)
	}

	v := new(big.Int)
	for i := n - 1; i >= 0; i-- {
		v.Lsh(v, 8)
		v.Or(v, big.NewInt(int64(data[i])))
	}
	return value.NewConcreteBig(v, widthBits), nil
}

// Write writes v (of widthBits) to addr, little-endian. A concrete value
// lands in the backing store; a symbolic one lands in the overlay. Either
// way, older symbolic stores the access overlaps are dropped.
func (m *SparseMemory) Write(addr value.Value, v value.Value, widthBits int) error {
	a, n, err := m.checkAccess(addr, widthBits)
	if err != nil {
		return err
	}
	if !v.Fits(widthBits) {
		return fmt.Errorf("mem: value of width %d does not fit %d-bit store", v.Width(), widthBits)
	}

	m.dropOverlapping(a, n)

	c, ok := v.(value.Concrete)
	if !ok {
		m.overlay[a] = symbolicStore{v: v, widthBits: widthBits}
		return nil
	}

	bits := c.Big()
	data := make([]byte, n)
	for i := 0; i < n; i++ {
		data[i] = byte(new(big.Int).Rsh(bits, uint(8*i)).Uint64() & 0xFF)
	}
	if err := m.storage.Write(a, data); err != nil {
		return fmt.Errorf("mem: write at 0x%x: %w", a, err)
	}
	return nil
}

func (m *SparseMemory) checkAccess(addr value.Value, widthBits int) (uint64, int, error) {
	if widthBits <= 0 || widthBits%8 != 0 {
		return 0, 0, fmt.Errorf("mem: invalid access width %d", widthBits)
	}
	a, ok := addr.Uint64()
	if !ok {
		if _, isConcrete := addr.(value.Concrete); isConcrete {
			return 0, 0, fmt.Errorf("mem: address exceeds 64 bits")
		}
		return 0, 0, ErrSymbolicAddress
	}
	return a, widthBits / 8, nil
}

func (m *SparseMemory) checkOverlap(addr uint64, n int) error {
	for base, store := range m.overlay {
		if overlaps(addr, n, base, store.widthBits/8) {
			return fmt.Errorf("%w: [0x%x,0x%x) vs symbolic store at 0x%x",
				ErrPartialSymbolic, addr, addr+uint64(n), base)
		}
	}
	return nil
}

func (m *SparseMemory) dropOverlapping(addr uint64, n int) {
	for base, store := range m.overlay {
		if overlaps(addr, n, base, store.widthBits/8) {
			delete(m.overlay, base)
		}
	}
}

func overlaps(a uint64, an int, b uint64, bn int) bool {
	return a < b+uint64(bn) && b < a+uint64(an)
}
