// Package mem defines the memory subsystem boundary consumed by the cpu
// package, and a sparse implementation good enough for symbolic execution
// of user-space code: concrete bytes in an Akita backing store, symbolic
// stores in an overlay.
package mem

import (
	"errors"

	"github.com/sarchlab/symarch/value"
)

// ErrSymbolicAddress is returned by implementations that cannot model
// reads or writes through a symbolic address.
var ErrSymbolicAddress = errors.New("mem: symbolic address not supported")

// ErrPartialSymbolic is returned when a concrete read overlaps a symbolic
// store without covering it exactly.
var ErrPartialSymbolic = errors.New("mem: access partially overlaps a symbolic store")

// Memory is the byte-addressable memory boundary. Address and value are
// both polymorphic over concrete/symbolic; widthBits must be a multiple
// of 8. Multi-byte values are little-endian.
type Memory interface {
	Read(addr value.Value, widthBits int) (value.Value, error)
	Write(addr value.Value, v value.Value, widthBits int) error
}
