package mem_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/symarch/mem"
	"github.com/sarchlab/symarch/value"
)

var _ = Describe("SparseMemory", func() {
	var m *mem.SparseMemory

	addr := func(a uint64) value.Value {
		return value.NewConcrete(a, 64)
	}

	BeforeEach(func() {
		m = mem.NewSparseMemory(1 << 32)
	})

	It("should round-trip concrete words", func() {
		err := m.Write(addr(0x1000), value.NewConcrete(0xDEADBEEFCAFEBABE, 64), 64)
		Expect(err).NotTo(HaveOccurred())

		v, err := m.Read(addr(0x1000), 64)
		Expect(err).NotTo(HaveOccurred())
		u, _ := v.Uint64()
		Expect(u).To(Equal(uint64(0xDEADBEEFCAFEBABE)))
	})

	It("should store words little-endian", func() {
		err := m.Write(addr(0x2000), value.NewConcrete(0x0102030405060708, 64), 64)
		Expect(err).NotTo(HaveOccurred())

		b0, err := m.Read(addr(0x2000), 8)
		Expect(err).NotTo(HaveOccurred())
		u, _ := b0.Uint64()
		Expect(u).To(Equal(uint64(0x08)))

		b7, err := m.Read(addr(0x2007), 8)
		Expect(err).NotTo(HaveOccurred())
		u, _ = b7.Uint64()
		Expect(u).To(Equal(uint64(0x01)))
	})

	It("should read unwritten memory as zero", func() {
		v, err := m.Read(addr(0x3000), 32)
		Expect(err).NotTo(HaveOccurred())
		u, _ := v.Uint64()
		Expect(u).To(Equal(uint64(0)))
	})

	It("should preserve symbolic stores in the overlay", func() {
		sym := value.NewSymbolic(value.Var("x", 64), value.TermBuilder{})
		err := m.Write(addr(0x4000), sym, 64)
		Expect(err).NotTo(HaveOccurred())

		v, err := m.Read(addr(0x4000), 64)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Equal(sym)).To(BeTrue())
	})

	It("should fail a read that partially overlaps a symbolic store", func() {
		sym := value.NewSymbolic(value.Var("x", 64), value.TermBuilder{})
		err := m.Write(addr(0x5000), sym, 64)
		Expect(err).NotTo(HaveOccurred())

		_, err = m.Read(addr(0x5004), 32)
		Expect(err).To(MatchError(mem.ErrPartialSymbolic))
	})

	It("should drop an overlapped symbolic store on overwrite", func() {
		sym := value.NewSymbolic(value.Var("x", 64), value.TermBuilder{})
		Expect(m.Write(addr(0x6000), sym, 64)).To(Succeed())
		Expect(m.Write(addr(0x6000), value.NewConcrete(0x42, 64), 64)).To(Succeed())

		v, err := m.Read(addr(0x6000), 64)
		Expect(err).NotTo(HaveOccurred())
		u, _ := v.Uint64()
		Expect(u).To(Equal(uint64(0x42)))
	})

	It("should reject symbolic addresses", func() {
		sym := value.NewSymbolic(value.Var("a", 64), value.TermBuilder{})

		_, err := m.Read(sym, 64)
		Expect(err).To(MatchError(mem.ErrSymbolicAddress))

		err = m.Write(sym, value.NewConcrete(1, 64), 64)
		Expect(err).To(MatchError(mem.ErrSymbolicAddress))
	})

	It("should reject widths that are not whole bytes", func() {
		_, err := m.Read(addr(0), 12)
		Expect(err).To(HaveOccurred())
	})

	It("should reject oversized values", func() {
		err := m.Write(addr(0), value.NewConcrete(0x1FF, 16), 8)
		Expect(err).To(HaveOccurred())
	})
})
