package cpu_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/symarch/arch"
	"github.com/sarchlab/symarch/cpu"
	"github.com/sarchlab/symarch/value"
)

var _ = Describe("RegFile", func() {
	var r *cpu.RegFile

	BeforeEach(func() {
		r = cpu.NewRegFile(arch.AArch64())
	})

	readUint := func(name string) uint64 {
		v, err := r.Read(name)
		Expect(err).NotTo(HaveOccurred())
		u, ok := v.Uint64()
		Expect(ok).To(BeTrue())
		return u
	}

	Describe("Read and Write", func() {
		It("should round-trip a top-level register", func() {
			err := r.Write("X0", value.NewConcrete(0x123456789ABCDEF0, 64))
			Expect(err).NotTo(HaveOccurred())
			Expect(readUint("X0")).To(Equal(uint64(0x123456789ABCDEF0)))
		})

		It("should zero-extend a narrow write into the parent", func() {
			Expect(r.Write("X0", value.NewConcrete(0xFFFFFFFFFFFFFFFF, 64))).To(Succeed())
			Expect(r.Write("W0", value.NewConcrete(0x1, 32))).To(Succeed())

			Expect(readUint("X0")).To(Equal(uint64(0x1)))
		})

		It("should extract the low bits on a narrow read", func() {
			Expect(r.Write("X1", value.NewConcrete(0xFFFFFFFF00000001, 64))).To(Succeed())
			Expect(readUint("W1")).To(Equal(uint64(0x00000001)))
		})

		It("should zero-extend narrow SIMD writes into the vector register", func() {
			full := value.NewConcreteBig(
				value.NewConcrete(0xFFFFFFFFFFFFFFFF, 64).Big(), 128)
			Expect(r.Write("Q0", full)).To(Succeed())
			Expect(r.Write("S0", value.NewConcrete(0x7, 32))).To(Succeed())

			q, err := r.Read("Q0")
			Expect(err).NotTo(HaveOccurred())
			Expect(q.Width()).To(Equal(128))
			u, ok := q.Uint64()
			Expect(ok).To(BeTrue())
			Expect(u).To(Equal(uint64(0x7)))
		})

		It("should resolve aliases through the descriptor", func() {
			Expect(r.Write("LR", value.NewConcrete(0x4000, 64))).To(Succeed())
			Expect(readUint("X30")).To(Equal(uint64(0x4000)))

			Expect(r.Write("STACK", value.NewConcrete(0x7FFF0000, 64))).To(Succeed())
			Expect(readUint("SP")).To(Equal(uint64(0x7FFF0000)))
		})

		It("should reject out-of-range writes", func() {
			err := r.Write("W0", value.NewConcrete(0x100000000, 64))

			var rangeErr *cpu.ValueOutOfRangeError
			Expect(errors.As(err, &rangeErr)).To(BeTrue())
			Expect(rangeErr.Register).To(Equal("W0"))
			Expect(rangeErr.Width).To(Equal(32))
		})

		It("should reject unknown register names", func() {
			var invalidErr *cpu.InvalidRegisterError

			_, err := r.Read("NOPE")
			Expect(errors.As(err, &invalidErr)).To(BeTrue())

			err = r.Write("NOPE", value.NewConcrete(0, 64))
			Expect(errors.As(err, &invalidErr)).To(BeTrue())
		})

		It("should accept a wide value that fits the narrow view", func() {
			Expect(r.Write("W0", value.NewConcrete(0x42, 64))).To(Succeed())
			Expect(readUint("X0")).To(Equal(uint64(0x42)))
		})
	})

	Describe("symbolic values", func() {
		b := value.TermBuilder{}

		It("should store a symbolic narrow write as a zero-extension", func() {
			sym := value.NewSymbolic(value.Var("w", 32), b)
			Expect(r.Write("W0", sym)).To(Succeed())

			x, err := r.Read("X0")
			Expect(err).NotTo(HaveOccurred())
			Expect(x.Width()).To(Equal(64))
			node := x.(value.Symbolic).Node().(*value.Term)
			Expect(node.Op).To(Equal(value.TermZeroExt))
		})

		It("should build an extraction term for a symbolic narrow read", func() {
			sym := value.NewSymbolic(value.Var("x", 64), b)
			Expect(r.Write("X2", sym)).To(Succeed())

			w, err := r.Read("W2")
			Expect(err).NotTo(HaveOccurred())
			Expect(w.Width()).To(Equal(32))
			node := w.(value.Symbolic).Node().(*value.Term)
			Expect(node.Op).To(Equal(value.TermExtract))
			Expect(node.Off).To(Equal(0))
		})
	})

	Describe("register sets", func() {
		It("should expose all registers including excluded ones", func() {
			Expect(r.AllRegisters()).To(ContainElements("FPCR", "FPSR", "X0", "W30", "Q31"))
		})

		It("should hide excluded registers from the canonical set", func() {
			Expect(r.CanonicalRegisters()).NotTo(ContainElements("FPCR", "FPSR"))
			Expect(r.CanonicalRegisters()).To(ContainElement("NZCV"))
		})

		It("should report containment for names and aliases", func() {
			Expect(r.Contains("X7")).To(BeTrue())
			Expect(r.Contains("STACK")).To(BeTrue())
			Expect(r.Contains("NOPE")).To(BeFalse())
		})
	})

	Describe("Snapshot and Restore", func() {
		It("should restore the state at snapshot time", func() {
			Expect(r.Write("X0", value.NewConcrete(0x11, 64))).To(Succeed())
			Expect(r.Write("X1", value.NewConcrete(0x22, 64))).To(Succeed())

			snapshot := r.Snapshot()

			Expect(r.Write("X0", value.NewConcrete(0x99, 64))).To(Succeed())
			Expect(r.Write("X2", value.NewConcrete(0x33, 64))).To(Succeed())

			fresh := cpu.NewRegFile(arch.AArch64())
			Expect(fresh.Restore(snapshot)).To(Succeed())

			for name, want := range snapshot {
				got, err := fresh.Read(name)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Equal(want)).To(BeTrue(), "register %s", name)
			}

			v, _ := fresh.Read("X0")
			u, _ := v.Uint64()
			Expect(u).To(Equal(uint64(0x11)))

			v, _ = fresh.Read("X1")
			u, _ = v.Uint64()
			Expect(u).To(Equal(uint64(0x22)))

			v, _ = fresh.Read("X2")
			u, _ = v.Uint64()
			Expect(u).To(Equal(uint64(0)))
		})

		It("should let two snapshots diverge independently", func() {
			Expect(r.Write("X5", value.NewConcrete(0xAA, 64))).To(Succeed())
			snapshot := r.Snapshot()

			Expect(r.Write("X5", value.NewConcrete(0xBB, 64))).To(Succeed())

			other := cpu.NewRegFile(arch.AArch64())
			Expect(other.Restore(snapshot)).To(Succeed())

			v, _ := other.Read("X5")
			u, _ := v.Uint64()
			Expect(u).To(Equal(uint64(0xAA)))

			v, _ = r.Read("X5")
			u, _ = v.Uint64()
			Expect(u).To(Equal(uint64(0xBB)))
		})

		It("should reject snapshots with unknown or non-top-level names", func() {
			Expect(r.Restore(map[string]value.Value{
				"NOPE": value.NewConcrete(0, 64),
			})).To(HaveOccurred())

			Expect(r.Restore(map[string]value.Value{
				"W0": value.NewConcrete(0, 32),
			})).To(HaveOccurred())
		})
	})
})
