package cpu_test

import (
	"errors"
	"math"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/symarch/cpu"
	"github.com/sarchlab/symarch/insts"
	"github.com/sarchlab/symarch/value"
)

var _ = Describe("Operand", func() {
	var (
		mockCtrl *gomock.Controller
		mockMem  *MockMemory
		c        *cpu.CPU
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mockMem = NewMockMemory(mockCtrl)
		c = cpu.NewAArch64(cpu.WithMemory(mockMem))
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	execute := func(inst *insts.Instruction) error {
		return c.Execute(inst)
	}

	Describe("register operands", func() {
		It("should read and write through the register file", func() {
			Expect(c.WriteRegister("X1", value.NewConcrete(0x1234, 64))).To(Succeed())

			err := execute(&insts.Instruction{
				Mnemonic: "MOV",
				Text:     "mov x0, x1",
				Size:     4,
				Operands: []insts.OperandDescriptor{
					{Kind: insts.KindRegister, Reg: "X0"},
					{Kind: insts.KindRegister, Reg: "X1"},
				},
			})
			Expect(err).NotTo(HaveOccurred())

			v, err := c.ReadRegister("X0")
			Expect(err).NotTo(HaveOccurred())
			u, _ := v.Uint64()
			Expect(u).To(Equal(uint64(0x1234)))
		})

		It("should fail closed on shifted register operands", func() {
			err := execute(&insts.Instruction{
				Mnemonic: "MOV",
				Text:     "mov x0, x1, lsl #2",
				Size:     4,
				Operands: []insts.OperandDescriptor{
					{Kind: insts.KindRegister, Reg: "X0"},
					{
						Kind:  insts.KindRegister,
						Reg:   "X1",
						Shift: insts.Shift{Type: insts.ShiftLSL, Amount: 2},
					},
				},
			})

			var unsupported *cpu.UnsupportedOperandKindError
			Expect(errors.As(err, &unsupported)).To(BeTrue())
		})
	})

	Describe("memory operands", func() {
		It("should compute base + index*scale + displacement", func() {
			Expect(c.WriteRegister("X1", value.NewConcrete(0x1000, 64))).To(Succeed())
			Expect(c.WriteRegister("X2", value.NewConcrete(0x10, 64))).To(Succeed())

			var gotAddr uint64
			mockMem.EXPECT().
				Read(gomock.Any(), 64).
				DoAndReturn(func(addr value.Value, _ int) (value.Value, error) {
					gotAddr, _ = addr.Uint64()
					return value.NewConcrete(0x99, 64), nil
				})

			err := execute(&insts.Instruction{
				Mnemonic: "MOV",
				Text:     "ldr-like",
				Size:     4,
				Operands: []insts.OperandDescriptor{
					{Kind: insts.KindRegister, Reg: "X0"},
					{Kind: insts.KindMemory, Mem: insts.MemRef{
						Base: "X1", Index: "X2", Scale: 8, Disp: 0x20,
					}},
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(gotAddr).To(Equal(uint64(0x1000 + 0x10*8 + 0x20)))

			v, _ := c.ReadRegister("X0")
			u, _ := v.Uint64()
			Expect(u).To(Equal(uint64(0x99)))
		})

		It("should fail closed on symbolic address components", func() {
			sym := value.NewSymbolic(value.Var("a", 64), value.TermBuilder{})
			Expect(c.WriteRegister("X1", sym)).To(Succeed())

			err := execute(&insts.Instruction{
				Mnemonic: "MOV",
				Text:     "ldr-like",
				Size:     4,
				Operands: []insts.OperandDescriptor{
					{Kind: insts.KindRegister, Reg: "X0"},
					{Kind: insts.KindMemory, Mem: insts.MemRef{Base: "X1"}},
				},
			})

			var unsupported *cpu.UnsupportedOperandKindError
			Expect(errors.As(err, &unsupported)).To(BeTrue())
		})
	})

	Describe("immediate operands", func() {
		It("should return the literal", func() {
			err := execute(&insts.Instruction{
				Mnemonic: "MOV",
				Text:     "mov x0, #42",
				Size:     4,
				Operands: []insts.OperandDescriptor{
					{Kind: insts.KindRegister, Reg: "X0"},
					{Kind: insts.KindImmediate, Imm: 42},
				},
			})
			Expect(err).NotTo(HaveOccurred())

			v, _ := c.ReadRegister("X0")
			u, _ := v.Uint64()
			Expect(u).To(Equal(uint64(42)))
		})

		It("should not be writable", func() {
			err := execute(&insts.Instruction{
				Mnemonic: "MOV",
				Text:     "mov #1, x0",
				Size:     4,
				Operands: []insts.OperandDescriptor{
					{Kind: insts.KindImmediate, Imm: 1},
					{Kind: insts.KindRegister, Reg: "X0"},
				},
			})

			var unsupported *cpu.UnsupportedOperandKindError
			Expect(errors.As(err, &unsupported)).To(BeTrue())
		})

		It("should carry floating literals as their bit pattern", func() {
			err := execute(&insts.Instruction{
				Mnemonic: "MOV",
				Text:     "fmov-like",
				Size:     4,
				Operands: []insts.OperandDescriptor{
					{Kind: insts.KindRegister, Reg: "D0"},
					{Kind: insts.KindFloatingPointImmediate, FPImm: 1.5},
				},
			})
			Expect(err).NotTo(HaveOccurred())

			v, _ := c.ReadRegister("D0")
			u, _ := v.Uint64()
			Expect(u).To(Equal(math.Float64bits(1.5)))
		})
	})
})
