package arch

import "fmt"

// AArch64 builds the ARMv8-A AArch64 descriptor.
//
// From "B1.2 Registers in AArch64 Execution state" in the ARM Architecture
// Reference Manual (ARMv8-A profile): 31 general-purpose registers R0-R30,
// each accessible as the 64-bit X0-X30 or the 32-bit W0-W30; a dedicated
// 64-bit stack pointer (32-bit view WSP); a 64-bit program counter; and 32
// SIMD&FP registers V0-V31, each accessible as Q (128-bit), D (64-bit),
// S (32-bit), H (16-bit) or B (8-bit) views of the least significant bits.
//
// Writing any narrower view zero-extends into the full parent register for
// both the general-purpose and SIMD&FP families. That rule is declared
// here only for those families; it must be re-validated against the
// reference before any new register family is added.
func AArch64() *Descriptor {
	var table []RegisterSpec

	for i := 0; i < 31; i++ {
		table = append(table,
			RegisterSpec{Name: fmt.Sprintf("X%d", i), Parent: fmt.Sprintf("X%d", i), Width: 64},
			RegisterSpec{Name: fmt.Sprintf("W%d", i), Parent: fmt.Sprintf("X%d", i), Width: 32},
		)
	}

	table = append(table,
		RegisterSpec{Name: "SP", Parent: "SP", Width: 64},
		RegisterSpec{Name: "WSP", Parent: "SP", Width: 32},
		RegisterSpec{Name: "PC", Parent: "PC", Width: 64},
	)

	for i := 0; i < 32; i++ {
		table = append(table,
			RegisterSpec{Name: fmt.Sprintf("Q%d", i), Parent: fmt.Sprintf("Q%d", i), Width: 128},
			RegisterSpec{Name: fmt.Sprintf("D%d", i), Parent: fmt.Sprintf("Q%d", i), Width: 64},
			RegisterSpec{Name: fmt.Sprintf("S%d", i), Parent: fmt.Sprintf("Q%d", i), Width: 32},
			RegisterSpec{Name: fmt.Sprintf("H%d", i), Parent: fmt.Sprintf("Q%d", i), Width: 16},
			RegisterSpec{Name: fmt.Sprintf("B%d", i), Parent: fmt.Sprintf("Q%d", i), Width: 8},
		)
	}

	table = append(table,
		// SIMD and floating-point control and status registers.
		RegisterSpec{Name: "FPCR", Parent: "FPCR", Width: 64},
		RegisterSpec{Name: "FPSR", Parent: "FPSR", Width: 64},
		// Condition flags: N bit 31, Z bit 30, C bit 29, V bit 28.
		RegisterSpec{Name: "NZCV", Parent: "NZCV", Width: 64},
		// Zero register.
		RegisterSpec{Name: "XZR", Parent: "XZR", Width: 64},
		RegisterSpec{Name: "WZR", Parent: "XZR", Width: 32},
	)

	return New(Config{
		Name:    "aarch64",
		Machine: "aarch64",
		Table:   table,
		Aliases: map[string]string{
			// Generic stack-pointer name used by architecture-independent
			// consumers.
			"STACK": "SP",
			// Procedure Call Standard for the Arm 64-bit Architecture,
			// "5.1 Machine Registers": frame pointer and the
			// intra-procedure-call temporary registers.
			"FP":  "X29",
			"IP0": "X16",
			"IP1": "X17",
			// X30 is the procedure call link register.
			"LR": "X30",
		},
		// Emulation backends used for concrete stepping cannot represent
		// these.
		Excluded: []string{"FPCR", "FPSR"},

		// AAPCS64: first 8 integer arguments in X0-X7, result in X0.
		ArgumentRegisters: []string{"X0", "X1", "X2", "X3", "X4", "X5", "X6", "X7"},
		ReturnRegister:    "X0",

		// man 2 syscall, arch/ABI arm64: number in X8, arguments in
		// X0-X5, return value in X0.
		SyscallNumberRegister:    "X8",
		SyscallArgumentRegisters: []string{"X0", "X1", "X2", "X3", "X4", "X5"},
		SyscallReturnRegister:    "X0",

		LinkRegister:  "LR",
		ReturnViaLink: true,

		StackPointer:        "SP",
		ProgramCounter:      "PC",
		FlagsRegister:       "NZCV",
		AddressBits:         64,
		MaxInstructionWidth: 4,
	})
}
