// Package dump formats hart register and CSR state for diagnostics. It
// is the external collaborator spec.md §1 carves out of the core: pure
// formatting over read-only accessors, no simulation logic.
package dump

import (
	"fmt"
	"io"

	"github.com/charmbracelet/x/ansi"

	"github.com/rvsim/rv64sim/internal/hart"
)

// abiNames are the RISC-V ABI register names for x0-x31.
var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

var namedCSRs = []struct {
	name string
	addr uint16
}{
	{"mhartid", hart.Mhartid},
	{"mstatus", hart.Mstatus},
	{"medeleg", hart.Medeleg},
	{"mideleg", hart.Mideleg},
	{"mie", hart.Mie},
	{"mtvec", hart.Mtvec},
	{"mepc", hart.Mepc},
	{"mcause", hart.Mcause},
	{"mtval", hart.Mtval},
	{"mip", hart.Mip},
	{"sstatus", hart.Sstatus},
	{"sie", hart.Sie},
	{"stvec", hart.Stvec},
	{"sepc", hart.Sepc},
	{"scause", hart.Scause},
	{"stval", hart.Stval},
	{"sip", hart.Sip},
	{"satp", hart.Satp},
}

// color returns s wrapped in the given SGR parameter when colorize is
// true, otherwise s unchanged.
func color(colorize bool, sgr, s string) string {
	if !colorize {
		return s
	}
	return ansi.SGR(sgr) + s + ansi.ResetStyle
}

// Registers writes the 32 GPRs, pc, and current privilege mode to w as
// a table. When colorize is true (writer is a terminal), the current
// privilege level is highlighted.
func Registers(w io.Writer, h *hart.Hart, colorize bool) {
	fmt.Fprintf(w, "pc   = %#018x   mode = %s\n", h.PC(), color(colorize, "1;33", h.Mode().String()))
	for i := 0; i < 32; i += 4 {
		for j := 0; j < 4; j++ {
			reg := i + j
			val := h.Reg(uint32(reg))
			label := fmt.Sprintf("x%-2d(%-4s)", reg, abiNames[reg])
			cell := fmt.Sprintf("%s=%#018x", label, val)
			if val != 0 {
				cell = color(colorize, "32", cell)
			}
			fmt.Fprintf(w, "%s  ", cell)
		}
		fmt.Fprintln(w)
	}
}

// CSRs writes the named architectural CSRs to w.
func CSRs(w io.Writer, h *hart.Hart, colorize bool) {
	csr := h.CSR()
	for _, c := range namedCSRs {
		val := csr.Read(c.addr)
		name := color(colorize, "36", fmt.Sprintf("%-8s", c.name))
		fmt.Fprintf(w, "%s = %#018x\n", name, val)
	}
}

// All writes both the register and CSR dumps to w.
func All(w io.Writer, h *hart.Hart, colorize bool) {
	Registers(w, h, colorize)
	fmt.Fprintln(w)
	CSRs(w, h, colorize)
}
