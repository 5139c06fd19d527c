// Package hart implements the RV64 interpreter nucleus: the instruction
// decoder/executor, privileged register state, the trap delivery
// pipeline, and the address-routed bus that multiplexes main memory and
// the memory-mapped device set.
package hart

import (
	"errors"
	"log/slog"
)

// ErrHalt is returned by Step/Run when the hart stops via the
// store-to-address-zero convention (StopOnZero), rather than an
// architectural trap: bundled bare-metal test programs signal
// completion this way instead of spinning or trapping.
var ErrHalt = errors.New("hart halted")

// Mode is the current privilege level.
type Mode uint8

const (
	User       Mode = 0b00
	Supervisor Mode = 0b01
	Machine    Mode = 0b11
)

func (m Mode) String() string {
	switch m {
	case User:
		return "U"
	case Supervisor:
		return "S"
	case Machine:
		return "M"
	default:
		return "?"
	}
}

// Hart is the single simulated hardware thread: 32 general-purpose
// registers, the program counter, the current privilege mode, the CSR
// bank, and the bus through which all memory and device access flows.
type Hart struct {
	regs [32]uint64
	pc   uint64
	mode Mode
	csr  *CsrFile
	bus  *Bus

	log *slog.Logger

	// Halted is set when the run loop should stop: a fatal trap
	// recursing into the handler itself (spec.md §7), or a store to
	// address 0 while StopOnZero is enabled.
	Halted    bool
	HaltCause *Trap

	// inTrapEntry is true for the step immediately following a trap
	// delivery: if that step itself raises a fatal exception, the
	// handler faulted on entry and the run terminates rather than
	// looping traps forever.
	inTrapEntry bool

	// stopOnZero enables the store-to-address-zero halt convention
	// bundled test programs use to signal completion (see SetStopOnZero).
	stopOnZero bool
}

// SetStopOnZero enables or disables the convention that a store to
// physical address 0 halts the hart cleanly (ErrHalt) instead of
// faulting. Address 0 is unmapped by the fixed memory map in spec.md
// §3, so this never shadows a legitimate device or DRAM access; it
// exists purely so bare-metal test programs have a way to signal
// completion without an infinite loop or a trap the host has to
// distinguish from a real failure.
func (h *Hart) SetStopOnZero(enable bool) {
	h.stopOnZero = enable
}

// New returns a Hart with an image copied into Dram at DramBase, pc at
// DramBase, sp (x2) at DramEnd, mode Machine, and every CSR zero.
func New(image []byte, bus *Bus, log *slog.Logger) *Hart {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	bus.Dram.LoadImage(image)
	h := &Hart{
		pc:   DramBase,
		mode: Machine,
		csr:  NewCsrFile(),
		bus:  bus,
		log:  log,
	}
	h.regs[2] = DramEnd
	return h
}

// PC returns the current program counter.
func (h *Hart) PC() uint64 { return h.pc }

// Mode returns the current privilege level.
func (h *Hart) Mode() Mode { return h.mode }

// Reg reads general-purpose register i (0-31). x0 always reads zero.
func (h *Hart) Reg(i uint32) uint64 {
	if i == 0 {
		return 0
	}
	return h.regs[i&0x1f]
}

// SetReg writes general-purpose register i. Writes to x0 are discarded.
func (h *Hart) SetReg(i uint32, v uint64) {
	if i != 0 {
		h.regs[i&0x1f] = v
	}
}

// CSR exposes the CSR bank for the dump package and tests.
func (h *Hart) CSR() *CsrFile { return h.csr }

// Bus exposes the bus for tests that want to poke devices directly.
func (h *Hart) Bus() *Bus { return h.bus }

// Step fetches, decodes, and executes one instruction, then delivers
// any pending trap or unmasked interrupt. Any exceptional condition
// inside fetch/decode/execute/load/store aborts the current instruction
// and hands control to the trap pipeline; pc is only advanced by a
// successfully completed instruction.
func (h *Hart) Step() error {
	h.bus.Clint.Tick()
	h.sampleDeviceInterrupts()

	oldPC := h.pc
	if err := h.step(); err != nil {
		h.regs[0] = 0
		t, ok := asTrap(err)
		if !ok {
			return err
		}
		if t.Cause.fatal() && h.inTrapEntry {
			h.Halted = true
			h.HaltCause = t
			h.log.Debug("fatal trap during trap entry, halting", "cause", t.Cause, "value", t.Value)
			return nil
		}
		h.log.Debug("trap", "cause", t.Cause, "value", t.Value, "pc", oldPC)
		h.deliverTrap(*t, oldPC)
		h.inTrapEntry = true
		return nil
	}
	h.regs[0] = 0
	h.inTrapEntry = false

	if err := h.pollInterrupts(); err != nil {
		t, ok := asTrap(err)
		if !ok {
			return err
		}
		h.log.Debug("interrupt", "cause", t.Cause, "pc", h.pc)
		h.deliverTrap(*t, h.pc)
		h.inTrapEntry = true
	}
	return nil
}

// step performs one fetch-decode-execute without interrupt polling.
func (h *Hart) step() error {
	insn, err := h.bus.Fetch(h.pc)
	if err != nil {
		return err
	}

	nextPC, err := h.execute(insn)
	if err != nil {
		return err
	}
	h.pc = nextPC
	return nil
}

// sampleDeviceInterrupts mirrors device interrupt lines into MIP, per
// spec.md §4.6 step 2.
func (h *Hart) sampleDeviceInterrupts() {
	if h.bus.Uart.IsInterrupting() {
		h.csr.regs[Mip] |= mipSEIP
		h.bus.Plic.SetPending(UartIRQ, true)
	}
	if h.bus.Plic.Pending() {
		h.csr.regs[Mip] |= mipSEIP
	}
	if h.bus.Clint.Pending() {
		h.csr.regs[Mip] |= mipMTIP
	} else {
		h.csr.regs[Mip] &^= mipMTIP
	}
}

// Run steps the hart until it halts, an unrecoverable error occurs, or
// Step has been called maxSteps times (0 = unbounded); steps that trap
// count toward the bound.
func (h *Hart) Run(maxSteps uint64) error {
	var steps uint64
	for !h.Halted {
		if err := h.Step(); err != nil {
			return err
		}
		steps++
		if maxSteps != 0 && steps >= maxSteps {
			return nil
		}
	}
	if h.HaltCause != nil {
		return h.HaltCause
	}
	return nil
}
