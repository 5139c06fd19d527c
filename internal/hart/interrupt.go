package hart

// interruptPriority lists the six interrupt causes in the fixed
// priority order spec.md §4.6 requires: MEI, MSI, MTI, SEI, SSI, STI.
var interruptPriority = []struct {
	cause Cause
	bit   uint64
}{
	{MachineExternalInterrupt, mipMEIP},
	{MachineSoftwareInterrupt, mipMSIP},
	{MachineTimerInterrupt, mipMTIP},
	{SupervisorExternalInterrupt, mipSEIP},
	{SupervisorSoftwareInterrupt, mipSSIP},
	{SupervisorTimerInterrupt, mipSTIP},
}

// pollInterrupts checks mie & mip against the global interrupt-enable
// rules for the current mode and, if one is unmasked, returns it as a
// trap-shaped error for the caller to deliver.
func (h *Hart) pollInterrupts() error {
	mie := h.csr.regs[Mie]
	mip := h.csr.regs[Mip]
	pending := mie & mip
	if pending == 0 {
		return nil
	}

	mstatus := h.csr.regs[Mstatus]
	mEnabled := h.mode != Machine || mstatus&statusMIE != 0
	sEnabled := h.mode == User || (h.mode == Supervisor && mstatus&statusSIE != 0)

	for _, cand := range interruptPriority {
		if pending&cand.bit == 0 {
			continue
		}
		isM := cand.cause == MachineExternalInterrupt ||
			cand.cause == MachineSoftwareInterrupt ||
			cand.cause == MachineTimerInterrupt
		if isM {
			if mEnabled {
				return raise(cand.cause, 0)
			}
			continue
		}
		if sEnabled {
			return raise(cand.cause, 0)
		}
	}
	return nil
}

// deliverTrap runs the unified trap-entry sequence described in
// spec.md §4.6: delegation, register-group selection, pc redirection,
// and the atomic status-register update. epc is the pc to save as the
// interrupted instruction (the faulting instruction for exceptions, or
// the next instruction for interrupts).
func (h *Hart) deliverTrap(t Trap, epc uint64) {
	code := t.Cause.Code()
	delegated := false
	if h.mode <= Supervisor {
		if t.Cause.IsInterrupt() {
			delegated = h.csr.IsMidelegated(code)
		} else {
			delegated = h.csr.IsMedelegated(code)
		}
	}

	causeVal := uint64(t.Cause)

	if delegated {
		h.csr.regs[Sepc] = epc
		h.csr.regs[Scause] = causeVal
		h.csr.regs[Stval] = t.Value

		mstatus := h.csr.regs[Mstatus]
		if mstatus&statusSIE != 0 {
			mstatus |= statusSPIE
		} else {
			mstatus &^= statusSPIE
		}
		mstatus &^= statusSIE
		if h.mode == Supervisor {
			mstatus |= statusSPP
		} else {
			mstatus &^= statusSPP
		}
		h.csr.regs[Mstatus] = mstatus

		h.mode = Supervisor
		h.pc = h.csr.regs[Stvec] &^ 0b11
		return
	}

	h.csr.regs[Mepc] = epc
	h.csr.regs[Mcause] = causeVal
	h.csr.regs[Mtval] = t.Value

	mstatus := h.csr.regs[Mstatus]
	if mstatus&statusMIE != 0 {
		mstatus |= statusMPIE
	} else {
		mstatus &^= statusMPIE
	}
	mstatus &^= statusMIE
	mstatus &^= statusMPP
	mstatus |= uint64(h.mode) << statusMPPShift
	h.csr.regs[Mstatus] = mstatus

	h.mode = Machine
	h.pc = h.csr.regs[Mtvec] &^ 0b11
}
