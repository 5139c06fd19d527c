package hart

// execute decodes and runs one instruction, returning the pc the
// following instruction should start at. Non-branch instructions
// return pc+4. Any instruction that cannot complete raises the
// appropriate exception and leaves pc untouched (the caller discards
// the returned value on error).
func (h *Hart) execute(insn uint32) (uint64, error) {
	op := opcode(insn)
	switch op {
	case opLui:
		h.SetReg(rd(insn), uint64(immU(insn)))
		return h.pc + 4, nil
	case opAuipc:
		h.SetReg(rd(insn), uint64(int64(h.pc)+immU(insn)))
		return h.pc + 4, nil
	case opJal:
		target := uint64(int64(h.pc) + immJ(insn))
		if target&0b11 != 0 {
			return 0, raise(InstructionAddressMisaligned, target)
		}
		h.SetReg(rd(insn), h.pc+4)
		return target, nil
	case opJalr:
		target := (uint64(int64(h.Reg(rs1(insn)))+immI(insn))) &^ 1
		if target&0b11 != 0 {
			return 0, raise(InstructionAddressMisaligned, target)
		}
		h.SetReg(rd(insn), h.pc+4)
		return target, nil
	case opBranch:
		return h.execBranch(insn)
	case opLoad:
		return h.execLoad(insn)
	case opStore:
		return h.execStore(insn)
	case opOpImm:
		return h.execOpImm(insn)
	case opOpImm32:
		return h.execOpImm32(insn)
	case opOp:
		return h.execOp(insn)
	case opOp32:
		return h.execOp32(insn)
	case opMiscMem:
		// fence / fence.i: no-op, single hart, no i-cache model.
		return h.pc + 4, nil
	case opSystem:
		return h.execSystem(insn)
	default:
		return 0, raise(IllegalInstruction, uint64(insn))
	}
}

func (h *Hart) execBranch(insn uint32) (uint64, error) {
	r1, r2 := h.Reg(rs1(insn)), h.Reg(rs2(insn))
	var taken bool
	switch funct3(insn) {
	case 0b000: // beq
		taken = r1 == r2
	case 0b001: // bne
		taken = r1 != r2
	case 0b100: // blt
		taken = int64(r1) < int64(r2)
	case 0b101: // bge
		taken = int64(r1) >= int64(r2)
	case 0b110: // bltu
		taken = r1 < r2
	case 0b111: // bgeu
		taken = r1 >= r2
	default:
		return 0, raise(IllegalInstruction, uint64(insn))
	}
	if !taken {
		return h.pc + 4, nil
	}
	target := uint64(int64(h.pc) + immB(insn))
	if target&0b11 != 0 {
		return 0, raise(InstructionAddressMisaligned, target)
	}
	return target, nil
}

func (h *Hart) execLoad(insn uint32) (uint64, error) {
	addr := uint64(int64(h.Reg(rs1(insn))) + immI(insn))
	var val uint64
	switch funct3(insn) {
	case 0b000: // lb
		v, err := h.bus.Load(addr, 8)
		if err != nil {
			return 0, err
		}
		val = uint64(int64(int8(v)))
	case 0b001: // lh
		v, err := h.bus.Load(addr, 16)
		if err != nil {
			return 0, err
		}
		val = uint64(int64(int16(v)))
	case 0b010: // lw
		v, err := h.bus.Load(addr, 32)
		if err != nil {
			return 0, err
		}
		val = uint64(int64(int32(v)))
	case 0b011: // ld
		v, err := h.bus.Load(addr, 64)
		if err != nil {
			return 0, err
		}
		val = v
	case 0b100: // lbu
		v, err := h.bus.Load(addr, 8)
		if err != nil {
			return 0, err
		}
		val = v
	case 0b101: // lhu
		v, err := h.bus.Load(addr, 16)
		if err != nil {
			return 0, err
		}
		val = v
	case 0b110: // lwu
		v, err := h.bus.Load(addr, 32)
		if err != nil {
			return 0, err
		}
		val = v
	default:
		return 0, raise(IllegalInstruction, uint64(insn))
	}
	h.SetReg(rd(insn), val)
	return h.pc + 4, nil
}

func (h *Hart) execStore(insn uint32) (uint64, error) {
	addr := uint64(int64(h.Reg(rs1(insn))) + immS(insn))
	if h.stopOnZero && addr == 0 {
		h.Halted = true
		return h.pc, ErrHalt
	}
	val := h.Reg(rs2(insn))
	var err error
	switch funct3(insn) {
	case 0b000: // sb
		err = h.bus.Store(addr, 8, val)
	case 0b001: // sh
		err = h.bus.Store(addr, 16, val)
	case 0b010: // sw
		err = h.bus.Store(addr, 32, val)
	case 0b011: // sd
		err = h.bus.Store(addr, 64, val)
	default:
		return 0, raise(IllegalInstruction, uint64(insn))
	}
	if err != nil {
		return 0, err
	}
	return h.pc + 4, nil
}

func (h *Hart) execOpImm(insn uint32) (uint64, error) {
	r1 := h.Reg(rs1(insn))
	imm := immI(insn)
	sh := shamt(insn)
	var val uint64
	switch funct3(insn) {
	case 0b000: // addi
		val = uint64(int64(r1) + imm)
	case 0b010: // slti
		if int64(r1) < imm {
			val = 1
		}
	case 0b011: // sltiu
		if r1 < uint64(imm) {
			val = 1
		}
	case 0b100: // xori
		val = r1 ^ uint64(imm)
	case 0b110: // ori
		val = r1 | uint64(imm)
	case 0b111: // andi
		val = r1 & uint64(imm)
	case 0b001: // slli
		val = r1 << sh
	case 0b101: // srli/srai
		if funct7(insn)&0x20 != 0 {
			val = uint64(int64(r1) >> sh) // srai
		} else {
			val = r1 >> sh // srli
		}
	default:
		return 0, raise(IllegalInstruction, uint64(insn))
	}
	h.SetReg(rd(insn), val)
	return h.pc + 4, nil
}

func (h *Hart) execOpImm32(insn uint32) (uint64, error) {
	r1 := uint32(h.Reg(rs1(insn)))
	imm := int32(immI(insn))
	sh := shamt32(insn)
	var val int32
	switch funct3(insn) {
	case 0b000: // addiw
		val = int32(r1) + imm
	case 0b001: // slliw
		val = int32(r1 << sh)
	case 0b101: // srliw/sraiw
		if funct7(insn)&0x20 != 0 {
			val = int32(r1) >> sh // sraiw
		} else {
			val = int32(r1 >> sh) // srliw
		}
	default:
		return 0, raise(IllegalInstruction, uint64(insn))
	}
	h.SetReg(rd(insn), uint64(int64(val)))
	return h.pc + 4, nil
}

func (h *Hart) execOp(insn uint32) (uint64, error) {
	r1, r2 := h.Reg(rs1(insn)), h.Reg(rs2(insn))
	f7 := funct7(insn)
	var val uint64
	switch funct3(insn) {
	case 0b000: // add/sub
		if f7&0x20 != 0 {
			val = uint64(int64(r1) - int64(r2))
		} else {
			val = uint64(int64(r1) + int64(r2))
		}
	case 0b001: // sll
		val = r1 << (r2 & 0x3f)
	case 0b010: // slt
		if int64(r1) < int64(r2) {
			val = 1
		}
	case 0b011: // sltu
		if r1 < r2 {
			val = 1
		}
	case 0b100: // xor
		val = r1 ^ r2
	case 0b101: // srl/sra
		if f7&0x20 != 0 {
			val = uint64(int64(r1) >> (r2 & 0x3f))
		} else {
			val = r1 >> (r2 & 0x3f)
		}
	case 0b110: // or
		val = r1 | r2
	case 0b111: // and
		val = r1 & r2
	default:
		return 0, raise(IllegalInstruction, uint64(insn))
	}
	h.SetReg(rd(insn), val)
	return h.pc + 4, nil
}

func (h *Hart) execOp32(insn uint32) (uint64, error) {
	r1, r2 := uint32(h.Reg(rs1(insn))), uint32(h.Reg(rs2(insn)))
	f7 := funct7(insn)
	var val int32
	switch funct3(insn) {
	case 0b000: // addw/subw
		if f7&0x20 != 0 {
			val = int32(r1) - int32(r2)
		} else {
			val = int32(r1) + int32(r2)
		}
	case 0b001: // sllw
		val = int32(r1 << (r2 & 0x1f))
	case 0b101: // srlw/sraw
		if f7&0x20 != 0 {
			val = int32(r1) >> (r2 & 0x1f)
		} else {
			val = int32(r1 >> (r2 & 0x1f))
		}
	default:
		return 0, raise(IllegalInstruction, uint64(insn))
	}
	h.SetReg(rd(insn), uint64(int64(val)))
	return h.pc + 4, nil
}

// execSystem handles sfence.vma/ecall/ebreak/mret/sret and the Zicsr
// instructions, all of which share opSystem.
func (h *Hart) execSystem(insn uint32) (uint64, error) {
	f3 := funct3(insn)
	if f3 == 0 {
		switch insn {
		case 0x00000073: // ecall
			return 0, h.execEcall()
		case 0x00100073: // ebreak
			return 0, raise(Breakpoint, h.pc)
		case 0x30200073: // mret
			return h.execMret()
		case 0x10200073: // sret
			return h.execSret()
		default:
			if funct7(insn) == 0b0001001 {
				// sfence.vma: no-op, no MMU in this core.
				return h.pc + 4, nil
			}
			return 0, raise(IllegalInstruction, uint64(insn))
		}
	}
	return h.execCsr(insn, f3)
}

func (h *Hart) execEcall() error {
	switch h.mode {
	case User:
		return raise(EnvironmentCallFromUMode, 0)
	case Supervisor:
		return raise(EnvironmentCallFromSMode, 0)
	default:
		return raise(EnvironmentCallFromMMode, 0)
	}
}

func (h *Hart) execMret() (uint64, error) {
	if h.mode != Machine {
		return 0, raise(IllegalInstruction, 0)
	}
	mstatus := h.csr.regs[Mstatus]
	mpp := Mode((mstatus & statusMPP) >> statusMPPShift)

	if mstatus&statusMPIE != 0 {
		mstatus |= statusMIE
	} else {
		mstatus &^= statusMIE
	}
	mstatus |= statusMPIE
	mstatus &^= statusMPP
	if mpp != Machine {
		mstatus &^= statusMPRV
	}
	h.csr.regs[Mstatus] = mstatus

	h.mode = mpp
	return h.csr.regs[Mepc] &^ 0b11, nil
}

func (h *Hart) execSret() (uint64, error) {
	if h.mode < Supervisor {
		return 0, raise(IllegalInstruction, 0)
	}
	mstatus := h.csr.regs[Mstatus]
	spp := Mode((mstatus & statusSPP) >> 8)

	if mstatus&statusSPIE != 0 {
		mstatus |= statusSIE
	} else {
		mstatus &^= statusSIE
	}
	mstatus |= statusSPIE
	mstatus &^= statusSPP
	h.csr.regs[Mstatus] = mstatus

	h.mode = spp
	target := h.csr.regs[Sepc] &^ 0b11
	return target, nil
}

func (h *Hart) execCsr(insn uint32, f3 uint32) (uint64, error) {
	addr := uint16(insn >> 20)
	rdReg := rd(insn)
	rs1Reg := rs1(insn)

	if !h.csrAccessible(addr) {
		return 0, raise(IllegalInstruction, uint64(insn))
	}

	var operand uint64
	if f3&0x4 != 0 {
		operand = uint64(rs1Reg) // immediate forms: rs1 field is the 5-bit zimm
	} else {
		operand = h.Reg(rs1Reg)
	}

	old := h.csr.Read(addr)

	var write bool
	var newVal uint64
	switch f3 & 0x3 {
	case 0b01: // csrrw(i)
		newVal = operand
		write = true
	case 0b10: // csrrs(i)
		newVal = old | operand
		write = rs1Reg != 0
	case 0b11: // csrrc(i)
		newVal = old &^ operand
		write = rs1Reg != 0
	default:
		return 0, raise(IllegalInstruction, uint64(insn))
	}
	if write {
		h.csr.Write(addr, newVal)
	}
	h.SetReg(rdReg, old)
	return h.pc + 4, nil
}

// csrAccessible enforces the privilege level encoded in CSR bits
// [9:8]: a hart may access a CSR only if its current mode is at least
// that privileged.
func (h *Hart) csrAccessible(addr uint16) bool {
	required := Mode((addr >> 8) & 0x3)
	return h.mode >= required
}
