package hart

// CSR addresses named in the privileged architecture that this core cares
// about. Every other 12-bit address is still storage-backed, just unnamed.
const (
	Sstatus uint16 = 0x100
	Sie     uint16 = 0x104
	Stvec   uint16 = 0x105
	Sepc    uint16 = 0x141
	Scause  uint16 = 0x142
	Stval   uint16 = 0x143
	Sip     uint16 = 0x144
	Satp    uint16 = 0x180

	Mstatus uint16 = 0x300
	Medeleg uint16 = 0x302
	Mideleg uint16 = 0x303
	Mie     uint16 = 0x304
	Mtvec   uint16 = 0x305
	Mepc    uint16 = 0x341
	Mcause  uint16 = 0x342
	Mtval   uint16 = 0x343
	Mip     uint16 = 0x344
	Mhartid uint16 = 0xf14
)

// mstatus bit positions shared between the M-level register and its
// sstatus view.
const (
	statusSIE  uint64 = 1 << 1
	statusMIE  uint64 = 1 << 3
	statusSPIE uint64 = 1 << 5
	statusUBE  uint64 = 1 << 6
	statusMPIE uint64 = 1 << 7
	statusSPP  uint64 = 1 << 8
	statusMPPShift = 11
	statusMPP  uint64 = 3 << statusMPPShift
	statusFS   uint64 = 3 << 13
	statusXS   uint64 = 3 << 15
	statusSUM  uint64 = 1 << 18
	statusMXR  uint64 = 1 << 19
	statusMPRV uint64 = 1 << 17
	statusUXL  uint64 = 3 << 32
	statusSD   uint64 = 1 << 63
)

// maskSstatus selects the bits of mstatus visible through the sstatus
// alias: SIE | SPIE | UBE | SPP | FS | XS | SUM | MXR | UXL | SD.
const maskSstatus = statusSIE | statusSPIE | statusUBE | statusSPP | statusFS |
	statusXS | statusSUM | statusMXR | statusUXL | statusSD

// mip/mie interrupt-pending bit positions.
const (
	mipSSIP uint64 = 1 << 1
	mipMSIP uint64 = 1 << 3
	mipSTIP uint64 = 1 << 5
	mipMTIP uint64 = 1 << 7
	mipSEIP uint64 = 1 << 9
	mipMEIP uint64 = 1 << 11
)

// CsrFile is the 4096-entry control/status register bank. sie, sip and
// sstatus are never stored directly: they are computed views over
// mie/mip/mstatus on every access, so there is no place for the alias to
// skew from the bits it mirrors.
type CsrFile struct {
	regs [4096]uint64
}

// NewCsrFile returns a CSR bank with every register zeroed, matching the
// hart's reset state.
func NewCsrFile() *CsrFile {
	return &CsrFile{}
}

// Read returns the value of the named CSR, resolving the sie/sip/sstatus
// aliases on the fly.
func (c *CsrFile) Read(addr uint16) uint64 {
	switch addr {
	case Sie:
		return c.regs[Mie] & c.regs[Mideleg]
	case Sip:
		return c.regs[Mip] & c.regs[Mideleg]
	case Sstatus:
		return c.regs[Mstatus] & maskSstatus
	default:
		return c.regs[addr&0xfff]
	}
}

// Write stores value into the named CSR, masking sie/sip/sstatus writes
// down to the bits they are allowed to touch in mie/mip/mstatus.
func (c *CsrFile) Write(addr uint16, value uint64) {
	switch addr {
	case Sie:
		mideleg := c.regs[Mideleg]
		c.regs[Mie] = (c.regs[Mie] &^ mideleg) | (value & mideleg)
	case Sip:
		mideleg := c.regs[Mideleg]
		c.regs[Mip] = (c.regs[Mip] &^ mideleg) | (value & mideleg)
	case Sstatus:
		c.regs[Mstatus] = (c.regs[Mstatus] &^ uint64(maskSstatus)) | (value & maskSstatus)
	default:
		c.regs[addr&0xfff] = value
	}
}

// RawRead returns the direct-mapped storage for addr, bypassing alias
// resolution.
func (c *CsrFile) RawRead(addr uint16) uint64 {
	return c.regs[addr&0xfff]
}

// IsMedelegated reports whether bit `cause` of medeleg is set.
func (c *CsrFile) IsMedelegated(cause uint64) bool {
	return c.regs[Medeleg]&(1<<cause) != 0
}

// IsMidelegated reports whether bit `cause` of mideleg is set.
func (c *CsrFile) IsMidelegated(cause uint64) bool {
	return c.regs[Mideleg]&(1<<cause) != 0
}
