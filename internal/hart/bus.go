package hart

// Bus is the address decoder: it owns Dram and the device set and
// dispatches load/store by address range. No other component reaches
// inside a device directly.
type Bus struct {
	Dram  *Dram
	Clint *Clint
	Plic  *Plic
	Uart  *Uart
}

// NewBus wires up a fresh Dram alongside the given devices.
func NewBus(clint *Clint, plic *Plic, uart *Uart) *Bus {
	return &Bus{
		Dram:  NewDram(),
		Clint: clint,
		Plic:  plic,
		Uart:  uart,
	}
}

// Load routes a load of the given bit-width to whichever region
// contains addr, or raises LoadAccessFault if none does.
func (b *Bus) Load(addr uint64, size int) (uint64, error) {
	switch {
	case addr >= ClintBase && addr < ClintBase+ClintSize:
		return b.Clint.Load(addr, size)
	case addr >= PlicBase && addr < PlicBase+PlicSize:
		return b.Plic.Load(addr, size)
	case addr >= UartBase && addr < UartBase+UartSize:
		return b.Uart.Load(addr, size)
	case addr >= DramBase && addr < DramBase+DramSize:
		return b.Dram.Load(addr, size)
	default:
		return 0, raise(LoadAccessFault, addr)
	}
}

// Store routes a store of the given bit-width to whichever region
// contains addr, or raises StoreAMOAccessFault if none does.
func (b *Bus) Store(addr uint64, size int, value uint64) error {
	switch {
	case addr >= ClintBase && addr < ClintBase+ClintSize:
		return b.Clint.Store(addr, size, value)
	case addr >= PlicBase && addr < PlicBase+PlicSize:
		return b.Plic.Store(addr, size, value)
	case addr >= UartBase && addr < UartBase+UartSize:
		return b.Uart.Store(addr, size, value)
	case addr >= DramBase && addr < DramBase+DramSize:
		return b.Dram.Store(addr, size, value)
	default:
		return raise(StoreAMOAccessFault, addr)
	}
}

// Fetch reads a 32-bit instruction word at addr. Fetch is always a
// 32-bit-wide bus load: some revisions of the original source pass a
// byte-width of 32 here by mistake, but the intended width is 32 bits.
func (b *Bus) Fetch(addr uint64) (uint32, error) {
	v, err := b.Load(addr, 32)
	if err != nil {
		if t, ok := asTrap(err); ok {
			return 0, raise(InstructionAccessFault, t.Value)
		}
		return 0, err
	}
	return uint32(v), nil
}
