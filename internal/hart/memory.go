package hart

import "encoding/binary"

// Fixed memory map, per the architecture's fixed constants.
const (
	DramBase uint64 = 0x8000_0000
	DramSize uint64 = 128 * 1024 * 1024
	DramEnd  uint64 = DramBase + DramSize

	ClintBase uint64 = 0x0200_0000
	ClintSize uint64 = 0x10000

	PlicBase uint64 = 0x0c00_0000
	PlicSize uint64 = 0x0400_0000

	UartBase uint64 = 0x1000_0000
	UartSize uint64 = 0x100

	UartIRQ = 10
)

var byteOrder = binary.LittleEndian

// Dram is a flat byte-addressed main memory region starting at DramBase.
// Loads and stores are little-endian and size-checked against DramSize.
type Dram struct {
	data []byte
}

// NewDram returns a zero-initialized Dram of DramSize bytes.
func NewDram() *Dram {
	return &Dram{data: make([]byte, DramSize)}
}

// LoadImage copies image into Dram starting at offset 0 (DramBase).
func (d *Dram) LoadImage(image []byte) {
	copy(d.data, image)
}

func sizeBytes(size int) (int, bool) {
	switch size {
	case 8:
		return 1, true
	case 16:
		return 2, true
	case 32:
		return 4, true
	case 64:
		return 8, true
	default:
		return 0, false
	}
}

// Load reads a `size`-bit (8/16/32/64) little-endian value at addr,
// zero-extended to 64 bits.
func (d *Dram) Load(addr uint64, size int) (uint64, error) {
	n, ok := sizeBytes(size)
	if !ok {
		return 0, raise(LoadAccessFault, addr)
	}
	if addr < DramBase || addr-DramBase+uint64(n) > DramSize {
		return 0, raise(LoadAccessFault, addr)
	}
	off := addr - DramBase
	switch n {
	case 1:
		return uint64(d.data[off]), nil
	case 2:
		return uint64(byteOrder.Uint16(d.data[off:])), nil
	case 4:
		return uint64(byteOrder.Uint32(d.data[off:])), nil
	default:
		return byteOrder.Uint64(d.data[off:]), nil
	}
}

// Store writes the low `size` bits of value, little-endian, at addr.
func (d *Dram) Store(addr uint64, size int, value uint64) error {
	n, ok := sizeBytes(size)
	if !ok {
		return raise(StoreAMOAccessFault, addr)
	}
	if addr < DramBase || addr-DramBase+uint64(n) > DramSize {
		return raise(StoreAMOAccessFault, addr)
	}
	off := addr - DramBase
	switch n {
	case 1:
		d.data[off] = byte(value)
	case 2:
		byteOrder.PutUint16(d.data[off:], uint16(value))
	case 4:
		byteOrder.PutUint32(d.data[off:], uint32(value))
	default:
		byteOrder.PutUint64(d.data[off:], value)
	}
	return nil
}
