package hart

import (
	"bufio"
	"io"
	"log/slog"
	"sync"
)

// Uart register byte offsets, relative to UartBase.
const (
	uartRHR uint64 = 0 // receive holding register (read)
	uartTHR uint64 = 0 // transmit holding register (write)
	uartLCR uint64 = 3 // line control register
	uartLSR uint64 = 5 // line status register
)

// LSR bits.
const (
	lsrDataReady  uint8 = 1 << 0
	lsrThrEmpty   uint8 = 1 << 5
)

// Uart is a 16550-style serial port. A background goroutine reads bytes
// from a host input stream into a single-slot buffer; it blocks on a
// condition variable while that slot is full. All register access is
// serialized through a mutex, the only shared mutable resource in the
// system. The interrupt flag is "take-once": IsInterrupting() atomically
// reads and clears it.
type Uart struct {
	mu   sync.Mutex
	cond *sync.Cond

	rhr      uint8
	lsr      uint8
	lcr      uint8
	reg      [UartSize]byte
	interrupting bool

	out io.Writer
	log *slog.Logger
}

// NewUart starts the background reader over in and returns a Uart that
// writes transmitted bytes to out. A nil in disables the reader thread
// (the RHR simply never fills).
func NewUart(in io.Reader, out io.Writer, log *slog.Logger) *Uart {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	u := &Uart{
		lsr: lsrThrEmpty,
		out: out,
		log: log,
	}
	u.cond = sync.NewCond(&u.mu)
	if in != nil {
		go u.readLoop(in)
	}
	return u
}

// readLoop is the host-input reader thread: the only producer in the
// system. It blocks while the single-byte slot is full and signals the
// interrupt line each time it delivers a byte.
func (u *Uart) readLoop(in io.Reader) {
	r := bufio.NewReader(in)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return
		}

		u.mu.Lock()
		for u.lsr&lsrDataReady != 0 {
			u.cond.Wait()
		}
		u.rhr = b
		u.lsr |= lsrDataReady
		u.interrupting = true
		u.log.Debug("uart rx", "byte", b)
		u.mu.Unlock()
	}
}

// IsInterrupting atomically reads and clears the take-once interrupt
// flag the hart samples once per instruction.
func (u *Uart) IsInterrupting() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	pending := u.interrupting
	u.interrupting = false
	return pending
}

// Load implements the 8-bit-only device contract.
func (u *Uart) Load(addr uint64, size int) (uint64, error) {
	if size != 8 {
		return 0, raise(LoadAccessFault, addr)
	}
	off := addr - UartBase

	u.mu.Lock()
	defer u.mu.Unlock()

	switch off {
	case uartRHR:
		data := u.rhr
		u.lsr &^= lsrDataReady
		u.cond.Signal()
		return uint64(data), nil
	case uartLCR:
		return uint64(u.lcr), nil
	case uartLSR:
		return uint64(u.lsr), nil
	default:
		return uint64(u.reg[off]), nil
	}
}

// Store implements the 8-bit-only device contract.
func (u *Uart) Store(addr uint64, size int, value uint64) error {
	if size != 8 {
		return raise(StoreAMOAccessFault, addr)
	}
	off := addr - UartBase
	b := byte(value)

	u.mu.Lock()
	defer u.mu.Unlock()

	switch off {
	case uartTHR:
		if u.out != nil {
			u.out.Write([]byte{b})
			if f, ok := u.out.(interface{ Flush() error }); ok {
				f.Flush()
			}
		}
	case uartLCR:
		u.lcr = b
	default:
		u.reg[off] = b
	}
	return nil
}
