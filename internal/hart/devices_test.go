package hart

import "testing"

func TestClintRequires64BitAccess(t *testing.T) {
	c := NewClint()
	if _, err := c.Load(ClintBase+clintMtime, 32); err == nil {
		t.Fatalf("expected fault for 32-bit clint access")
	}
	if err := c.Store(ClintBase+clintMtimecmp, 32, 5); err == nil {
		t.Fatalf("expected fault for 32-bit clint store")
	}
}

func TestClintUnknownAddressFaults(t *testing.T) {
	c := NewClint()
	if _, err := c.Load(ClintBase+0x8, 64); err == nil {
		t.Fatalf("expected fault for unrecognized clint address")
	}
}

func TestPlicRequires32BitAccess(t *testing.T) {
	p := NewPlic()
	if _, err := p.Load(PlicBase+plicSEnable, 8); err == nil {
		t.Fatalf("expected fault for 8-bit plic access")
	}
}

func TestPlicUnknownAddressReadsZero(t *testing.T) {
	p := NewPlic()
	v, err := p.Load(PlicBase+0x500, 32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0 {
		t.Fatalf("unrecognized plic address = %d, want 0", v)
	}
	if err := p.Store(PlicBase+0x500, 32, 0xdead); err != nil {
		t.Fatalf("unexpected error on unrecognized store: %v", err)
	}
}

func TestPlicClaimClearsPending(t *testing.T) {
	p := NewPlic()
	p.SetPending(UartIRQ, true)
	p.Store(PlicBase+plicSEnable, 32, 1<<UartIRQ)

	claimed, err := p.Load(PlicBase+plicSClaim, 32)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed != UartIRQ {
		t.Fatalf("claimed = %d, want %d", claimed, UartIRQ)
	}
	if p.Pending() {
		t.Fatalf("pending should be clear after claim")
	}
}

func TestUartRequires8BitAccess(t *testing.T) {
	u := NewUart(nil, nil, nil)
	if _, err := u.Load(UartBase+uartLSR, 16); err == nil {
		t.Fatalf("expected fault for 16-bit uart access")
	}
}

func TestUartLSRReflectsDataReady(t *testing.T) {
	u := NewUart(nil, nil, nil)
	lsr, _ := u.Load(UartBase+uartLSR, 8)
	if lsr&uint64(lsrDataReady) != 0 {
		t.Fatalf("LSR data-ready should start clear")
	}

	// Simulate a byte having arrived without racing the reader goroutine
	// (input is nil here, so there is none).
	u.mu.Lock()
	u.rhr = 'x'
	u.lsr |= lsrDataReady
	u.mu.Unlock()

	lsr, _ = u.Load(UartBase+uartLSR, 8)
	if lsr&uint64(lsrDataReady) == 0 {
		t.Fatalf("LSR data-ready should be set")
	}

	v, err := u.Load(UartBase+uartRHR, 8)
	if err != nil {
		t.Fatalf("load rhr: %v", err)
	}
	if v != 'x' {
		t.Fatalf("rhr = %q, want 'x'", v)
	}

	lsr, _ = u.Load(UartBase+uartLSR, 8)
	if lsr&uint64(lsrDataReady) != 0 {
		t.Fatalf("LSR data-ready should clear after read")
	}
}

func TestBusRoutesToDevices(t *testing.T) {
	clint := NewClint()
	plic := NewPlic()
	uart := NewUart(nil, nil, nil)
	bus := NewBus(clint, plic, uart)

	if err := bus.Store(ClintBase+clintMtime, 64, 42); err != nil {
		t.Fatalf("store clint: %v", err)
	}
	v, err := bus.Load(ClintBase+clintMtime, 64)
	if err != nil || v != 42 {
		t.Fatalf("load clint: v=%d err=%v", v, err)
	}

	if err := bus.Store(DramBase+8, 32, 0xcafebabe); err != nil {
		t.Fatalf("store dram: %v", err)
	}
	v, err = bus.Load(DramBase+8, 32)
	if err != nil || v != 0xcafebabe {
		t.Fatalf("load dram: v=%#x err=%v", v, err)
	}

	if _, err := bus.Load(0x2000_0000, 8); err == nil {
		t.Fatalf("expected fault for unmapped address")
	}
}
