package hart

import "fmt"

// Cause identifies why a trap was raised. Exception causes occupy the low
// bits; interrupt causes additionally set the top bit.
type Cause uint64

const interruptBit Cause = 1 << 63

// Exception causes, numbered per the privileged architecture.
const (
	InstructionAddressMisaligned Cause = 0
	InstructionAccessFault       Cause = 1
	IllegalInstruction            Cause = 2
	Breakpoint                    Cause = 3
	LoadAddressMisaligned         Cause = 4
	LoadAccessFault                Cause = 5
	StoreAMOAddressMisaligned      Cause = 6
	StoreAMOAccessFault            Cause = 7
	EnvironmentCallFromUMode       Cause = 8
	EnvironmentCallFromSMode       Cause = 9
	EnvironmentCallFromMMode       Cause = 11
	InstructionPageFault           Cause = 12
	LoadPageFault                  Cause = 13
	StoreAMOPageFault              Cause = 15
)

// Interrupt causes, with the interrupt bit already set.
const (
	SupervisorSoftwareInterrupt Cause = interruptBit | 1
	MachineSoftwareInterrupt    Cause = interruptBit | 3
	SupervisorTimerInterrupt    Cause = interruptBit | 5
	MachineTimerInterrupt       Cause = interruptBit | 7
	SupervisorExternalInterrupt Cause = interruptBit | 9
	MachineExternalInterrupt    Cause = interruptBit | 11
)

// IsInterrupt reports whether cause describes an asynchronous interrupt
// rather than a synchronous exception.
func (c Cause) IsInterrupt() bool {
	return c&interruptBit != 0
}

// Code returns the architectural cause code with the interrupt bit stripped.
func (c Cause) Code() uint64 {
	return uint64(c &^ interruptBit)
}

// fatal reports whether this exception terminates the run if it recurs
// while a trap handler is being entered.
func (c Cause) fatal() bool {
	switch c {
	case InstructionAddressMisaligned, InstructionAccessFault, IllegalInstruction,
		LoadAddressMisaligned, LoadAccessFault,
		StoreAMOAddressMisaligned, StoreAMOAccessFault:
		return true
	default:
		return false
	}
}

// Trap is an architectural exception or interrupt: a cause plus the
// associated trap value (faulting address, illegal instruction word, or 0).
type Trap struct {
	Cause Cause
	Value uint64
}

func (t *Trap) Error() string {
	return fmt.Sprintf("trap: cause=%#x value=%#x", uint64(t.Cause), t.Value)
}

// raise constructs an architectural trap as an error value.
func raise(cause Cause, value uint64) error {
	return &Trap{Cause: cause, Value: value}
}

// asTrap reports whether err is an architectural trap, returning it typed.
func asTrap(err error) (*Trap, bool) {
	t, ok := err.(*Trap)
	return t, ok
}
