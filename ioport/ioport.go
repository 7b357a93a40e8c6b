// Package ioport implements the Z80 I/O port surface the emulator
// exposes to guest code: a bank-select port, the HBIOS dispatch port,
// and a signal port used by the proxy ROM during early init. It
// satisfies z80.IO with In/Out methods, except the dispatch logic
// itself lives behind a callback so this package has no dependency on
// the hbios package that supplies it.
package ioport

import "log/slog"

// Default port assignments, which New installs; they can be overridden
// afterwards through the Bus's port fields.
const (
	DefaultBankSelectPort = 0x78
	DefaultDispatchPort   = 0xEF
	DefaultSignalPort     = 0xEE
)

// Signal-port byte values for the simple (non dispatch-address) signals.
const (
	SignalEnable  = 0xFF
	SignalPreInit = 0xFE
	SignalStart   = 0x01
)

// signalState tracks the 3-byte dispatch-address registration state
// machine on the signal port: a family id byte, followed by the low
// then high byte of that family's handler address.
type signalState int

const (
	signalIdle signalState = iota
	signalHaveFamily
	signalHaveLow
)

// Bus is the port-mapped I/O surface for the emulator.
type Bus struct {
	// BankSelectPort, DispatchPort, SignalPort hold the currently
	// configured port numbers for each recognized function.
	BankSelectPort uint8
	DispatchPort   uint8
	SignalPort     uint8

	// StrictIO, when true, halts emulation on an access to an
	// unrecognized port instead of silently ignoring it.
	StrictIO bool

	// OnBankSelect is invoked with the byte written to the
	// bank-select port.
	OnBankSelect func(bank uint8)

	// OnDispatch is invoked whenever the guest writes to the dispatch
	// port; the byte written is not meaningful and is discarded.
	OnDispatch func()

	// OnHalt is invoked when StrictIO is set and an unrecognized port
	// is accessed; it should stop emulation. If nil, the access is
	// silently ignored even under strict mode.
	OnHalt func(port uint8, write bool)

	// Logger is used for diagnostic tracing of port accesses.
	Logger *slog.Logger

	sigState      signalState
	sigFamily     uint8
	sigLow        uint8
	dispatchAddrs map[uint8]uint16
}

// New returns a Bus configured with the default port assignments.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		BankSelectPort: DefaultBankSelectPort,
		DispatchPort:   DefaultDispatchPort,
		SignalPort:     DefaultSignalPort,
		Logger:         logger,
		dispatchAddrs:  make(map[uint8]uint16),
	}
}

// In handles a guest IN instruction. Only unrecognized ports reach
// here in practice; recognized ports are all write-only, so reads from
// them fall through to the "no hardware present" default like
// everything else.
func (b *Bus) In(port uint8) uint8 {
	if b.Logger != nil {
		b.Logger.Debug("io in", slog.Int("port", int(port)))
	}

	if b.StrictIO && !b.recognized(port) {
		if b.OnHalt != nil {
			b.OnHalt(port, false)
		}
	}

	return 0xFF
}

// Out handles a guest OUT instruction.
func (b *Bus) Out(port uint8, val uint8) {
	if b.Logger != nil {
		b.Logger.Debug("io out", slog.Int("port", int(port)), slog.Int("val", int(val)))
	}

	switch port {
	case b.BankSelectPort:
		if b.OnBankSelect != nil {
			b.OnBankSelect(val)
		}
	case b.DispatchPort:
		if b.OnDispatch != nil {
			b.OnDispatch()
		}
	case b.SignalPort:
		b.handleSignal(val)
	default:
		if b.StrictIO && b.OnHalt != nil {
			b.OnHalt(port, true)
		}
	}
}

func (b *Bus) recognized(port uint8) bool {
	return port == b.BankSelectPort || port == b.DispatchPort || port == b.SignalPort
}

// handleSignal drives the signal port's state machine: the three
// simple one-shot signals (enable/pre-init/start) reset any in-flight
// dispatch-address registration, while any other byte is interpreted
// as the next step of that 3-byte registration sequence (family id,
// address low byte, address high byte).
func (b *Bus) handleSignal(val uint8) {
	switch val {
	case SignalEnable, SignalPreInit, SignalStart:
		b.sigState = signalIdle
		return
	}

	switch b.sigState {
	case signalIdle:
		b.sigFamily = val
		b.sigState = signalHaveFamily
	case signalHaveFamily:
		b.sigLow = val
		b.sigState = signalHaveLow
	case signalHaveLow:
		addr := uint16(val)<<8 | uint16(b.sigLow)
		b.dispatchAddrs[b.sigFamily] = addr
		b.sigState = signalIdle
	}
}

// DispatchAddresses returns the per-family dispatch addresses the
// proxy ROM has registered via the signal port, keyed by family id.
// Purely informational (§4.2); nothing in dispatch behavior depends
// on it.
func (b *Bus) DispatchAddresses() map[uint8]uint16 {
	out := make(map[uint8]uint16, len(b.dispatchAddrs))
	for k, v := range b.dispatchAddrs {
		out[k] = v
	}
	return out
}
