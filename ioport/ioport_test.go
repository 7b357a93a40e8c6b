package ioport

import "testing"

func TestBankSelectDispatches(t *testing.T) {
	b := New(nil)

	var got uint8
	b.OnBankSelect = func(bank uint8) { got = bank }

	b.Out(b.BankSelectPort, 0x8E)
	if got != 0x8E {
		t.Fatalf("expected bank select callback with 0x8E, got 0x%02X", got)
	}
}

func TestDispatchPortFires(t *testing.T) {
	b := New(nil)

	fired := false
	b.OnDispatch = func() { fired = true }

	b.Out(b.DispatchPort, 0x00)
	if !fired {
		t.Fatalf("expected dispatch callback to fire")
	}
}

func TestUnrecognizedPortDefaultsIgnored(t *testing.T) {
	b := New(nil)

	halted := false
	b.OnHalt = func(port uint8, write bool) { halted = true }

	b.Out(0x99, 0x01)
	if halted {
		t.Fatalf("non-strict mode must not halt on unrecognized port")
	}
	if b.In(0x99) != 0xFF {
		t.Fatalf("unrecognized port read must return 0xFF")
	}
}

func TestStrictIOHaltsOnUnrecognizedPort(t *testing.T) {
	b := New(nil)
	b.StrictIO = true

	var haltedPort uint8
	var haltedWrite bool
	b.OnHalt = func(port uint8, write bool) {
		haltedPort = port
		haltedWrite = write
	}

	b.Out(0x99, 0x01)
	if haltedPort != 0x99 || !haltedWrite {
		t.Fatalf("expected strict-io halt on write to unrecognized port")
	}

	b.In(0x99)
	if haltedPort != 0x99 || haltedWrite {
		t.Fatalf("expected strict-io halt on read from unrecognized port")
	}
}

func TestSignalPortSimpleSignalsDoNotRegisterAddresses(t *testing.T) {
	b := New(nil)

	b.Out(b.SignalPort, SignalEnable)
	b.Out(b.SignalPort, SignalPreInit)
	b.Out(b.SignalPort, SignalStart)

	if len(b.DispatchAddresses()) != 0 {
		t.Fatalf("simple signals must not register a dispatch address")
	}
}

func TestSignalPortDispatchAddressRegistration(t *testing.T) {
	b := New(nil)

	// Register family 0x02 (RTC) -> address 0x1234.
	b.Out(b.SignalPort, 0x02)
	b.Out(b.SignalPort, 0x34)
	b.Out(b.SignalPort, 0x12)

	addrs := b.DispatchAddresses()
	if addrs[0x02] != 0x1234 {
		t.Fatalf("expected family 0x02 to register address 0x1234, got 0x%04X", addrs[0x02])
	}
}

func TestSignalPortResetsOnSimpleSignalMidSequence(t *testing.T) {
	b := New(nil)

	b.Out(b.SignalPort, 0x02) // family byte
	b.Out(b.SignalPort, SignalEnable)
	b.Out(b.SignalPort, 0x34)
	b.Out(b.SignalPort, 0x12)

	if len(b.DispatchAddresses()) != 0 {
		t.Fatalf("an interrupted registration sequence must not register anything")
	}
}
