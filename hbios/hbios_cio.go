package hbios

import "github.com/sjk7-labs/hbiosemu/console"

// cioIn implements CIOIN (§4.4): a pending console byte is returned in
// E with A=0. With nothing pending, blocking mode polls the console
// (flushing pending output first) until a byte shows up; non-blocking
// mode sets waitingForInput and leaves every register untouched so
// the host can retry by re-entering dispatch once input arrives.
func cioIn(d *Dispatch) (int, bool) {
	if b, ok := d.Console.ReadByte(); ok {
		d.waitingForInput = false
		d.deliver(b)
		return NONE, true
	}

	if !d.Blocking {
		d.waitingForInput = true
		return NONE, false
	}

	d.flushOutput()
	for {
		if b, ok := d.Console.ReadByte(); ok {
			d.waitingForInput = false
			d.deliver(b)
			return NONE, true
		}
	}
}

// deliver writes a console byte into E, translating LF to CR.
func (d *Dispatch) deliver(b byte) {
	if b == 0x0A {
		b = 0x0D
	}
	d.reg().DE.Lo = b
}

// flushOutput drains any batched console output before a blocking
// wait, so a guest prompt is visible before CIOIN blocks.
func (d *Dispatch) flushOutput() {
	if drainer, ok := d.Console.(console.Drainer); ok {
		drainer.DrainOutput()
	}
}

// cioOut implements CIOOUT: E masked to 7 bits is written to Console.
func cioOut(d *Dispatch) (int, bool) {
	e := d.reg().DE.Lo
	d.Console.WriteByte(e & 0x7F)
	return NONE, true
}

// cioIst implements CIOIST: E = 0xFF if input is pending, else 0x00.
func cioIst(d *Dispatch) (int, bool) {
	if d.Console.HasInput() {
		d.reg().DE.Lo = 0xFF
	} else {
		d.reg().DE.Lo = 0x00
	}
	return NONE, true
}

// cioOst implements CIOOST: the console sink is always ready.
func cioOst(d *Dispatch) (int, bool) {
	d.reg().DE.Lo = 0xFF
	return NONE, true
}

// cioInit implements CIOINIT: there is nothing to initialize.
func cioInit(d *Dispatch) (int, bool) {
	return NONE, true
}

// cioQuery implements CIOQUERY: report one console device present.
func cioQuery(d *Dispatch) (int, bool) {
	d.reg().BC.Lo = 1
	return NONE, true
}

// cioDevice implements CIODEVICE: a single generic serial device, not
// a floppy, not removable.
func cioDevice(d *Dispatch) (int, bool) {
	d.reg().HL.Hi = 0x01 // device type: serial
	d.reg().HL.Lo = 0x00 // device number
	d.reg().DE.Hi = 0x00 // attribute byte
	return NONE, true
}
