package hbios

// dskyOK covers DSKYRESET/DSKYBEEP/DSKYINIT: no DSKY hardware is
// modeled (§1 Non-goals), so these succeed as no-ops.
func dskyOK(d *Dispatch) (int, bool) {
	return NONE, true
}

// dskyNotImpl covers the DSKY input/display functions: there is no
// physical display or keypad behind this emulator.
func dskyNotImpl(d *Dispatch) (int, bool) {
	return NOTIMPL, true
}

// dskyQuery implements DSKYQUERY: zero DSKY devices present.
func dskyQuery(d *Dispatch) (int, bool) {
	d.reg().BC.Lo = 0
	return NONE, true
}

// dskyDevice implements DSKYDEVICE: no device at this index.
func dskyDevice(d *Dispatch) (int, bool) {
	return NOUNIT, true
}
