package hbios

// vdaOK covers VDARESET and other no-op-acceptable VDA functions: no
// video adapter hardware is modeled (§1 Non-goals).
func vdaOK(d *Dispatch) (int, bool) {
	return NONE, true
}

// vdaNotImpl covers the drawing/keyboard functions a real VDA would
// implement.
func vdaNotImpl(d *Dispatch) (int, bool) {
	return NOTIMPL, true
}

// vdaQuery implements VDAQUERY: zero VDA devices present.
func vdaQuery(d *Dispatch) (int, bool) {
	d.reg().BC.Lo = 0
	return NONE, true
}

// vdaDevice implements VDADEVICE: no device at this index.
func vdaDevice(d *Dispatch) (int, bool) {
	return NOUNIT, true
}
