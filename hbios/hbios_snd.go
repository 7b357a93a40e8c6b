package hbios

// sndOK implements SNDRESET: no sound hardware is modeled (§1
// Non-goals), so reset always succeeds.
func sndOK(d *Dispatch) (int, bool) {
	return NONE, true
}

// sndNotImpl covers volume/period/note/play/duration/beep: nothing to
// drive.
func sndNotImpl(d *Dispatch) (int, bool) {
	return NOTIMPL, true
}

// sndQuery implements SNDQUERY: zero sound devices present.
func sndQuery(d *Dispatch) (int, bool) {
	d.reg().BC.Lo = 0
	return NONE, true
}

// sndDevice implements SNDDEVICE: no device at this index.
func sndDevice(d *Dispatch) (int, bool) {
	return NOUNIT, true
}
