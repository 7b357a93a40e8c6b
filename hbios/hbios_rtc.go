package hbios

import "time"

// rtcGetTim implements RTCGETTIM against the host clock, in plain
// binary rather than BCD: H = year - 2000, L = month, D = day, B =
// hour, C = minute. Seconds are not reported. No NVRAM register layout
// is modeled (out of scope, §1 Non-goals: specific hardware
// registers).
func rtcGetTim(d *Dispatch) (int, bool) {
	now := time.Now()
	d.reg().HL.Hi = uint8(now.Year() - 2000)
	d.reg().HL.Lo = uint8(now.Month())
	d.reg().DE.Hi = uint8(now.Day())
	d.reg().BC.Hi = uint8(now.Hour())
	d.reg().BC.Lo = uint8(now.Minute())
	return NONE, true
}

// rtcNotImpl covers NVRAM byte/block and alarm access: there is no
// modeled NVRAM store.
func rtcNotImpl(d *Dispatch) (int, bool) {
	return NOTIMPL, true
}

// rtcInit implements RTCINIT: nothing to initialize.
func rtcInit(d *Dispatch) (int, bool) {
	return NONE, true
}

// rtcQuery implements RTCQUERY: one RTC device present.
func rtcQuery(d *Dispatch) (int, bool) {
	d.reg().BC.Lo = 1
	return NONE, true
}

// rtcDevice implements RTCDEVICE.
func rtcDevice(d *Dispatch) (int, bool) {
	d.reg().HL.Hi = 0x01
	d.reg().HL.Lo = 0x00
	return NONE, true
}
