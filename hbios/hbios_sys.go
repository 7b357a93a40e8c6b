package hbios

import "github.com/sjk7-labs/hbiosemu/memory"

// sysReset implements SYSRESET (§4.4): clears Dispatch's own
// waiting-for-input flag, then invokes the host-supplied reset
// callback with the reset type in C. The rest of the reset — clearing
// console input, selecting ROM bank 0, zeroing PC, and clearing the
// shadow bitmap — is the callback's (Emulator's) responsibility. For a
// warm or cold reset handed to a callback, no writeback or simulated
// RET follows, so the PC the callback set is kept.
func sysReset(d *Dispatch) (int, bool) {
	resetType := d.reg().BC.Lo
	d.waitingForInput = false
	if d.ResetCallback != nil {
		d.ResetCallback(resetType)
		if resetType == ResetWarm || resetType == ResetCold {
			return NONE, false
		}
	}
	return NONE, true
}

// sysVer implements SYSVER: HL = HBIOS version, in the conventional
// major.minor packed-BCD form; A is the generic result code.
func sysVer(d *Dispatch) (int, bool) {
	d.reg().HL.Hi = d.Config.Version
	d.reg().HL.Lo = 0x00
	return NONE, true
}

// sysSetBnk implements SYSSETBNK: sets current_bank to E, returning
// the previous bank in C. Selecting a RAM bank for the first time
// fires MemBus's RAM-bank-activation callback (wired by InitSequencer
// via memory.Memory.OnRAMBankActivate), which is how lazy per-bank
// page-zero/HCB seeding happens.
func sysSetBnk(d *Dispatch) (int, bool) {
	prev := d.Mem.CurrentBank()
	d.Mem.SelectBank(memory.BankID(d.reg().DE.Lo))
	d.reg().BC.Lo = uint8(prev)
	return NONE, true
}

// sysGetBnk implements SYSGETBNK: returns current_bank in C.
func sysGetBnk(d *Dispatch) (int, bool) {
	d.reg().BC.Lo = uint8(d.Mem.CurrentBank())
	return NONE, true
}

// sysSetCpy implements SYSSETCPY: stashes the bank-copy parameters
// (dest bank D, source bank E, length HL) for the SYSBNKCPY call that
// follows.
func sysSetCpy(d *Dispatch) (int, bool) {
	d.copyDstBank = memory.BankID(d.reg().DE.Hi)
	d.copySrcBank = memory.BankID(d.reg().DE.Lo)
	d.copyLen = d.reg().HL.U16()
	return NONE, true
}

// sysBnkCpy implements SYSBNKCPY: transfers copyLen bytes from
// (copySrcBank, HL) to (copyDstBank, DE), both via the explicit-bank
// accessors so the copy is correct regardless of which bank is
// currently selected — the mechanism the boot loader relies on to
// move OS images from ROM bank 1 into RAM bank 0x8E (§4.4).
func sysBnkCpy(d *Dispatch) (int, bool) {
	src := d.reg().HL.U16()
	dst := d.reg().DE.U16()
	for i := uint16(0); i < d.copyLen; i++ {
		v := d.Mem.ReadBank(d.copySrcBank, src+i)
		d.Mem.WriteBank(d.copyDstBank, dst+i, v)
	}
	return NONE, true
}

// sysAlloc and sysFree implement SYSALLOC/SYSFREE: this emulator never
// hands out dynamic HBIOS allocations, since every bank is already
// statically sized.
func sysAlloc(d *Dispatch) (int, bool) {
	return NOMEM, true
}

func sysFree(d *Dispatch) (int, bool) {
	return NONE, true
}

// sysGet implements SYSGET (§4.4): sub-function in C selects which
// device-table count/pointer or fixed system fact to return. The
// BootInfo/CPUInfo facts come from boot.Sequencer.readHCBFacts, which
// parses them out of the ROM's HCB at init time.
func sysGet(d *Dispatch) (int, bool) {
	switch d.reg().BC.Lo {
	case SysGetCIOCnt:
		d.reg().DE.Lo = 1
	case SysGetCIODev:
		d.reg().HL.SetU16(0)
	case SysGetDIOCnt:
		d.reg().DE.Lo = uint8(d.Disks.Count())
	case SysGetDIODev:
		d.reg().HL.SetU16(0)
	case SysGetRTCCnt:
		d.reg().DE.Lo = 1
	case SysGetRTCDev:
		d.reg().HL.SetU16(0)
	case SysGetVDACnt:
		d.reg().DE.Lo = 0
	case SysGetVDADev:
		d.reg().HL.SetU16(0)
	case SysGetSNDCnt:
		d.reg().DE.Lo = 0
	case SysGetSNDDev:
		d.reg().HL.SetU16(0)
	case SysGetTimer:
		d.reg().HL.SetU16(0)
	case SysGetSecs:
		d.reg().HL.SetU16(0)
	case SysGetBootInfo:
		d.reg().DE.Hi = d.Config.BootVolume
		d.reg().DE.Lo = d.Config.BootBank
		d.reg().HL.Lo = d.Config.ConsoleDevice
	case SysGetCPUInfo:
		d.reg().BC.Lo = d.Config.CPUMHz
		d.reg().HL.SetU16(d.Config.CPUKHz)
	case SysGetMemInfo:
		d.reg().DE.Hi = d.Config.RAMBanks
		d.reg().DE.Lo = d.Config.ROMBanks
	case SysGetBnkInfo:
		d.reg().HL.Hi = d.Config.BIOSBank
		d.reg().HL.Lo = d.Config.UserBank
		d.reg().DE.Hi = d.Config.CommonBank
	case SysGetDevList:
		d.reg().DE.Lo = uint8(d.Disks.Count())
	default:
		return UNDEF, true
	}
	return NONE, true
}

// sysSet implements SYSSET: this implementation exposes no mutable
// system-info sub-functions.
func sysSet(d *Dispatch) (int, bool) {
	return UNDEF, true
}

// sysPeek implements SYSPEEK: a single-byte read at (bank D, addr HL),
// via the explicit-bank accessor so current_bank is never disturbed.
func sysPeek(d *Dispatch) (int, bool) {
	bank := memory.BankID(d.reg().DE.Hi)
	addr := d.reg().HL.U16()
	d.reg().BC.Lo = d.Mem.ReadBank(bank, addr)
	return NONE, true
}

// sysPoke implements SYSPOKE: the write-side counterpart of sysPeek.
func sysPoke(d *Dispatch) (int, bool) {
	bank := memory.BankID(d.reg().DE.Hi)
	addr := d.reg().HL.U16()
	d.Mem.WriteBank(bank, addr, d.reg().BC.Lo)
	return NONE, true
}

// sysInt implements SYSINT: interrupt management is not modeled; the
// guest ROMs this emulator targets run with interrupts masked.
func sysInt(d *Dispatch) (int, bool) {
	return NOTIMPL, true
}
