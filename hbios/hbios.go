// Package hbios implements the RomWBW HBIOS function contract: the
// dispatch table guest firmware calls into for character I/O, disk
// I/O, the real-time clock, the DSKY/VDA/SND peripherals, and system
// services (bank control, bank-copy, peek/poke, reset).
//
// Dispatch is reached two ways (§4.4): the CpuCore pre-instruction
// hook when PC equals the configured main entry, or IoBus forwarding
// an OUT to the dispatch port. Both funnel into Dispatch.call; only
// the PC-trap path performs the simulated RET afterwards.
package hbios

import (
	"log/slog"

	"github.com/koron-go/z80"

	"github.com/sjk7-labs/hbiosemu/console"
	"github.com/sjk7-labs/hbiosemu/disk"
	"github.com/sjk7-labs/hbiosemu/memory"
)

// Result codes (§4.4). A holds one of these on return; Carry mirrors
// bit 7 of A.
const (
	NONE     = 0
	UNDEF    = -1
	NOTIMPL  = -2
	NOFUNC   = -3
	NOUNIT   = -4
	NOMEM    = -5
	RANGE    = -6
	NOMEDIA  = -7
	NOHW     = -8
	IO       = -9
	READONLY = -10
	TIMEOUT  = -11
	BADCFG   = -12
	INTERNAL = -13
)

// Function codes (B register). The disk-I/O range follows §4.4's
// table verbatim; it does not match every numbering found in earlier
// drafts of the firmware (§9 Open Questions), but duplicating a code
// across two operations is the one thing those drafts agree must not
// happen.
const (
	CIOIN     = 0x00
	CIOOUT    = 0x01
	CIOIST    = 0x02
	CIOOST    = 0x03
	CIOINIT   = 0x04
	CIOQUERY  = 0x05
	CIODEVICE = 0x06

	DIOSTATUS = 0x10
	DIORESET  = 0x11
	DIOSEEK   = 0x12
	DIOREAD   = 0x13
	DIOWRITE  = 0x14
	DIOVERIFY = 0x15
	DIOFORMAT = 0x16
	DIODEVICE = 0x17
	DIOMEDIA  = 0x18
	DIODEFMED = 0x19
	DIOCAP    = 0x1A
	DIOGEOM   = 0x1B

	RTCGETTIM = 0x20
	RTCSETTIM = 0x21
	RTCGETBYT = 0x22
	RTCSETBYT = 0x23
	RTCGETBLK = 0x24
	RTCSETBLK = 0x25
	RTCGETALA = 0x26
	RTCSETALA = 0x27
	RTCINIT   = 0x28
	RTCQUERY  = 0x29
	RTCDEVICE = 0x2A

	DSKYRESET  = 0x30
	DSKYSTATUS = 0x31
	DSKYGETKEY = 0x32
	DSKYSETLED = 0x33
	DSKYSETHEX = 0x34
	DSKYSETSEG = 0x35
	DSKYBEEP   = 0x36
	DSKYINIT   = 0x38
	DSKYQUERY  = 0x39
	DSKYDEVICE = 0x3A

	VDAINIT  = 0x40
	VDAQUERY = 0x41
	VDARESET = 0x42
	VDADEVICE = 0x43
	VDASCS   = 0x44
	VDASCP   = 0x45
	VDASAT   = 0x46
	VDASCO   = 0x47
	VDAWRC   = 0x48
	VDAFIL   = 0x49
	VDACPY   = 0x4A
	VDASCR   = 0x4B
	VDAKST   = 0x4C
	VDAKFL   = 0x4D
	VDAKRD   = 0x4E
	VDARDC   = 0x4F

	SNDRESET  = 0x50
	SNDVOL    = 0x51
	SNDPER    = 0x52
	SNDNOTE   = 0x53
	SNDPLAY   = 0x54
	SNDQUERY  = 0x55
	SNDDUR    = 0x56
	SNDDEVICE = 0x57
	SNDBEEP   = 0x58

	EXTSLICE = 0xE0

	SYSRESET  = 0xF0
	SYSVER    = 0xF1
	SYSSETBNK = 0xF2
	SYSGETBNK = 0xF3
	SYSSETCPY = 0xF4
	SYSBNKCPY = 0xF5
	SYSALLOC  = 0xF6
	SYSFREE   = 0xF7
	SYSGET    = 0xF8
	SYSSET    = 0xF9
	SYSPEEK   = 0xFA
	SYSPOKE   = 0xFB
	SYSINT    = 0xFC
)

// SYSGET/SYSSET sub-functions (C register).
const (
	SysGetCIOCnt   = 0x00
	SysGetCIODev   = 0x01
	SysGetDIOCnt   = 0x10
	SysGetDIODev   = 0x11
	SysGetRTCCnt   = 0x20
	SysGetRTCDev   = 0x21
	SysGetVDACnt   = 0x40
	SysGetVDADev   = 0x41
	SysGetSNDCnt   = 0x50
	SysGetSNDDev   = 0x51
	SysGetTimer    = 0xD0
	SysGetSecs     = 0xD1
	SysGetBootInfo = 0xD2
	SysGetCPUInfo  = 0xF0
	SysGetMemInfo  = 0xF1
	SysGetBnkInfo  = 0xF2
	SysGetDevList  = 0xFD
)

// reset types for SYSRESET (C register).
const (
	ResetInternal = 0
	ResetWarm     = 1
	ResetCold     = 2
	ResetUser     = 3
)

// DefaultMainEntry is the guest address that triggers dispatch via the
// PC-trap path when no override is configured.
const DefaultMainEntry = 0xFFF0

// Handler services one HBIOS function. It returns the result code to
// place in A, and whether the caller should perform the generic
// register writeback (A/Carry) and, for the PC-trap path, the
// simulated RET. writeback is false for the CIOIN no-input/non-blocking
// case (§5), which must leave every register untouched so the host can
// retry by re-entering dispatch, and for a warm or cold SYSRESET handed
// to a ResetCallback, which has already moved PC to the reset vector.
type Handler func(d *Dispatch) (code int, writeback bool)

// Config holds the HCB-derived facts SYSGET/SYSVER report. InitSequencer
// populates this after parsing the ROM's HCB.
type Config struct {
	CPUMHz        uint8
	CPUKHz        uint16
	BootVolume    uint8
	BootBank      uint8
	ConsoleDevice uint8
	RAMBanks      uint8
	ROMBanks      uint8
	BIOSBank      uint8
	UserBank      uint8
	CommonBank    uint8
	Version       uint8
}

// Dispatch implements the HBIOS function contract described in §4.4.
// It holds no CPU-independent state beyond per-unit disk LBAs (owned
// by disk.Store), the bank-copy scratch registers, and the
// waiting-for-input flag. The signal-port state lives on ioport.Bus.
type Dispatch struct {
	CPU     *z80.CPU
	Mem     *memory.Memory
	Disks   *disk.Store
	Console console.Console
	Logger  *slog.Logger

	Config Config

	// MainEntry is the guest PC that triggers dispatch on the
	// pre-instruction hook. Emulator sets it to the address it installs
	// its PC-trap breakpoint at; Dispatch itself never consults it.
	MainEntry uint16

	// Blocking selects CIOIN's behavior when no input is pending: wait
	// (flushing output first) rather than returning with
	// waitingForInput set.
	Blocking bool

	// ResetCallback is invoked by SYSRESET with the requested reset
	// type; it owns clearing console input, selecting ROM bank 0,
	// resetting PC, and clearing the shadow bitmap for warm/cold
	// resets.
	ResetCallback func(resetType uint8)

	waitingForInput bool

	// copySrc/copyDst/copyLen are SYSSETCPY's scratch, consumed by the
	// following SYSBNKCPY.
	copySrcBank memory.BankID
	copyDstBank memory.BankID
	copyLen     uint16

	handlers map[int]Handler
}

// New returns a Dispatch wired to the given memory, disk store, and
// console, with the default function table installed.
func New(mem *memory.Memory, disks *disk.Store, con console.Console, logger *slog.Logger) *Dispatch {
	d := &Dispatch{
		Mem:       mem,
		Disks:     disks,
		Console:   con,
		Logger:    logger,
		MainEntry: DefaultMainEntry,
		Blocking:  false,
	}
	d.handlers = d.buildTable()
	return d
}

// WaitingForInput reports whether a prior non-blocking CIOIN left the
// dispatch waiting for a byte that hadn't arrived yet.
func (d *Dispatch) WaitingForInput() bool {
	return d.waitingForInput
}

// HandleMainEntry services an HBIOS call reached via the PC-trap path
// (PC == MainEntry) and performs the simulated RET afterwards.
func (d *Dispatch) HandleMainEntry() {
	d.call(true)
}

// HandlePortDispatch services an HBIOS call reached via an OUT to the
// dispatch port; execution simply continues at the instruction
// following the OUT, so no RET is simulated.
func (d *Dispatch) HandlePortDispatch() {
	d.call(false)
}

func (d *Dispatch) call(viaPC bool) {
	fn := int(d.reg().BC.Hi)

	h, ok := d.handlers[fn]
	if !ok {
		if d.Logger != nil {
			d.Logger.Warn("unimplemented HBIOS function", slog.Int("fn", fn))
		}
		d.setResult(NOFUNC)
		if viaPC {
			d.simulatedRet()
		}
		return
	}

	code, writeback := h(d)
	if !writeback {
		return
	}

	d.setResult(code)
	if viaPC {
		d.simulatedRet()
	}
}

// reg is a short alias used throughout the family files; it exists
// purely so handler bodies read "d.reg().BC.Hi" instead of
// "d.CPU.States.BC.Hi".
func (d *Dispatch) reg() *z80.States {
	return &d.CPU.States
}

// setResult writes a result code into A and mirrors its sign into
// Carry (bit 7 of A set iff the code is negative).
func (d *Dispatch) setResult(code int) {
	b := uint8(int8(code))
	d.reg().AF.Hi = b
	if b&0x80 != 0 {
		d.reg().AF.Lo |= 0x01
	} else {
		d.reg().AF.Lo &^= 0x01
	}
}

// simulatedRet pops a return address from the guest stack into PC,
// exactly the way cpm.CPM's BIOS syscalls return (§4.4: "pop two bytes
// from SP, load into PC, advance SP by 2").
func (d *Dispatch) simulatedRet() {
	d.CPU.PC = d.Mem.GetU16(d.CPU.SP)
	d.CPU.SP += 2
}

func (d *Dispatch) buildTable() map[int]Handler {
	return map[int]Handler{
		CIOIN:     cioIn,
		CIOOUT:    cioOut,
		CIOIST:    cioIst,
		CIOOST:    cioOst,
		CIOINIT:   cioInit,
		CIOQUERY:  cioQuery,
		CIODEVICE: cioDevice,

		DIOSTATUS: dioStatus,
		DIORESET:  dioReset,
		DIOSEEK:   dioSeek,
		DIOREAD:   dioRead,
		DIOWRITE:  dioWrite,
		DIOVERIFY: dioVerify,
		DIOFORMAT: dioFormat,
		DIODEVICE: dioDevice,
		DIOMEDIA:  dioMedia,
		DIODEFMED: dioDefMed,
		DIOCAP:    dioCap,
		DIOGEOM:   dioGeom,

		EXTSLICE: extSlice,

		RTCGETTIM: rtcGetTim,
		RTCSETTIM: rtcNotImpl,
		RTCGETBYT: rtcNotImpl,
		RTCSETBYT: rtcNotImpl,
		RTCGETBLK: rtcNotImpl,
		RTCSETBLK: rtcNotImpl,
		RTCGETALA: rtcNotImpl,
		RTCSETALA: rtcNotImpl,
		RTCINIT:   rtcInit,
		RTCQUERY:  rtcQuery,
		RTCDEVICE: rtcDevice,

		DSKYRESET:  dskyOK,
		DSKYSTATUS: dskyNotImpl,
		DSKYGETKEY: dskyNotImpl,
		DSKYSETLED: dskyNotImpl,
		DSKYSETHEX: dskyNotImpl,
		DSKYSETSEG: dskyNotImpl,
		DSKYBEEP:   dskyOK,
		DSKYINIT:   dskyOK,
		DSKYQUERY:  dskyQuery,
		DSKYDEVICE: dskyDevice,

		VDAINIT:   vdaOK,
		VDAQUERY:  vdaQuery,
		VDARESET:  vdaOK,
		VDADEVICE: vdaDevice,
		VDASCS:    vdaNotImpl,
		VDASCP:    vdaNotImpl,
		VDASAT:    vdaNotImpl,
		VDASCO:    vdaNotImpl,
		VDAWRC:    vdaNotImpl,
		VDAFIL:    vdaNotImpl,
		VDACPY:    vdaNotImpl,
		VDASCR:    vdaNotImpl,
		VDAKST:    vdaNotImpl,
		VDAKFL:    vdaOK,
		VDAKRD:    vdaNotImpl,
		VDARDC:    vdaNotImpl,

		SNDRESET:  sndOK,
		SNDVOL:    sndNotImpl,
		SNDPER:    sndNotImpl,
		SNDNOTE:   sndNotImpl,
		SNDPLAY:   sndNotImpl,
		SNDQUERY:  sndQuery,
		SNDDUR:    sndNotImpl,
		SNDDEVICE: sndDevice,
		SNDBEEP:   sndNotImpl,

		SYSRESET:  sysReset,
		SYSVER:    sysVer,
		SYSSETBNK: sysSetBnk,
		SYSGETBNK: sysGetBnk,
		SYSSETCPY: sysSetCpy,
		SYSBNKCPY: sysBnkCpy,
		SYSALLOC:  sysAlloc,
		SYSFREE:   sysFree,
		SYSGET:    sysGet,
		SYSSET:    sysSet,
		SYSPEEK:   sysPeek,
		SYSPOKE:   sysPoke,
		SYSINT:    sysInt,
	}
}
