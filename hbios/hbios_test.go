package hbios

import (
	"testing"

	"github.com/koron-go/z80"

	"github.com/sjk7-labs/hbiosemu/console"
	"github.com/sjk7-labs/hbiosemu/disk"
	"github.com/sjk7-labs/hbiosemu/memory"
)

func newTestDispatch(t *testing.T) (*Dispatch, *z80.CPU, *memory.Memory) {
	t.Helper()

	mem := &memory.Memory{}
	mem.EnableBanking()

	disks := disk.New()
	con, err := console.New("queue")
	if err != nil {
		t.Fatalf("failed to create queue console: %s", err)
	}

	cpu := &z80.CPU{Memory: mem}
	d := New(mem, disks, con, nil)
	d.CPU = cpu
	return d, cpu, mem
}

// Invariant 6: SYSSETBNK(b); SYSGETBNK() returns b in C.
func TestSysSetGetBnkRoundTrip(t *testing.T) {
	d, cpu, _ := newTestDispatch(t)

	cpu.States.DE.Lo = uint8(memory.UserBank)
	sysSetBnk(d)

	sysGetBnk(d)
	if memory.BankID(cpu.States.BC.Lo) != memory.UserBank {
		t.Fatalf("expected bank 0x%02X, got 0x%02X", memory.UserBank, cpu.States.BC.Lo)
	}
}

// Invariant 7: SYSSETCPY(d,s,n); SYSBNKCPY(src,dst) copies n bytes
// between the explicit banks.
func TestSysBankCopy(t *testing.T) {
	d, cpu, mem := newTestDispatch(t)

	rom := make([]byte, 2*memory.BankSize)
	for i := 0; i < 16; i++ {
		rom[memory.BankSize+0xD000+i] = uint8(0x40 + i)
	}
	mem.LoadROM(rom)

	cpu.States.DE.Hi = uint8(memory.UserBank) // dest bank
	cpu.States.DE.Lo = uint8(memory.IMG0)     // source bank
	cpu.States.HL.SetU16(16)                  // length
	sysSetCpy(d)

	cpu.States.HL.SetU16(0xD000) // source addr
	cpu.States.DE.SetU16(0xD000) // dest addr
	sysBnkCpy(d)

	for i := 0; i < 16; i++ {
		got := mem.ReadBank(memory.UserBank, 0xD000+uint16(i))
		want := mem.ReadBank(memory.IMG0, 0xD000+uint16(i))
		if got != want {
			t.Fatalf("byte %d: bank copy mismatch, got 0x%02X want 0x%02X", i, got, want)
		}
	}
}

// Invariants 8 & 9: seek/read/write round-trip through DiskStore.
func TestDioSeekReadWriteRoundTrip(t *testing.T) {
	d, cpu, mem := newTestDispatch(t)

	if err := d.Disks.Attach(2, make([]byte, disk.HD1KSingleSize)); err != nil {
		t.Fatalf("attach: %s", err)
	}

	// DIOSEEK(unit=2, LBA=5)
	cpu.States.BC.Lo = 2
	cpu.States.DE.Hi = 0x80 // LBA flag set, high 7 bits = 0
	cpu.States.DE.Lo = 0
	cpu.States.HL.SetU16(5)
	if code, _ := dioSeek(d); code != NONE {
		t.Fatalf("dioSeek: unexpected code %d", code)
	}

	// DIOWRITE(unit=2, bank=UserBank, addr=0x8000, sectors=2, data=0xAB)
	for i := 0; i < 1024; i++ {
		mem.Store(0x8000+uint16(i), 0xAB) // common region write
	}
	cpu.States.BC.Lo = 2
	cpu.States.DE.Hi = uint8(memory.CommonBank)
	cpu.States.DE.Lo = 2 // sector count
	cpu.States.HL.SetU16(0x8000)
	if code, _ := dioWrite(d); code != NONE {
		t.Fatalf("dioWrite: unexpected code %d", code)
	}
	if cpu.States.DE.Lo != 2 {
		t.Fatalf("expected 2 sectors transferred, got %d", cpu.States.DE.Lo)
	}

	// Re-seek and read back into a different guest address.
	cpu.States.BC.Lo = 2
	cpu.States.DE.Hi = 0x80
	cpu.States.DE.Lo = 0
	cpu.States.HL.SetU16(5)
	dioSeek(d)

	cpu.States.BC.Lo = 2
	cpu.States.DE.Hi = uint8(memory.CommonBank)
	cpu.States.DE.Lo = 2
	cpu.States.HL.SetU16(0x9000)
	if code, _ := dioRead(d); code != NONE {
		t.Fatalf("dioRead: unexpected code %d", code)
	}

	for i := 0; i < 1024; i++ {
		if got := mem.Fetch(0x9000 + uint16(i)); got != 0xAB {
			t.Fatalf("byte %d: expected 0xAB, got 0x%02X", i, got)
		}
	}
}

// Invariant 10 / S4: EXTSLICE on a combo image follows the slice LBA
// formula for every slice.
func TestExtSliceFormula(t *testing.T) {
	d, cpu, _ := newTestDispatch(t)

	size := disk.HD1KPrefixSize + 6*disk.HD1KSingleSize
	if err := d.Disks.Attach(2, make([]byte, size)); err != nil {
		t.Fatalf("attach: %s", err)
	}

	for s := 0; s < 6; s++ {
		cpu.States.BC.Lo = 2
		cpu.States.DE.Lo = uint8(s)
		code, _ := extSlice(d)
		if code != NONE {
			t.Fatalf("slice %d: unexpected code %d", s, code)
		}
		got := uint32(cpu.States.DE.U16())<<16 | uint32(cpu.States.HL.U16())
		want := uint32(2048 + s*16384)
		if got != want {
			t.Fatalf("slice %d: expected LBA %d, got %d", s, want, got)
		}
		if disk.MediaID(cpu.States.BC.Hi) != disk.MediaHDNew {
			t.Fatalf("slice %d: expected media HDNEW, got %d", s, cpu.States.BC.Hi)
		}
	}
}

// S5: dynamic slice count with 3 hard disks attached.
func TestSysGetDiskCountAndDynamicSlices(t *testing.T) {
	d, cpu, _ := newTestDispatch(t)

	_ = d.Disks.Attach(2, make([]byte, disk.HD1KSingleSize))
	_ = d.Disks.Attach(3, make([]byte, disk.HD1KSingleSize))
	_ = d.Disks.Attach(4, make([]byte, disk.HD1KSingleSize))

	cpu.States.BC.Lo = SysGetDIOCnt
	sysGet(d)
	if cpu.States.DE.Lo != 3 {
		t.Fatalf("expected 3 loaded disk units, got %d", cpu.States.DE.Lo)
	}

	slices, err := d.Disks.Slices(2)
	if err != nil {
		t.Fatalf("slices: %s", err)
	}
	if slices != 2 {
		t.Fatalf("expected 2 slices with 3 disks attached, got %d", slices)
	}
}

// SysGetBootInfo/SysGetCPUInfo surface the Config facts boot.Sequencer
// parsed out of the HCB, not a permanent zero value.
func TestSysGetBootAndCPUInfo(t *testing.T) {
	d, cpu, _ := newTestDispatch(t)
	d.Config.BootVolume = 2
	d.Config.BootBank = 0x80
	d.Config.ConsoleDevice = 1
	d.Config.CPUMHz = 10
	d.Config.CPUKHz = 0x2710

	cpu.States.BC.Lo = SysGetBootInfo
	sysGet(d)
	if cpu.States.DE.Hi != 2 {
		t.Fatalf("expected boot volume 2, got %d", cpu.States.DE.Hi)
	}
	if cpu.States.DE.Lo != 0x80 {
		t.Fatalf("expected boot bank 0x80, got 0x%02X", cpu.States.DE.Lo)
	}
	if cpu.States.HL.Lo != 1 {
		t.Fatalf("expected console device 1, got %d", cpu.States.HL.Lo)
	}

	cpu.States.BC.Lo = SysGetCPUInfo
	sysGet(d)
	if cpu.States.BC.Lo != 10 {
		t.Fatalf("expected CPU MHz 10, got %d", cpu.States.BC.Lo)
	}
	if cpu.States.HL.U16() != 0x2710 {
		t.Fatalf("expected CPU kHz 0x2710, got 0x%04X", cpu.States.HL.U16())
	}
}

// CIOIN must leave registers untouched in non-blocking mode with no
// pending input, and deliver a byte (with LF->CR translation) once
// one is queued.
func TestCioInNonBlocking(t *testing.T) {
	d, cpu, _ := newTestDispatch(t)
	d.Blocking = false

	code, writeback := cioIn(d)
	if writeback {
		t.Fatalf("expected no writeback with no pending input")
	}
	if !d.WaitingForInput() {
		t.Fatalf("expected waitingForInput to be set")
	}
	_ = code

	d.Console.QueueByte(0x0A)
	code, writeback = cioIn(d)
	if !writeback || code != NONE {
		t.Fatalf("expected successful writeback once input arrives")
	}
	if cpu.States.DE.Lo != 0x0D {
		t.Fatalf("expected LF translated to CR, got 0x%02X", cpu.States.DE.Lo)
	}
	if d.WaitingForInput() {
		t.Fatalf("expected waitingForInput cleared after delivery")
	}
}

// The PC-trap dispatch path performs a simulated RET; the I/O-port
// path does not.
func TestDispatchSimulatedRet(t *testing.T) {
	d, cpu, mem := newTestDispatch(t)

	mem.EnableBanking()
	mem.SelectBank(memory.UserBank)
	cpu.SP = 0xFF00
	mem.Set(0xFF00, 0x34)
	mem.Set(0xFF01, 0x12)

	cpu.States.BC.Hi = CIOOUT
	cpu.States.DE.Lo = 'X'

	d.HandleMainEntry()

	if cpu.PC != 0x1234 {
		t.Fatalf("expected simulated RET to PC 0x1234, got 0x%04X", cpu.PC)
	}
	if cpu.SP != 0xFF02 {
		t.Fatalf("expected SP advanced by 2, got 0x%04X", cpu.SP)
	}
}

func TestDispatchUnknownFunctionReturnsNoFunc(t *testing.T) {
	d, cpu, _ := newTestDispatch(t)

	cpu.States.BC.Hi = 0x99
	d.HandlePortDispatch()

	if int8(cpu.States.AF.Hi) != NOFUNC {
		t.Fatalf("expected NOFUNC, got %d", int8(cpu.States.AF.Hi))
	}
	if cpu.States.AF.Lo&0x01 == 0 {
		t.Fatalf("expected carry set on error")
	}
}

func TestDispatchPortDoesNotSimulateRet(t *testing.T) {
	d, cpu, _ := newTestDispatch(t)

	cpu.PC = 0x2000
	cpu.States.BC.Hi = CIOOUT
	cpu.States.DE.Lo = 'Z'
	d.HandlePortDispatch()

	if cpu.PC != 0x2000 {
		t.Fatalf("expected PC unchanged on I/O-port dispatch, got 0x%04X", cpu.PC)
	}
}

func TestSysPeekPokeDoesNotAffectCurrentBank(t *testing.T) {
	d, cpu, mem := newTestDispatch(t)

	mem.SelectBank(memory.IMG0)
	cpu.States.DE.Hi = uint8(memory.UserBank)
	cpu.States.HL.SetU16(0x1000)
	cpu.States.BC.Lo = 0x42
	sysPoke(d)

	if mem.CurrentBank() != memory.IMG0 {
		t.Fatalf("sysPoke must not change current_bank")
	}

	cpu.States.DE.Hi = uint8(memory.UserBank)
	cpu.States.HL.SetU16(0x1000)
	sysPeek(d)
	if cpu.States.BC.Lo != 0x42 {
		t.Fatalf("expected peek to read back 0x42, got 0x%02X", cpu.States.BC.Lo)
	}
}
