package boot

import (
	"testing"

	"github.com/sjk7-labs/hbiosemu/disk"
	"github.com/sjk7-labs/hbiosemu/memory"
)

func romWithAPITYPE(apitype byte) []byte {
	rom := make([]byte, memory.BankCount*memory.BankSize)
	rom[0x0112] = apitype
	return rom
}

// S1: after Run, the ident signature reads back at 0xFE00 with bank 0
// selected.
func TestIdentReadBack(t *testing.T) {
	mem := &memory.Memory{}
	mem.EnableBanking()
	mem.LoadROM(romWithAPITYPE(0xFF))

	s := New(mem, disk.New())
	s.Run()

	mem.SelectBank(memory.BootROM)
	got := []byte{mem.Fetch(0xFE00), mem.Fetch(0xFE01), mem.Fetch(0xFE02)}
	want := []byte{0x57, 0xA8, 0x35}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ident byte %d: expected 0x%02X, got 0x%02X", i, want[i], got[i])
		}
	}

	ptr := mem.GetU16(0xFFFC)
	if ptr != 0xFF00 {
		t.Fatalf("expected ident pointer 0xFF00, got 0x%04X", ptr)
	}
}

// S2: shadow correctness. A ROM whose byte at 0x0112 is 0xFF reads
// back as 0x00 with bank 0 selected, but unaffected with another bank
// selected.
func TestShadowCorrectness(t *testing.T) {
	mem := &memory.Memory{}
	mem.EnableBanking()

	rom := romWithAPITYPE(0xFF)
	rom[memory.BankSize+0x0112] = 0x77 // bank 1's own byte at the same offset
	mem.LoadROM(rom)

	s := New(mem, disk.New())
	s.Run()

	mem.SelectBank(memory.BootROM)
	if got := mem.Fetch(0x0112); got != 0x00 {
		t.Fatalf("expected patched APITYPE 0x00 with bank 0 selected, got 0x%02X", got)
	}

	mem.SelectBank(memory.IMG0)
	if got := mem.Fetch(0x0112); got != 0x77 {
		t.Fatalf("expected bank 1's own byte 0x77 unaffected by shadow, got 0x%02X", got)
	}
}

// APITYPE round-trip: patched in the shadow view and in every lazily
// seeded RAM bank.
func TestAPITYPEInEverySeededBank(t *testing.T) {
	mem := &memory.Memory{}
	mem.EnableBanking()
	mem.LoadROM(romWithAPITYPE(0xFF))

	s := New(mem, disk.New())
	s.Run()

	mem.SelectBank(memory.UserBank) // first activation of 0x8E fires SeedBank
	if got := mem.ReadBank(memory.UserBank, 0x0112); got != 0x00 {
		t.Fatalf("expected APITYPE 0x00 in freshly-seeded bank 0x8E, got 0x%02X", got)
	}
}

// System facts (CPU speed, boot volume/bank, console device) are
// parsed out of the HCB rather than left at their zero value.
func TestReadHCBFacts(t *testing.T) {
	mem := &memory.Memory{}
	mem.EnableBanking()

	rom := romWithAPITYPE(0x00)
	rom[HCBBase+cpuMHzOffset] = 10
	rom[HCBBase+cpuKHzLoOffset] = 0x10   // lo
	rom[HCBBase+cpuKHzLoOffset+1] = 0x27 // hi -> 0x2710 = 10000
	rom[HCBBase+bootVolOffset] = 2
	rom[HCBBase+bootBankOffset] = 0x80
	rom[HCBBase+consoleDevOffset] = 1
	mem.LoadROM(rom)

	s := New(mem, disk.New())
	s.Run()

	if s.Config.CPUMHz != 10 {
		t.Fatalf("expected CPUMHz 10, got %d", s.Config.CPUMHz)
	}
	if s.Config.CPUKHz != 0x2710 {
		t.Fatalf("expected CPUKHz 0x2710, got 0x%04X", s.Config.CPUKHz)
	}
	if s.Config.BootVolume != 2 {
		t.Fatalf("expected BootVolume 2, got %d", s.Config.BootVolume)
	}
	if s.Config.BootBank != 0x80 {
		t.Fatalf("expected BootBank 0x80, got 0x%02X", s.Config.BootBank)
	}
	if s.Config.ConsoleDevice != 1 {
		t.Fatalf("expected ConsoleDevice 1, got %d", s.Config.ConsoleDevice)
	}
}

func TestMemoryDisksAttachedAtUnits0And1(t *testing.T) {
	mem := &memory.Memory{}
	mem.EnableBanking()
	mem.LoadROM(romWithAPITYPE(0x00))

	disks := disk.New()
	s := New(mem, disks)
	s.Run()

	u0, err := disks.Unit(0)
	if err != nil || !u0.Loaded {
		t.Fatalf("expected unit 0 (ROM memory disk) to be loaded")
	}
	u1, err := disks.Unit(1)
	if err != nil || !u1.Loaded {
		t.Fatalf("expected unit 1 (RAM memory disk) to be loaded")
	}
}
