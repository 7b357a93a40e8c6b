// Package boot implements InitSequencer (§4.6): the post-ROM-load,
// pre-execution setup that makes a RomWBW ROM image look the way
// HBIOS itself would have left it by the time guest code starts
// running — APITYPE patched, the HCB copied into the BIOS bank and
// ident markers planted in common RAM, memory-disk units wired up,
// and the shadow bitmap replayed last so every earlier change is
// visible through ROM bank 0 too.
package boot

import (
	"github.com/sjk7-labs/hbiosemu/disk"
	"github.com/sjk7-labs/hbiosemu/hbios"
	"github.com/sjk7-labs/hbiosemu/memory"
)

// HCB layout constants (§3). Only the fields this emulator actually
// acts on are named; the rest of the 256-byte block passes through
// untouched, copied byte-for-byte from the ROM image.
const (
	HCBBase       = 0x0100
	HCBSize       = 0x0100
	apitypeOffset = 0x0012 // HCBBase + 0x0012 = 0x0112 is the guest address

	// System-fact offsets within the HCB that SYSGET's BOOTINFO/CPUINFO
	// sub-functions surface. The upstream HCB layout for these
	// particular fields is not given anywhere this emulator was built
	// from (see DESIGN.md); these offsets are a documented choice, not
	// a verified upstream layout, chosen to sit right after APITYPE and
	// not collide with it.
	cpuMHzOffset     = 0x0013
	cpuKHzLoOffset   = 0x0014 // 16-bit little-endian, cpuKHzLoOffset/+1
	bootVolOffset    = 0x0016
	bootBankOffset   = 0x0017
	consoleDevOffset = 0x0018

	identSigHi  = 0xFE00
	identSigLo  = 0xFF00
	identPtr    = 0xFFFC
	pageZeroLen = 0x0200 // page zero (0x0000-0x00FF) plus the HCB itself
)

// Ident signature bytes (§3): 'W', ~'W', and a packed version.
var identBytes = [3]byte{'W', ^byte('W'), 0x35}

// Sequencer runs InitSequencer's post-ROM-load setup and owns the
// lazy per-bank seeding callback wired to Memory.OnRAMBankActivate.
type Sequencer struct {
	Mem   *memory.Memory
	Disks *disk.Store

	// Config is filled in by Run from whatever this emulator derives
	// from the HCB, and handed to hbios.Dispatch for SYSGET/SYSVER.
	Config hbios.Config
}

// New returns a Sequencer wired to mem and disks, with the RAM-bank
// activation callback installed so every freshly-selected RAM bank is
// seeded on first use.
func New(mem *memory.Memory, disks *disk.Store) *Sequencer {
	s := &Sequencer{Mem: mem, Disks: disks}
	mem.OnRAMBankActivate(s.SeedBank)
	return s
}

// Run executes InitSequencer's five-step sequence (§4.6) against an
// already-loaded ROM image. It must be called before the CPU begins
// executing guest code.
func (s *Sequencer) Run() {
	s.patchAPITYPE()
	s.copyHCBToRAM()
	s.setupIdent()
	s.initMemoryDisks()
	s.replayShadow() // must be last: §4.6 step 5.

	s.Config.RAMBanks = memory.BankCount
	s.Config.ROMBanks = memory.BankCount
	s.Config.BIOSBank = uint8(memory.BIOSBank)
	s.Config.UserBank = uint8(memory.UserBank)
	s.Config.CommonBank = uint8(memory.CommonBank)
	s.Config.Version = identBytes[2]
	s.readHCBFacts()
}

// readHCBFacts pulls the remaining SYSGET-reported system facts (CPU
// clock, boot volume/bank, console device) out of the raw HCB bytes in
// ROM bank 0, which patchAPITYPE has already patched. Must run after
// patchAPITYPE, so the APITYPE patch is in place first.
func (s *Sequencer) readHCBFacts() {
	s.Config.CPUMHz = s.Mem.ROMByte(memory.BootROM, HCBBase+cpuMHzOffset)

	lo := s.Mem.ROMByte(memory.BootROM, HCBBase+cpuKHzLoOffset)
	hi := s.Mem.ROMByte(memory.BootROM, HCBBase+cpuKHzLoOffset+1)
	s.Config.CPUKHz = uint16(hi)<<8 | uint16(lo)

	s.Config.BootVolume = s.Mem.ROMByte(memory.BootROM, HCBBase+bootVolOffset)
	s.Config.BootBank = s.Mem.ROMByte(memory.BootROM, HCBBase+bootBankOffset)
	s.Config.ConsoleDevice = s.Mem.ROMByte(memory.BootROM, HCBBase+consoleDevOffset)
}

// patchAPITYPE is step 1: force APITYPE to 0x00 (HBIOS) in the raw ROM
// image bank 0, so every subsequent copy of page zero/HCB picks up the
// patched value rather than whatever UNA/other value the ROM shipped
// with.
func (s *Sequencer) patchAPITYPE() {
	s.Mem.PatchROMByte(memory.BootROM, HCBBase+apitypeOffset, 0x00)
}

// copyHCBToRAM is step 2: copy the first pageZeroLen bytes of ROM bank
// 0 into RAM bank 0x80, for early access before the shadow overlay is
// in place.
func (s *Sequencer) copyHCBToRAM() {
	for addr := uint16(0); addr < pageZeroLen; addr++ {
		b := s.Mem.ROMByte(memory.BootROM, addr)
		s.Mem.WriteBank(memory.BIOSBank, addr, b)
	}
}

// setupIdent is step 3: write the ident signature at both 0xFE00 and
// 0xFF00 in the common RAM bank, and the pointer to 0xFF00 at 0xFFFC.
func (s *Sequencer) setupIdent() {
	for _, base := range []uint16{identSigHi, identSigLo} {
		for i, b := range identBytes {
			s.Mem.WriteBank(memory.CommonBank, base-memory.CommonBase+uint16(i), b)
		}
	}
	s.Mem.WriteBank(memory.CommonBank, identPtr-memory.CommonBase, 0x00)
	s.Mem.WriteBank(memory.CommonBank, identPtr-memory.CommonBase+1, 0xFF)
}

// initMemoryDisks is step 4: attach units 0 and 1 as memory disks
// backed by the ROM and RAM images respectively, per §3's "unit
// indices 0 and 1 are reserved for the ROM and RAM memory-disks"
// invariant.
func (s *Sequencer) initMemoryDisks() {
	_ = s.Disks.AttachMemory(0, &romDiskBacking{mem: s.Mem, bank: memory.IMG0}, disk.MediaMDROM)
	_ = s.Disks.AttachMemory(1, &ramDiskBacking{mem: s.Mem, bank: memory.UserBank}, disk.MediaMDRAM)
}

// replayShadow is step 5 (must run last): replays the first
// pageZeroLen bytes of ROM bank 0 through Store with bank 0 selected,
// so the shadow bitmap captures every preceding modification and
// later reads from ROM bank 0 see the final values.
func (s *Sequencer) replayShadow() {
	saved := s.Mem.CurrentBank()
	s.Mem.SelectBank(memory.BootROM)
	for addr := uint16(0); addr < pageZeroLen; addr++ {
		b := s.Mem.ROMByte(memory.BootROM, addr)
		s.Mem.Store(addr, b)
	}
	s.Mem.SelectBank(saved)
}

// SeedBank is the RAM-bank-activation callback: on a RAM bank's first
// selection, copy page zero and the HCB from ROM bank 0 into it and
// patch APITYPE, the way CP/M-3's TPA-bank switch expects valid RST
// vectors and a working HCB in whatever bank it lands in (§4.6).
func (s *Sequencer) SeedBank(id memory.BankID) {
	for addr := uint16(0); addr < pageZeroLen; addr++ {
		b := s.Mem.ROMByte(memory.BootROM, addr)
		s.Mem.WriteBank(id, addr, b)
	}
	s.Mem.WriteBank(id, HCBBase+apitypeOffset, 0x00)
}

// romDiskBacking adapts memory disk unit 0 (backed by a single ROM
// bank, ROM bank 1) to disk.Backing.
type romDiskBacking struct {
	mem  *memory.Memory
	bank memory.BankID
}

func (b *romDiskBacking) ReadAt(p []byte, off int64) (int, error) {
	for i := range p {
		p[i] = b.mem.ROMByte(b.bank, uint16(off)+uint16(i))
	}
	return len(p), nil
}

func (b *romDiskBacking) WriteAt(p []byte, off int64) (int, error) {
	// ROM-backed memory disk: writes are discarded, same as any other
	// write to a ROM bank outside the shadow range.
	return len(p), nil
}

func (b *romDiskBacking) Size() int64 { return memory.BankSize }

// ramDiskBacking adapts memory disk unit 1 (backed by a RAM bank) to
// disk.Backing.
type ramDiskBacking struct {
	mem  *memory.Memory
	bank memory.BankID
}

func (b *ramDiskBacking) ReadAt(p []byte, off int64) (int, error) {
	for i := range p {
		p[i] = b.mem.ReadBank(b.bank, uint16(off)+uint16(i))
	}
	return len(p), nil
}

func (b *ramDiskBacking) WriteAt(p []byte, off int64) (int, error) {
	for i, v := range p {
		b.mem.WriteBank(b.bank, uint16(off)+uint16(i), v)
	}
	return len(p), nil
}

func (b *ramDiskBacking) Size() int64 { return memory.BankSize }
