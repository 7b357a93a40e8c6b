// Package memory implements the 1MB banked memory model behind the
// emulator's 64KB Z80 address window: 16 ROM banks and 16 RAM banks of
// 32KB each, with RAM bank 0x8F always mapped into the upper half of
// the window, and a shadow-RAM overlay over the low 512 bytes of ROM
// bank 0 so that HBIOS's own startup writes to page zero and the HCB
// become visible to guest code reading back through "ROM".
package memory

import "os"

const (
	// BankSize is the size, in bytes, of a single ROM or RAM bank.
	BankSize = 0x8000

	// BankCount is the number of ROM banks, and separately the number
	// of RAM banks, the emulator models.
	BankCount = 16

	// CommonBase is the guest address at which the common RAM bank
	// (0x8F) is always mapped, regardless of the selected bank.
	CommonBase = 0x8000

	// ShadowBytes is the number of low-page bytes (0x000-0x1FF) for
	// which a shadow bit is tracked.
	ShadowBytes = 0x200
)

// BankID is an 8-bit bank identifier. Bit 7 distinguishes RAM (1) from
// ROM (0); the low 4 bits select one of 16 banks.
type BankID uint8

const (
	// BootROM is the ROM bank HBIOS itself lives in before banking is
	// fully established.
	BootROM = BankID(0x00)

	// IMG0 is the first general-purpose ROM bank after the boot ROM.
	IMG0 = BankID(0x01)

	// BIOSBank is the RAM bank holding the HBIOS runtime image and HCB.
	BIOSBank = BankID(0x80)

	// UserBank is the default TPA/user RAM bank.
	UserBank = BankID(0x8E)

	// CommonBank is the RAM bank always mapped at 0x8000-0xFFFF.
	CommonBank = BankID(0x8F)
)

// IsRAM reports whether this bank id refers to a RAM bank.
func (b BankID) IsRAM() bool {
	return b&0x80 != 0
}

// Index returns the 0-15 bank index encoded in the low nibble.
func (b BankID) Index() uint8 {
	return uint8(b) & 0x0F
}

// bank is a single 32KB slab of memory.
type bank [BankSize]uint8

// Memory is the banked 1MB address space behind the CPU's 64KB window.
//
// Memory satisfies the z80.Memory interface (Get/Set), so a *Memory can
// be handed directly to a z80.CPU; Fetch/Store are the same operations,
// named the way the rest of this package talks about bank-relative
// access.
type Memory struct {
	rom [BankCount]bank
	ram [BankCount]bank

	// currentBank is the bank selected for the lower 32KB of the
	// address window. The upper 32KB always resolves to CommonBank.
	currentBank BankID

	// shadow records which of the first ShadowBytes addresses of ROM
	// bank 0 have been overwritten, and should be read from RAM bank
	// 0x00 instead of the raw ROM contents.
	shadow [ShadowBytes / 8]uint8

	// banked becomes true once EnableBanking has been called; before
	// that Fetch/Store (and Get/Set) behave as a flat 64KB space, its
	// lower half backed by RAM bank 0x80 and its upper half by the
	// common RAM bank, which keeps bring-up and simple tests working
	// without any bank setup.
	banked bool

	// onRAMBankActivate, if set, is invoked the first time a given RAM
	// bank becomes the current bank. InitSequencer uses this to
	// lazily seed a freshly-activated bank with page zero and the HCB.
	onRAMBankActivate func(id BankID)

	// activated tracks which RAM banks have already fired
	// onRAMBankActivate, so the callback only fires once per bank.
	activated uint16
}

// OnRAMBankActivate installs the callback fired the first time a RAM
// bank is selected.
func (m *Memory) OnRAMBankActivate(fn func(id BankID)) {
	m.onRAMBankActivate = fn
}

// EnableBanking transitions Memory from the flat 64KB bring-up model to
// the full banked model: RAM is zeroed, bank 0 (ROM) is selected, and
// the shadow bitmap is cleared.
func (m *Memory) EnableBanking() {
	m.banked = true
	m.currentBank = BootROM
	for i := range m.ram {
		m.ram[i] = bank{}
	}
	for i := range m.shadow {
		m.shadow[i] = 0
	}
	m.activated = 0
}

// ClearShadow discards the shadow-RAM overlay over ROM bank 0, without
// otherwise disturbing RAM contents or the currently-selected bank.
// SYSRESET(warm/cold) calls this: the ROM is about to reinitialize
// page zero and the HCB from scratch, so the previous session's
// overlay must not leak through.
func (m *Memory) ClearShadow() {
	for i := range m.shadow {
		m.shadow[i] = 0
	}
}

// Banked reports whether EnableBanking has been called.
func (m *Memory) Banked() bool {
	return m.banked
}

// SelectBank sets the bank used to resolve the lower 32KB of the
// address window. No data is copied; this only changes the selector.
// The first time a given RAM bank is selected, the RAM-bank-activation
// callback fires.
func (m *Memory) SelectBank(id BankID) {
	m.currentBank = id

	if !id.IsRAM() {
		return
	}

	bit := uint16(1) << id.Index()
	if m.activated&bit != 0 {
		return
	}
	m.activated |= bit

	if m.onRAMBankActivate != nil {
		m.onRAMBankActivate(id)
	}
}

// CurrentBank returns the bank currently selected for the lower 32KB.
func (m *Memory) CurrentBank() BankID {
	return m.currentBank
}

// Fetch reads a byte through the currently-selected bank, honoring the
// common-RAM window and the shadow overlay over ROM bank 0.
func (m *Memory) Fetch(addr uint16) uint8 {
	if !m.banked {
		if addr >= CommonBase {
			return m.ram[CommonBank.Index()][addr-CommonBase]
		}
		return m.ram[BIOSBank.Index()][addr]
	}

	if addr >= CommonBase {
		return m.ram[CommonBank.Index()][addr-CommonBase]
	}

	if m.currentBank.IsRAM() {
		return m.ram[m.currentBank.Index()][addr]
	}

	if m.currentBank == BootROM && addr < ShadowBytes && m.shadowed(addr) {
		return m.ram[BootROM.Index()][addr]
	}

	return m.rom[m.currentBank.Index()][addr]
}

// Store writes a byte through the currently-selected bank.
//
// Writes to the common region always land in RAM bank 0x8F. Writes
// with a RAM bank selected land there directly. Writes to a ROM bank
// are normally discarded, except that writes below ShadowBytes with
// ROM bank 0 selected are captured as shadow-RAM overlay: the byte is
// written into RAM bank 0x00 and the corresponding shadow bit is set,
// so that a later Fetch of that address with bank 0 selected returns
// the new value instead of the ROM's.
func (m *Memory) Store(addr uint16, v uint8) {
	if !m.banked {
		if addr >= CommonBase {
			m.ram[CommonBank.Index()][addr-CommonBase] = v
			return
		}
		m.ram[BIOSBank.Index()][addr] = v
		return
	}

	if addr >= CommonBase {
		m.ram[CommonBank.Index()][addr-CommonBase] = v
		return
	}

	if m.currentBank.IsRAM() {
		m.ram[m.currentBank.Index()][addr] = v
		return
	}

	if addr < ShadowBytes && m.currentBank == BootROM {
		m.setShadow(addr)
		m.ram[BootROM.Index()][addr] = v
	}
}

// ReadBank reads a byte from the given bank, bypassing currentBank.
// Used by HBIOS peek and bank-copy operations. Addresses at or above
// CommonBase resolve to the common RAM bank whatever id is, as they do
// through Fetch.
func (m *Memory) ReadBank(id BankID, addr uint16) uint8 {
	if addr >= CommonBase {
		return m.ram[CommonBank.Index()][addr-CommonBase]
	}
	if id.IsRAM() {
		return m.ram[id.Index()][addr]
	}
	return m.rom[id.Index()][addr]
}

// WriteBank writes a byte into the given bank, bypassing currentBank.
// Writes to ROM banks are ignored, except for ROM bank 0's shadow
// range, which is captured the same way Store captures it. Addresses
// at or above CommonBase land in the common RAM bank whatever id is,
// as they do through Store.
func (m *Memory) WriteBank(id BankID, addr uint16, v uint8) {
	if addr >= CommonBase {
		m.ram[CommonBank.Index()][addr-CommonBase] = v
		return
	}
	if id.IsRAM() {
		m.ram[id.Index()][addr] = v
		return
	}
	if id == BootROM && addr < ShadowBytes {
		m.setShadow(addr)
		m.ram[BootROM.Index()][addr] = v
	}
}

// LoadROM copies a ROM image (up to BankCount*BankSize bytes) into the
// ROM banks, starting at bank 0.
func (m *Memory) LoadROM(data []uint8) {
	for i := range m.rom {
		m.rom[i] = bank{}
	}
	for i, b := range data {
		if i >= BankCount*BankSize {
			break
		}
		m.rom[i/BankSize][i%BankSize] = b
	}
}

// LoadROMFile reads a ROM image from disk and loads it via LoadROM.
func (m *Memory) LoadROMFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	m.LoadROM(data)
	return nil
}

// ROMByte returns a byte directly from the raw ROM image, ignoring the
// shadow overlay. InitSequencer uses this while computing the values
// it is about to write into RAM/shadow, where reading back through
// Fetch would be circular.
func (m *Memory) ROMByte(id BankID, addr uint16) uint8 {
	return m.rom[id.Index()][addr]
}

// PatchROMByte writes directly into the raw ROM image, bypassing the
// read-only/shadow-overlay rules Store enforces. InitSequencer uses
// this once, at startup, to patch APITYPE (§4.6 step 1) before any
// bank or shadow copy reads the ROM back.
func (m *Memory) PatchROMByte(id BankID, addr uint16, v uint8) {
	m.rom[id.Index()][addr] = v
}

// GetU16 reads a little-endian word starting at addr, through Fetch.
func (m *Memory) GetU16(addr uint16) uint16 {
	lo := m.Fetch(addr)
	hi := m.Fetch(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

// FillRange fills size bytes starting at addr, through Store.
func (m *Memory) FillRange(addr uint16, size int, v uint8) {
	for size > 0 {
		m.Store(addr, v)
		addr++
		size--
	}
}

// GetRange returns a copy of size bytes starting at addr, through
// Fetch.
func (m *Memory) GetRange(addr uint16, size int) []uint8 {
	var out []uint8
	for size > 0 {
		out = append(out, m.Fetch(addr))
		addr++
		size--
	}
	return out
}

// SetRange copies data into memory starting at addr, through Store.
func (m *Memory) SetRange(addr uint16, data ...uint8) {
	for _, b := range data {
		m.Store(addr, b)
		addr++
	}
}

// Get satisfies z80.Memory's read contract; it is Fetch under another
// name, required so *Memory can be handed to z80.CPU directly.
func (m *Memory) Get(addr uint16) uint8 {
	return m.Fetch(addr)
}

// Set satisfies z80.Memory's write contract; it is Store under another
// name, required so *Memory can be handed to z80.CPU directly.
func (m *Memory) Set(addr uint16, v uint8) {
	m.Store(addr, v)
}

func (m *Memory) shadowed(addr uint16) bool {
	return m.shadow[addr/8]&(1<<(addr%8)) != 0
}

func (m *Memory) setShadow(addr uint16) {
	m.shadow[addr/8] |= 1 << (addr % 8)
}
