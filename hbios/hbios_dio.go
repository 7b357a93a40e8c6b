package hbios

import (
	"errors"

	"github.com/sjk7-labs/hbiosemu/disk"
	"github.com/sjk7-labs/hbiosemu/memory"
)

// unitNum reads the disk unit number. By convention (shared with
// SYSGET's sub-function selector) the selector register for a DIO
// call is C.
func (d *Dispatch) unitNum() int {
	return int(d.reg().BC.Lo)
}

func mapDiskErr(err error) int {
	switch {
	case err == nil:
		return NONE
	case errors.Is(err, disk.ErrReadOnly):
		return READONLY
	case errors.Is(err, disk.ErrNoMedia):
		return NOMEDIA
	default:
		return IO
	}
}

// dioStatus implements DIOSTATUS: 0xFF if the unit holds media, 0x00
// otherwise.
func dioStatus(d *Dispatch) (int, bool) {
	u, err := d.Disks.Unit(d.unitNum())
	if err != nil {
		return NOUNIT, true
	}
	if u.Loaded {
		d.reg().DE.Lo = 0xFF
	} else {
		d.reg().DE.Lo = 0x00
	}
	return NONE, true
}

// dioReset implements DIORESET: rewinds the unit's current LBA to 0.
func dioReset(d *Dispatch) (int, bool) {
	if err := d.Disks.Seek(d.unitNum(), 0); err != nil {
		return mapDiskErr(err), true
	}
	return NONE, true
}

// dioSeek implements DIOSEEK (§4.4). D bit 7 is the LBA flag: when
// set, DE:HL (with D's low 7 bits forming the top of the 32-bit
// value) is a linear block address; when clear, D's low 7 bits are
// the head, E the sector, HL the track, converted through the unit's
// geometry.
func dioSeek(d *Dispatch) (int, bool) {
	unit := d.unitNum()
	dReg := d.reg().DE.Hi

	var lba uint32
	if dReg&0x80 != 0 {
		lba = uint32(dReg&0x7F)<<24 | uint32(d.reg().DE.Lo)<<16 | uint32(d.reg().HL.U16())
	} else {
		geom, err := d.Disks.Geometry(unit)
		if err != nil {
			return mapDiskErr(err), true
		}
		head := uint32(dReg & 0x7F)
		sector := uint32(d.reg().DE.Lo)
		track := uint32(d.reg().HL.U16())
		spt := uint32(geom.Sectors)
		heads := uint32(geom.Heads)
		lba = (track*heads+head)*spt + sector
	}

	if err := d.Disks.Seek(unit, lba); err != nil {
		return mapDiskErr(err), true
	}
	return NONE, true
}

// dioRead implements DIOREAD (§4.4): transfers E sectors starting at
// the unit's current LBA into guest memory at (bank D, address HL).
// E is updated to the number of sectors actually transferred.
func dioRead(d *Dispatch) (int, bool) {
	return d.dioTransfer(false)
}

// dioWrite implements DIOWRITE: the write-side counterpart of
// dioRead.
func dioWrite(d *Dispatch) (int, bool) {
	return d.dioTransfer(true)
}

func (d *Dispatch) dioTransfer(write bool) (int, bool) {
	unit := d.unitNum()
	requested := int(d.reg().DE.Lo)
	bank := memory.BankID(d.reg().DE.Hi)
	addr := d.reg().HL.U16()

	u, err := d.Disks.Unit(unit)
	if err != nil {
		return NOUNIT, true
	}
	if !u.Loaded {
		return NOMEDIA, true
	}

	secSize := u.SectorSize
	buf := make([]byte, requested*secSize)

	if write {
		// §4.4: below 0x8000 with a non-current bank, the transfer
		// must go through the explicit-bank accessor rather than the
		// current-bank path.
		d.readGuestBuf(bank, addr, buf)
		n, werr := d.Disks.Write(unit, requested, buf)
		d.reg().DE.Lo = uint8(n)
		if werr != nil && n == 0 {
			return mapDiskErr(werr), true
		}
		return NONE, true
	}

	n, rerr := d.Disks.Read(unit, requested, buf)
	d.reg().DE.Lo = uint8(n)
	if rerr != nil && n == 0 {
		return mapDiskErr(rerr), true
	}
	d.writeGuestBuf(bank, addr, buf[:n*secSize])
	return NONE, true
}

// readGuestBuf copies len(buf) bytes out of guest memory starting at
// addr in bank, using the explicit-bank accessor when bank differs
// from the currently-selected bank and addr is below the common
// region, and the ordinary Fetch path otherwise (so writes to the
// always-current common region still work).
func (d *Dispatch) readGuestBuf(bank memory.BankID, addr uint16, buf []byte) {
	useExplicit := addr < memory.CommonBase && bank != d.Mem.CurrentBank()
	for i := range buf {
		a := addr + uint16(i)
		if useExplicit {
			buf[i] = d.Mem.ReadBank(bank, a)
		} else {
			buf[i] = d.Mem.Fetch(a)
		}
	}
}

func (d *Dispatch) writeGuestBuf(bank memory.BankID, addr uint16, buf []byte) {
	useExplicit := addr < memory.CommonBase && bank != d.Mem.CurrentBank()
	for i, b := range buf {
		a := addr + uint16(i)
		if useExplicit {
			d.Mem.WriteBank(bank, a, b)
		} else {
			d.Mem.Store(a, b)
		}
	}
}

// dioVerify implements DIOVERIFY: treated as a successful no-op read
// check, since the in-process backing store cannot fail a verify the
// way real media can.
func dioVerify(d *Dispatch) (int, bool) {
	return NONE, true
}

// dioFormat implements DIOFORMAT: not supported against image-backed
// units.
func dioFormat(d *Dispatch) (int, bool) {
	return NOTIMPL, true
}

// dioDevice implements DIODEVICE: device type, number, and attribute
// byte (bit 7 floppy, bit 6 removable, bits 5-3 subtype).
func dioDevice(d *Dispatch) (int, bool) {
	unit := d.unitNum()
	u, err := d.Disks.Unit(unit)
	if err != nil {
		return NOUNIT, true
	}

	var devType uint8
	switch u.Kind {
	case disk.KindMemory:
		devType = 0x00 // MD
	default:
		devType = 0x02 // IDE-class fixed disk
	}

	d.reg().HL.Hi = devType
	d.reg().HL.Lo = uint8(unit)
	d.reg().DE.Hi = 0x00
	return NONE, true
}

// dioMedia implements DIOMEDIA: report the unit's media id.
func dioMedia(d *Dispatch) (int, bool) {
	media, err := d.Disks.Media(d.unitNum())
	if err != nil {
		return NOUNIT, true
	}
	d.reg().DE.Lo = uint8(media)
	return NONE, true
}

// dioDefMed implements DIODEFMED: media-format definition is not
// supported; units are always attached pre-formatted.
func dioDefMed(d *Dispatch) (int, bool) {
	return NOTIMPL, true
}

// dioCap implements DIOCAP: DE:HL = total blocks, BC = block size.
func dioCap(d *Dispatch) (int, bool) {
	blocks, blockSize, err := d.Disks.Capacity(d.unitNum())
	if err != nil {
		return NOUNIT, true
	}
	d.reg().DE.SetU16(uint16(blocks >> 16))
	d.reg().HL.SetU16(uint16(blocks))
	d.reg().BC.SetU16(blockSize)
	return NONE, true
}

// dioGeom implements DIOGEOM: HL = cylinders, D = heads (bit 7 = LBA
// capable), E = sectors/track, BC = block size.
func dioGeom(d *Dispatch) (int, bool) {
	unit := d.unitNum()
	geom, err := d.Disks.Geometry(unit)
	if err != nil {
		return NOUNIT, true
	}
	_, blockSize, _ := d.Disks.Capacity(unit)

	d.reg().HL.SetU16(geom.Cylinders)
	d.reg().DE.Hi = (geom.Heads & 0x7F) | 0x80 // every unit here is LBA-capable
	d.reg().DE.Lo = geom.Sectors
	d.reg().BC.SetU16(blockSize)
	return NONE, true
}

// extSlice implements EXTSLICE (0xE0, §4.4): computes the LBA base
// and media id for (unit, slice). C selects the unit, E the slice.
func extSlice(d *Dispatch) (int, bool) {
	unit := d.unitNum()
	slice := int(d.reg().DE.Lo)

	lba, err := d.Disks.SliceLBA(unit, slice)
	if err != nil {
		return RANGE, true
	}
	media, merr := d.Disks.Media(unit)
	if merr != nil {
		return NOUNIT, true
	}

	d.reg().DE.SetU16(uint16(lba >> 16))
	d.reg().HL.SetU16(uint16(lba))
	d.reg().BC.Hi = uint8(media)
	return NONE, true
}
