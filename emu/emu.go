// Package emu wires memory, CPU, I/O ports, HBIOS dispatch, disk
// storage, console, and boot sequencing into a single runnable unit,
// the way cpm.CPM wires its own memory/IO/syscall table together in
// one struct and one Execute loop.
package emu

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/koron-go/z80"

	"github.com/sjk7-labs/hbiosemu/boot"
	"github.com/sjk7-labs/hbiosemu/console"
	"github.com/sjk7-labs/hbiosemu/disk"
	"github.com/sjk7-labs/hbiosemu/hbios"
	"github.com/sjk7-labs/hbiosemu/ioport"
	"github.com/sjk7-labs/hbiosemu/memory"
)

// romSize is the exact size a RomWBW ROM image must be: 16 32KB banks
// (§6: "path to the 512 KB ROM image").
const romSize = memory.BankCount * memory.BankSize

// diskUnitBase is the first disk-store unit a host-configured disk
// image may occupy; units 0 and 1 are reserved for the memory disks
// InitSequencer attaches (§3: "hard disks occupy unit 2 and above").
const diskUnitBase = 2

// Config gathers the host-visible configuration options (§6), named in
// Go's exported-field convention; main.go's kong CLI struct is the
// thing that actually binds command-line flags to these fields.
type Config struct {
	ROMPath   string
	DiskPaths [disk.UnitCount - diskUnitBase]string
	StrictIO  bool
	Debug     bool
	MaxSlices int
	MainEntry uint16

	// ConsoleDriver names a driver registered with the console
	// package ("term", "queue", "null"). Empty defaults to "term".
	ConsoleDriver string

	Logger *slog.Logger
}

// ErrInvalidConfig reports a bad configuration value (exit code 1).
type ErrInvalidConfig struct{ Reason string }

func (e *ErrInvalidConfig) Error() string { return "invalid argument: " + e.Reason }

// ErrROMLoad reports a ROM image that couldn't be read or is the
// wrong size (exit code 2).
type ErrROMLoad struct{ Reason string }

func (e *ErrROMLoad) Error() string { return "ROM load failure: " + e.Reason }

// ErrDiskValidation wraps a disk attach failure for one unit (exit
// code 3).
type ErrDiskValidation struct {
	Unit   int
	Reason error
}

func (e *ErrDiskValidation) Error() string {
	return fmt.Sprintf("disk unit %d: %s", e.Unit, e.Reason)
}

func (e *ErrDiskValidation) Unwrap() error { return e.Reason }

// Emulator is a fully wired, ready-to-run instance: one MemBus, one
// CPU, one IoBus, one HbiosDispatch, one DiskStore, one console, bound
// together the way InitSequencer's ordering requires.
type Emulator struct {
	Mem      *memory.Memory
	CPU      *z80.CPU
	IO       *ioport.Bus
	Disks    *disk.Store
	Console  console.Console
	Dispatch *hbios.Dispatch
	Boot     *boot.Sequencer
	Logger   *slog.Logger

	mainEntry     uint16
	exitRequested bool
}

// consoleSetupper and consoleTeardowner are satisfied by console
// drivers (term, in particular) that need to switch the host terminal
// into raw mode and restore it afterwards; not every driver needs
// this, so it is an optional interface rather than part of
// console.Console itself, mirroring how cpm calls consolein's
// Setup/TearDown only on the drivers that implement them meaningfully.
type consoleSetupper interface{ Setup() error }
type consoleTeardowner interface{ TearDown() }

// New validates cfg, loads the ROM image and any configured disks,
// runs the boot sequencer, and returns a ready-to-run Emulator. It
// never returns a partially-built Emulator: any failure is reported
// via ErrInvalidConfig, ErrROMLoad, or ErrDiskValidation.
func New(cfg Config) (*Emulator, error) {
	if cfg.ROMPath == "" {
		return nil, &ErrInvalidConfig{Reason: "rom_path is required"}
	}

	logger := cfg.Logger
	if logger == nil {
		lvl := new(slog.LevelVar)
		lvl.Set(slog.LevelWarn)
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	}

	romData, err := os.ReadFile(cfg.ROMPath)
	if err != nil {
		return nil, &ErrROMLoad{Reason: err.Error()}
	}
	if len(romData) != romSize {
		return nil, &ErrROMLoad{Reason: fmt.Sprintf("expected a %d-byte ROM image, got %d bytes", romSize, len(romData))}
	}

	mem := &memory.Memory{}
	mem.EnableBanking()
	mem.LoadROM(romData)

	disks := disk.New()
	disks.MaxSlices = cfg.MaxSlices
	for i, path := range cfg.DiskPaths {
		if path == "" {
			continue
		}
		unit := i + diskUnitBase
		if err := disks.AttachFile(unit, path); err != nil {
			return nil, &ErrDiskValidation{Unit: unit, Reason: err}
		}
	}

	driverName := cfg.ConsoleDriver
	if driverName == "" {
		driverName = "term"
	}
	con, err := console.New(driverName)
	if err != nil {
		return nil, &ErrInvalidConfig{Reason: err.Error()}
	}
	if su, ok := con.(consoleSetupper); ok {
		if err := su.Setup(); err != nil {
			return nil, &ErrInvalidConfig{Reason: err.Error()}
		}
	}

	bootSeq := boot.New(mem, disks)
	bootSeq.Run()

	mainEntry := cfg.MainEntry
	if mainEntry == 0 {
		mainEntry = hbios.DefaultMainEntry
	}

	io := ioport.New(logger)
	io.StrictIO = cfg.StrictIO

	dispatch := hbios.New(mem, disks, con, logger)
	dispatch.MainEntry = mainEntry
	dispatch.Blocking = true
	dispatch.Config = bootSeq.Config

	cpu := &z80.CPU{Memory: mem, IO: io}
	cpu.BreakPoints = map[uint16]struct{}{mainEntry: {}}
	dispatch.CPU = cpu

	e := &Emulator{
		Mem:       mem,
		CPU:       cpu,
		IO:        io,
		Disks:     disks,
		Console:   con,
		Dispatch:  dispatch,
		Boot:      bootSeq,
		Logger:    logger,
		mainEntry: mainEntry,
	}

	io.OnBankSelect = func(bank uint8) { mem.SelectBank(memory.BankID(bank)) }
	io.OnDispatch = dispatch.HandlePortDispatch
	io.OnHalt = e.handlePortHalt

	dispatch.ResetCallback = e.handleReset

	return e, nil
}

// handlePortHalt is IoBus's strict-io escape hatch: an access to an
// unrecognized port halts emulation rather than being silently
// ignored.
func (e *Emulator) handlePortHalt(port uint8, write bool) {
	e.Logger.Error("halting on unrecognized I/O port",
		slog.Int("port", int(port)), slog.Bool("write", write))
	e.exitRequested = true
}

// handleReset is SYSRESET's callback (§4.4): warm and cold resets
// clear console input, select ROM bank 0, reset PC to 0, and clear the
// shadow bitmap so the ROM's own reinitialization starts from a clean
// slate. A cold reset additionally ends Execute's loop with a
// host-requested exit (§6: "0 = normal termination via SYSRESET(cold)
// with host-requested exit") — this emulator has no other shutdown
// path, so cold reset doubles as it.
func (e *Emulator) handleReset(resetType uint8) {
	switch resetType {
	case hbios.ResetWarm, hbios.ResetCold:
		e.Console.ClearQueue()
		e.Mem.SelectBank(memory.BootROM)
		e.Mem.ClearShadow()
		e.CPU.PC = 0
	}
	if resetType == hbios.ResetCold {
		e.exitRequested = true
	}
}

// Execute runs the CPU until a cold SYSRESET requests an exit or a
// fatal condition is hit, mirroring cpm.CPM.Execute's
// run-until-breakpoint loop: CPU.Run runs real instructions until PC
// reaches a configured breakpoint (here, MainEntry), at which point
// HbiosDispatch.HandleMainEntry services the call and the simulated
// RET lets the CPU continue.
func (e *Emulator) Execute(ctx context.Context) error {
	for {
		err := e.CPU.Run(ctx)

		if err == nil {
			return fmt.Errorf("halt with interrupts disabled")
		}
		if err != z80.ErrBreakPoint {
			return fmt.Errorf("fatal CPU error: %w", err)
		}

		e.Dispatch.HandleMainEntry()

		if e.exitRequested {
			return nil
		}
	}
}

// Close tears down the console driver, if it needs it.
func (e *Emulator) Close() {
	if td, ok := e.Console.(consoleTeardowner); ok {
		td.TearDown()
	}
}
