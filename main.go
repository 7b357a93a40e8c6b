// entry point

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/sjk7-labs/hbiosemu/emu"
	"github.com/sjk7-labs/hbiosemu/version"
)

// cliOptions names every flag from §6/§7 verbatim: --rom,
// --disk0..--disk15, --strict-io, --debug, --max-slices, --main-entry.
// --console is an addition, selecting which registered
// console.Console driver backs CIOIN/CIOOUT by name.
type cliOptions struct {
	ROM       string `name:"rom" help:"Path to the 512KB RomWBW ROM image." required:""`
	StrictIO  bool   `name:"strict-io" help:"Halt emulation on access to an unrecognized I/O port."`
	Debug     bool   `name:"debug" help:"Enable debug-level tracing."`
	MaxSlices int    `name:"max-slices" help:"Override the dynamic per-unit slice count."`
	MainEntry uint16 `name:"main-entry" default:"65520" help:"Guest address that triggers HBIOS dispatch via the PC-trap path."`
	Console   string `name:"console" default:"term" help:"Console driver: term, queue, or null."`

	Disk0  string `name:"disk0" help:"Disk image for unit 0." hidden:""`
	Disk1  string `name:"disk1" help:"Disk image for unit 1." hidden:""`
	Disk2  string `name:"disk2" help:"Disk image for unit 2."`
	Disk3  string `name:"disk3" help:"Disk image for unit 3."`
	Disk4  string `name:"disk4" help:"Disk image for unit 4."`
	Disk5  string `name:"disk5" help:"Disk image for unit 5."`
	Disk6  string `name:"disk6" help:"Disk image for unit 6."`
	Disk7  string `name:"disk7" help:"Disk image for unit 7."`
	Disk8  string `name:"disk8" help:"Disk image for unit 8."`
	Disk9  string `name:"disk9" help:"Disk image for unit 9."`
	Disk10 string `name:"disk10" help:"Disk image for unit 10."`
	Disk11 string `name:"disk11" help:"Disk image for unit 11."`
	Disk12 string `name:"disk12" help:"Disk image for unit 12."`
	Disk13 string `name:"disk13" help:"Disk image for unit 13."`
	Disk14 string `name:"disk14" help:"Disk image for unit 14."`
	Disk15 string `name:"disk15" help:"Disk image for unit 15."`
}

// diskPaths returns the 14 hard-disk paths (unit 2 upward); --disk0
// and --disk1 are accepted but ignored, since units 0 and 1 are always
// the ROM/RAM memory-disks InitSequencer attaches.
func (c *cliOptions) diskPaths() [14]string {
	return [14]string{
		c.Disk2, c.Disk3, c.Disk4, c.Disk5, c.Disk6, c.Disk7,
		c.Disk8, c.Disk9, c.Disk10, c.Disk11, c.Disk12, c.Disk13,
		c.Disk14, c.Disk15,
	}
}

func main() {
	var cli cliOptions
	kong.Parse(&cli,
		kong.Description(version.GetVersionBanner()),
		kong.UsageOnError(),
	)

	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	if cli.Debug || os.Getenv("DEBUG") != "" {
		lvl.Set(slog.LevelDebug)
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	cfg := emu.Config{
		ROMPath:       cli.ROM,
		DiskPaths:     cli.diskPaths(),
		StrictIO:      cli.StrictIO,
		Debug:         cli.Debug,
		MaxSlices:     cli.MaxSlices,
		MainEntry:     cli.MainEntry,
		ConsoleDriver: cli.Console,
		Logger:        log,
	}

	e, err := emu.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(exitCodeFor(err))
	}
	defer e.Close()

	if err := e.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(4)
	}
}

// exitCodeFor maps a setup failure from emu.New to the exit codes
// named in §6/§7: 1 = invalid argument, 2 = ROM load failure, 3 =
// disk validation failure.
func exitCodeFor(err error) int {
	switch err.(type) {
	case *emu.ErrInvalidConfig:
		return 1
	case *emu.ErrROMLoad:
		return 2
	case *emu.ErrDiskValidation:
		return 3
	default:
		return 4
	}
}
