// Integration tests :)

package main

import (
	"testing"

	"github.com/sjk7-labs/hbiosemu/emu"
)

func TestExitCodeForMapsSetupFailures(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&emu.ErrInvalidConfig{Reason: "x"}, 1},
		{&emu.ErrROMLoad{Reason: "x"}, 2},
		{&emu.ErrDiskValidation{Unit: 2, Reason: nil}, 3},
	}
	for _, c := range cases {
		if got := exitCodeFor(c.err); got != c.want {
			t.Fatalf("exitCodeFor(%T): expected %d, got %d", c.err, c.want, got)
		}
	}
}

func TestDiskPathsSkipsReservedMemoryDiskUnits(t *testing.T) {
	var cli cliOptions
	cli.Disk0 = "ignored-rom-unit.img"
	cli.Disk1 = "ignored-ram-unit.img"
	cli.Disk2 = "hd0.img"
	cli.Disk15 = "hd13.img"

	paths := cli.diskPaths()
	if paths[0] != "hd0.img" {
		t.Fatalf("expected unit 2 (index 0) to carry disk2's path, got %q", paths[0])
	}
	if paths[13] != "hd13.img" {
		t.Fatalf("expected unit 15 (index 13) to carry disk15's path, got %q", paths[13])
	}
}
