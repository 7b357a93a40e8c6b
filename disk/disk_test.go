package disk

import (
	"os"
	"testing"

	"github.com/matryer/is"
)

func TestClassifySizes(t *testing.T) {
	is := is.New(t)

	kind, _, err := classify(HD1KSingleSize)
	is.NoErr(err)
	is.Equal(kind, KindHD1KSingle)

	kind, _, err = classify(HD512SingleSize)
	is.NoErr(err)
	is.Equal(kind, KindHD512Single)

	kind, _, err = classify(HD1KPrefixSize + 3*HD1KSingleSize)
	is.NoErr(err)
	is.Equal(kind, KindCombo)

	_, _, err = classify(12345)
	is.True(err != nil)
}

func TestAttachRejectsInvalidSize(t *testing.T) {
	is := is.New(t)

	s := New()
	err := s.Attach(2, make([]byte, 12345))
	is.True(err != nil)

	u, uerr := s.Unit(2)
	is.NoErr(uerr)
	is.True(!u.Loaded)
}

func TestAttachAndReadWriteRoundTrip(t *testing.T) {
	is := is.New(t)

	s := New()
	data := make([]byte, HD1KSingleSize)
	is.NoErr(s.Attach(2, data))

	is.NoErr(s.Seek(2, 5))

	payload := make([]byte, 1024)
	for i := range payload {
		payload[i] = 0xAB
	}
	n, err := s.Write(2, 2, payload)
	is.NoErr(err)
	is.Equal(n, 2)

	is.NoErr(s.Seek(2, 5))
	out := make([]byte, 1024)
	n, err = s.Read(2, 2, out)
	is.NoErr(err)
	is.Equal(n, 2)

	for i, b := range out {
		if b != 0xAB {
			t.Fatalf("byte %d: expected 0xAB, got 0x%02X", i, b)
		}
	}
}

func TestAttachFile(t *testing.T) {
	is := is.New(t)

	f, err := os.CreateTemp("", "tst-*.img")
	is.NoErr(err)
	defer os.Remove(f.Name())

	is.NoErr(f.Truncate(HD1KSingleSize))
	is.NoErr(f.Close())

	s := New()
	is.NoErr(s.AttachFile(2, f.Name()))

	u, err := s.Unit(2)
	is.NoErr(err)
	is.True(u.Loaded)
	is.Equal(u.Kind, KindHD1KSingle)

	s.Detach(2)
	u, err = s.Unit(2)
	is.NoErr(err)
	is.True(!u.Loaded)
}

func TestSliceLBACombo(t *testing.T) {
	is := is.New(t)

	s := New()
	size := int64(HD1KPrefixSize + 6*HD1KSingleSize)
	is.NoErr(s.Attach(2, make([]byte, size)))

	lba, err := s.SliceLBA(2, 3)
	is.NoErr(err)
	is.Equal(lba, uint32(2048+3*16384))
}

func TestDynamicSliceCountPolicy(t *testing.T) {
	is := is.New(t)

	s := New()
	is.NoErr(s.Attach(2, make([]byte, HD1KSingleSize)))

	slices, err := s.Slices(2)
	is.NoErr(err)
	is.Equal(slices, 8)

	is.NoErr(s.Attach(3, make([]byte, HD1KSingleSize)))
	slices, _ = s.Slices(2)
	is.Equal(slices, 4)

	is.NoErr(s.Attach(4, make([]byte, HD1KSingleSize)))
	slices, _ = s.Slices(2)
	is.Equal(slices, 2)
}

func TestCheckMBRWarningRomWBWPartitionIsClean(t *testing.T) {
	is := is.New(t)

	header := make([]byte, 512)
	header[510] = 0x55
	header[511] = 0xAA
	header[0x1BE+4] = partTypeRomWBW

	is.Equal(CheckMBRWarning(header), "")
}

func TestCheckMBRWarningFATWithoutRomWBW(t *testing.T) {
	header := make([]byte, 512)
	header[510] = 0x55
	header[511] = 0xAA
	header[0x1BE+4] = partTypeFAT32

	if CheckMBRWarning(header) == "" {
		t.Fatalf("expected a warning for a FAT MBR without a RomWBW partition")
	}
}

func TestWriteToEmptyUnitFails(t *testing.T) {
	s := New()
	_, err := s.Write(3, 1, make([]byte, 512))
	if err == nil {
		t.Fatalf("expected error writing to an empty unit")
	}
}
