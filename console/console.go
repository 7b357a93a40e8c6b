// Package console provides the platform-agnostic byte sink/source that
// feeds HBIOS's character I/O family (CIO). The core never talks to a
// terminal, a browser tab, or a native UI directly: it talks to a
// Console, and a named driver is selected at startup the same way the
// teacher's consolein/consoleout packages let a driver be selected by
// name.
package console

import (
	"fmt"
	"strings"
)

// Console is the abstract collaborator HBIOS's CIO family reads and
// writes through.
type Console interface {
	// WriteByte sends a single byte to the console's output.
	WriteByte(b byte)

	// ReadByte returns the next pending input byte, if any.
	ReadByte() (b byte, ok bool)

	// HasInput reports whether a byte is available for ReadByte
	// without blocking.
	HasInput() bool

	// QueueByte injects a byte as if it had arrived from the input
	// side. Host front-ends (embedded, UI-driven) use this to deliver
	// keystrokes; terminal-backed drivers generally fill their own
	// queue from a background poll instead.
	QueueByte(b byte)

	// ClearQueue discards any buffered input.
	ClearQueue()

	// GetName returns the name this driver was registered under.
	GetName() string
}

// Drainer is implemented by drivers that buffer output rather than
// writing it synchronously; event-loop hosts call DrainOutput once per
// batch to flush it.
type Drainer interface {
	DrainOutput() []byte
}

// Constructor builds a fresh driver instance.
type Constructor func() Console

var registry = struct {
	m map[string]Constructor
}{m: make(map[string]Constructor)}

// Register makes a console driver available by name, for later
// instantiation via New.
func Register(name string, ctor Constructor) {
	registry.m[strings.ToLower(name)] = ctor
}

// New instantiates the named driver.
func New(name string) (Console, error) {
	ctor, ok := registry.m[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("failed to lookup console driver by name '%s'", name)
	}
	return ctor(), nil
}

// Drivers returns the names of every registered driver.
func Drivers() []string {
	names := make([]string, 0, len(registry.m))
	for name := range registry.m {
		names = append(names, name)
	}
	return names
}
