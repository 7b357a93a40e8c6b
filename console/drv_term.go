// drv_term.go implements the terminal Console driver. A goroutine polls
// the keyboard via termbox and feeds a buffer that ReadByte/HasInput
// drain on demand. LF is translated to CR on read, per the raw-mode TTY
// contract HBIOS's CIOIN expects.
package console

import (
	"context"
	"os"

	"github.com/nsf/termbox-go"
	"golang.org/x/term"
)

// TermConsole is the terminal-backed Console driver.
type TermConsole struct {
	oldState *term.State
	cancel   context.CancelFunc
	keyBuf   []byte
	started  bool
}

func newTermConsole() Console {
	return &TermConsole{}
}

// Setup switches the controlling terminal into raw mode, starts
// termbox, and launches the background keyboard-polling goroutine.
// It is idempotent.
func (tc *TermConsole) Setup() error {
	if tc.started {
		return nil
	}

	var err error
	tc.oldState, err = term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return err
	}

	if err = termbox.Init(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	tc.cancel = cancel
	tc.started = true

	go tc.pollKeyboard(ctx)
	return nil
}

func (tc *TermConsole) pollKeyboard(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch ev := termbox.PollEvent(); ev.Type {
		case termbox.EventKey:
			if ev.Ch != 0 {
				tc.keyBuf = append(tc.keyBuf, byte(ev.Ch))
			} else {
				tc.keyBuf = append(tc.keyBuf, byte(ev.Key))
			}
		}
	}
}

// TearDown restores the terminal and stops the polling goroutine.
func (tc *TermConsole) TearDown() {
	if !tc.started {
		return
	}
	if tc.cancel != nil {
		tc.cancel()
	}
	termbox.Close()
	if tc.oldState != nil {
		term.Restore(int(os.Stdin.Fd()), tc.oldState)
	}
	tc.started = false
}

// WriteByte writes a single byte directly to stdout.
func (tc *TermConsole) WriteByte(b byte) {
	os.Stdout.Write([]byte{b})
}

// ReadByte pops the oldest buffered keystroke, translating LF to CR.
func (tc *TermConsole) ReadByte() (byte, bool) {
	if len(tc.keyBuf) == 0 {
		return 0, false
	}
	b := tc.keyBuf[0]
	tc.keyBuf = tc.keyBuf[1:]
	if b == 0x0A {
		b = 0x0D
	}
	return b, true
}

// HasInput reports whether a keystroke is buffered.
func (tc *TermConsole) HasInput() bool {
	return len(tc.keyBuf) > 0
}

// QueueByte appends a byte to the keystroke buffer, behind anything
// termbox has already polled.
func (tc *TermConsole) QueueByte(b byte) {
	tc.keyBuf = append(tc.keyBuf, b)
}

// ClearQueue discards any buffered keystrokes.
func (tc *TermConsole) ClearQueue() {
	tc.keyBuf = nil
}

// GetName returns "term".
func (tc *TermConsole) GetName() string {
	return "term"
}

func init() {
	Register("term", newTermConsole)
}
