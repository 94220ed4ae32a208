//go:build linux

package cw

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Console PC-speaker ioctls (linux/kd.h), grounded on the ioctl-driven
// device handling in Daedaluz-goserial and doismellburning-samoyed's
// termios/gpio backends -- console tone generation is the same shape as
// those: syscall.Syscall(SYS_IOCTL, fd, cmd, arg).
const (
	kiocsound    = 0x4B2F
	clockTickHz  = 1193180 // PIT input clock, the classic PC speaker divisor base.
)

// consoleSink drives the PC speaker via KIOCSOUND: a frequency-divider
// value, not synthesised samples (spec §4.4: "it does not synthesise
// samples; it drives an on/off tone by writing a frequency-divider value").
// It ignores volume beyond {0, non-zero}.
type consoleSink struct{}

func newConsoleSink() Sink { return &consoleSink{} }

type consoleHandle struct {
	f *os.File
}

const defaultConsoleDevice = "/dev/console"

func (c *consoleSink) Probe(device string) error {
	if device == "" {
		device = defaultConsoleDevice
	}
	f, err := os.OpenFile(device, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("%w: probe console device %s: %v", ErrNoBackend, device, err)
	}
	return f.Close()
}

func (c *consoleSink) Open(device string) (Handle, uint32, uint32, error) {
	if device == "" {
		device = defaultConsoleDevice
	}
	f, err := os.OpenFile(device, os.O_WRONLY, 0)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: open console device %s: %v", ErrNoBackend, device, err)
	}
	// Sample rate/period are meaningless for the console backend; report
	// nominal values so callers sizing buffers don't special-case it.
	return &consoleHandle{f: f}, 44100, 0, nil
}

// Write is never called for the console backend -- the generator special
// cases IsConsole() and calls Tone directly instead of synthesising
// samples. Kept to satisfy the Sink interface.
func (c *consoleSink) Write(Handle, []int16) error { return nil }

func (c *consoleSink) Close(h Handle) error {
	ch, ok := h.(*consoleHandle)
	if !ok || ch.f == nil {
		return nil
	}
	_ = c.Tone(h, 0)
	return ch.f.Close()
}

func (c *consoleSink) IsConsole() bool { return true }

// Tone drives the console speaker at frequencyHz (0 silences it), by
// writing clockTickHz/frequencyHz to KIOCSOUND.
func (c *consoleSink) Tone(h Handle, frequencyHz int) error {
	ch, ok := h.(*consoleHandle)
	if !ok || ch.f == nil {
		return ErrNoBackend
	}
	var divisor uintptr
	if frequencyHz > 0 {
		divisor = uintptr(clockTickHz / frequencyHz)
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, ch.f.Fd(), kiocsound, divisor)
	if errno != 0 {
		return fmt.Errorf("%w: KIOCSOUND: %v", ErrIoError, errno)
	}
	return nil
}
