//go:build linux

package cw

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// OSS (Open Sound System) /dev/dsp ioctls, grounded on the same
// syscall.Syscall(SYS_IOCTL, fd, cmd, arg) shape used for console output
// and for the ioctl-based device plumbing in Daedaluz-goserial.
const (
	sndctlDspSpeed    = 0xC0045002 // _IOWR('P', 2, int)
	sndctlDspSetfmt   = 0xC0045005 // _IOWR('P', 5, int)
	sndctlDspChannels = 0xC0045006 // _IOWR('P', 6, int)
	sndctlDspGetblksize = 0xC0045004 // _IOWR('P', 4, int)
	afmtS16Ne         = 0x00000010 // AFMT_S16_NE (native-endian signed 16-bit)
)

const defaultOSSDevice = "/dev/dsp"

// ossSink writes S16 native-endian mono samples directly to /dev/dsp,
// negotiating sample rate and fragment size via ioctl at Open time (spec
// §4.4: "configured fragment size (OSS)").
type ossSink struct{}

func newOSSSink() Sink { return &ossSink{} }

type ossHandle struct {
	f *os.File
}

func (o *ossSink) Probe(device string) error {
	if device == "" {
		device = defaultOSSDevice
	}
	f, err := os.OpenFile(device, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("%w: probe OSS device %s: %v", ErrNoBackend, device, err)
	}
	return f.Close()
}

func ossIoctl(fd uintptr, req uintptr, arg *int32) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(unsafe.Pointer(arg)))
	if errno != 0 {
		return errno
	}
	return nil
}

func (o *ossSink) Open(device string) (Handle, uint32, uint32, error) {
	if device == "" {
		device = defaultOSSDevice
	}
	f, err := os.OpenFile(device, os.O_WRONLY, 0)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: open OSS device %s: %v", ErrNoBackend, device, err)
	}

	fmtArg := int32(afmtS16Ne)
	if err := ossIoctl(f.Fd(), sndctlDspSetfmt, &fmtArg); err != nil {
		f.Close()
		return nil, 0, 0, fmt.Errorf("%w: SNDCTL_DSP_SETFMT: %v", ErrIoError, err)
	}

	chArg := int32(1)
	if err := ossIoctl(f.Fd(), sndctlDspChannels, &chArg); err != nil {
		f.Close()
		return nil, 0, 0, fmt.Errorf("%w: SNDCTL_DSP_CHANNELS: %v", ErrIoError, err)
	}

	var negotiated uint32
	for _, rate := range SampleRates {
		rateArg := int32(rate)
		if err := ossIoctl(f.Fd(), sndctlDspSpeed, &rateArg); err == nil {
			negotiated = uint32(rateArg)
			break
		}
	}
	if negotiated == 0 {
		f.Close()
		return nil, 0, 0, fmt.Errorf("%w: no accepted sample rate", ErrNoBackend)
	}

	var blkArg int32
	period := uint32(512)
	if err := ossIoctl(f.Fd(), sndctlDspGetblksize, &blkArg); err == nil && blkArg > 0 {
		period = uint32(blkArg) / 2 // bytes -> S16 samples
	}

	return &ossHandle{f: f}, negotiated, period, nil
}

func (o *ossSink) Write(h Handle, samples []int16) error {
	oh, ok := h.(*ossHandle)
	if !ok || oh.f == nil {
		return ErrNoBackend
	}
	buf := int16SliceToBytes(samples)
	for len(buf) > 0 {
		n, err := oh.f.Write(buf)
		if err != nil {
			return fmt.Errorf("%w: write OSS device: %v", ErrIoError, err)
		}
		if n < len(buf) {
			// Short write: diagnostic only, per spec §4.4.
			fmt.Fprintf(os.Stderr, "cw: oss short write: %d of %d bytes\n", n, len(buf))
		}
		buf = buf[n:]
	}
	return nil
}

func (o *ossSink) Close(h Handle) error {
	oh, ok := h.(*ossHandle)
	if !ok || oh.f == nil {
		return nil
	}
	return oh.f.Close()
}

func (o *ossSink) IsConsole() bool { return false }
