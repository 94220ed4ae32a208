package cw

import (
	"errors"
	"fmt"

	yalsa "github.com/yobert/alsa"
)

// alsaSink plays through a negotiated ALSA PCM device, grounded on the
// card/device enumeration and channel/rate/format negotiation dance the
// ausocean ALSA input device uses, mirrored here for a playback device
// (dev.Play instead of dev.Record).
type alsaSink struct {
	title string
}

func newALSASink() Sink { return &alsaSink{} }

type alsaHandle struct {
	dev *yalsa.Device
}

func findPlaybackDevice(title string) (*yalsa.Device, error) {
	cards, err := yalsa.OpenCards()
	if err != nil {
		return nil, err
	}
	defer yalsa.CloseCards(cards)

	for _, card := range cards {
		devices, err := card.Devices()
		if err != nil {
			continue
		}
		for _, dev := range devices {
			if dev.Type != yalsa.PCM || !dev.Play {
				continue
			}
			if title == "" || dev.Title == title {
				return dev, nil
			}
		}
	}
	return nil, errors.New("no ALSA playback device found")
}

func (a *alsaSink) Probe(device string) error {
	dev, err := findPlaybackDevice(device)
	if err != nil {
		return fmt.Errorf("%w: probe ALSA device: %v", ErrNoBackend, err)
	}
	return dev.Close()
}

func (a *alsaSink) Open(device string) (Handle, uint32, uint32, error) {
	dev, err := findPlaybackDevice(device)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrNoBackend, err)
	}
	if err := dev.Open(); err != nil {
		return nil, 0, 0, fmt.Errorf("%w: open ALSA device: %v", ErrIoError, err)
	}

	if _, err := dev.NegotiateChannels(1); err != nil {
		dev.Close()
		return nil, 0, 0, fmt.Errorf("%w: negotiate ALSA channels: %v", ErrNoBackend, err)
	}

	var rate int
	for _, r := range SampleRates {
		rate, err = dev.NegotiateRate(int(r))
		if err == nil {
			break
		}
	}
	if err != nil {
		dev.Close()
		return nil, 0, 0, fmt.Errorf("%w: no accepted ALSA rate: %v", ErrNoBackend, err)
	}

	if _, err := dev.NegotiateFormat(yalsa.S16_LE); err != nil {
		dev.Close()
		return nil, 0, 0, fmt.Errorf("%w: negotiate ALSA format: %v", ErrNoBackend, err)
	}

	periodSize, err := dev.NegotiatePeriodSize(512)
	if err != nil {
		dev.Close()
		return nil, 0, 0, fmt.Errorf("%w: negotiate ALSA period size: %v", ErrNoBackend, err)
	}
	if _, err := dev.NegotiateBufferSize(periodSize * 4); err != nil {
		dev.Close()
		return nil, 0, 0, fmt.Errorf("%w: negotiate ALSA buffer size: %v", ErrNoBackend, err)
	}

	if err := dev.Prepare(); err != nil {
		dev.Close()
		return nil, 0, 0, fmt.Errorf("%w: prepare ALSA device: %v", ErrIoError, err)
	}

	return &alsaHandle{dev: dev}, uint32(rate), uint32(periodSize), nil
}

func (a *alsaSink) Write(h Handle, samples []int16) error {
	ah, ok := h.(*alsaHandle)
	if !ok || ah.dev == nil {
		return ErrNoBackend
	}
	buf := int16SliceToBytes(samples)
	if err := ah.dev.Write(buf); err != nil {
		// Recover from an underrun: re-prepare the device and retry once.
		if perr := ah.dev.Prepare(); perr != nil {
			return fmt.Errorf("%w: write ALSA device: %v", ErrIoError, err)
		}
		if err := ah.dev.Write(buf); err != nil {
			return fmt.Errorf("%w: write ALSA device: %v", ErrIoError, err)
		}
	}
	return nil
}

func (a *alsaSink) Close(h Handle) error {
	ah, ok := h.(*alsaHandle)
	if !ok || ah.dev == nil {
		return nil
	}
	return ah.dev.Close()
}

func (a *alsaSink) IsConsole() bool { return false }
