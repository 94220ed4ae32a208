//go:build !linux

package cw

import "fmt"

type ossSink struct{}

func newOSSSink() Sink { return &ossSink{} }

func (o *ossSink) Probe(string) error { return fmt.Errorf("%w: oss backend requires linux", ErrNoBackend) }
func (o *ossSink) Open(string) (Handle, uint32, uint32, error) {
	return nil, 0, 0, fmt.Errorf("%w: oss backend requires linux", ErrNoBackend)
}
func (o *ossSink) Write(Handle, []int16) error { return ErrNoBackend }
func (o *ossSink) Close(Handle) error           { return nil }
func (o *ossSink) IsConsole() bool              { return false }
