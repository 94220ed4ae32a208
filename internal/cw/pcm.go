package cw

import "unsafe"

// int16SliceToBytes reinterprets a []int16 as its little/native-endian byte
// representation for a single write(2) syscall, mirroring the zero-copy
// byte<->sample conversions the teacher's audio/capture.go uses for
// capture; here it runs in the opposite direction, for playback.
func int16SliceToBytes(samples []int16) []byte {
	if len(samples) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), len(samples)*2)
}

// int16SliceFromBytesMut reinterprets a backend-owned []byte output buffer
// as a writable []int16, the mirror image of int16SliceToBytes, for sinks
// (malgo) that hand us a byte buffer to fill in place.
func int16SliceFromBytesMut(buf []byte) []int16 {
	if len(buf) == 0 {
		return nil
	}
	return unsafe.Slice((*int16)(unsafe.Pointer(&buf[0])), len(buf)/2)
}
