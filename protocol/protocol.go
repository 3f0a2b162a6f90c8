// Package protocol implements the framed serial protocol spoken by the
// pixel controller firmware.
//
// Every frame, in both directions, has the same layout:
//
//	0xA5 0x5A | cmd (1 byte) | payload length (u16 LE) | payload | crc8
//
// The CRC-8 (polynomial 0x07, init 0) covers cmd, length and payload —
// everything after the two start-of-frame bytes and before the CRC itself.
package protocol

import "pixeldrive/pixel"

// Start-of-frame marker bytes.
const (
	StartOfFrame1 = 0xA5
	StartOfFrame2 = 0x5A
)

// Frame geometry.
const (
	HeaderSize  = 5 // SOF1 SOF2 cmd lenLo lenHi
	TrailerSize = 1 // crc8

	// MaxPixelsPerFrame bounds the entry count of DELTA and FULL frames.
	MaxPixelsPerFrame = 1024

	// PayloadMax is the largest payload the decoder will accept: a full
	// MaxPixelsPerFrame update (u16 count + 5 bytes per entry).
	PayloadMax = 2 + 5*MaxPixelsPerFrame

	// FrameMax is the largest complete frame.
	FrameMax = HeaderSize + PayloadMax + TrailerSize
)

// Kind identifies a frame's command byte.
type Kind uint8

// Host → device commands and device → host responses.
const (
	KindShow       Kind = 0x04 // latch previously written pixels
	KindAck        Kind = 0x06 // device accepted the last frame
	KindSetPixel   Kind = 0x10 // single pixel: idx u16 LE, r, g, b
	KindDelta      Kind = 0x11 // count u16 LE + count * (idx u16 LE, r, g, b)
	KindFull       Kind = 0x12 // same layout as DELTA, covers the whole array
	KindBrightness Kind = 0x13 // global device brightness, u8
	KindError      Kind = 0x15 // device rejected a frame: code u8
)

func (k Kind) String() string {
	switch k {
	case KindShow:
		return "show"
	case KindAck:
		return "ack"
	case KindSetPixel:
		return "set_pixel"
	case KindDelta:
		return "delta"
	case KindFull:
		return "full"
	case KindBrightness:
		return "brightness"
	case KindError:
		return "error"
	}
	return "unknown"
}

// Message is the decoded form of one frame. Which fields are meaningful
// depends on Kind: Pixels for SetPixel/Delta/Full, Brightness for
// Brightness, ErrCode for Error.
type Message struct {
	Kind       Kind
	Pixels     []pixel.Update
	Brightness uint8
	ErrCode    uint8
}
