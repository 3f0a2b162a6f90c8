package protocol

import (
	"errors"
	"fmt"

	"pixeldrive/pixel"
)

var (
	// ErrTooManyPixels is returned when a DELTA or FULL message carries
	// more entries than one frame can hold.
	ErrTooManyPixels = errors.New("too many pixel entries for one frame")

	// ErrBadMessage is returned when a message's kind and fields do not
	// line up.
	ErrBadMessage = errors.New("malformed message")
)

// Encode serializes a message into one complete frame. It is a pure
// function: no side effects, and the same message always produces the same
// bytes.
func Encode(m *Message) ([]byte, error) {
	switch m.Kind {
	case KindShow, KindAck:
		return encodeFrame(m.Kind, nil), nil

	case KindBrightness:
		return encodeFrame(m.Kind, []byte{m.Brightness}), nil

	case KindError:
		return encodeFrame(m.Kind, []byte{m.ErrCode}), nil

	case KindSetPixel:
		if len(m.Pixels) != 1 {
			return nil, fmt.Errorf("%w: set_pixel needs exactly one entry, got %d", ErrBadMessage, len(m.Pixels))
		}
		payload := make([]byte, 0, 5)
		payload = appendUpdate(payload, m.Pixels[0])
		return encodeFrame(m.Kind, payload), nil

	case KindDelta, KindFull:
		if len(m.Pixels) > MaxPixelsPerFrame {
			return nil, fmt.Errorf("%w: %d > %d", ErrTooManyPixels, len(m.Pixels), MaxPixelsPerFrame)
		}
		payload := make([]byte, 0, 2+5*len(m.Pixels))
		payload = append(payload, uint8(len(m.Pixels)), uint8(len(m.Pixels)>>8))
		for _, u := range m.Pixels {
			payload = appendUpdate(payload, u)
		}
		return encodeFrame(m.Kind, payload), nil
	}

	return nil, fmt.Errorf("%w: unknown kind 0x%02X", ErrBadMessage, uint8(m.Kind))
}

// EncodeDelta frames the output of a dirty drain.
func EncodeDelta(updates []pixel.Update) ([]byte, error) {
	return Encode(&Message{Kind: KindDelta, Pixels: updates})
}

// EncodeFull frames a whole-array snapshot.
func EncodeFull(updates []pixel.Update) ([]byte, error) {
	return Encode(&Message{Kind: KindFull, Pixels: updates})
}

// EncodeShow frames a SHOW (latch) command.
func EncodeShow() []byte {
	return encodeFrame(KindShow, nil)
}

// EncodeBrightness frames a global brightness command.
func EncodeBrightness(value uint8) []byte {
	return encodeFrame(KindBrightness, []byte{value})
}

// encodeFrame wraps a payload in SOF, command, length and CRC.
func encodeFrame(kind Kind, payload []byte) []byte {
	frame := make([]byte, 0, HeaderSize+len(payload)+TrailerSize)
	frame = append(frame,
		StartOfFrame1, StartOfFrame2,
		uint8(kind),
		uint8(len(payload)), uint8(len(payload)>>8),
	)
	frame = append(frame, payload...)
	frame = append(frame, CRC8(frame[2:]))
	return frame
}

func appendUpdate(b []byte, u pixel.Update) []byte {
	return append(b,
		uint8(u.Index), uint8(u.Index>>8),
		u.Color.R, u.Color.G, u.Color.B,
	)
}
