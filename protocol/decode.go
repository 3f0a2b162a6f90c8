package protocol

import "pixeldrive/pixel"

// EventKind classifies what the decoder found in the stream.
type EventKind uint8

const (
	// EventAck is a checksum-valid ACK frame from the device.
	EventAck EventKind = iota

	// EventError is a checksum-valid ERROR frame; Code carries the
	// device's error byte.
	EventError

	// EventMessage is any other checksum-valid frame; Msg carries the
	// decoded message. Mainly useful for loopback and reference decoding.
	EventMessage

	// EventMalformed is a frame that failed its length, CRC or payload
	// checks. The decoder has already resynchronized past it; the caller
	// decides the recovery policy (typically a full-frame resend).
	EventMalformed
)

func (k EventKind) String() string {
	switch k {
	case EventAck:
		return "ack"
	case EventError:
		return "error"
	case EventMessage:
		return "message"
	case EventMalformed:
		return "malformed"
	}
	return "unknown"
}

// Event is one decoded result from the incoming byte stream.
type Event struct {
	Kind EventKind
	Code uint8    // device error code, EventError only
	Msg  *Message // decoded message, EventMessage only
}

// decodeState tracks the decoder's progress through a frame. The buffer is
// kept aligned so that its first byte is the frame's SOF1 in every state
// after seekingStart.
type decodeState uint8

const (
	seekingStart decodeState = iota
	readingHeader
	readingPayload
	readingChecksum
)

// Decoder is a streaming parser over the device's response stream. Feed it
// byte chunks as they arrive from the serial port; it buffers partial frames
// across calls and emits one Event per complete frame found. Its internal
// buffer is bounded, so a stream with no valid start marker cannot grow it
// without limit.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	buf        *StreamBuffer
	state      decodeState
	payloadLen int
}

// NewDecoder creates a decoder with a buffer bound of one maximum frame
// plus slack for garbage between frames.
func NewDecoder() *Decoder {
	return &Decoder{
		buf: NewStreamBuffer(FrameMax + 256),
	}
}

// Feed appends a chunk of incoming bytes and returns every event completed
// by it, in stream order. An empty chunk is allowed and yields whatever the
// buffered bytes already complete.
func (d *Decoder) Feed(chunk []byte) []Event {
	if discarded := d.buf.Write(chunk); discarded > 0 {
		// Oldest bytes are gone; any partial frame they belonged to is
		// unrecoverable.
		d.state = seekingStart
	}

	var events []Event
	for {
		data := d.buf.Data()

		switch d.state {
		case seekingStart:
			idx := findStart(data)
			if idx < 0 {
				// Keep a trailing SOF1 in case its pair arrives in the
				// next chunk; everything before it is garbage.
				if n := len(data); n > 0 && data[n-1] == StartOfFrame1 {
					d.buf.Pop(n - 1)
				} else {
					d.buf.Pop(n)
				}
				return events
			}
			d.buf.Pop(idx)
			d.state = readingHeader

		case readingHeader:
			if len(data) < HeaderSize {
				return events
			}
			d.payloadLen = int(data[3]) | int(data[4])<<8
			if d.payloadLen > PayloadMax {
				events = append(events, Event{Kind: EventMalformed})
				d.resync()
				continue
			}
			d.state = readingPayload

		case readingPayload:
			if len(data) < HeaderSize+d.payloadLen {
				return events
			}
			d.state = readingChecksum

		case readingChecksum:
			total := HeaderSize + d.payloadLen + TrailerSize
			if len(data) < total {
				return events
			}
			body := data[2 : HeaderSize+d.payloadLen]
			if CRC8(body) != data[total-1] {
				events = append(events, Event{Kind: EventMalformed})
				d.resync()
				continue
			}
			events = append(events, parseFrame(Kind(data[2]), data[HeaderSize:HeaderSize+d.payloadLen]))
			d.buf.Pop(total)
			d.state = seekingStart
		}
	}
}

// resync abandons the frame at the front of the buffer: skip its start
// marker and scan for the next one.
func (d *Decoder) resync() {
	d.buf.Pop(2)
	d.state = seekingStart
}

// findStart returns the offset of the first SOF pair, or -1.
func findStart(data []byte) int {
	for i := 0; i+1 < len(data); i++ {
		if data[i] == StartOfFrame1 && data[i+1] == StartOfFrame2 {
			return i
		}
	}
	return -1
}

// parseFrame turns a checksum-valid frame body into an event. Payload shape
// violations still count as malformed: the CRC only proves transport
// integrity, not that the sender framed a sensible command.
func parseFrame(kind Kind, payload []byte) Event {
	switch kind {
	case KindAck:
		if len(payload) != 0 {
			return Event{Kind: EventMalformed}
		}
		return Event{Kind: EventAck}

	case KindError:
		if len(payload) != 1 {
			return Event{Kind: EventMalformed}
		}
		return Event{Kind: EventError, Code: payload[0]}

	case KindShow:
		if len(payload) != 0 {
			return Event{Kind: EventMalformed}
		}
		return Event{Kind: EventMessage, Msg: &Message{Kind: kind}}

	case KindBrightness:
		if len(payload) != 1 {
			return Event{Kind: EventMalformed}
		}
		return Event{Kind: EventMessage, Msg: &Message{Kind: kind, Brightness: payload[0]}}

	case KindSetPixel:
		if len(payload) != 5 {
			return Event{Kind: EventMalformed}
		}
		return Event{Kind: EventMessage, Msg: &Message{
			Kind:   kind,
			Pixels: []pixel.Update{decodeUpdate(payload)},
		}}

	case KindDelta, KindFull:
		if len(payload) < 2 {
			return Event{Kind: EventMalformed}
		}
		count := int(payload[0]) | int(payload[1])<<8
		if count > MaxPixelsPerFrame || len(payload) != 2+5*count {
			return Event{Kind: EventMalformed}
		}
		msg := &Message{Kind: kind, Pixels: make([]pixel.Update, count)}
		for i := 0; i < count; i++ {
			msg.Pixels[i] = decodeUpdate(payload[2+5*i:])
		}
		return Event{Kind: EventMessage, Msg: msg}
	}

	return Event{Kind: EventMalformed}
}

func decodeUpdate(b []byte) pixel.Update {
	return pixel.Update{
		Index: uint16(b[0]) | uint16(b[1])<<8,
		Color: pixel.Color{R: b[2], G: b[3], B: b[4]},
	}
}
