package protocol

// StreamBuffer accumulates incoming serial bytes between decoder calls.
// Reads arrive in arbitrary-sized chunks, so a frame may be split across
// several writes or several frames may land in one write.
//
// The buffer is bounded: once it holds more than its watermark the oldest
// bytes are discarded, so a stream that never produces a valid start marker
// cannot grow it without limit.
type StreamBuffer struct {
	buf       []byte
	watermark int
}

// NewStreamBuffer creates a buffer that discards oldest data beyond
// watermark bytes.
func NewStreamBuffer(watermark int) *StreamBuffer {
	return &StreamBuffer{
		buf:       make([]byte, 0, watermark),
		watermark: watermark,
	}
}

// Write appends data and returns the number of oldest bytes discarded to
// stay under the watermark.
func (s *StreamBuffer) Write(data []byte) int {
	s.buf = append(s.buf, data...)
	if len(s.buf) <= s.watermark {
		return 0
	}
	discard := len(s.buf) - s.watermark
	s.buf = s.buf[discard:]
	return discard
}

// Data returns the buffered bytes. The slice is only valid until the next
// Write or Pop.
func (s *StreamBuffer) Data() []byte {
	return s.buf
}

// Available returns the number of buffered bytes.
func (s *StreamBuffer) Available() int {
	return len(s.buf)
}

// Pop removes n bytes from the front of the buffer.
func (s *StreamBuffer) Pop(n int) {
	if n > len(s.buf) {
		n = len(s.buf)
	}
	s.buf = s.buf[n:]
}

// Reset discards all buffered data.
func (s *StreamBuffer) Reset() {
	s.buf = s.buf[:0]
}
