// Package input reads raw key events from a Linux input device and tracks
// per-key pressed state, turning the kernel's down/up/auto-repeat stream
// into edge-triggered transitions.
package input

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Linux struct input_event on 64-bit: two 8-byte timestamp words, then
// type (u16), code (u16), value (s32).
const (
	eventSize = 24

	evKey = 0x01

	valueUp     = 0
	valueDown   = 1
	valueRepeat = 2
)

// KeyEvent is one raw key transition from the device. Auto-repeat events
// are reported as downs with Repeat set; KeyState flattens them to NoChange.
type KeyEvent struct {
	Code   uint16
	Down   bool
	Repeat bool
	Time   time.Time
}

// Device wraps an opened /dev/input/event* node.
type Device struct {
	f    *os.File
	path string
}

// OpenDevice opens an input event device for reading.
func OpenDevice(path string) (*Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input device %s: %w", path, err)
	}
	return &Device{f: f, path: path}, nil
}

// Path returns the device node path.
func (d *Device) Path() string {
	return d.path
}

// ReadKey blocks until the next EV_KEY event and returns it. Events of
// other types (sync, misc, LED) are skipped.
func (d *Device) ReadKey() (KeyEvent, error) {
	buf := make([]byte, eventSize)
	for {
		if _, err := io.ReadFull(d.f, buf); err != nil {
			return KeyEvent{}, fmt.Errorf("failed to read input event: %w", err)
		}

		typ := binary.LittleEndian.Uint16(buf[16:18])
		if typ != evKey {
			continue
		}

		value := int32(binary.LittleEndian.Uint32(buf[20:24]))
		if value != valueUp && value != valueDown && value != valueRepeat {
			continue
		}

		sec := int64(binary.LittleEndian.Uint64(buf[0:8]))
		usec := int64(binary.LittleEndian.Uint64(buf[8:16]))

		return KeyEvent{
			Code:   binary.LittleEndian.Uint16(buf[18:20]),
			Down:   value == valueDown || value == valueRepeat,
			Repeat: value == valueRepeat,
			Time:   time.Unix(sec, usec*1000),
		}, nil
	}
}

// Close releases the device node.
func (d *Device) Close() error {
	return d.f.Close()
}

// Autodetect finds a keyboard device node: stable by-id paths ending in
// -event-kbd are preferred, any event node is the fallback. Returns ""
// when nothing is present.
func Autodetect() string {
	if byID, _ := filepath.Glob("/dev/input/by-id/*-event-kbd"); len(byID) > 0 {
		return byID[0]
	}
	if nodes, _ := filepath.Glob("/dev/input/event*"); len(nodes) > 0 {
		return nodes[0]
	}
	return ""
}
