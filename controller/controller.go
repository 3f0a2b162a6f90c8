// Package controller runs the pipeline between the keyboard and the serial
// port: key events become edge transitions, transitions light pixels,
// dirty pixels are drained, encoded and written once per frame tick.
//
// The Run loop is the single writer: it alone mutates the pixel array and
// the write side of the port. The input device and the serial read side run
// as feeder goroutines behind bounded channels.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"pixeldrive/input"
	"pixeldrive/pixel"
	"pixeldrive/protocol"
	"pixeldrive/serial"
)

// ErrIO wraps transport read/write failures. They are surfaced to the
// caller rather than retried: a disconnected board needs operator action.
var ErrIO = errors.New("transport I/O error")

// Backoff bounds for resending a rejected full frame.
const (
	backoffBase = 100 * time.Millisecond
	backoffMax  = 5 * time.Second
)

// Linux KEY_LEFT / KEY_RIGHT. The arrow keys move the selection cursor
// instead of lighting a mapped pixel.
const (
	keyCodeLeft  uint16 = 105
	keyCodeRight uint16 = 106
)

// Options tunes the pipeline.
type Options struct {
	// FPS is the flush rate: how often dirty pixels are drained and
	// transmitted.
	FPS int

	// Brightness is the global device brightness sent at startup.
	Brightness uint8

	// Fade is how long a lit pixel takes to decay to black. Zero disables
	// fading; released keys then turn their pixel off immediately.
	Fade time.Duration

	// Debounce suppresses key transitions that repeat within the window.
	// Zero disables it.
	Debounce time.Duration
}

// KeySource yields raw key events. *input.Device implements it; tests
// substitute a scripted source.
type KeySource interface {
	ReadKey() (input.KeyEvent, error)
}

// Controller owns the pixel array and drives the serial peer.
type Controller struct {
	log    zerolog.Logger
	opts   Options
	arr    *pixel.Array
	keys   *input.KeyState
	keymap *Keymap
	port   serial.Port
	dec    *protocol.Decoder

	// publish, when set, receives a snapshot after every flushed frame.
	publish func([]pixel.Update)

	keyCh   chan input.KeyEvent
	protoCh chan protocol.Event
	errCh   chan error

	// backoff state for full frames the device rejected
	backoff   time.Duration
	awaitFull bool
}

// New creates a controller over an array of n pixels.
func New(port serial.Port, keymap *Keymap, n int, opts Options, logger zerolog.Logger) *Controller {
	if opts.FPS <= 0 {
		opts.FPS = 50
	}
	return &Controller{
		log:     logger,
		opts:    opts,
		arr:     pixel.New(n),
		keys:    input.NewKeyState(opts.Debounce),
		keymap:  keymap,
		port:    port,
		dec:     protocol.NewDecoder(),
		keyCh:   make(chan input.KeyEvent, 64),
		protoCh: make(chan protocol.Event, 16),
		errCh:   make(chan error, 1),
	}
}

// SetPublisher registers a sink for flushed frame snapshots (the preview
// server). Must be called before Run.
func (c *Controller) SetPublisher(fn func([]pixel.Update)) {
	c.publish = fn
}

// Array exposes the pixel array for inspection. Only safe before Run starts
// or after it returns.
func (c *Controller) Array() *pixel.Array {
	return c.arr
}

// Run drives the pipeline until ctx is cancelled or the transport fails.
// On cancellation it clears the strip and latches a final black frame so no
// partial frame is left half-written for the next session.
func (c *Controller) Run(ctx context.Context, source KeySource) error {
	// Bring the device to a known state: black everywhere, brightness set.
	if err := c.syncFull(); err != nil {
		return err
	}
	if err := c.write(protocol.EncodeBrightness(c.opts.Brightness)); err != nil {
		return err
	}
	if err := c.write(protocol.EncodeShow()); err != nil {
		return err
	}

	go c.readKeys(ctx, source)
	go c.readSerial(ctx)

	flush := time.NewTicker(time.Second / time.Duration(c.opts.FPS))
	defer flush.Stop()
	lastFlush := time.Now()

	// Armed while waiting out a backoff delay before resending a full
	// frame; nil otherwise so the select ignores it.
	var retryCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return c.shutdown()

		case err := <-c.errCh:
			return err

		case ev := <-c.keyCh:
			c.handleKey(ev)

		case pe := <-c.protoCh:
			retry, err := c.handleProtocol(pe)
			if err != nil {
				return err
			}
			if retry != nil {
				retryCh = retry
			}

		case <-retryCh:
			retryCh = nil
			c.log.Info().Msg("resending full frame after backoff")
			if err := c.resyncFull(); err != nil {
				return err
			}

		case now := <-flush.C:
			c.fade(now.Sub(lastFlush))
			lastFlush = now
			if err := c.flush(); err != nil {
				return err
			}
		}
	}
}

// handleKey folds one raw event into the key tracker and applies its edge
// to the array. Arrow keys move the cursor; unmapped codes and out-of-range
// bindings are inert.
func (c *Controller) handleKey(ev input.KeyEvent) {
	binding, ok := c.keymap.Lookup(ev.Code)

	switch c.keys.Apply(ev) {
	case input.PressedNow:
		switch ev.Code {
		case keyCodeLeft:
			c.moveCursor(-1)
			return
		case keyCodeRight:
			c.moveCursor(+1)
			return
		}
		if !ok {
			return
		}
		if err := c.arr.Set(binding.Index, binding.Color); err != nil {
			c.log.Warn().Err(err).
				Uint16("key", ev.Code).
				Uint16("index", binding.Index).
				Msg("key binding points past the array")
			return
		}
		c.log.Debug().Uint16("key", ev.Code).Uint16("index", binding.Index).Msg("key pressed")

	case input.ReleasedNow:
		if ev.Code == keyCodeLeft || ev.Code == keyCodeRight {
			return
		}
		// With fading enabled the decay loop darkens the pixel; without
		// it the release turns the pixel off directly.
		if ok && c.opts.Fade <= 0 {
			_ = c.arr.Set(binding.Index, pixel.Black)
		}
	}
}

// moveCursor shifts the selection by delta with wraparound, lighting the
// newly selected pixel in the default color. The selected pixel is exempt
// from fading; the previously selected one decays normally once deselected.
func (c *Controller) moveCursor(delta int) {
	n := c.arr.Len()
	if n == 0 {
		return
	}
	cur := c.arr.Selected()
	if cur < 0 {
		if delta < 0 {
			cur = n - 1
		} else {
			cur = 0
		}
	} else {
		cur = (cur + delta + n) % n
	}
	_ = c.arr.Select(cur)
	_ = c.arr.Set(uint16(cur), c.keymap.DefaultColor())
	c.log.Debug().Int("index", cur).Msg("cursor moved")
}

// handleProtocol reacts to one decoded event from the device. It returns a
// non-nil channel when a backoff timer was armed.
func (c *Controller) handleProtocol(pe protocol.Event) (<-chan time.Time, error) {
	switch pe.Kind {
	case protocol.EventAck:
		c.backoff = 0
		c.awaitFull = false
		c.log.Debug().Msg("device ack")

	case protocol.EventError:
		if !c.awaitFull {
			c.log.Warn().Uint8("code", pe.Code).Msg("device reported error")
			return nil, nil
		}
		// The device rejected our full frame: back off before resending
		// instead of spinning.
		if c.backoff == 0 {
			c.backoff = backoffBase
		} else if c.backoff *= 2; c.backoff > backoffMax {
			c.backoff = backoffMax
		}
		c.log.Warn().
			Uint8("code", pe.Code).
			Dur("backoff", c.backoff).
			Msg("device rejected full frame")
		return time.After(c.backoff), nil

	case protocol.EventMalformed:
		// The response stream lost framing; assume the device state is
		// suspect and resynchronize with a full frame.
		c.log.Warn().Msg("malformed frame from device, resyncing")
		if err := c.resyncFull(); err != nil {
			return nil, err
		}

	case protocol.EventMessage:
		c.log.Debug().Stringer("kind", pe.Msg.Kind).Msg("unexpected message from device")
	}
	return nil, nil
}

// fade advances the decay of lit pixels by the elapsed wall time.
func (c *Controller) fade(elapsed time.Duration) {
	if c.opts.Fade <= 0 || elapsed <= 0 {
		return
	}
	step := int64(elapsed) * 255 / int64(c.opts.Fade)
	if step < 1 {
		step = 1
	}
	if step > 255 {
		step = 255
	}
	c.arr.Dim(uint8(step))
}

// flush drains dirty pixels and transmits them as one delta frame followed
// by a latch. Nothing dirty means nothing written.
func (c *Controller) flush() error {
	updates := c.arr.DrainDirty()
	if len(updates) == 0 {
		return nil
	}

	frame, err := protocol.EncodeDelta(updates)
	if err != nil {
		return fmt.Errorf("encoding delta of %d pixels: %w", len(updates), err)
	}
	if err := c.write(frame); err != nil {
		return err
	}
	if err := c.write(protocol.EncodeShow()); err != nil {
		return err
	}
	c.awaitFull = false

	if c.publish != nil {
		c.publish(c.arr.Snapshot())
	}
	return nil
}

// syncFull transmits the whole array state.
func (c *Controller) syncFull() error {
	frame, err := protocol.EncodeFull(c.arr.Snapshot())
	if err != nil {
		return fmt.Errorf("encoding full frame: %w", err)
	}
	if err := c.write(frame); err != nil {
		return err
	}
	c.awaitFull = true
	return nil
}

// resyncFull is syncFull plus the latch, used for recovery paths.
func (c *Controller) resyncFull() error {
	if err := c.syncFull(); err != nil {
		return err
	}
	return c.write(protocol.EncodeShow())
}

// shutdown blanks the strip so the next session starts from a clean frame
// boundary. Write failures here are logged, not returned: we are exiting
// either way.
func (c *Controller) shutdown() error {
	c.arr.Clear()
	if err := c.resyncFull(); err != nil {
		c.log.Warn().Err(err).Msg("final blank frame failed")
	}
	return nil
}

// write pushes one complete frame to the port.
func (c *Controller) write(frame []byte) error {
	for len(frame) > 0 {
		n, err := c.port.Write(frame)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		frame = frame[n:]
	}
	return nil
}

// readKeys feeds raw key events into the run loop. When the channel is full
// the oldest event is dropped rather than blocking the device read.
func (c *Controller) readKeys(ctx context.Context, source KeySource) {
	for {
		ev, err := source.ReadKey()
		if err != nil {
			select {
			case c.errCh <- fmt.Errorf("input device: %w", err):
			default:
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		case c.keyCh <- ev:
		default:
			select {
			case <-c.keyCh:
			default:
			}
			select {
			case c.keyCh <- ev:
			default:
			}
		}
	}
}

// readSerial feeds decoded device events into the run loop. tarm/serial
// signals a read timeout as io.EOF, which just means "no bytes yet".
func (c *Controller) readSerial(ctx context.Context) {
	buf := make([]byte, 256)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := c.port.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				continue
			}
			select {
			case c.errCh <- fmt.Errorf("%w: serial read: %v", ErrIO, err):
			default:
			}
			return
		}
		if n == 0 {
			continue
		}

		for _, ev := range c.dec.Feed(buf[:n]) {
			select {
			case <-ctx.Done():
				return
			case c.protoCh <- ev:
			}
		}
	}
}
