package serialapi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/zwcore/pkg/queue"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// Link defaults
const (
	DefaultACKTimeout  = 1600 * time.Millisecond
	DefaultMaxAttempts = 3
)

// Link handles Serial API framing over a byte stream: it acknowledges
// inbound frames, waits for the peer to acknowledge outbound frames and
// retransmits on NAK, CAN or timeout.
//
// A reader goroutine and a writer goroutine own the stream. Neither ever
// blocks on the other side of the link, so two Links can be joined back
// to back over an unbuffered pipe.
type Link struct {
	rw          io.ReadWriteCloser
	name        string
	ackTimeout  time.Duration
	maxAttempts int

	out *queue.Queue[[]byte]
	in  *queue.Queue[Frame]

	// control bytes received while a Send is waiting
	ack     chan byte
	waiting atomic.Bool
	sendMu  sync.Mutex

	statsMu sync.Mutex
	stats   zwave.DriverData

	done      chan struct{}
	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

// LinkOption configures a Link.
type LinkOption func(*Link)

// WithACKTimeout sets how long Send waits for an acknowledgement.
func WithACKTimeout(d time.Duration) LinkOption {
	return func(l *Link) { l.ackTimeout = d }
}

// WithMaxAttempts sets how many times a frame is transmitted before Send
// gives up.
func WithMaxAttempts(n int) LinkOption {
	return func(l *Link) { l.maxAttempts = n }
}

// WithName labels the link in log output.
func WithName(name string) LinkOption {
	return func(l *Link) { l.name = name }
}

// NewLink starts a link over rw. Closing the link closes rw.
func NewLink(rw io.ReadWriteCloser, opts ...LinkOption) *Link {
	l := &Link{
		rw:          rw,
		name:        "serial",
		ackTimeout:  DefaultACKTimeout,
		maxAttempts: DefaultMaxAttempts,
		out:         queue.New[[]byte](),
		in:          queue.New[Frame](),
		ack:         make(chan byte, 1),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.readLoop()
	go l.writeLoop()
	return l
}

// Send transmits f and waits for the peer's ACK, retransmitting up to the
// configured number of attempts. Only one Send runs at a time.
func (l *Link) Send(ctx context.Context, f Frame) error {
	raw, err := f.Encode()
	if err != nil {
		return err
	}

	l.sendMu.Lock()
	defer l.sendMu.Unlock()

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		if attempt > 1 {
			l.count(func(s *zwave.DriverData) { s.Retries++ })
			log.Debug().Str("link", l.name).Str("frame", f.String()).Int("attempt", attempt).Msg("Serial API retransmit")
		}

		// drop a stale control byte from an earlier attempt
		select {
		case <-l.ack:
		default:
		}
		l.waiting.Store(true)
		if !l.out.Push(raw) {
			l.waiting.Store(false)
			return ErrClosed
		}

		timer := time.NewTimer(l.ackTimeout)
		select {
		case b := <-l.ack:
			timer.Stop()
			l.waiting.Store(false)
			if b == ACK {
				return nil
			}
			// NAK or CAN: retransmit
		case <-timer.C:
			l.waiting.Store(false)
			l.count(func(s *zwave.DriverData) { s.NoACK++ })
		case <-ctx.Done():
			timer.Stop()
			l.waiting.Store(false)
			return ctx.Err()
		case <-l.done:
			timer.Stop()
			l.waiting.Store(false)
			return ErrClosed
		}
	}

	l.count(func(s *zwave.DriverData) { s.Dropped++ })
	return fmt.Errorf("%w: %s after %d attempts", ErrNoACK, f, l.maxAttempts)
}

// Ready is signalled when inbound frames are available through Next.
func (l *Link) Ready() <-chan struct{} {
	return l.in.Ready()
}

// Next returns the oldest unconsumed inbound frame.
func (l *Link) Next() (Frame, bool) {
	return l.in.Pop()
}

// Done is closed when the link stops, either by Close or by a stream error.
func (l *Link) Done() <-chan struct{} {
	return l.done
}

// Err returns the error that stopped the link, nil after a clean Close.
func (l *Link) Err() error {
	l.errMu.Lock()
	defer l.errMu.Unlock()
	return l.err
}

// Stats returns the link-level counters.
func (l *Link) Stats() zwave.DriverData {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	return l.stats
}

// Close stops the link and closes the underlying stream.
func (l *Link) Close() error {
	return l.stop(nil)
}

func (l *Link) stop(cause error) error {
	var err error
	l.closeOnce.Do(func() {
		l.errMu.Lock()
		l.err = cause
		l.errMu.Unlock()
		l.out.Close()
		l.in.Close()
		close(l.done)
		err = l.rw.Close()
	})
	return err
}

func (l *Link) count(fn func(*zwave.DriverData)) {
	l.statsMu.Lock()
	fn(&l.stats)
	l.statsMu.Unlock()
}

// writeLoop owns every write to the stream.
func (l *Link) writeLoop() {
	for {
		select {
		case <-l.done:
			return
		case <-l.out.Ready():
		}
		for {
			raw, ok := l.out.Pop()
			if !ok {
				break
			}
			if _, err := l.rw.Write(raw); err != nil {
				l.fail(fmt.Errorf("%w: write: %w", zwave.ErrTransport, err))
				return
			}
			if len(raw) > 1 {
				l.count(func(s *zwave.DriverData) { s.WriteCnt++ })
			}
		}
	}
}

// readLoop continuously reads bytes from the stream.
func (l *Link) readLoop() {
	r := bufio.NewReader(l.rw)
	for {
		b, err := r.ReadByte()
		if err != nil {
			l.fail(fmt.Errorf("%w: read: %w", zwave.ErrTransport, err))
			return
		}

		switch b {
		case SOF:
			l.count(func(s *zwave.DriverData) { s.SOFCnt++ })
			l.readFrame(r)
		case ACK:
			l.count(func(s *zwave.DriverData) { s.ACKCnt++ })
			l.control(b)
		case NAK:
			l.count(func(s *zwave.DriverData) { s.NAKCnt++ })
			l.control(b)
		case CAN:
			l.count(func(s *zwave.DriverData) { s.CANCnt++ })
			l.control(b)
		default:
			l.count(func(s *zwave.DriverData) { s.OOFCnt++ })
		}
	}
}

func (l *Link) readFrame(r *bufio.Reader) {
	n, err := r.ReadByte()
	if err != nil {
		l.count(func(s *zwave.DriverData) { s.ReadAborts++ })
		l.fail(fmt.Errorf("%w: read: %w", zwave.ErrTransport, err))
		return
	}
	raw := make([]byte, int(n)+1)
	raw[0] = n
	if _, err := io.ReadFull(r, raw[1:]); err != nil {
		l.count(func(s *zwave.DriverData) { s.ReadAborts++ })
		l.fail(fmt.Errorf("%w: read: %w", zwave.ErrTransport, err))
		return
	}

	f, err := Decode(raw)
	if err != nil {
		if errors.Is(err, ErrBadChecksum) {
			l.count(func(s *zwave.DriverData) { s.BadChecksum++ })
		} else {
			l.count(func(s *zwave.DriverData) { s.ReadAborts++ })
		}
		log.Warn().Str("link", l.name).Err(err).Msg("Serial API frame discarded")
		l.out.Push([]byte{NAK})
		return
	}

	l.out.Push([]byte{ACK})
	l.count(func(s *zwave.DriverData) {
		s.ReadCnt++
		if l.waiting.Load() {
			s.ACKWaiting++
		}
	})
	l.in.Push(f)
}

// control forwards an ACK, NAK or CAN to a waiting Send.
func (l *Link) control(b byte) {
	if !l.waiting.Load() {
		return
	}
	select {
	case l.ack <- b:
	default:
	}
}

func (l *Link) fail(err error) {
	select {
	case <-l.done:
		// closed deliberately; the read error is the close itself
		return
	default:
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
		log.Info().Str("link", l.name).Msg("Serial API peer closed the stream")
	} else {
		log.Error().Str("link", l.name).Err(err).Msg("Serial API link failed")
	}
	_ = l.stop(err)
}
