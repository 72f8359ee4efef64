package camera

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"syscall"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/pebbe/zmq4"

	"github.com/e7canasta/orion-gatekeeper/internal/vision"
)

// zmqRecvTimeout bounds each receive so the loop notices context
// cancellation without a poller.
const zmqRecvTimeout = 500 * time.Millisecond

// ZMQConfig describes a remote grayscale frame feed.
type ZMQConfig struct {
	// Endpoint is the PUSH peer to connect to, e.g. "tcp://127.0.0.1:5557".
	Endpoint string
	Width    int
	Height   int

	// LogEvery throttles receive and decode error logging to every Nth
	// occurrence. Zero means every occurrence.
	LogEvery int
}

func (c ZMQConfig) validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("zmq: endpoint is required")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("zmq: invalid frame size %dx%d", c.Width, c.Height)
	}
	return nil
}

// wireFrame is the CBOR message shape pushed by the remote sampler. Messages
// with any other type tag are skipped.
type wireFrame struct {
	Type   string `cbor:"type"`
	Width  int    `cbor:"width"`
	Height int    `cbor:"height"`
	Seq    uint64 `cbor:"seq"`
	Data   []byte `cbor:"data"`
}

// ZMQSource pulls grayscale frames from a remote sampler over a ZeroMQ PULL
// socket. Malformed or mismatched messages are skipped and logged with
// throttling; the feed itself is never torn down by bad input.
type ZMQSource struct {
	cfg  ZMQConfig
	mb   *mailbox
	pool *bufferPool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	errCount uint64
}

// NewZMQSource creates a source for the given feed.
func NewZMQSource(cfg ZMQConfig) *ZMQSource {
	s := &ZMQSource{cfg: cfg}
	s.pool = newBufferPool(cfg.Width * cfg.Height)
	s.mb = newMailbox(func(f *vision.Frame) { s.pool.put(f.Data) })
	return s
}

// Init connects the socket and starts the receive loop. Idempotent while
// running; a failed connect leaves the source down and retryable.
func (s *ZMQSource) Init(ctx context.Context) error {
	if err := s.cfg.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	socket, err := zmq4.NewSocket(zmq4.PULL)
	if err != nil {
		return fmt.Errorf("zmq: create socket: %w", err)
	}
	if err := socket.SetRcvtimeo(zmqRecvTimeout); err != nil {
		_ = socket.Close()
		return fmt.Errorf("zmq: set receive timeout: %w", err)
	}
	if err := socket.Connect(s.cfg.Endpoint); err != nil {
		_ = socket.Close()
		return fmt.Errorf("zmq: connect %s: %w", s.cfg.Endpoint, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.receive(runCtx, socket)

	slog.Info("zmq: feed connected", "endpoint", s.cfg.Endpoint)
	return nil
}

func (s *ZMQSource) receive(ctx context.Context, socket *zmq4.Socket) {
	defer s.wg.Done()
	defer socket.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := socket.RecvBytes(0)
		if err != nil {
			// A receive timeout is the idle path; anything else is throttled.
			if zmq4.AsErrno(err) != zmq4.Errno(syscall.EAGAIN) {
				s.logEvery("zmq: receive error", err)
			}
			continue
		}

		frame, ok := s.decode(msg)
		if !ok {
			continue
		}
		s.mb.put(frame)
	}
}

func (s *ZMQSource) decode(msg []byte) (*vision.Frame, bool) {
	var wf wireFrame
	if err := cbor.Unmarshal(msg, &wf); err != nil {
		s.logEvery("zmq: decode error", err)
		return nil, false
	}
	if wf.Type != "image" {
		return nil, false
	}
	if wf.Width != s.cfg.Width || wf.Height != s.cfg.Height {
		s.logEvery("zmq: frame size mismatch",
			fmt.Errorf("got %dx%d, want %dx%d", wf.Width, wf.Height, s.cfg.Width, s.cfg.Height))
		return nil, false
	}
	if len(wf.Data) != wf.Width*wf.Height {
		s.logEvery("zmq: short frame payload",
			fmt.Errorf("got %d bytes, want %d", len(wf.Data), wf.Width*wf.Height))
		return nil, false
	}

	buf := s.pool.get()
	copy(buf, wf.Data)

	return &vision.Frame{
		Data:      buf,
		Width:     wf.Width,
		Height:    wf.Height,
		Timestamp: time.Now(),
		Seq:       wf.Seq,
		TraceID:   uuid.New().String(),
	}, true
}

func (s *ZMQSource) logEvery(msg string, err error) {
	s.errCount++
	every := uint64(s.cfg.LogEvery)
	if every <= 1 || s.errCount%every == 1 {
		slog.Warn(msg, "endpoint", s.cfg.Endpoint, "error", err, "occurrences", s.errCount)
	}
}

// Frame returns the latest received frame, or nil when none is pending.
func (s *ZMQSource) Frame() *vision.Frame {
	return s.mb.take()
}

// Release returns the frame's buffer to the pool.
func (s *ZMQSource) Release(f *vision.Frame) {
	if f == nil {
		return
	}
	s.pool.put(f.Data)
}

// Stats returns capture counters.
func (s *ZMQSource) Stats() Stats {
	return s.mb.stats()
}

// Close stops the receive loop and closes the socket. Idempotent.
func (s *ZMQSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}

	s.cancel()
	s.wg.Wait()
	s.mb.drain()
	s.running = false

	slog.Info("zmq: feed closed", "endpoint", s.cfg.Endpoint)
	return nil
}
