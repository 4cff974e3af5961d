package esphome

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/panelnode/internal/infrastructure/metrics"
	"github.com/nerrad567/panelnode/internal/periodic"
)

// acceptRetryDelay is the pause after a failed Accept that was not caused
// by shutdown.
const acceptRetryDelay = 100 * time.Millisecond

// Config holds server settings.
type Config struct {
	Host string
	Port int

	// WriteTimeout bounds each write to one connection.
	WriteTimeout time.Duration

	// BroadcastInitialDelay and BroadcastInterval schedule the full state
	// push to every connection.
	BroadcastInitialDelay time.Duration
	BroadcastInterval     time.Duration
}

// Server serves the native API on one TCP listener.
//
// One goroutine accepts, one serves each connection and one periodic task
// pushes full state to all connections. Stop closes the listener and every
// connection so blocked reads return, then waits for all of them.
type Server struct {
	cfg        Config
	dispatcher *Dispatcher
	conns      *ConnectionSet
	logger     Logger

	mu        sync.Mutex
	listener  net.Listener
	broadcast *periodic.Task
	cancel    context.CancelFunc
	started   bool

	running  atomic.Bool
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewServer creates a server. conns may be nil, in which case the server
// creates its own set.
func NewServer(cfg Config, dispatcher *Dispatcher, conns *ConnectionSet, logger Logger) *Server {
	if conns == nil {
		conns = NewConnectionSet()
	}
	return &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		conns:      conns,
		logger:     logger,
	}
}

// Start binds the listener and starts the accept loop and broadcast task.
// A bind failure is returned wrapped in ErrBind and is not retried.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBind, addr, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.listener = ln
	s.cancel = cancel
	s.started = true
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop(runCtx)

	if s.cfg.BroadcastInterval > 0 {
		s.broadcast = periodic.New(periodic.Config{
			Name:         "esphome-broadcast",
			InitialDelay: s.cfg.BroadcastInitialDelay,
			Interval:     s.cfg.BroadcastInterval,
		}, func(context.Context) {
			s.Broadcast()
		})
		s.broadcast.Start(runCtx)
	}

	s.logger.Info("native api listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Port returns the bound TCP port, or 0 before Start.
func (s *Server) Port() int {
	if tcp, ok := s.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// Connections returns the live connection set.
func (s *Server) Connections() *ConnectionSet {
	return s.conns
}

// IsRunning reports whether the server is accepting connections.
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// HealthCheck returns ErrNotRunning unless the server is listening.
func (s *Server) HealthCheck(_ context.Context) error {
	if !s.IsRunning() {
		return ErrNotRunning
	}
	return nil
}

// Broadcast pushes the full state to every live connection once.
func (s *Server) Broadcast() {
	if !s.IsRunning() {
		return
	}
	frames := s.dispatcher.StateFrames()
	sent := s.conns.broadcast(frames, func(c *conn, err error) {
		s.logger.Debug("broadcast write failed, dropping connection", "conn", c.ID(), "error", err)
	})
	if sent > 0 {
		s.logger.Debug("state broadcast", "connections", sent, "frames", len(frames))
	}
}

// Stop shuts the server down and waits for every goroutine it started.
// Safe to call more than once and before Start.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		// Flipped under mu so the accept loop either registers a new
		// connection before closeAll below or sees the server stopped.
		s.mu.Lock()
		s.running.Store(false)
		s.started = true
		ln := s.listener
		task := s.broadcast
		cancel := s.cancel
		s.mu.Unlock()

		if task != nil {
			task.Stop()
		}
		if cancel != nil {
			cancel()
		}
		if ln != nil {
			_ = ln.Close() //nolint:errcheck // shutting down
		}
		s.conns.closeAll()

		s.wg.Wait()
		s.logger.Info("native api stopped")
	})
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		nc, err := s.listener.Accept()
		if err != nil {
			if !s.IsRunning() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("accept failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(acceptRetryDelay):
			}
			continue
		}

		c, ok := s.register(nc)
		if !ok {
			_ = nc.Close() //nolint:errcheck // shutting down
			return
		}
		s.logger.Info("client connected", "conn", c.ID(), "remote", c.RemoteAddr())

		go s.serve(ctx, c)
	}
}

// register tracks an accepted socket and counts its serve goroutine, unless
// Stop has already begun.
func (s *Server) register(nc net.Conn) (*conn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.IsRunning() {
		return nil, false
	}
	c := newConn(nc, s.cfg.WriteTimeout)
	s.conns.add(c)
	s.wg.Add(1)
	return c, true
}

// serve runs the request loop of one connection until the peer leaves,
// sends something unreadable, or the server stops.
func (s *Server) serve(ctx context.Context, c *conn) {
	defer s.wg.Done()
	defer func() {
		c.close()
		s.conns.remove(c)
	}()

	for {
		f, err := ReadFrame(c.reader)
		if err != nil {
			s.logReadError(c, err)
			return
		}
		metrics.FrameIn(f.Type.String())

		res, err := s.dispatcher.Handle(ctx, f)
		if err != nil {
			s.logger.Warn("closing connection on bad message", "conn", c.ID(), "error", err)
			return
		}

		if err := c.writeFrames(res.Replies); err != nil {
			if s.IsRunning() && !c.isClosed() {
				s.logger.Debug("write failed", "conn", c.ID(), "error", err)
			}
			return
		}

		if res.Close {
			s.logger.Info("client disconnected", "conn", c.ID())
			return
		}
	}
}

func (s *Server) logReadError(c *conn, err error) {
	switch {
	case errors.Is(err, io.EOF):
		s.logger.Info("client disconnected", "conn", c.ID())
	case errors.Is(err, ErrFraming):
		s.logger.Warn("closing connection on framing error", "conn", c.ID(), "error", err)
	case !s.IsRunning() || c.isClosed():
		// Closed by Stop or by a failed broadcast write.
	default:
		s.logger.Debug("read failed", "conn", c.ID(), "error", err)
	}
}
