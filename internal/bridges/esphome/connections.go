package esphome

import (
	"bufio"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/panelnode/internal/infrastructure/metrics"
)

// conn is one accepted client connection.
//
// The reader is owned by the connection's own loop. Writes come from that
// loop (replies) and from the broadcast task, so every write takes writeMu
// and sends whole frames in a single Write call.
type conn struct {
	id     string
	nc     net.Conn
	reader *bufio.Reader

	writeMu      sync.Mutex
	writeTimeout time.Duration

	closeOnce sync.Once
	closed    atomic.Bool
}

func newConn(nc net.Conn, writeTimeout time.Duration) *conn {
	return &conn{
		id:           uuid.NewString(),
		nc:           nc,
		reader:       bufio.NewReader(nc),
		writeTimeout: writeTimeout,
	}
}

// ID returns the connection's log identifier.
func (c *conn) ID() string {
	return c.id
}

// RemoteAddr returns the peer address.
func (c *conn) RemoteAddr() string {
	return c.nc.RemoteAddr().String()
}

func (c *conn) isClosed() bool {
	return c.closed.Load()
}

// writeFrames encodes frames into one buffer and writes it under the
// connection's write lock. A failed write closes the connection.
func (c *conn) writeFrames(frames []Frame) error {
	if len(frames) == 0 {
		return nil
	}

	var buf []byte
	for _, f := range frames {
		buf = AppendFrame(buf, f.Type, f.Payload)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.isClosed() {
		return ErrConnectionClosed
	}

	if c.writeTimeout > 0 {
		_ = c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout)) //nolint:errcheck // best effort
	}
	if _, err := c.nc.Write(buf); err != nil {
		c.close()
		return err
	}

	for _, f := range frames {
		metrics.FrameOut(f.Type.String())
	}
	return nil
}

// close marks the connection closed and closes the socket, unblocking a
// pending read. Safe to call more than once.
func (c *conn) close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		_ = c.nc.Close() //nolint:errcheck // closing anyway
	})
}

// ConnectionSet is the collection of live connections shared by the accept
// loop, the connection loops and the broadcast task. One mutex guards add,
// remove and iterate-and-write.
//
// A ConnectionSet can be created by the caller and passed to NewServer,
// which lets tests and the host inspect it.
type ConnectionSet struct {
	mu    sync.Mutex
	conns map[string]*conn
	order []string
}

// NewConnectionSet returns an empty set.
func NewConnectionSet() *ConnectionSet {
	return &ConnectionSet{
		conns: make(map[string]*conn),
	}
}

// Len returns the number of tracked connections.
func (s *ConnectionSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *ConnectionSet) add(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c.id] = c
	s.order = append(s.order, c.id)
	metrics.ConnectionOpened()
}

// remove drops c from the set. It reports false if c was already gone.
func (s *ConnectionSet) remove(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(c.id)
}

func (s *ConnectionSet) removeLocked(id string) bool {
	if _, ok := s.conns[id]; !ok {
		return false
	}
	delete(s.conns, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	metrics.ConnectionClosed()
	return true
}

// broadcast writes frames to every live connection in accept order.
// Closed connections are dropped first; a connection whose write fails is
// closed and dropped. It returns the number of successful writes.
func (s *ConnectionSet) broadcast(frames []Frame, onError func(c *conn, err error)) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(s.order))
	copy(ids, s.order)

	sent := 0
	for _, id := range ids {
		c := s.conns[id]
		if c.isClosed() {
			s.removeLocked(id)
			continue
		}
		if err := c.writeFrames(frames); err != nil {
			if onError != nil {
				onError(c, err)
			}
			c.close()
			s.removeLocked(id)
			continue
		}
		sent++
	}
	return sent
}

// closeAll closes every connection and empties the set.
func (s *ConnectionSet) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range append([]string(nil), s.order...) {
		s.conns[id].close()
		s.removeLocked(id)
	}
}
