package esphome

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/panelnode/internal/infrastructure/logging"
)

func startTestServer(t *testing.T, cfg Config) (*Server, *fakeSurface) {
	t.Helper()
	surface := &fakeSurface{battery: 80, backlight: 0.5, volume: 0.3}
	cfg.Host = "127.0.0.1"
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 2 * time.Second
	}

	srv := NewServer(cfg, newTestDispatcher(t, surface), nil, logging.Discard())
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv, surface
}

type testClient struct {
	t  *testing.T
	nc net.Conn
	r  *bufio.Reader

	writeMu sync.Mutex
}

func dial(t *testing.T, srv *Server) *testClient {
	t.Helper()
	nc, err := net.DialTimeout("tcp", srv.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { nc.Close() })
	return &testClient{t: t, nc: nc, r: bufio.NewReader(nc)}
}

func (c *testClient) send(msgType MessageType, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteFrame(c.nc, msgType, payload)
}

func (c *testClient) read() (Frame, error) {
	_ = c.nc.SetReadDeadline(time.Now().Add(5 * time.Second))
	return ReadFrame(c.r)
}

func (c *testClient) mustRead() Frame {
	c.t.Helper()
	f, err := c.read()
	if err != nil {
		c.t.Fatalf("read frame: %v", err)
	}
	return f
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServer_HelloOverTCP(t *testing.T) {
	srv, _ := startTestServer(t, Config{})
	c := dial(t, srv)

	if err := c.send(TypeHelloRequest, (&HelloRequest{ClientInfo: "test"}).Marshal()); err != nil {
		t.Fatalf("send: %v", err)
	}
	f := c.mustRead()
	if f.Type != TypeHelloResponse {
		t.Fatalf("type = %s, want hello_response", f.Type)
	}
	if got := fieldsOf(t, f.Payload)[4].asString(); got != testDevice.Name {
		t.Errorf("name = %q, want %q", got, testDevice.Name)
	}
}

func TestServer_ListEntitiesOverTCP(t *testing.T) {
	srv, _ := startTestServer(t, Config{})
	c := dial(t, srv)

	if err := c.send(TypeListEntitiesRequest, nil); err != nil {
		t.Fatalf("send: %v", err)
	}

	var keys []uint32
	for {
		f := c.mustRead()
		if f.Type == TypeListEntitiesDoneResponse {
			break
		}
		keys = append(keys, fieldsOf(t, f.Payload)[2].asFixed32())
	}

	want := []uint32{101, 206, 200, 201, 202, 203, 204, 205, 207, 208, 300}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %d, want %d", i, keys[i], want[i])
		}
	}
}

func TestServer_SwitchCommandOverTCP(t *testing.T) {
	srv, surface := startTestServer(t, Config{})
	c := dial(t, srv)

	if err := c.send(TypeSwitchCommandRequest, (&SwitchCommandRequest{Key: 206, State: true}).Marshal()); err != nil {
		t.Fatalf("send: %v", err)
	}
	f := c.mustRead()
	fields := fieldsOf(t, f.Payload)
	if f.Type != TypeSwitchStateResponse || fields[1].asFixed32() != 206 || !fields[2].asBool() {
		t.Errorf("echo = %s %+v", f.Type, fields)
	}
	if calls := surface.Calls(); len(calls) != 1 || calls[0] != "kiosk:true" {
		t.Errorf("calls = %v", calls)
	}
}

func TestServer_UnsupportedMessageIgnored(t *testing.T) {
	srv, _ := startTestServer(t, Config{})
	c := dial(t, srv)

	// SubscribeLogs gets no reply; the ping after it must still be answered.
	if err := c.send(28, []byte{0x08, 0x03}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := c.send(TypePingRequest, nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	if f := c.mustRead(); f.Type != TypePingResponse {
		t.Errorf("type = %s, want ping_response", f.Type)
	}
}

func TestServer_FramingErrorClosesOnlyThatConnection(t *testing.T) {
	srv, _ := startTestServer(t, Config{})
	bad := dial(t, srv)
	good := dial(t, srv)
	waitFor(t, "two connections", func() bool { return srv.Connections().Len() == 2 })

	if _, err := bad.nc.Write([]byte{0x01, 0x00, 0x07}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := bad.read(); err == nil {
		t.Error("bad client should be disconnected")
	}

	if err := good.send(TypePingRequest, nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	if f := good.mustRead(); f.Type != TypePingResponse {
		t.Errorf("good client got %s", f.Type)
	}
	waitFor(t, "bad connection removed", func() bool { return srv.Connections().Len() == 1 })
}

func TestServer_DisconnectRequest(t *testing.T) {
	srv, _ := startTestServer(t, Config{})
	c := dial(t, srv)

	if err := c.send(TypeDisconnectRequest, nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	if f := c.mustRead(); f.Type != TypeDisconnectResponse {
		t.Errorf("type = %s, want disconnect_response", f.Type)
	}
	if _, err := c.read(); !errors.Is(err, io.EOF) {
		t.Errorf("read after disconnect = %v, want io.EOF", err)
	}
}

func TestServer_PeriodicBroadcast(t *testing.T) {
	srv, _ := startTestServer(t, Config{
		BroadcastInitialDelay: 10 * time.Millisecond,
		BroadcastInterval:     20 * time.Millisecond,
	})
	c := dial(t, srv)

	seen := make(map[MessageType]bool)
	for i := 0; i < 16; i++ {
		seen[c.mustRead().Type] = true
	}
	for _, want := range []MessageType{TypeSwitchStateResponse, TypeLightStateResponse, TypeSensorStateResponse, TypeMediaPlayerStateResponse} {
		if !seen[want] {
			t.Errorf("no %s received from the broadcast", want)
		}
	}
}

// TestServer_ConcurrentBroadcastSafety interleaves broadcast ticks with
// each client's own commands and checks every byte stream still splits
// into exactly the expected well-formed frames.
func TestServer_ConcurrentBroadcastSafety(t *testing.T) {
	const (
		clients  = 5
		ticks    = 25
		commands = 25
		states   = 8
	)

	srv, _ := startTestServer(t, Config{})

	conns := make([]*testClient, clients)
	for i := range conns {
		conns[i] = dial(t, srv)
	}
	waitFor(t, "all clients connected", func() bool { return srv.Connections().Len() == clients })

	var wg sync.WaitGroup
	errs := make(chan error, clients*2+1)

	for i, c := range conns {
		wg.Add(2)

		go func(c *testClient, i int) {
			defer wg.Done()
			for k := 0; k < commands; k++ {
				req := SwitchCommandRequest{Key: 206, State: k%2 == 0}
				if err := c.send(TypeSwitchCommandRequest, req.Marshal()); err != nil {
					errs <- err
					return
				}
			}
		}(c, i)

		go func(c *testClient, i int) {
			defer wg.Done()
			want := commands + ticks*states
			echoes := 0
			for n := 0; n < want; n++ {
				f, err := c.read()
				if err != nil {
					errs <- errors.New("client " + strconv.Itoa(i) + ": frame " + strconv.Itoa(n) + ": " + err.Error())
					return
				}
				switch f.Type {
				case TypeSwitchStateResponse, TypeLightStateResponse, TypeSensorStateResponse, TypeMediaPlayerStateResponse:
				default:
					errs <- errors.New("client " + strconv.Itoa(i) + ": unexpected " + f.Type.String())
					return
				}
				if err := decodeFields(f.Payload, func(field) {}); err != nil {
					errs <- err
					return
				}
				if f.Type == TypeSwitchStateResponse {
					echoes++
				}
			}
			// Each tick carries two switch states on top of the echoes.
			if echoes != commands+ticks*2 {
				errs <- errors.New("client " + strconv.Itoa(i) + ": switch frame count " + strconv.Itoa(echoes))
			}
		}(c, i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for m := 0; m < ticks; m++ {
			srv.Broadcast()
		}
	}()

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestServer_StopClosesConnections(t *testing.T) {
	srv, _ := startTestServer(t, Config{BroadcastInterval: time.Hour})
	c := dial(t, srv)
	waitFor(t, "connection", func() bool { return srv.Connections().Len() == 1 })

	done := make(chan struct{})
	go func() {
		srv.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop() did not return")
	}

	if _, err := c.read(); err == nil {
		t.Error("read after Stop should fail")
	}
	if srv.Connections().Len() != 0 {
		t.Errorf("connections after Stop = %d", srv.Connections().Len())
	}
	if err := srv.HealthCheck(context.Background()); !errors.Is(err, ErrNotRunning) {
		t.Errorf("HealthCheck() = %v, want ErrNotRunning", err)
	}
	if err := srv.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Start() after Stop = %v, want ErrAlreadyStarted", err)
	}

	srv.Stop()
}

// lateListener hands out one connection only after Close, as if a client
// was accepted at the moment the server began stopping.
type lateListener struct {
	closed chan struct{}
	once   sync.Once
	handed atomic.Bool
	nc     net.Conn
}

func (l *lateListener) Accept() (net.Conn, error) {
	<-l.closed
	if l.handed.CompareAndSwap(false, true) {
		return l.nc, nil
	}
	return nil, net.ErrClosed
}

func (l *lateListener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

func (l *lateListener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}
}

func stopWithin(t *testing.T, srv *Server, limit time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		srv.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(limit):
		t.Fatal("Stop() did not return")
	}
}

func TestServer_ConnectionAcceptedDuringStop(t *testing.T) {
	local, peer := net.Pipe()
	defer peer.Close()

	srv := NewServer(Config{}, newTestDispatcher(t, &fakeSurface{}), nil, logging.Discard())
	srv.listener = &lateListener{closed: make(chan struct{}), nc: local}
	srv.started = true
	srv.running.Store(true)
	srv.wg.Add(1)
	go srv.acceptLoop(context.Background())

	stopWithin(t, srv, 2*time.Second)

	_ = peer.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := peer.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
		t.Errorf("peer read = %v, want io.EOF from a closed late connection", err)
	}
	if n := srv.Connections().Len(); n != 0 {
		t.Errorf("connections after Stop = %d, want 0", n)
	}
}

func TestServer_StopWhileClientsConnect(t *testing.T) {
	for i := 0; i < 25; i++ {
		srv, _ := startTestServer(t, Config{BroadcastInterval: time.Hour})
		addr := srv.Addr().String()

		var wg sync.WaitGroup
		quit := make(chan struct{})
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-quit:
						return
					default:
					}
					nc, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
					if err != nil {
						return
					}
					// Hold the socket open so a served connection blocks in read.
					defer nc.Close()
				}
			}()
		}

		time.Sleep(2 * time.Millisecond)
		stopWithin(t, srv, 3*time.Second)
		close(quit)
		wg.Wait()

		if n := srv.Connections().Len(); n != 0 {
			t.Fatalf("iteration %d: connections after Stop = %d", i, n)
		}
	}
}

func TestServer_BindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	srv := NewServer(Config{Host: "127.0.0.1", Port: port}, newTestDispatcher(t, &fakeSurface{}), nil, logging.Discard())

	if err := srv.Start(context.Background()); !errors.Is(err, ErrBind) {
		t.Errorf("Start() error = %v, want ErrBind", err)
	}
	if srv.IsRunning() {
		t.Error("server should not be running after a bind failure")
	}
	srv.Stop()
}

func TestServer_StopBeforeStart(t *testing.T) {
	srv := NewServer(Config{}, newTestDispatcher(t, &fakeSurface{}), NewConnectionSet(), logging.Discard())
	srv.Stop()
	if srv.Port() != 0 {
		t.Errorf("Port() = %d before Start", srv.Port())
	}
}
