package gateway

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"
)

func dialAndHandshake(t *testing.T, ctx context.Context, addr string) net.Conn {
	t.Helper()
	d := net.Dialer{Timeout: 1 * time.Second}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, err := c.Write([]byte(helloLine + "\n")); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	return c
}

func TestServer_HandshakeAndBroadcast(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h := NewHub()
	srv := NewServer(WithHub(h), WithListenAddr(":0"), WithHandshakeTimeout(2*time.Second))
	go func() { _ = srv.Serve(ctx) }()
	select {
	case <-srv.Ready():
	case <-time.After(time.Second):
		t.Fatalf("server did not become ready")
	}

	c := dialAndHandshake(t, ctx, srv.Addr())
	defer c.Close()

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		if h.Count() == 1 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if h.Count() != 1 {
		t.Fatalf("expected 1 registered client, got %d", h.Count())
	}

	frame := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	h.Broadcast(frame)

	_ = c.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, len(frame))
	n, err := c.Read(buf)
	if err != nil {
		t.Fatalf("read broadcast frame: %v", err)
	}
	if n != len(frame) || string(buf[:n]) != string(frame) {
		t.Fatalf("got % X, want % X", buf[:n], frame)
	}
}

func TestServer_SessionConfigSentBeforeFrames(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h := NewHub()
	const cfg = "preprocessing=iwt,encoder=golomb_multi,param=6,outlier=512"
	srv := NewServer(WithHub(h), WithListenAddr(":0"), WithSessionConfig(cfg))
	go func() { _ = srv.Serve(ctx) }()
	select {
	case <-srv.Ready():
	case <-time.After(time.Second):
		t.Fatalf("server did not become ready")
	}

	c := dialAndHandshake(t, ctx, srv.Addr())
	defer c.Close()

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		if h.Count() == 1 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if h.Count() != 1 {
		t.Fatalf("expected 1 registered client, got %d", h.Count())
	}

	_ = c.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	r := bufio.NewReader(c)
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read session config: %v", err)
	}
	if line != cfg+"\n" {
		t.Fatalf("got session config %q, want %q", line, cfg+"\n")
	}

	frame := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	h.Broadcast(frame)
	buf := make([]byte, len(frame))
	n, err := r.Read(buf)
	if err != nil {
		t.Fatalf("read broadcast frame: %v", err)
	}
	if n != len(frame) || string(buf[:n]) != string(frame) {
		t.Fatalf("got % X, want % X", buf[:n], frame)
	}
}

func TestServer_HandshakeFailureClosesConnection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h := NewHub()
	srv := NewServer(WithHub(h), WithListenAddr(":0"), WithHandshakeTimeout(200*time.Millisecond))
	go func() { _ = srv.Serve(ctx) }()
	select {
	case <-srv.Ready():
	case <-time.After(time.Second):
		t.Fatalf("server did not become ready")
	}

	d := net.Dialer{Timeout: time.Second}
	c, err := d.DialContext(ctx, "tcp", srv.Addr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	if _, err := c.Write([]byte("WRONG-HELLO\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = c.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 8)
	if _, err := c.Read(buf); err == nil {
		t.Fatalf("expected connection to be closed after bad hello")
	}
}

func TestServer_MaxClientsRejectsExtra(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h := NewHub()
	srv := NewServer(WithHub(h), WithListenAddr(":0"), WithMaxClients(1))
	go func() { _ = srv.Serve(ctx) }()
	select {
	case <-srv.Ready():
	case <-time.After(time.Second):
		t.Fatalf("server did not become ready")
	}

	c1 := dialAndHandshake(t, ctx, srv.Addr())
	defer c1.Close()
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		if h.Count() == 1 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	c2 := dialAndHandshake(t, ctx, srv.Addr())
	defer c2.Close()
	_ = c2.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	buf := make([]byte, 8)
	if _, err := c2.Read(buf); err == nil {
		t.Fatalf("expected second client to be rejected")
	}
}

func TestServer_GracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h := NewHub()
	srv := NewServer(WithHub(h), WithListenAddr(":0"))
	go func() { _ = srv.Serve(ctx) }()
	select {
	case <-srv.Ready():
	case <-time.After(time.Second):
		t.Fatalf("server did not become ready")
	}

	c := dialAndHandshake(t, ctx, srv.Addr())
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		if h.Count() == 1 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	sdCtx, sdCancel := context.WithTimeout(context.Background(), time.Second)
	defer sdCancel()
	if err := srv.Shutdown(sdCtx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	_ = c.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	buf := make([]byte, 8)
	if _, err := c.Read(buf); err == nil {
		t.Fatalf("expected client read to fail after shutdown")
	}
}
