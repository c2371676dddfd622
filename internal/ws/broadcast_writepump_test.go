package ws

import (
	"testing"
	"time"
)

// A write error must remove the client so later sends report the
// connection as lost.
func TestWritePump_RemovesClientOnWriteError(t *testing.T) {
	srv, serverConn := serverSideConn(t)
	defer srv.Close()

	b := NewBroadcaster(0)

	// Build the client by hand so the write pump starts after the close.
	c := &client{
		conn: serverConn,
		b:    b,
		send: make(chan []byte, 64),
	}
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	serverConn.Close()
	if !b.Send(c, map[string]string{"type": "pong"}) {
		t.Fatal("Send to a registered client with room should succeed")
	}

	go c.writePump()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b.ClientCount() == 0 {
			if b.Send(c, map[string]string{"type": "pong"}) {
				t.Error("Send succeeded after the client was removed")
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("client not removed after write error; ClientCount = %d", b.ClientCount())
}

func TestSendToFullClientFails(t *testing.T) {
	srv, serverConn := serverSideConn(t)
	defer srv.Close()
	defer serverConn.Close()

	b := NewBroadcaster(0)
	c := &client{conn: serverConn, b: b, send: make(chan []byte, 1)}
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	if !b.Send(c, "first") {
		t.Fatal("first Send should fit the buffer")
	}
	if b.Send(c, "second") {
		t.Error("Send to a full client should report failure")
	}
}
