package reload

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
)

func TestHubEnqueueAfterClientClosureDoesNotPanic(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	c := &client{
		id:     "test-client",
		send:   make(chan []byte, 1),
		closed: make(chan struct{}),
		hub:    hub,
	}
	close(c.closed)

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("enqueue panicked: %v", r)
		}
	}()
	hub.enqueue(c, []byte("payload"))
	if len(c.send) != 0 {
		t.Fatal("closed client must not receive messages")
	}
}

func TestHubEnqueueDropsOldestMessageWhenFull(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	c := &client{
		id:     "ring-client",
		send:   make(chan []byte, 2),
		closed: make(chan struct{}),
		hub:    hub,
	}
	c.send <- []byte("older")
	c.send <- []byte("newer")

	hub.enqueue(c, []byte("latest"))

	if first := <-c.send; string(first) != "newer" {
		t.Fatalf("expected 'newer' to remain, got %q", string(first))
	}
	if second := <-c.send; string(second) != "latest" {
		t.Fatalf("expected 'latest' to be enqueued, got %q", string(second))
	}
}

func TestHubBroadcastReachesClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	hello := readMessage(t, conn)
	if hello.Event != EventHello || hello.InstanceID == "" {
		t.Fatalf("unexpected greeting %+v", hello)
	}

	deadline := time.Now().Add(5 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !hub.Broadcast("/srv/world/datapacks", "save") {
		t.Fatal("broadcast dropped")
	}
	msg := readMessage(t, conn)
	if msg.Event != EventReload || msg.Output != "/srv/world/datapacks" || msg.Trigger != "save" {
		t.Fatalf("unexpected reload message %+v", msg)
	}
	if msg.Seq <= hello.Seq {
		t.Fatalf("sequence must increase: hello=%d reload=%d", hello.Seq, msg.Seq)
	}
}

func TestServeStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	ready := make(chan net.Addr, 1)
	errc := make(chan error, 1)
	go func() { errc <- hub.Serve(ctx, "127.0.0.1:0", ready) }()

	var addr net.Addr
	select {
	case addr = <-ready:
	case err := <-errc:
		t.Fatalf("serve: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("hub never became ready")
	}
	conn, _, err := gws.DefaultDialer.Dial("ws://"+addr.String()+Path, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func readMessage(t *testing.T, conn *gws.Conn) Message {
	t.Helper()
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}
