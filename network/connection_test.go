package network

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newTestPair dials a loopback websocket and returns both framed ends.
func newTestPair(t *testing.T) (server, client *WSConnection) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	accepted := make(chan *WSConnection, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- NewWSConnection(conn)
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	dialed, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	client = NewWSConnection(dialed)
	t.Cleanup(func() { client.Close() })

	select {
	case server = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("Server side of the connection never arrived")
	}
	t.Cleanup(func() { server.Close() })
	return server, client
}

func TestWSConnection_RoundTrip(t *testing.T) {
	server, client := newTestPair(t)

	payload := []byte(`{"question":"capital of France?"}`)
	if err := server.Send(MsgTypeRoundStarted, payload); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	packet, err := client.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket failed: %v", err)
	}
	if packet.MsgID != MsgTypeRoundStarted {
		t.Errorf("Expected msg id %d, got %d", MsgTypeRoundStarted, packet.MsgID)
	}
	if int(packet.Length) != len(payload) || string(packet.Data) != string(payload) {
		t.Errorf("Payload mangled in transit: %q", packet.Data)
	}
}

func TestWSConnection_SendRejectsOversizedPayload(t *testing.T) {
	server, _ := newTestPair(t)

	err := server.Send(MsgTypeChatChanged, make([]byte, MaxPayloadSize+1))
	if err != ErrPayloadTooLarge {
		t.Errorf("Expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestWSConnection_HeartbeatDeadlineDropsSilentPeer(t *testing.T) {
	server, _ := newTestPair(t)

	server.SetHeartbeat(50 * time.Millisecond)
	if _, err := server.ReadPacket(); err == nil {
		t.Fatal("Expected the read to fail once the silent peer missed the deadline")
	}
}

func TestWSConnection_TrafficExtendsHeartbeatDeadline(t *testing.T) {
	server, client := newTestPair(t)
	server.SetHeartbeat(150 * time.Millisecond)

	// Each frame lands inside the 300ms window and pushes it forward; the
	// three reads together outlive the initial deadline.
	for i := 0; i < 3; i++ {
		time.Sleep(120 * time.Millisecond)
		if err := client.Send(MsgTypeHeartbeat, []byte(`{}`)); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		if _, err := server.ReadPacket(); err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
	}
}
