package ws

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"lifechain.ai/internal/chain/chaintest"
	"lifechain.ai/internal/gateway"
	"lifechain.ai/internal/protocol"
)

func dialFeed(t *testing.T, fake *chaintest.Fake) *websocket.Conn {
	t.Helper()
	gw := gateway.New(fake, gateway.Options{Network: "testnet", GapThreshold: 15})
	srv := httptest.NewServer(NewServer(gw, 10*time.Millisecond, nil).Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) ([]byte, protocol.BaseMessage) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	base, err := protocol.DecodeBase(b)
	if err != nil {
		t.Fatalf("decode base: %v", err)
	}
	return b, base
}

func TestFeed_PushesStateOnConnectAndOnNewBlock(t *testing.T) {
	fake := chaintest.New()
	fake.SetBlock(7)
	fake.SetLastStep(1)
	conn := dialFeed(t, fake)

	b, base := readMsg(t, conn)
	if base.Type != protocol.TypeState || base.ProtocolVersion != protocol.Version {
		t.Fatalf("first message: %s", b)
	}
	var st protocol.StateMsg
	if err := json.Unmarshal(b, &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.Block != 7 || st.Target != 16 || st.Rows != 32 {
		t.Fatalf("state: %+v", st.StateResponse)
	}

	fake.SetBlock(8)
	b, base = readMsg(t, conn)
	if base.Type != protocol.TypeState {
		t.Fatalf("second message: %s", b)
	}
	if err := json.Unmarshal(b, &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.Block != 8 {
		t.Fatalf("expected block 8, got %d", st.Block)
	}
}

func TestFeed_ReportsReadErrors(t *testing.T) {
	fake := chaintest.New()
	fake.Fail(chaintest.OpCells, errors.New("node syncing"))
	conn := dialFeed(t, fake)

	b, base := readMsg(t, conn)
	if base.Type != protocol.TypeError {
		t.Fatalf("expected ERROR, got %s", b)
	}
	var msg protocol.ErrorMsg
	if err := json.Unmarshal(b, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Code != protocol.ErrExternalCall || !strings.Contains(msg.Message, "node syncing") {
		t.Fatalf("error msg: %+v", msg)
	}

	fake.Fail(chaintest.OpCells, nil)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, base = readMsg(t, conn)
		if base.Type == protocol.TypeState {
			return
		}
	}
	t.Fatalf("feed did not recover after reads succeeded")
}
