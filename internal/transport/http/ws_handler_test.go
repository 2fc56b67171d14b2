package http

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/messageme/messageme-server/internal/proto"
)

type outboundEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dialWS(t *testing.T, ctx context.Context, tsURL string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(tsURL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, eventType string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", eventType, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: eventType, Data: payload}); err != nil {
		t.Fatalf("write %s: %v", eventType, err)
	}
}

// readUntil reads outbound envelopes until one of the wanted type arrives.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, eventType string) outboundEnvelope {
	t.Helper()

	for {
		var out outboundEnvelope
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("read waiting for %s: %v", eventType, err)
		}
		if out.Type == eventType {
			return out
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebSocketConnectionResponse(t *testing.T) {
	ts, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, ts.URL)

	out := readUntil(t, ctx, conn, proto.OutboundTypeConnectionResponse)
	var data proto.ConnectionResponseData
	if err := json.Unmarshal(out.Data, &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if data.Status != "connected" {
		t.Fatalf("unexpected status: %q", data.Status)
	}
}

func TestWebSocketDirectMessageFlow(t *testing.T) {
	ts, st := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice, err := st.CreateUser(ctx, "alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("seed alice: %v", err)
	}
	bob, err := st.CreateUser(ctx, "bob", "bob@example.com", "hash")
	if err != nil {
		t.Fatalf("seed bob: %v", err)
	}

	connA := dialWS(t, ctx, ts.URL)
	connB := dialWS(t, ctx, ts.URL)

	send(t, ctx, connA, proto.InboundTypeJoin, proto.JoinData{UserID: alice.ID})
	send(t, ctx, connB, proto.InboundTypeJoin, proto.JoinData{UserID: bob.ID})

	// The join event carries no acknowledgment; give the server a moment
	// to process it before sending.
	time.Sleep(100 * time.Millisecond)

	send(t, ctx, connA, proto.InboundTypeSendMessage, proto.SendMessageData{
		SenderID:    alice.ID,
		RecipientID: bob.ID,
		Content:     "hi there",
	})

	out := readUntil(t, ctx, connB, proto.OutboundTypeNewMessage)
	var msg proto.MessageData
	if err := json.Unmarshal(out.Data, &msg); err != nil {
		t.Fatalf("unmarshal new_message: %v", err)
	}
	if msg.SenderID != alice.ID || msg.RecipientID != bob.ID || msg.Content != "hi there" {
		t.Fatalf("unexpected new_message payload: %+v", msg)
	}
	if msg.ID == 0 || msg.Timestamp == "" {
		t.Fatalf("expected persisted id and timestamp, got %+v", msg)
	}
	if _, err := time.Parse(time.RFC3339, msg.Timestamp); err != nil {
		t.Fatalf("timestamp not RFC3339: %q", msg.Timestamp)
	}

	sent := readUntil(t, ctx, connA, proto.OutboundTypeMessageSent)
	var confirmation proto.MessageData
	if err := json.Unmarshal(sent.Data, &confirmation); err != nil {
		t.Fatalf("unmarshal message_sent: %v", err)
	}
	if confirmation.ID != msg.ID {
		t.Fatalf("confirmation id %d does not match broadcast id %d", confirmation.ID, msg.ID)
	}

	// The message is durable.
	stored, err := st.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get stored message: %v", err)
	}
	if stored.Content != "hi there" {
		t.Fatalf("unexpected stored content: %q", stored.Content)
	}
}

func TestWebSocketGroupMessageFlow(t *testing.T) {
	ts, st := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	carol, err := st.CreateUser(ctx, "carol", "carol@example.com", "hash")
	if err != nil {
		t.Fatalf("seed carol: %v", err)
	}

	member := dialWS(t, ctx, ts.URL)
	sender := dialWS(t, ctx, ts.URL)

	send(t, ctx, member, proto.InboundTypeJoin, proto.JoinData{UserID: 42})
	send(t, ctx, member, proto.InboundTypeJoinGroup, proto.JoinGroupData{GroupID: 7, UserID: 42})

	// join_group is confirmed through the member's inbox room.
	readUntil(t, ctx, member, proto.OutboundTypeJoinedGroup)

	send(t, ctx, sender, proto.InboundTypeSendGroupMessage, proto.SendGroupMessageData{
		SenderID: carol.ID,
		GroupID:  7,
		Content:  "hello",
	})

	out := readUntil(t, ctx, member, proto.OutboundTypeNewGroupMessage)
	var msg proto.GroupMessageData
	if err := json.Unmarshal(out.Data, &msg); err != nil {
		t.Fatalf("unmarshal new_group_message: %v", err)
	}
	if msg.GroupID != 7 || msg.SenderID != carol.ID || msg.Content != "hello" {
		t.Fatalf("unexpected group message: %+v", msg)
	}
	if msg.SenderUsername != "carol" {
		t.Fatalf("expected resolved sender username, got %q", msg.SenderUsername)
	}

	// Group messages are never persisted.
	messages, err := st.ListMessagesForUser(ctx, carol.ID, 0)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected no persisted records for group traffic, got %d", len(messages))
	}
}

func TestWebSocketEmptyContentProducesError(t *testing.T) {
	ts, st := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, ts.URL)
	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{UserID: 1})

	send(t, ctx, conn, proto.InboundTypeSendMessage, proto.SendMessageData{
		SenderID:    1,
		RecipientID: 2,
		Content:     "",
	})

	out := readUntil(t, ctx, conn, proto.OutboundTypeMessageError)
	var data proto.MessageErrorData
	if err := json.Unmarshal(out.Data, &data); err != nil {
		t.Fatalf("unmarshal message_error: %v", err)
	}
	if data.Error == "" {
		t.Fatalf("expected descriptive error string")
	}

	messages, err := st.ListMessagesForUser(ctx, 1, 0)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected no persist for invalid event, got %d", len(messages))
	}
}
