package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/messageme/messageme-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.Int64("user", 1, "sender user id")
	to := flag.Int64("to", 0, "recipient user id for direct messages")
	group := flag.Int64("group", 0, "group id; when set, lines are sent as group messages")
	flag.Parse()

	if *to == 0 && *group == 0 {
		return errors.New("pass -to or -group")
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(eventType string, data any) {
		payload, marshalErr := json.Marshal(data)
		if marshalErr != nil {
			cancel()
			log.Printf("marshal %s: %v", eventType, marshalErr)
			return
		}
		if writeErr := wsjson.Write(ctx, conn, proto.Inbound{Type: eventType, Data: payload}); writeErr != nil {
			cancel()
			log.Printf("send: %v", writeErr)
		}
	}

	send(proto.InboundTypeJoin, proto.JoinData{UserID: *user})
	if *group != 0 {
		send(proto.InboundTypeJoinGroup, proto.JoinGroupData{GroupID: *group, UserID: *user})
	}

	fmt.Printf("Connected to %s as user %d\n", *addr, *user)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, send, *user, *to, *group)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch outbound.Type {
		case proto.OutboundTypeNewMessage, proto.OutboundTypeMessageSent:
			var evt proto.MessageData
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal %s: %v", outbound.Type, err)
				continue
			}
			fmt.Printf("[%s] %d -> %d: %s\n", outbound.Type, evt.SenderID, evt.RecipientID, evt.Content)
		case proto.OutboundTypeNewGroupMessage:
			var evt proto.GroupMessageData
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal new_group_message: %v", err)
				continue
			}
			fmt.Printf("[group %d] %s: %s\n", evt.GroupID, evt.SenderUsername, evt.Content)
		case proto.OutboundTypeJoinedGroup:
			var evt proto.JoinedGroupData
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal joined_group: %v", err)
				continue
			}
			fmt.Printf("joined group %d\n", evt.GroupID)
		case proto.OutboundTypeMessageError:
			var evt proto.MessageErrorData
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal message_error: %v", err)
				continue
			}
			fmt.Printf("error: %s\n", evt.Error)
		default:
			fmt.Printf("type=%s data=%s\n", outbound.Type, outbound.Data)
		}
	}
}

func writeLoop(ctx context.Context, send func(string, any), user, to, group int64) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			if group != 0 {
				send(proto.InboundTypeSendGroupMessage, proto.SendGroupMessageData{
					SenderID: user,
					GroupID:  group,
					Content:  text,
				})
				continue
			}
			send(proto.InboundTypeSendMessage, proto.SendMessageData{
				SenderID:    user,
				RecipientID: to,
				Content:     text,
			})
		}
	}
}
