package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/messageme/messageme-server/internal/core"
	"github.com/messageme/messageme-server/internal/proto"
)

// WSHandler upgrades HTTP connections and bridges them to core sessions.
type WSHandler struct {
	engine *core.Engine
	log    *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(engine *core.Engine, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{engine: engine, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	session := h.engine.Connect()
	defer h.engine.Disconnect(session)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// readLoop parses inbound envelopes and dispatches them to the engine.
// Events for one session are processed strictly in arrival order.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		if err := h.dispatch(ctx, session, inbound); err != nil {
			h.log.Warn().Err(err).Str("session_id", session.ID).Str("type", inbound.Type).Msg("failed to decode inbound payload")
			if !session.Deliver(&core.Event{Kind: core.EventMessageError, Err: &core.Error{
				Code:    core.ErrCodeValidation,
				Message: "malformed payload",
			}}) {
				h.log.Warn().Str("session_id", session.ID).Msg("dropped decode error event")
			}
		}
	}
}

func (h *WSHandler) dispatch(ctx context.Context, session *core.Session, inbound proto.Inbound) error {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var data proto.JoinData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return err
		}
		h.engine.Join(session, data.UserID)
	case proto.InboundTypeJoinGroup:
		var data proto.JoinGroupData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return err
		}
		h.engine.JoinGroup(session, data.GroupID, data.UserID)
	case proto.InboundTypeLeaveGroup:
		var data proto.LeaveGroupData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return err
		}
		h.engine.LeaveGroup(session, data.GroupID)
	case proto.InboundTypeSendMessage:
		var data proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return err
		}
		h.engine.SendDirect(ctx, session, data.SenderID, data.RecipientID, data.Content)
	case proto.InboundTypeSendGroupMessage:
		var data proto.SendGroupMessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return err
		}
		h.engine.SendGroup(ctx, session, data.SenderID, data.GroupID, data.Content)
	default:
		h.log.Debug().Str("session_id", session.ID).Str("type", inbound.Type).Msg("unknown inbound type ignored")
	}
	return nil
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		select {
		case event := <-session.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("session_id", session.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
