package http

import (
	"time"

	"github.com/messageme/messageme-server/internal/core"
	"github.com/messageme/messageme-server/internal/proto"
	"github.com/messageme/messageme-server/internal/store"
)

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventConnectionResponse:
		return proto.Outbound{
			Type: proto.OutboundTypeConnectionResponse,
			Data: proto.ConnectionResponseData{Status: event.Status},
		}
	case core.EventNewMessage:
		return proto.Outbound{
			Type: proto.OutboundTypeNewMessage,
			Data: messageData(event.Message),
		}
	case core.EventMessageSent:
		return proto.Outbound{
			Type: proto.OutboundTypeMessageSent,
			Data: messageData(event.Message),
		}
	case core.EventJoinedGroup:
		return proto.Outbound{
			Type: proto.OutboundTypeJoinedGroup,
			Data: proto.JoinedGroupData{GroupID: event.GroupID},
		}
	case core.EventNewGroupMessage:
		return proto.Outbound{
			Type: proto.OutboundTypeNewGroupMessage,
			Data: proto.GroupMessageData{
				GroupID:        event.Group.GroupID,
				SenderID:       event.Group.SenderID,
				SenderUsername: event.Group.SenderName,
				Content:        event.Group.Content,
				Timestamp:      event.Group.SentAt.UTC().Format(time.RFC3339),
			},
		}
	case core.EventMessageError:
		msg := "unknown error"
		if event.Err != nil {
			msg = event.Err.Message
		}
		return proto.Outbound{
			Type: proto.OutboundTypeMessageError,
			Data: proto.MessageErrorData{Error: msg},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeMessageError, Data: proto.MessageErrorData{Error: "unknown event"}}
	}
}

func messageData(msg *store.Message) proto.MessageData {
	return proto.MessageData{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Content:     msg.Content,
		Timestamp:   msg.Timestamp.UTC().Format(time.RFC3339),
	}
}
