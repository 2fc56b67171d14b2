package proto

import "encoding/json"

// Inbound is the envelope for events coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin             = "join"
	InboundTypeJoinGroup        = "join_group"
	InboundTypeLeaveGroup       = "leave_group"
	InboundTypeSendMessage      = "send_message"
	InboundTypeSendGroupMessage = "send_group_message"

	OutboundTypeConnectionResponse = "connection_response"
	OutboundTypeNewMessage         = "new_message"
	OutboundTypeMessageSent        = "message_sent"
	OutboundTypeJoinedGroup        = "joined_group"
	OutboundTypeNewGroupMessage    = "new_group_message"
	OutboundTypeMessageError       = "message_error"
)

// JoinData subscribes the connection to the user's inbox room.
type JoinData struct {
	UserID int64 `json:"user_id"`
}

// JoinGroupData subscribes the connection to a group room.
type JoinGroupData struct {
	GroupID int64 `json:"group_id"`
	UserID  int64 `json:"user_id"`
}

// LeaveGroupData unsubscribes the connection from a group room.
type LeaveGroupData struct {
	GroupID int64 `json:"group_id"`
	UserID  int64 `json:"user_id"`
}

// SendMessageData is a direct message from the client.
type SendMessageData struct {
	SenderID    int64  `json:"sender_id"`
	RecipientID int64  `json:"recipient_id"`
	Content     string `json:"content"`
}

// SendGroupMessageData is a group message from the client.
type SendGroupMessageData struct {
	SenderID int64  `json:"sender_id"`
	GroupID  int64  `json:"group_id"`
	Content  string `json:"content"`
}

// Outbound is the envelope for events sent to the client.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ConnectionResponseData acknowledges a new connection.
type ConnectionResponseData struct {
	Status string `json:"status"`
}

// MessageData carries a persisted direct message. Used for both
// new_message and message_sent. Timestamp is ISO-8601 UTC.
type MessageData struct {
	ID          int64  `json:"id"`
	SenderID    int64  `json:"sender_id"`
	RecipientID int64  `json:"recipient_id"`
	Content     string `json:"content"`
	Timestamp   string `json:"timestamp"`
}

// JoinedGroupData confirms a group join.
type JoinedGroupData struct {
	GroupID int64 `json:"group_id"`
}

// GroupMessageData carries a transient group broadcast.
type GroupMessageData struct {
	GroupID        int64  `json:"group_id"`
	SenderID       int64  `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	Content        string `json:"content"`
	Timestamp      string `json:"timestamp"`
}

// MessageErrorData reports an event-level failure.
type MessageErrorData struct {
	Error string `json:"error"`
}
