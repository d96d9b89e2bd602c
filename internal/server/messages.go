package server

import (
	"encoding/json"
	"time"
)

// ClientMessage is the inbound event envelope. The payload is decoded
// per event by the handler that owns it.
type ClientMessage struct {
	Id        int             `json:"id,omitempty"`
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"-"`
	client    *Client
}

// ServerMessage is the outbound event envelope. Exactly one of Result
// or Error is set. SkipClient excludes a client from a room broadcast.
type ServerMessage struct {
	Id         int         `json:"id,omitempty"`
	Event      string      `json:"event"`
	Timestamp  time.Time   `json:"timestamp"`
	Result     interface{} `json:"result,omitempty"`
	Error      *EventError `json:"error,omitempty"`
	SkipClient *Client     `json:"-"`
}

func okMsg(id int, event string, result interface{}) *ServerMessage {
	return &ServerMessage{
		Id:        id,
		Event:     event,
		Timestamp: Now(),
		Result:    result,
	}
}

func errMsg(id int, event string, eerr *EventError) *ServerMessage {
	return &ServerMessage{
		Id:        id,
		Event:     event,
		Timestamp: Now(),
		Error:     eerr,
	}
}

func Now() time.Time {
	return time.Now().UTC()
}

type RegisterPayload struct {
	UserName      string `json:"user_name"`
	UserFace      string `json:"user_face,omitempty"`
	DeviceToken   string `json:"device_token,omitempty"`
	DeviceId      string `json:"device_id,omitempty"`
	DeviceType    string `json:"device_type,omitempty"`
	DeviceVersion string `json:"device_version,omitempty"`
}

type PresencePayload struct {
	UserId string `json:"user_id"`
	Online bool   `json:"online"`
}

type SocketPayload struct {
	UserId string `json:"user_id"`
}

type DeviceTokenPayload struct {
	UserId      string `json:"user_id"`
	DeviceToken string `json:"device_token"`
}

type ResolveRoomPayload struct {
	UserId   string `json:"user_id"`
	FriendId string `json:"friend_id"`
}

type JoinRoomPayload struct {
	RoomId string `json:"chat_room_id"`
}

type SendMessagePayload struct {
	RoomId string `json:"chat_room_id"`
	UserId string `json:"user_id"`
	Text   string `json:"text"`
	Type   string `json:"type,omitempty"`
}

type MarkReadPayload struct {
	MessageId int64     `json:"chat_message_id"`
	ReadTime  time.Time `json:"read_time,omitempty"`
}

type ListMessagesPayload struct {
	RoomId string `json:"chat_room_id"`
	Limit  int    `json:"limit,omitempty"`
}

type SettingPayload struct {
	RoomId string `json:"chat_room_id"`
	UserId string `json:"user_id"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

type ListSettingsPayload struct {
	RoomId string `json:"chat_room_id"`
	UserId string `json:"user_id,omitempty"`
}

type DeleteRoomPayload struct {
	RoomId string `json:"chat_room_id"`
}

type FriendPayload struct {
	UserId   string `json:"user_id"`
	FriendId string `json:"friend_id"`
}

type UserLookupPayload struct {
	UserId   string `json:"user_id,omitempty"`
	UserName string `json:"user_name,omitempty"`
	DeviceId string `json:"device_id,omitempty"`
}

type ListRoomsPayload struct {
	UserId string `json:"user_id"`
}

type RoomResult struct {
	RoomId string `json:"chat_room_id"`
}

// UserNameResult is the body of typing, stopTyping and userLeft
// broadcasts.
type UserNameResult struct {
	UserName string `json:"user_name"`
}
