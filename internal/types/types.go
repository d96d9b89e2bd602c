package types

import (
	"time"
)

type User struct {
	Id             string    `json:"user_id"`
	UserName       string    `json:"user_name"`
	UserFace       string    `json:"user_face,omitempty"`
	DeviceToken    string    `json:"device_token,omitempty"`
	DeviceId       string    `json:"device_id,omitempty"`
	DeviceType     string    `json:"device_type,omitempty"`
	DeviceVersion  string    `json:"device_version,omitempty"`
	Online         bool      `json:"online"`
	ConnectionTime time.Time `json:"connection_time,omitempty"`
	CreatedAt      time.Time `json:"created,omitempty"`
}

type Room struct {
	Id        string    `json:"chat_room_id"`
	Members   []User    `json:"members,omitempty"`
	CreatedAt time.Time `json:"created,omitempty"`
}

// RoomSummary is one row of the room-list view: the room, the user on
// the other side of it, and the latest message for preview.
type RoomSummary struct {
	RoomId      string    `json:"chat_room_id"`
	Friend      User      `json:"friend"`
	LastMessage string    `json:"last_message,omitempty"`
	LastType    string    `json:"last_type,omitempty"`
	LastCreated time.Time `json:"last_created,omitempty"`
}

type Message struct {
	Id        int64      `json:"chat_message_id"`
	RoomId    string     `json:"chat_room_id"`
	UserId    string     `json:"user_id"`
	UserName  string     `json:"user_name,omitempty"`
	Text      string     `json:"text"`
	Type      string     `json:"type"`
	Read      bool       `json:"read"`
	ReadTime  *time.Time `json:"read_time,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

type RoomSetting struct {
	RoomId      string `json:"chat_room_id"`
	UserId      string `json:"user_id"`
	Key         string `json:"key"`
	DisplayName string `json:"display_name,omitempty"`
	Value       string `json:"value"`
}
