package database

import "time"

type User struct {
	Id             string
	UserName       string
	UserFace       string
	DeviceToken    string
	DeviceId       string
	DeviceType     string
	DeviceVersion  string
	SocketId       string
	Online         bool
	ConnectionTime time.Time
	CreatedAt      time.Time
}

type Room struct {
	Id        string
	PairKey   string
	CreatedAt time.Time
	Members   []User
}

type Message struct {
	Id        int64
	RoomId    string
	UserId    string
	Text      string
	Type      string
	Read      bool
	ReadTime  *time.Time
	CreatedAt time.Time
}

// SettingMaster is one entry of the settings catalog every room member
// gets a chat_room_settings row for at room-creation time.
type SettingMaster struct {
	Key          string
	DisplayName  string
	ValueType    string
	DefaultValue string
}

type RoomSetting struct {
	RoomId      string
	UserId      string
	Key         string
	DisplayName string
	Value       string
	CreatedAt   time.Time
}

// RoomSummary backs the room-list view: one row per room with the
// counterpart user and the latest message for preview.
type RoomSummary struct {
	RoomId      string
	FriendId    string
	FriendName  string
	FriendFace  string
	LastMessage string
	LastType    string
	LastCreated time.Time
}

type CreateUserParams struct {
	Id            string
	UserName      string
	UserFace      string
	DeviceToken   string
	DeviceId      string
	DeviceType    string
	DeviceVersion string
	SocketId      string
}

type CreateRoomParams struct {
	Id      string
	PairKey string
	// Members are seeded with one chat_room_users row each plus one
	// chat_room_settings row per catalog entry.
	Members []string
}
