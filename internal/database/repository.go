package database

import "time"

type ChatRepository interface {
	Ping() error

	CreateUser(params CreateUserParams) (User, error)
	GetUser(userId string) (User, error)
	GetUserByName(userName string) (User, error)
	GetUserByDeviceId(deviceId string) (User, error)
	ListUsers() ([]User, error)
	UpdateSocketId(userId, socketId string) error
	UpdateDeviceToken(userId, deviceToken string) error
	UpdateOnline(userId string, online bool, connectionTime time.Time) error

	CreateFriendship(userId, friendId string) error
	FriendshipExists(userId, friendId string) bool
	ListFriends(userId string) ([]User, error)

	GetRoom(roomId string) (Room, error)
	GetRoomByPairKey(pairKey string) (Room, error)
	GetRoomWithMembers(roomId string) (*Room, error)
	CreateRoom(params CreateRoomParams) (Room, error)
	DeleteRoom(roomId string) error
	ListRoomMembers(roomId string) ([]User, error)
	ListRoomIdsForUser(userId string) ([]string, error)

	ListSettingCatalog() ([]SettingMaster, error)
	GetRoomSetting(roomId, userId, key string) (RoomSetting, error)
	ListRoomSettings(roomId, userId string) ([]RoomSetting, error)
	UpdateRoomSetting(roomId, userId, key, value string) error

	CreateMessage(msg Message) (Message, error)
	MarkMessageRead(messageId int64, readTime time.Time) error
	ListMessages(roomId string, limit int) ([]Message, error)
	LatestMessagePerRoom(userId string, roomIds []string) ([]RoomSummary, error)
}
