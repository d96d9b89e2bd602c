package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockChatRepository) CreateUser(params CreateUserParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetUser(userId string) (User, error) {
	args := m.Called(userId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetUserByName(userName string) (User, error) {
	args := m.Called(userName)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetUserByDeviceId(deviceId string) (User, error) {
	args := m.Called(deviceId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) ListUsers() ([]User, error) {
	args := m.Called()
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockChatRepository) UpdateSocketId(userId, socketId string) error {
	args := m.Called(userId, socketId)
	return args.Error(0)
}
func (m *MockChatRepository) UpdateDeviceToken(userId, deviceToken string) error {
	args := m.Called(userId, deviceToken)
	return args.Error(0)
}
func (m *MockChatRepository) UpdateOnline(userId string, online bool, connectionTime time.Time) error {
	args := m.Called(userId, online, connectionTime)
	return args.Error(0)
}
func (m *MockChatRepository) CreateFriendship(userId, friendId string) error {
	args := m.Called(userId, friendId)
	return args.Error(0)
}
func (m *MockChatRepository) FriendshipExists(userId, friendId string) bool {
	args := m.Called(userId, friendId)
	return args.Bool(0)
}
func (m *MockChatRepository) ListFriends(userId string) ([]User, error) {
	args := m.Called(userId)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockChatRepository) GetRoom(roomId string) (Room, error) {
	args := m.Called(roomId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockChatRepository) GetRoomByPairKey(pairKey string) (Room, error) {
	args := m.Called(pairKey)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockChatRepository) GetRoomWithMembers(roomId string) (*Room, error) {
	args := m.Called(roomId)
	if room, ok := args.Get(0).(*Room); ok {
		return room, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockChatRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockChatRepository) DeleteRoom(roomId string) error {
	args := m.Called(roomId)
	return args.Error(0)
}
func (m *MockChatRepository) ListRoomMembers(roomId string) ([]User, error) {
	args := m.Called(roomId)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockChatRepository) ListRoomIdsForUser(userId string) ([]string, error) {
	args := m.Called(userId)
	return args.Get(0).([]string), args.Error(1)
}
func (m *MockChatRepository) ListSettingCatalog() ([]SettingMaster, error) {
	args := m.Called()
	return args.Get(0).([]SettingMaster), args.Error(1)
}
func (m *MockChatRepository) GetRoomSetting(roomId, userId, key string) (RoomSetting, error) {
	args := m.Called(roomId, userId, key)
	return args.Get(0).(RoomSetting), args.Error(1)
}
func (m *MockChatRepository) ListRoomSettings(roomId, userId string) ([]RoomSetting, error) {
	args := m.Called(roomId, userId)
	return args.Get(0).([]RoomSetting), args.Error(1)
}
func (m *MockChatRepository) UpdateRoomSetting(roomId, userId, key, value string) error {
	args := m.Called(roomId, userId, key, value)
	return args.Error(0)
}
func (m *MockChatRepository) CreateMessage(msg Message) (Message, error) {
	args := m.Called(msg)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) MarkMessageRead(messageId int64, readTime time.Time) error {
	args := m.Called(messageId, readTime)
	return args.Error(0)
}
func (m *MockChatRepository) ListMessages(roomId string, limit int) ([]Message, error) {
	args := m.Called(roomId, limit)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockChatRepository) LatestMessagePerRoom(userId string, roomIds []string) ([]RoomSummary, error) {
	args := m.Called(userId, roomIds)
	return args.Get(0).([]RoomSummary), args.Error(1)
}
