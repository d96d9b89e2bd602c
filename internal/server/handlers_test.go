package server

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Hana-Lee/translate-chat/internal/database"
	"github.com/Hana-Lee/translate-chat/internal/types"
)

func TestRegister(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("CreateUser", mock.MatchedBy(func(p database.CreateUserParams) bool {
		return p.Id != "" && p.UserName == "lee" && p.DeviceId == "device-1"
	})).Return(database.User{Id: "u1", UserName: "lee", DeviceId: "device-1"}, nil)

	cs, _ := newTestServer(t, repo, nil)
	c := newTestClient(t, cs, "", "")

	dispatch(cs, c, 1, "register", `{"user_name":"lee","device_id":"device-1"}`)

	msg := recv(t, c)
	assert.Equal(t, 1, msg.Id)
	assert.Equal(t, "created", msg.Event)
	require.Nil(t, msg.Error)

	user, ok := msg.Result.(types.User)
	require.True(t, ok)
	assert.Equal(t, "u1", user.Id)
	assert.Equal(t, "lee", user.UserName)

	userId, userName := c.session.User()
	assert.Equal(t, "u1", userId)
	assert.Equal(t, "lee", userName)
	repo.AssertExpectations(t)
}

func TestRegister_MissingUserName(t *testing.T) {
	repo := &database.MockChatRepository{}
	cs, _ := newTestServer(t, repo, nil)
	c := newTestClient(t, cs, "", "")

	dispatch(cs, c, 1, "register", `{}`)

	msg := recv(t, c)
	require.NotNil(t, msg.Error)
	assert.Equal(t, KindValidation, msg.Error.Kind)
	repo.AssertNotCalled(t, "CreateUser", mock.Anything)
}

func TestDispatch_UnknownEvent(t *testing.T) {
	cs, _ := newTestServer(t, &database.MockChatRepository{}, nil)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 7, "bogusEvent", `{}`)

	msg := recv(t, c)
	assert.Equal(t, 7, msg.Id)
	require.NotNil(t, msg.Error)
	assert.Equal(t, KindValidation, msg.Error.Kind)
	assert.Equal(t, "dispatch", msg.Error.Stage)
}

func TestUpdatePresence(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("UpdateOnline", "u1", true, mock.AnythingOfType("time.Time")).Return(nil)

	cs, _ := newTestServer(t, repo, nil)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 2, "updatePresence", `{"user_id":"u1","online":true}`)

	msg := recv(t, c)
	assert.Equal(t, "presenceUpdated", msg.Event)
	require.Nil(t, msg.Error)
	repo.AssertExpectations(t)
}

func TestResolveRoom_Existing(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("GetUser", "u1").Return(database.User{Id: "u1"}, nil)
	repo.On("GetUser", "u2").Return(database.User{Id: "u2"}, nil)
	repo.On("GetRoomByPairKey", "u1:u2").Return(database.Room{Id: "room-1", PairKey: "u1:u2"}, nil)

	cs, _ := newTestServer(t, repo, nil)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 3, "resolveRoom", `{"user_id":"u1","friend_id":"u2"}`)

	msg := recv(t, c)
	assert.Equal(t, "room", msg.Event)
	require.Nil(t, msg.Error)
	assert.Equal(t, RoomResult{RoomId: "room-1"}, msg.Result)
	repo.AssertNotCalled(t, "CreateRoom", mock.Anything)
}

func TestResolveRoom_CreatesRoom(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("GetUser", "u1").Return(database.User{Id: "u1"}, nil)
	repo.On("GetUser", "u2").Return(database.User{Id: "u2"}, nil)
	repo.On("GetRoomByPairKey", "u1:u2").Return(database.Room{}, sql.ErrNoRows)
	repo.On("CreateRoom", mock.MatchedBy(func(p database.CreateRoomParams) bool {
		return p.Id != "" && p.PairKey == "u1:u2" && len(p.Members) == 2
	})).Return(database.Room{Id: "room-new", PairKey: "u1:u2"}, nil)

	cs, _ := newTestServer(t, repo, nil)
	c := newTestClient(t, cs, "u1", "lee")

	// Both orders of the pair resolve through the same canonical key.
	dispatch(cs, c, 3, "resolveRoom", `{"user_id":"u2","friend_id":"u1"}`)

	msg := recv(t, c)
	require.Nil(t, msg.Error)
	assert.Equal(t, RoomResult{RoomId: "room-new"}, msg.Result)
	repo.AssertExpectations(t)
}

func TestResolveRoom_UnknownUser(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("GetUser", "u1").Return(database.User{Id: "u1"}, nil)
	repo.On("GetUser", "ghost").Return(database.User{}, sql.ErrNoRows)

	cs, _ := newTestServer(t, repo, nil)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 3, "resolveRoom", `{"user_id":"u1","friend_id":"ghost"}`)

	msg := recv(t, c)
	require.NotNil(t, msg.Error)
	assert.Equal(t, KindNotFound, msg.Error.Kind)
}

func TestJoinRoom(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("GetRoom", "room-1").Return(database.Room{Id: "room-1"}, nil)

	cs, _ := newTestServer(t, repo, nil)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 4, "joinRoom", `{"chat_room_id":"room-1"}`)

	msg := recv(t, c)
	assert.Equal(t, "joined", msg.Event)
	require.Nil(t, msg.Error)
	assert.Equal(t, "room-1", c.session.RoomId())

	room := cs.getRoom("room-1")
	require.NotNil(t, room)
	assert.True(t, room.hasClient(c))
}

func TestJoinRoom_NotFound(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("GetRoom", "missing").Return(database.Room{}, sql.ErrNoRows)

	cs, _ := newTestServer(t, repo, nil)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 4, "joinRoom", `{"chat_room_id":"missing"}`)

	msg := recv(t, c)
	require.NotNil(t, msg.Error)
	assert.Equal(t, KindNotFound, msg.Error.Kind)
	assert.Empty(t, c.session.RoomId())
}

func TestJoinRoom_SwitchesRoom(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("GetRoom", mock.Anything).Return(database.Room{Id: "x"}, nil)

	cs, _ := newTestServer(t, repo, nil)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 4, "joinRoom", `{"chat_room_id":"room-1"}`)
	recv(t, c)
	dispatch(cs, c, 5, "joinRoom", `{"chat_room_id":"room-2"}`)
	recv(t, c)

	assert.Equal(t, "room-2", c.session.RoomId())
	assert.Nil(t, cs.getRoom("room-1"), "previous room should be unloaded once empty")
	assert.True(t, cs.getRoom("room-2").hasClient(c))
}

func twoMemberRoomRepo(roomId string) *database.MockChatRepository {
	repo := &database.MockChatRepository{}
	repo.On("GetRoom", roomId).Return(database.Room{Id: roomId}, nil)
	repo.On("ListRoomMembers", roomId).Return([]database.User{
		{Id: "u1", UserName: "lee"},
		{Id: "u2", UserName: "kim"},
	}, nil)
	return repo
}

func TestSendMessage_SymbolOnlyVerbatim(t *testing.T) {
	repo := twoMemberRoomRepo("room-1")
	repo.On("CreateMessage", mock.MatchedBy(func(m database.Message) bool {
		return m.Text == "😀 😀" && m.Type == "text"
	})).Return(database.Message{Id: 1, RoomId: "room-1", UserId: "u1", Text: "😀 😀", Type: "text"}, nil)

	translator := &fakeTranslator{}
	cs, _ := newTestServer(t, repo, translator)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 5, "sendMessage", `{"chat_room_id":"room-1","user_id":"u1","text":"😀 😀"}`)

	msg := recv(t, c)
	assert.Equal(t, "message", msg.Event)
	require.Nil(t, msg.Error)
	assert.Empty(t, translator.calls())
	assert.Zero(t, translator.detectCalls)
	repo.AssertExpectations(t)
}

func TestSendMessage_PrimaryNoTranslate(t *testing.T) {
	// Recipient's translate setting is off, so Korean text is stored
	// verbatim and no provider is called.
	repo := twoMemberRoomRepo("room-1")
	repo.On("GetRoomSetting", "room-1", "u2", "translate").
		Return(database.RoomSetting{Key: "translate", Value: "false"}, nil)
	repo.On("CreateMessage", mock.MatchedBy(func(m database.Message) bool {
		return m.Text == "안녕하세요"
	})).Return(database.Message{Id: 2, RoomId: "room-1", UserId: "u1", Text: "안녕하세요", Type: "text"}, nil)

	translator := &fakeTranslator{}
	cs, _ := newTestServer(t, repo, translator)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 6, "sendMessage", `{"chat_room_id":"room-1","user_id":"u1","text":"안녕하세요"}`)

	msg := recv(t, c)
	require.Nil(t, msg.Error)
	assert.Empty(t, translator.calls())
	repo.AssertExpectations(t)
}

func TestSendMessage_TranslateFanout(t *testing.T) {
	stored := time.Date(2016, 4, 2, 12, 0, 0, 0, time.UTC)

	repo := twoMemberRoomRepo("room-1")
	repo.On("GetRoomSetting", "room-1", "u2", "translate").
		Return(database.RoomSetting{Key: "translate", Value: "true"}, nil)
	repo.On("CreateMessage", mock.MatchedBy(func(m database.Message) bool {
		return m.Text == "안녕\nes:[안녕|es]\nch:[안녕|zh-CHS]"
	})).Return(database.Message{
		Id:        3,
		RoomId:    "room-1",
		UserId:    "u1",
		Text:      "안녕\nes:[안녕|es]\nch:[안녕|zh-CHS]",
		Type:      "text",
		CreatedAt: stored,
	}, nil)

	translator := &fakeTranslator{}
	cs, _ := newTestServer(t, repo, translator)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 7, "sendMessage", `{"chat_room_id":"room-1","user_id":"u1","text":"안녕"}`)

	msg := recv(t, c)
	require.Nil(t, msg.Error)
	assert.Equal(t, []string{"ko->es", "ko->zh-CHS"}, translator.calls())

	result, ok := msg.Result.(types.Message)
	require.True(t, ok)
	assert.Equal(t, int64(3), result.Id)
	assert.Equal(t, "안녕\nes:[안녕|es]\nch:[안녕|zh-CHS]", result.Text)
	assert.Equal(t, "lee", result.UserName)
	// The echoed timestamp is the stored one, not the arrival time, so
	// it matches what listMessages returns later.
	assert.Equal(t, stored, result.Timestamp)
	repo.AssertExpectations(t)
}

func TestSendMessage_Inbound(t *testing.T) {
	// Non-primary text gets detected and translated back to the
	// primary language, the translate setting is not consulted.
	repo := twoMemberRoomRepo("room-1")
	repo.On("CreateMessage", mock.MatchedBy(func(m database.Message) bool {
		return m.Text == "hello\nko:[hello|ko]"
	})).Return(database.Message{Id: 4, RoomId: "room-1", UserId: "u1", Text: "hello\nko:[hello|ko]", Type: "text"}, nil)

	translator := &fakeTranslator{detectLang: "en"}
	cs, _ := newTestServer(t, repo, translator)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 8, "sendMessage", `{"chat_room_id":"room-1","user_id":"u1","text":"hello"}`)

	msg := recv(t, c)
	require.Nil(t, msg.Error)
	assert.Equal(t, 1, translator.detectCalls)
	assert.Equal(t, []string{"en->ko"}, translator.calls())
	repo.AssertNotCalled(t, "GetRoomSetting", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessage_ProviderFailureAbortsCommit(t *testing.T) {
	repo := twoMemberRoomRepo("room-1")
	repo.On("GetRoomSetting", "room-1", "u2", "translate").
		Return(database.RoomSetting{Key: "translate", Value: "true"}, nil)

	translator := &fakeTranslator{translateErr: errors.New("provider down")}
	cs, notifier := newTestServer(t, repo, translator)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 9, "sendMessage", `{"chat_room_id":"room-1","user_id":"u1","text":"안녕"}`)

	msg := recv(t, c)
	require.NotNil(t, msg.Error)
	assert.Equal(t, KindProvider, msg.Error.Kind)
	assert.Equal(t, "translate-es", msg.Error.Stage)
	repo.AssertNotCalled(t, "CreateMessage", mock.Anything)
	assert.Empty(t, notifier.dispatched())
}

func TestSendMessage_DetectFailure(t *testing.T) {
	repo := twoMemberRoomRepo("room-1")

	translator := &fakeTranslator{detectErr: errors.New("provider down")}
	cs, _ := newTestServer(t, repo, translator)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 9, "sendMessage", `{"chat_room_id":"room-1","user_id":"u1","text":"hello"}`)

	msg := recv(t, c)
	require.NotNil(t, msg.Error)
	assert.Equal(t, KindProvider, msg.Error.Kind)
	assert.Equal(t, "detect", msg.Error.Stage)
	repo.AssertNotCalled(t, "CreateMessage", mock.Anything)
}

func TestSendMessage_BroadcastAndNotify(t *testing.T) {
	repo := twoMemberRoomRepo("room-1")
	repo.On("CreateMessage", mock.Anything).Return(database.Message{Id: 5, RoomId: "room-1", UserId: "u1", Text: "😀", Type: "text"}, nil)

	cs, notifier := newTestServer(t, repo, &fakeTranslator{})
	sender := newTestClient(t, cs, "u1", "lee")
	peer := newTestClient(t, cs, "u2", "kim")

	dispatch(cs, sender, 1, "joinRoom", `{"chat_room_id":"room-1"}`)
	recv(t, sender)
	dispatch(cs, peer, 1, "joinRoom", `{"chat_room_id":"room-1"}`)
	recv(t, peer)

	dispatch(cs, sender, 2, "sendMessage", `{"chat_room_id":"room-1","user_id":"u1","text":"😀"}`)

	echoed := recv(t, sender)
	assert.Equal(t, "message", echoed.Event)
	broadcast := recv(t, peer)
	assert.Equal(t, "message", broadcast.Event)
	assert.Equal(t, echoed.Result, broadcast.Result)

	// Push dispatch targets the other member only, with the original
	// text rather than the composite.
	require.Eventually(t, func() bool {
		return len(notifier.dispatched()) == 1
	}, time.Second, 10*time.Millisecond)

	call := notifier.dispatched()[0]
	assert.Equal(t, "u2", call.recipientId)
	assert.Equal(t, "lee", call.senderName)
	assert.Equal(t, "😀", call.text)
	assert.Equal(t, "room-1", call.roomId)
}

func TestSendMessage_Validation(t *testing.T) {
	cs, _ := newTestServer(t, &database.MockChatRepository{}, nil)
	c := newTestClient(t, cs, "u1", "lee")

	tests := []struct {
		name    string
		payload string
	}{
		{"missing text", `{"chat_room_id":"room-1","user_id":"u1"}`},
		{"missing room", `{"user_id":"u1","text":"hi"}`},
		{"bad type", `{"chat_room_id":"room-1","user_id":"u1","text":"hi","type":"video"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dispatch(cs, c, 1, "sendMessage", tc.payload)
			msg := recv(t, c)
			require.NotNil(t, msg.Error)
			assert.Equal(t, KindValidation, msg.Error.Kind)
		})
	}
}

func TestMarkRead(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("MarkMessageRead", int64(42), mock.AnythingOfType("time.Time")).Return(nil)

	cs, _ := newTestServer(t, repo, nil)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 3, "markRead", `{"chat_message_id":42}`)

	msg := recv(t, c)
	assert.Equal(t, "read", msg.Event)
	require.Nil(t, msg.Error)
	repo.AssertExpectations(t)
}

func TestMarkRead_NotFound(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("MarkMessageRead", int64(42), mock.AnythingOfType("time.Time")).Return(sql.ErrNoRows)

	cs, _ := newTestServer(t, repo, nil)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 3, "markRead", `{"chat_message_id":42}`)

	msg := recv(t, c)
	require.NotNil(t, msg.Error)
	assert.Equal(t, KindNotFound, msg.Error.Kind)
}

func TestTypingBroadcast(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("GetRoom", "room-1").Return(database.Room{Id: "room-1"}, nil)

	cs, _ := newTestServer(t, repo, nil)
	typer := newTestClient(t, cs, "u1", "lee")
	peer := newTestClient(t, cs, "u2", "kim")

	dispatch(cs, typer, 1, "joinRoom", `{"chat_room_id":"room-1"}`)
	recv(t, typer)
	dispatch(cs, peer, 1, "joinRoom", `{"chat_room_id":"room-1"}`)
	recv(t, peer)

	dispatch(cs, typer, 0, "typing", `{}`)

	msg := recv(t, peer)
	assert.Equal(t, "typing", msg.Event)
	assert.Equal(t, UserNameResult{UserName: "lee"}, msg.Result)
	assertNoMessage(t, typer)

	dispatch(cs, typer, 0, "stopTyping", `{}`)
	msg = recv(t, peer)
	assert.Equal(t, "stopTyping", msg.Event)
}

func TestTyping_NoRoomIsIgnored(t *testing.T) {
	cs, _ := newTestServer(t, &database.MockChatRepository{}, nil)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 0, "typing", `{}`)
	assertNoMessage(t, c)
}

func TestListMessages(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("GetRoom", "room-1").Return(database.Room{Id: "room-1"}, nil)
	repo.On("ListRoomMembers", "room-1").Return([]database.User{
		{Id: "u1", UserName: "lee"},
	}, nil)
	repo.On("ListMessages", "room-1", 50).Return([]database.Message{
		{Id: 1, RoomId: "room-1", UserId: "u1", Text: "first", Type: "text"},
		{Id: 2, RoomId: "room-1", UserId: "u1", Text: "second", Type: "text"},
	}, nil)

	cs, _ := newTestServer(t, repo, nil)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 4, "listMessages", `{"chat_room_id":"room-1","limit":50}`)

	msg := recv(t, c)
	require.Nil(t, msg.Error)

	messages, ok := msg.Result.([]types.Message)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, int64(1), messages[0].Id)
	assert.Equal(t, "lee", messages[0].UserName)
}

func TestUpdateRoomSetting(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("UpdateRoomSetting", "room-1", "u1", "translate", "true").Return(nil)

	cs, _ := newTestServer(t, repo, nil)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 5, "updateRoomSetting", `{"chat_room_id":"room-1","user_id":"u1","key":"translate","value":"true"}`)

	msg := recv(t, c)
	assert.Equal(t, "settingUpdated", msg.Event)
	require.Nil(t, msg.Error)
	repo.AssertExpectations(t)
}

func TestUpdateRoomSetting_UnknownKey(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("UpdateRoomSetting", "room-1", "u1", "bogus", "true").Return(sql.ErrNoRows)

	cs, _ := newTestServer(t, repo, nil)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 5, "updateRoomSetting", `{"chat_room_id":"room-1","user_id":"u1","key":"bogus","value":"true"}`)

	msg := recv(t, c)
	require.NotNil(t, msg.Error)
	assert.Equal(t, KindNotFound, msg.Error.Kind)
}

func TestListRoomSettings(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("ListRoomSettings", "room-1", "u1").Return([]database.RoomSetting{
		{RoomId: "room-1", UserId: "u1", Key: "translate", DisplayName: "번역", Value: "false"},
		{RoomId: "room-1", UserId: "u1", Key: "show_picture", DisplayName: "사진 보기", Value: "false"},
	}, nil)

	cs, _ := newTestServer(t, repo, nil)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 6, "listRoomSettings", `{"chat_room_id":"room-1","user_id":"u1"}`)

	msg := recv(t, c)
	require.Nil(t, msg.Error)

	settings, ok := msg.Result.([]types.RoomSetting)
	require.True(t, ok)
	assert.Len(t, settings, 2)
}

func TestDeleteRoom(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("GetRoom", "room-1").Return(database.Room{Id: "room-1"}, nil)
	repo.On("DeleteRoom", "room-1").Return(nil)

	cs, _ := newTestServer(t, repo, nil)
	caller := newTestClient(t, cs, "u1", "lee")
	peer := newTestClient(t, cs, "u2", "kim")

	dispatch(cs, caller, 1, "joinRoom", `{"chat_room_id":"room-1"}`)
	recv(t, caller)
	dispatch(cs, peer, 1, "joinRoom", `{"chat_room_id":"room-1"}`)
	recv(t, peer)

	dispatch(cs, caller, 2, "deleteRoom", `{"chat_room_id":"room-1"}`)

	ack := recv(t, caller)
	assert.Equal(t, "roomDeleted", ack.Event)
	require.Nil(t, ack.Error)

	notice := recv(t, peer)
	assert.Equal(t, "roomDeleted", notice.Event)
	assert.Equal(t, RoomResult{RoomId: "room-1"}, notice.Result)

	assert.Empty(t, caller.session.RoomId())
	assert.Empty(t, peer.session.RoomId())
	assert.Nil(t, cs.getRoom("room-1"))
	repo.AssertExpectations(t)
}

func TestCreateFriend(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("FriendshipExists", "u1", "u2").Return(false)
	repo.On("CreateFriendship", "u1", "u2").Return(nil)
	repo.On("GetUser", "u1").Return(database.User{Id: "u1", UserName: "lee"}, nil)

	cs, _ := newTestServer(t, repo, nil)
	caller := newTestClient(t, cs, "u1", "lee")
	friend := newTestClient(t, cs, "u2", "kim")

	dispatch(cs, caller, 1, "createFriend", `{"user_id":"u1","friend_id":"u2"}`)

	ack := recv(t, caller)
	assert.Equal(t, "friendCreated", ack.Event)
	assert.Equal(t, "OK", ack.Result)

	added := recv(t, friend)
	assert.Equal(t, "friendAdded", added.Event)
	user, ok := added.Result.(types.User)
	require.True(t, ok)
	assert.Equal(t, "u1", user.Id)
	repo.AssertExpectations(t)
}

func TestCreateFriend_AlreadyExists(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("FriendshipExists", "u1", "u2").Return(true)

	cs, _ := newTestServer(t, repo, nil)
	caller := newTestClient(t, cs, "u1", "lee")
	friend := newTestClient(t, cs, "u2", "kim")

	dispatch(cs, caller, 1, "createFriend", `{"user_id":"u1","friend_id":"u2"}`)

	ack := recv(t, caller)
	assert.Equal(t, "friendCreated", ack.Event)
	assert.Equal(t, "Already exist friend", ack.Result)
	assertNoMessage(t, friend)
	repo.AssertNotCalled(t, "CreateFriendship", mock.Anything, mock.Anything)
}

func TestGetUserByDeviceId_AbsentIsNotError(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("GetUserByDeviceId", "device-9").Return(database.User{}, sql.ErrNoRows)

	cs, _ := newTestServer(t, repo, nil)
	c := newTestClient(t, cs, "", "")

	dispatch(cs, c, 1, "getUserByDeviceId", `{"device_id":"device-9"}`)

	msg := recv(t, c)
	assert.Equal(t, "user", msg.Event)
	assert.Nil(t, msg.Error)
	assert.Nil(t, msg.Result)
}

func TestListRooms(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("ListRoomIdsForUser", "u1").Return([]string{"room-1", "room-2"}, nil)
	repo.On("LatestMessagePerRoom", "u1", []string{"room-1", "room-2"}).Return([]database.RoomSummary{
		{RoomId: "room-1", FriendId: "u2", FriendName: "kim", LastMessage: "hi", LastType: "text"},
		{RoomId: "room-2", FriendId: "u3", FriendName: "park"},
	}, nil)

	cs, _ := newTestServer(t, repo, nil)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 1, "listRooms", `{"user_id":"u1"}`)

	msg := recv(t, c)
	require.Nil(t, msg.Error)

	rooms, ok := msg.Result.([]types.RoomSummary)
	require.True(t, ok)
	require.Len(t, rooms, 2)
	assert.Equal(t, "kim", rooms[0].Friend.UserName)
	assert.Equal(t, "hi", rooms[0].LastMessage)
}

func TestListRooms_Empty(t *testing.T) {
	repo := &database.MockChatRepository{}
	repo.On("ListRoomIdsForUser", "u1").Return([]string{}, nil)

	cs, _ := newTestServer(t, repo, nil)
	c := newTestClient(t, cs, "u1", "lee")

	dispatch(cs, c, 1, "listRooms", `{"user_id":"u1"}`)

	msg := recv(t, c)
	require.Nil(t, msg.Error)
	assert.Equal(t, []types.RoomSummary{}, msg.Result)
	repo.AssertNotCalled(t, "LatestMessagePerRoom", mock.Anything, mock.Anything)
}
