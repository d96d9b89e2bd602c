package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/Hana-Lee/translate-chat/internal/database"
	"github.com/Hana-Lee/translate-chat/internal/stats"
	"github.com/Hana-Lee/translate-chat/internal/types"
)

func decodePayload(msg *ClientMessage, v interface{}) *EventError {
	if len(msg.Payload) == 0 {
		return validationError(msg.Event, "missing payload")
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return validationError(msg.Event, "invalid payload: "+err.Error())
	}
	return nil
}

func toUser(u database.User) types.User {
	return types.User{
		Id:             u.Id,
		UserName:       u.UserName,
		UserFace:       u.UserFace,
		DeviceToken:    u.DeviceToken,
		DeviceId:       u.DeviceId,
		DeviceType:     u.DeviceType,
		DeviceVersion:  u.DeviceVersion,
		Online:         u.Online,
		ConnectionTime: u.ConnectionTime,
		CreatedAt:      u.CreatedAt,
	}
}

func toUsers(users []database.User) []types.User {
	out := make([]types.User, 0, len(users))
	for _, u := range users {
		out = append(out, toUser(u))
	}
	return out
}

func toMessage(m database.Message, userName string) types.Message {
	return types.Message{
		Id:        m.Id,
		RoomId:    m.RoomId,
		UserId:    m.UserId,
		UserName:  userName,
		Text:      m.Text,
		Type:      m.Type,
		Read:      m.Read,
		ReadTime:  m.ReadTime,
		Timestamp: m.CreatedAt,
	}
}

func toSettings(settings []database.RoomSetting) []types.RoomSetting {
	out := make([]types.RoomSetting, 0, len(settings))
	for _, s := range settings {
		out = append(out, types.RoomSetting{
			RoomId:      s.RoomId,
			UserId:      s.UserId,
			Key:         s.Key,
			DisplayName: s.DisplayName,
			Value:       s.Value,
		})
	}
	return out
}

func (cs *ChatServer) handleRegister(msg *ClientMessage) {
	var payload RegisterPayload
	if eerr := decodePayload(msg, &payload); eerr != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	if payload.UserName == "" {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event,
			validationError(msg.Event, "user_name is required")))
		return
	}

	user, err := cs.db.CreateUser(database.CreateUserParams{
		Id:            uuid.NewString(),
		UserName:      payload.UserName,
		UserFace:      payload.UserFace,
		DeviceToken:   payload.DeviceToken,
		DeviceId:      payload.DeviceId,
		DeviceType:    payload.DeviceType,
		DeviceVersion: payload.DeviceVersion,
		SocketId:      msg.client.Id(),
	})
	if err != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("create-user", err)))
		return
	}

	msg.client.session.SetUser(user.Id, user.UserName)
	msg.client.queueMessage(okMsg(msg.Id, "created", toUser(user)))
}

func (cs *ChatServer) handleUpdatePresence(msg *ClientMessage) {
	var payload PresencePayload
	if eerr := decodePayload(msg, &payload); eerr != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	if payload.UserId == "" {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event,
			validationError(msg.Event, "user_id is required")))
		return
	}

	if err := cs.db.UpdateOnline(payload.UserId, payload.Online, msg.Timestamp); err != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("update-presence", err)))
		return
	}

	msg.client.queueMessage(okMsg(msg.Id, "presenceUpdated", "OK"))
}

func (cs *ChatServer) handleUpdateSocketId(msg *ClientMessage) {
	var payload SocketPayload
	if eerr := decodePayload(msg, &payload); eerr != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	if payload.UserId == "" {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event,
			validationError(msg.Event, "user_id is required")))
		return
	}

	if err := cs.db.UpdateSocketId(payload.UserId, msg.client.Id()); err != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("update-socket-id", err)))
		return
	}

	user, err := cs.db.GetUser(payload.UserId)
	if err == nil {
		msg.client.session.SetUser(user.Id, user.UserName)
	}

	msg.client.queueMessage(okMsg(msg.Id, "socketIdUpdated", "OK"))
}

func (cs *ChatServer) handleUpdateDeviceToken(msg *ClientMessage) {
	var payload DeviceTokenPayload
	if eerr := decodePayload(msg, &payload); eerr != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	if err := cs.db.UpdateDeviceToken(payload.UserId, payload.DeviceToken); err != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("update-device-token", err)))
		return
	}

	msg.client.queueMessage(okMsg(msg.Id, "deviceTokenUpdated", "OK"))
}

func (cs *ChatServer) handleResolveRoom(msg *ClientMessage) {
	var payload ResolveRoomPayload
	if eerr := decodePayload(msg, &payload); eerr != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	if payload.UserId == "" || payload.FriendId == "" || payload.UserId == payload.FriendId {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event,
			validationError(msg.Event, "user_id and friend_id must be two distinct users")))
		return
	}

	for _, id := range []string{payload.UserId, payload.FriendId} {
		if _, err := cs.db.GetUser(id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				msg.client.queueMessage(errMsg(msg.Id, msg.Event,
					notFoundError("resolve-room", "no such user "+id)))
			} else {
				msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("resolve-room", err)))
			}
			return
		}
	}

	room, eerr := cs.resolver.Resolve(payload.UserId, payload.FriendId)
	if eerr != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	msg.client.queueMessage(okMsg(msg.Id, "room", RoomResult{RoomId: room.Id}))
}

func (cs *ChatServer) handleJoinRoom(msg *ClientMessage) {
	var payload JoinRoomPayload
	if eerr := decodePayload(msg, &payload); eerr != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	if _, err := cs.db.GetRoom(payload.RoomId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg.client.queueMessage(errMsg(msg.Id, msg.Event,
				notFoundError("join-room", "no such room "+payload.RoomId)))
		} else {
			msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("join-room", err)))
		}
		return
	}

	// Leave the previous room first: a session is in at most one room.
	if prev := msg.client.session.RoomId(); prev != "" && prev != payload.RoomId {
		cs.detachClient(prev, msg.client)
	}

	cs.attachClient(payload.RoomId, msg.client)
	msg.client.session.SetRoom(payload.RoomId)

	msg.client.queueMessage(okMsg(msg.Id, "joined", RoomResult{RoomId: payload.RoomId}))
}

func (cs *ChatServer) handleSendMessage(msg *ClientMessage) {
	var payload SendMessagePayload
	if eerr := decodePayload(msg, &payload); eerr != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	if payload.Type == "" {
		payload.Type = "text"
	}

	if payload.RoomId == "" || payload.UserId == "" || payload.Text == "" {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event,
			validationError(msg.Event, "chat_room_id, user_id and text are required")))
		return
	}
	if payload.Type != "text" && payload.Type != "image" {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event,
			validationError(msg.Event, "unknown message type "+payload.Type)))
		return
	}

	if _, err := cs.db.GetRoom(payload.RoomId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg.client.queueMessage(errMsg(msg.Id, msg.Event,
				notFoundError("send-message", "no such room "+payload.RoomId)))
		} else {
			msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("send-message", err)))
		}
		return
	}

	members, err := cs.db.ListRoomMembers(payload.RoomId)
	if err != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("list-room-members", err)))
		return
	}

	var recipients []database.User
	for _, m := range members {
		if m.Id != payload.UserId {
			recipients = append(recipients, m)
		}
	}

	recipientId := ""
	if len(recipients) > 0 {
		recipientId = recipients[0].Id
	}

	// Translation runs inline on the sender's read goroutine, before
	// anything is persisted. Disconnects elsewhere must not cancel an
	// in-flight message, hence the background context.
	composite, eerr := cs.pipeline.prepare(context.Background(), &payload, recipientId)
	if eerr != nil {
		cs.stats.Incr(stats.PipelineFailures)
		cs.log.Printf("pipeline failed at %s: %s", eerr.Stage, eerr.Detail)
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	senderName := msg.client.session.UserName()
	if senderName == "" {
		if sender, err := cs.db.GetUser(payload.UserId); err == nil {
			senderName = sender.UserName
		}
	}

	// A nil group means no connection is attached to the room right
	// now; the message is still persisted and acked.
	room := cs.getRoom(payload.RoomId)
	if room != nil {
		room.commitMu.Lock()
	}

	stored, err := cs.db.CreateMessage(database.Message{
		RoomId: payload.RoomId,
		UserId: payload.UserId,
		Text:   composite,
		Type:   payload.Type,
	})
	if err != nil {
		if room != nil {
			room.commitMu.Unlock()
		}
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("insert-message", err)))
		return
	}

	out := okMsg(msg.Id, "message", toMessage(stored, senderName))

	if room != nil {
		if !room.hasClient(msg.client) {
			msg.client.queueMessage(out)
		}
		room.broadcast(out)
		room.commitMu.Unlock()
	} else {
		msg.client.queueMessage(out)
	}

	cs.stats.Incr(stats.MessagesRelayed)

	for _, recipient := range recipients {
		go cs.notifier.Dispatch(recipient.Id, senderName, payload.Text, payload.Type, payload.RoomId)
	}
}

func (cs *ChatServer) handleMarkRead(msg *ClientMessage) {
	var payload MarkReadPayload
	if eerr := decodePayload(msg, &payload); eerr != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	readTime := payload.ReadTime
	if readTime.IsZero() {
		readTime = msg.Timestamp
	}

	if err := cs.db.MarkMessageRead(payload.MessageId, readTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg.client.queueMessage(errMsg(msg.Id, msg.Event,
				notFoundError("mark-read", "no such message")))
		} else {
			msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("mark-read", err)))
		}
		return
	}

	msg.client.queueMessage(okMsg(msg.Id, "read", "OK"))

	if roomId := msg.client.session.RoomId(); roomId != "" {
		if room := cs.getRoom(roomId); room != nil {
			broadcast := okMsg(0, "messageRead", map[string]interface{}{
				"chat_message_id": payload.MessageId,
				"read_time":       readTime,
			})
			broadcast.SkipClient = msg.client
			room.broadcast(broadcast)
		}
	}
}

func (cs *ChatServer) handleTyping(msg *ClientMessage) {
	cs.broadcastTyping(msg, "typing")
}

func (cs *ChatServer) handleStopTyping(msg *ClientMessage) {
	cs.broadcastTyping(msg, "stopTyping")
}

// broadcastTyping relays typing indicators to the rest of the room.
// No ack is sent and a session outside any room is ignored.
func (cs *ChatServer) broadcastTyping(msg *ClientMessage, event string) {
	roomId := msg.client.session.RoomId()
	if roomId == "" {
		return
	}

	room := cs.getRoom(roomId)
	if room == nil {
		return
	}

	out := okMsg(0, event, UserNameResult{UserName: msg.client.session.UserName()})
	out.SkipClient = msg.client
	room.broadcast(out)
}

func (cs *ChatServer) handleListMessages(msg *ClientMessage) {
	var payload ListMessagesPayload
	if eerr := decodePayload(msg, &payload); eerr != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	if _, err := cs.db.GetRoom(payload.RoomId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg.client.queueMessage(errMsg(msg.Id, msg.Event,
				notFoundError("list-messages", "no such room "+payload.RoomId)))
		} else {
			msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("list-messages", err)))
		}
		return
	}

	messages, err := cs.db.ListMessages(payload.RoomId, payload.Limit)
	if err != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("list-messages", err)))
		return
	}

	names := make(map[string]string)
	if members, err := cs.db.ListRoomMembers(payload.RoomId); err == nil {
		for _, m := range members {
			names[m.Id] = m.UserName
		}
	}

	out := make([]types.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, toMessage(m, names[m.UserId]))
	}

	msg.client.queueMessage(okMsg(msg.Id, "messages", out))
}

func (cs *ChatServer) handleUpdateRoomSetting(msg *ClientMessage) {
	var payload SettingPayload
	if eerr := decodePayload(msg, &payload); eerr != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	if payload.RoomId == "" || payload.UserId == "" || payload.Key == "" {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event,
			validationError(msg.Event, "chat_room_id, user_id and key are required")))
		return
	}

	if err := cs.db.UpdateRoomSetting(payload.RoomId, payload.UserId, payload.Key, payload.Value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg.client.queueMessage(errMsg(msg.Id, msg.Event,
				notFoundError("update-room-setting", "no such setting "+payload.Key)))
		} else {
			msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("update-room-setting", err)))
		}
		return
	}

	msg.client.queueMessage(okMsg(msg.Id, "settingUpdated", "OK"))
}

func (cs *ChatServer) handleListRoomSettings(msg *ClientMessage) {
	var payload ListSettingsPayload
	if eerr := decodePayload(msg, &payload); eerr != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	userId := payload.UserId
	if userId == "" {
		userId = msg.client.session.UserId()
	}

	settings, err := cs.db.ListRoomSettings(payload.RoomId, userId)
	if err != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("list-room-settings", err)))
		return
	}

	msg.client.queueMessage(okMsg(msg.Id, "settings", toSettings(settings)))
}

func (cs *ChatServer) handleDeleteRoom(msg *ClientMessage) {
	var payload DeleteRoomPayload
	if eerr := decodePayload(msg, &payload); eerr != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	if _, err := cs.db.GetRoom(payload.RoomId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg.client.queueMessage(errMsg(msg.Id, msg.Event,
				notFoundError("delete-room", "no such room "+payload.RoomId)))
		} else {
			msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("delete-room", err)))
		}
		return
	}

	if err := cs.db.DeleteRoom(payload.RoomId); err != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("delete-room", err)))
		return
	}

	msg.client.queueMessage(okMsg(msg.Id, "roomDeleted", RoomResult{RoomId: payload.RoomId}))

	// Evict everyone still attached to the room and let them know.
	if room := cs.getRoom(payload.RoomId); room != nil {
		notice := okMsg(0, "roomDeleted", RoomResult{RoomId: payload.RoomId})
		notice.SkipClient = msg.client
		room.broadcast(notice)

		room.clientsLock.Lock()
		for c := range room.clients {
			c.session.ClearRoom(payload.RoomId)
			delete(room.clients, c)
		}
		room.clientsLock.Unlock()
		cs.unloadRoom(payload.RoomId)
	}
	msg.client.session.ClearRoom(payload.RoomId)
}

func (cs *ChatServer) handleCreateFriend(msg *ClientMessage) {
	var payload FriendPayload
	if eerr := decodePayload(msg, &payload); eerr != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	if payload.UserId == "" || payload.FriendId == "" || payload.UserId == payload.FriendId {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event,
			validationError(msg.Event, "user_id and friend_id must be two distinct users")))
		return
	}

	if cs.db.FriendshipExists(payload.UserId, payload.FriendId) {
		msg.client.queueMessage(okMsg(msg.Id, "friendCreated", "Already exist friend"))
		return
	}

	if err := cs.db.CreateFriendship(payload.UserId, payload.FriendId); err != nil {
		if database.IsUniqueViolation(err) {
			msg.client.queueMessage(okMsg(msg.Id, "friendCreated", "Already exist friend"))
			return
		}
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("create-friend", err)))
		return
	}

	msg.client.queueMessage(okMsg(msg.Id, "friendCreated", "OK"))

	// Tell the friend's live sessions about the new connection.
	if user, err := cs.db.GetUser(payload.UserId); err == nil {
		for _, c := range cs.clientsForUser(payload.FriendId) {
			c.queueMessage(okMsg(0, "friendAdded", toUser(user)))
		}
	}
}

func (cs *ChatServer) handleListFriends(msg *ClientMessage) {
	var payload UserLookupPayload
	if eerr := decodePayload(msg, &payload); eerr != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	friends, err := cs.db.ListFriends(payload.UserId)
	if err != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("list-friends", err)))
		return
	}

	msg.client.queueMessage(okMsg(msg.Id, "friends", toUsers(friends)))
}

func (cs *ChatServer) handleListUsers(msg *ClientMessage) {
	users, err := cs.db.ListUsers()
	if err != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("list-users", err)))
		return
	}

	msg.client.queueMessage(okMsg(msg.Id, "users", toUsers(users)))
}

func (cs *ChatServer) handleGetUser(msg *ClientMessage) {
	var payload UserLookupPayload
	if eerr := decodePayload(msg, &payload); eerr != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	user, err := cs.db.GetUser(payload.UserId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg.client.queueMessage(errMsg(msg.Id, msg.Event,
				notFoundError("get-user", "no such user "+payload.UserId)))
		} else {
			msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("get-user", err)))
		}
		return
	}

	msg.client.queueMessage(okMsg(msg.Id, "user", toUser(user)))
}

func (cs *ChatServer) handleGetUserByName(msg *ClientMessage) {
	var payload UserLookupPayload
	if eerr := decodePayload(msg, &payload); eerr != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	user, err := cs.db.GetUserByName(payload.UserName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg.client.queueMessage(errMsg(msg.Id, msg.Event,
				notFoundError("get-user", "no such user "+payload.UserName)))
		} else {
			msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("get-user", err)))
		}
		return
	}

	msg.client.queueMessage(okMsg(msg.Id, "user", toUser(user)))
}

// handleGetUserByDeviceId backs the registration check: an absent user
// is a normal outcome, so it answers with a null result instead of an
// error.
func (cs *ChatServer) handleGetUserByDeviceId(msg *ClientMessage) {
	var payload UserLookupPayload
	if eerr := decodePayload(msg, &payload); eerr != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	user, err := cs.db.GetUserByDeviceId(payload.DeviceId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg.client.queueMessage(okMsg(msg.Id, "user", nil))
		} else {
			msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("get-user", err)))
		}
		return
	}

	msg.client.queueMessage(okMsg(msg.Id, "user", toUser(user)))
}

func (cs *ChatServer) handleListRooms(msg *ClientMessage) {
	var payload ListRoomsPayload
	if eerr := decodePayload(msg, &payload); eerr != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, eerr))
		return
	}

	roomIds, err := cs.db.ListRoomIdsForUser(payload.UserId)
	if err != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("list-rooms", err)))
		return
	}

	if len(roomIds) == 0 {
		msg.client.queueMessage(okMsg(msg.Id, "rooms", []types.RoomSummary{}))
		return
	}

	summaries, err := cs.db.LatestMessagePerRoom(payload.UserId, roomIds)
	if err != nil {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event, storeError("list-rooms", err)))
		return
	}

	out := make([]types.RoomSummary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, types.RoomSummary{
			RoomId: s.RoomId,
			Friend: types.User{
				Id:       s.FriendId,
				UserName: s.FriendName,
				UserFace: s.FriendFace,
			},
			LastMessage: s.LastMessage,
			LastType:    s.LastType,
			LastCreated: s.LastCreated,
		})
	}

	msg.client.queueMessage(okMsg(msg.Id, "rooms", out))
}
