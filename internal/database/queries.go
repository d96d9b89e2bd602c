package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const userColumns = "user_id, user_name, user_face, device_token, device_id, device_type, device_version, socket_id, online, connection_time, created"

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.Id,
		&u.UserName,
		&u.UserFace,
		&u.DeviceToken,
		&u.DeviceId,
		&u.DeviceType,
		&u.DeviceVersion,
		&u.SocketId,
		&u.Online,
		&u.ConnectionTime,
		&u.CreatedAt,
	)
	return u, err
}

func (db *SQLChatRepository) CreateUser(params CreateUserParams) (User, error) {
	now := time.Now().UTC()
	_, err := db.conn.Exec(
		db.rebind("INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		params.Id,
		params.UserName,
		params.UserFace,
		params.DeviceToken,
		params.DeviceId,
		params.DeviceType,
		params.DeviceVersion,
		params.SocketId,
		true,
		now,
		now,
	)
	if err != nil {
		return User{}, err
	}

	return db.GetUser(params.Id)
}

func (db *SQLChatRepository) GetUser(userId string) (User, error) {
	row := db.conn.QueryRow(
		db.rebind("SELECT "+userColumns+" FROM users WHERE user_id = ? LIMIT 1"),
		userId,
	)
	return scanUser(row)
}

func (db *SQLChatRepository) GetUserByName(userName string) (User, error) {
	row := db.conn.QueryRow(
		db.rebind("SELECT "+userColumns+" FROM users WHERE user_name = ? LIMIT 1"),
		userName,
	)
	return scanUser(row)
}

func (db *SQLChatRepository) GetUserByDeviceId(deviceId string) (User, error) {
	row := db.conn.QueryRow(
		db.rebind("SELECT "+userColumns+" FROM users WHERE device_id = ? LIMIT 1"),
		deviceId,
	)
	return scanUser(row)
}

func (db *SQLChatRepository) ListUsers() ([]User, error) {
	rows, err := db.conn.Query("SELECT " + userColumns + " FROM users ORDER BY user_name DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (db *SQLChatRepository) UpdateSocketId(userId, socketId string) error {
	_, err := db.conn.Exec(
		db.rebind("UPDATE users SET socket_id = ? WHERE user_id = ?"),
		socketId,
		userId,
	)
	return err
}

func (db *SQLChatRepository) UpdateDeviceToken(userId, deviceToken string) error {
	_, err := db.conn.Exec(
		db.rebind("UPDATE users SET device_token = ? WHERE user_id = ?"),
		deviceToken,
		userId,
	)
	return err
}

func (db *SQLChatRepository) UpdateOnline(userId string, online bool, connectionTime time.Time) error {
	_, err := db.conn.Exec(
		db.rebind("UPDATE users SET online = ?, connection_time = ? WHERE user_id = ?"),
		online,
		connectionTime,
		userId,
	)
	return err
}

// CreateFriendship inserts the symmetric pair as two directed rows in
// one transaction; the relation exists either in both directions or
// not at all.
func (db *SQLChatRepository) CreateFriendship(userId, friendId string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	insert := db.rebind("INSERT INTO friends (user_id, friend_id, created) VALUES (?, ?, ?)")

	if _, err = tx.Exec(insert, userId, friendId, now); err != nil {
		return err
	}
	if _, err = tx.Exec(insert, friendId, userId, now); err != nil {
		return err
	}

	return tx.Commit()
}

func (db *SQLChatRepository) FriendshipExists(userId, friendId string) bool {
	row := db.conn.QueryRow(
		db.rebind("SELECT 1 FROM friends WHERE user_id = ? AND friend_id = ? LIMIT 1"),
		userId,
		friendId,
	)

	var one int
	return row.Scan(&one) == nil
}

func (db *SQLChatRepository) ListFriends(userId string) ([]User, error) {
	rows, err := db.conn.Query(
		db.rebind("SELECT u.user_id, u.user_name, u.user_face, u.device_token, u.device_id, u.device_type, u.device_version, u.socket_id, u.online, u.connection_time, u.created "+
			"FROM friends f JOIN users u ON u.user_id = f.friend_id WHERE f.user_id = ? ORDER BY u.user_name"),
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friends []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		friends = append(friends, u)
	}
	return friends, rows.Err()
}

func (db *SQLChatRepository) GetRoom(roomId string) (Room, error) {
	row := db.conn.QueryRow(
		db.rebind("SELECT chat_room_id, pair_key, created FROM chat_rooms WHERE chat_room_id = ? LIMIT 1"),
		roomId,
	)

	var room Room
	err := row.Scan(&room.Id, &room.PairKey, &room.CreatedAt)
	return room, err
}

func (db *SQLChatRepository) GetRoomByPairKey(pairKey string) (Room, error) {
	row := db.conn.QueryRow(
		db.rebind("SELECT chat_room_id, pair_key, created FROM chat_rooms WHERE pair_key = ? LIMIT 1"),
		pairKey,
	)

	var room Room
	err := row.Scan(&room.Id, &room.PairKey, &room.CreatedAt)
	return room, err
}

func (db *SQLChatRepository) GetRoomWithMembers(roomId string) (*Room, error) {
	room, err := db.GetRoom(roomId)
	if err != nil {
		return nil, err
	}

	members, err := db.ListRoomMembers(roomId)
	if err != nil {
		return nil, fmt.Errorf("list room members: %w", err)
	}

	room.Members = members
	return &room, nil
}

// CreateRoom inserts the room, one membership row per member, and one
// settings row per member per catalog entry, all in one transaction.
// A concurrent create for the same pair fails the pair_key uniqueness
// constraint; callers detect that with IsUniqueViolation and re-fetch.
func (db *SQLChatRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	catalog, err := db.ListSettingCatalog()
	if err != nil {
		return Room{}, fmt.Errorf("list setting catalog: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.Exec(
		db.rebind("INSERT INTO chat_rooms (chat_room_id, pair_key, created) VALUES (?, ?, ?)"),
		params.Id,
		params.PairKey,
		now,
	); err != nil {
		return Room{}, err
	}

	insertMember := db.rebind("INSERT INTO chat_room_users (chat_room_id, user_id, created) VALUES (?, ?, ?)")
	insertSetting := db.rebind("INSERT INTO chat_room_settings (chat_room_id, user_id, setting_key, value, created) VALUES (?, ?, ?, ?, ?)")

	for _, member := range params.Members {
		if _, err = tx.Exec(insertMember, params.Id, member, now); err != nil {
			return Room{}, err
		}

		for _, s := range catalog {
			if _, err = tx.Exec(insertSetting, params.Id, member, s.Key, s.DefaultValue, now); err != nil {
				return Room{}, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return Room{}, err
	}

	return Room{Id: params.Id, PairKey: params.PairKey, CreatedAt: now}, nil
}

// DeleteRoom cascades to settings, membership and messages.
func (db *SQLChatRepository) DeleteRoom(roomId string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, stmt := range []string{
		"DELETE FROM chat_room_settings WHERE chat_room_id = ?",
		"DELETE FROM chat_room_users WHERE chat_room_id = ?",
		"DELETE FROM chat_messages WHERE chat_room_id = ?",
		"DELETE FROM chat_rooms WHERE chat_room_id = ?",
	} {
		if _, err = tx.Exec(db.rebind(stmt), roomId); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (db *SQLChatRepository) ListRoomMembers(roomId string) ([]User, error) {
	rows, err := db.conn.Query(
		db.rebind("SELECT u.user_id, u.user_name, u.user_face, u.device_token, u.device_id, u.device_type, u.device_version, u.socket_id, u.online, u.connection_time, u.created "+
			"FROM chat_room_users cu JOIN users u ON u.user_id = cu.user_id WHERE cu.chat_room_id = ?"),
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, u)
	}
	return members, rows.Err()
}

func (db *SQLChatRepository) ListRoomIdsForUser(userId string) ([]string, error) {
	rows, err := db.conn.Query(
		db.rebind("SELECT chat_room_id FROM chat_room_users WHERE user_id = ?"),
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (db *SQLChatRepository) ListSettingCatalog() ([]SettingMaster, error) {
	rows, err := db.conn.Query("SELECT setting_key, display_name, value_type, default_value FROM setting_master ORDER BY setting_key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var catalog []SettingMaster
	for rows.Next() {
		var s SettingMaster
		if err := rows.Scan(&s.Key, &s.DisplayName, &s.ValueType, &s.DefaultValue); err != nil {
			return nil, err
		}
		catalog = append(catalog, s)
	}
	return catalog, rows.Err()
}

func (db *SQLChatRepository) GetRoomSetting(roomId, userId, key string) (RoomSetting, error) {
	row := db.conn.QueryRow(
		db.rebind("SELECT chat_room_id, user_id, setting_key, value, created FROM chat_room_settings "+
			"WHERE chat_room_id = ? AND user_id = ? AND setting_key = ? LIMIT 1"),
		roomId,
		userId,
		key,
	)

	var s RoomSetting
	err := row.Scan(&s.RoomId, &s.UserId, &s.Key, &s.Value, &s.CreatedAt)
	return s, err
}

func (db *SQLChatRepository) ListRoomSettings(roomId, userId string) ([]RoomSetting, error) {
	rows, err := db.conn.Query(
		db.rebind("SELECT s.chat_room_id, s.user_id, s.setting_key, m.display_name, s.value, s.created "+
			"FROM chat_room_settings s JOIN setting_master m ON m.setting_key = s.setting_key "+
			"WHERE s.chat_room_id = ? AND s.user_id = ? ORDER BY s.setting_key"),
		roomId,
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []RoomSetting
	for rows.Next() {
		var s RoomSetting
		if err := rows.Scan(&s.RoomId, &s.UserId, &s.Key, &s.DisplayName, &s.Value, &s.CreatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (db *SQLChatRepository) UpdateRoomSetting(roomId, userId, key, value string) error {
	res, err := db.conn.Exec(
		db.rebind("UPDATE chat_room_settings SET value = ? WHERE chat_room_id = ? AND user_id = ? AND setting_key = ?"),
		value,
		roomId,
		userId,
		key,
	)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateMessage appends a message and returns the stored row with the
// store-assigned id and created timestamp. The timestamp is assigned
// here so persistence order and timestamp order agree, and callers
// echo exactly what a later ListMessages will return.
func (db *SQLChatRepository) CreateMessage(msg Message) (Message, error) {
	msg.Read = false
	msg.ReadTime = nil
	msg.CreatedAt = time.Now().UTC()

	if db.dialect == "postgres" {
		row := db.conn.QueryRow(
			db.rebind("INSERT INTO chat_messages (chat_room_id, user_id, text, type, read, created) "+
				"VALUES (?, ?, ?, ?, ?, ?) RETURNING chat_message_id"),
			msg.RoomId,
			msg.UserId,
			msg.Text,
			msg.Type,
			false,
			msg.CreatedAt,
		)

		if err := row.Scan(&msg.Id); err != nil {
			return Message{}, err
		}
		return msg, nil
	}

	res, err := db.conn.Exec(
		"INSERT INTO chat_messages (chat_room_id, user_id, text, type, read, created) VALUES (?, ?, ?, ?, ?, ?)",
		msg.RoomId,
		msg.UserId,
		msg.Text,
		msg.Type,
		false,
		msg.CreatedAt,
	)
	if err != nil {
		return Message{}, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Message{}, err
	}

	msg.Id = id
	return msg, nil
}

func (db *SQLChatRepository) MarkMessageRead(messageId int64, readTime time.Time) error {
	res, err := db.conn.Exec(
		db.rebind("UPDATE chat_messages SET read = ?, read_time = ? WHERE chat_message_id = ?"),
		true,
		readTime,
		messageId,
	)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListMessages returns the most recent limit messages in chronological
// order: fetched newest-first, re-ordered oldest-first for delivery.
func (db *SQLChatRepository) ListMessages(roomId string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(
		db.rebind("SELECT chat_message_id, chat_room_id, user_id, text, type, read, read_time, created FROM chat_messages "+
			"WHERE chat_room_id = ? ORDER BY created DESC, chat_message_id DESC LIMIT ?"),
		roomId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			msg      Message
			readTime sql.NullTime
		)
		if err := rows.Scan(&msg.Id, &msg.RoomId, &msg.UserId, &msg.Text, &msg.Type, &msg.Read, &readTime, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if readTime.Valid {
			t := readTime.Time
			msg.ReadTime = &t
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// newest-first fetch, oldest-first delivery
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (db *SQLChatRepository) LatestMessagePerRoom(userId string, roomIds []string) ([]RoomSummary, error) {
	if len(roomIds) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?, ", len(roomIds)-1) + "?"
	args := make([]any, 0, len(roomIds)*2+1)
	for _, id := range roomIds {
		args = append(args, id)
	}
	args = append(args, userId)
	for _, id := range roomIds {
		args = append(args, id)
	}

	query := "SELECT cu.chat_room_id, u.user_id, u.user_name, u.user_face, m.text, m.type, m.created " +
		"FROM chat_room_users cu " +
		"JOIN users u ON u.user_id = cu.user_id " +
		"LEFT JOIN (SELECT chat_room_id, MAX(chat_message_id) AS last_id FROM chat_messages WHERE chat_room_id IN (" + placeholders + ") GROUP BY chat_room_id) latest " +
		"ON latest.chat_room_id = cu.chat_room_id " +
		"LEFT JOIN chat_messages m ON m.chat_message_id = latest.last_id " +
		"WHERE cu.user_id != ? AND cu.chat_room_id IN (" + placeholders + ")"

	rows, err := db.conn.Query(db.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []RoomSummary
	for rows.Next() {
		var (
			s       RoomSummary
			text    sql.NullString
			msgType sql.NullString
			created sql.NullTime
		)
		if err := rows.Scan(&s.RoomId, &s.FriendId, &s.FriendName, &s.FriendFace, &text, &msgType, &created); err != nil {
			return nil, err
		}
		s.LastMessage = text.String
		s.LastType = msgType.String
		s.LastCreated = created.Time
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
