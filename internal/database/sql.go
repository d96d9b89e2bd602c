package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

type SQLChatRepository struct {
	conn    *sql.DB
	dialect string
}

// NewSQLChatRepository opens the store, verifies connectivity and
// bootstraps the schema. driver is "sqlite3" or "postgres"; queries are
// written with "?" placeholders and rebound for postgres.
func NewSQLChatRepository(driver, dsn string) (*SQLChatRepository, error) {
	if driver == "sqlite3" && !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=1&_journal_mode=WAL"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	repo := &SQLChatRepository{conn: db, dialect: driver}
	if err := repo.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return repo, nil
}

func (db *SQLChatRepository) Ping() error {
	return db.conn.Ping()
}

func (db *SQLChatRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// rebind converts "?" placeholders to the dialect's notation.
func (db *SQLChatRepository) rebind(query string) string {
	if db.dialect != "postgres" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsUniqueViolation reports whether err is a uniqueness-constraint
// failure, used by the room resolver's create-or-fetch retry.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}

	return false
}

func (db *SQLChatRepository) ensureSchema() error {
	autoId := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.dialect == "postgres" {
		autoId = "BIGSERIAL PRIMARY KEY"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			user_name TEXT NOT NULL,
			user_face TEXT NOT NULL DEFAULT '',
			device_token TEXT NOT NULL DEFAULT '',
			device_id TEXT NOT NULL DEFAULT '',
			device_type TEXT NOT NULL DEFAULT '',
			device_version TEXT NOT NULL DEFAULT '',
			socket_id TEXT NOT NULL DEFAULT '',
			online BOOLEAN NOT NULL DEFAULT FALSE,
			connection_time TIMESTAMP NOT NULL,
			created TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS friends (
			user_id TEXT NOT NULL,
			friend_id TEXT NOT NULL,
			created TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, friend_id)
		)`,
		`CREATE TABLE IF NOT EXISTS chat_rooms (
			chat_room_id TEXT PRIMARY KEY,
			pair_key TEXT NOT NULL UNIQUE,
			created TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chat_room_users (
			chat_room_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			created TIMESTAMP NOT NULL,
			PRIMARY KEY (chat_room_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS setting_master (
			setting_key TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			value_type TEXT NOT NULL,
			default_value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chat_room_settings (
			chat_room_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			setting_key TEXT NOT NULL,
			value TEXT NOT NULL,
			created TIMESTAMP NOT NULL,
			PRIMARY KEY (chat_room_id, user_id, setting_key)
		)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			chat_message_id ` + autoId + `,
			chat_room_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			text TEXT NOT NULL,
			type TEXT NOT NULL,
			read BOOLEAN NOT NULL DEFAULT FALSE,
			read_time TIMESTAMP,
			created TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS cmidx01 ON chat_messages (chat_room_id, created)`,
		`CREATE INDEX IF NOT EXISTS cmidx02 ON chat_messages (user_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.conn.Exec(stmt); err != nil {
			return err
		}
	}

	return db.seedSettingCatalog()
}

// Settings catalog defaults. Every room member gets one settings row
// per entry when a room is created.
var defaultSettingCatalog = []SettingMaster{
	{Key: "translate", DisplayName: "Translate outgoing messages", ValueType: "bool", DefaultValue: "false"},
	{Key: "show_picture", DisplayName: "Show profile picture", ValueType: "bool", DefaultValue: "false"},
}

func (db *SQLChatRepository) seedSettingCatalog() error {
	insert := "INSERT INTO setting_master (setting_key, display_name, value_type, default_value) VALUES (?, ?, ?, ?) ON CONFLICT (setting_key) DO NOTHING"

	for _, s := range defaultSettingCatalog {
		if _, err := db.conn.Exec(db.rebind(insert), s.Key, s.DisplayName, s.ValueType, s.DefaultValue); err != nil {
			return err
		}
	}
	return nil
}
