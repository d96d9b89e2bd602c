package server

import "sync"

// Session holds the per-connection identity and current room. It is
// written by the event handlers on the connection's read goroutine and
// read by the server when routing user-directed events, hence the lock.
type Session struct {
	mu       sync.RWMutex
	userId   string
	userName string
	roomId   string
}

func (s *Session) SetUser(userId, userName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userId = userId
	s.userName = userName
}

func (s *Session) User() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userId, s.userName
}

func (s *Session) UserId() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userId
}

func (s *Session) UserName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userName
}

func (s *Session) SetRoom(roomId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomId = roomId
}

func (s *Session) RoomId() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomId
}

// ClearRoom resets the room only if it still matches the given id, so
// a session that already moved on is left alone.
func (s *Session) ClearRoom(roomId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomId == roomId {
		s.roomId = ""
	}
}
