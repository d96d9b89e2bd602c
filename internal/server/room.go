package server

import (
	"log"
	"sync"
)

// Room is the in-memory broadcast group for one chat room. Rooms are
// loaded lazily on the first join and unloaded when the last client
// leaves. commitMu serializes the persist-then-broadcast section of
// the message pipeline so broadcast order always matches persistence
// order within the room.
type Room struct {
	id         string
	chatServer *ChatServer
	log        *log.Logger

	clientsLock sync.RWMutex
	clients     map[*Client]struct{}

	commitMu sync.Mutex
}

func newRoom(id string, cs *ChatServer, l *log.Logger) *Room {
	return &Room{
		id:         id,
		chatServer: cs,
		log:        l,
		clients:    make(map[*Client]struct{}),
	}
}

func (r *Room) addClient(c *Client) {
	r.clientsLock.Lock()
	defer r.clientsLock.Unlock()
	r.clients[c] = struct{}{}
}

func (r *Room) removeClient(c *Client) {
	r.clientsLock.Lock()
	defer r.clientsLock.Unlock()
	delete(r.clients, c)
}

func (r *Room) hasClient(c *Client) bool {
	r.clientsLock.RLock()
	defer r.clientsLock.RUnlock()
	_, ok := r.clients[c]
	return ok
}

func (r *Room) empty() bool {
	r.clientsLock.RLock()
	defer r.clientsLock.RUnlock()
	return len(r.clients) == 0
}

// broadcast queues msg on every client in the room, except
// msg.SkipClient when set. A full send buffer drops the message for
// that client only.
func (r *Room) broadcast(msg *ServerMessage) {
	r.clientsLock.RLock()
	defer r.clientsLock.RUnlock()

	for c := range r.clients {
		if c == msg.SkipClient {
			continue
		}
		if !c.queueMessage(msg) {
			r.log.Printf("dropped %q event for slow client in room %q", msg.Event, r.id)
		}
	}
}
