package server

import (
	"log"
	"sync"

	"github.com/Hana-Lee/translate-chat/internal/config"
	"github.com/Hana-Lee/translate-chat/internal/database"
	"github.com/Hana-Lee/translate-chat/internal/stats"
	"github.com/Hana-Lee/translate-chat/internal/translate"
)

// Notifier delivers a push notification for a message to one
// recipient. Implemented by push.Dispatcher.
type Notifier interface {
	Dispatch(recipientId, senderName, text, msgType, roomId string)
}

type handlerFunc func(*ClientMessage)

type ChatServer struct {
	log      *log.Logger
	db       database.ChatRepository
	notifier Notifier
	stats    stats.StatsProvider
	resolver *roomResolver
	pipeline *pipeline
	handlers map[string]handlerFunc

	clients     map[*Client]struct{}
	clientsLock sync.Mutex

	rooms     map[string]*Room
	roomsLock sync.Mutex

	RegisterChan   chan *Client
	deRegisterChan chan *Client
	stop           chan struct{}
	done           chan struct{}
}

func NewChatServer(logger *log.Logger, db database.ChatRepository, translator translate.Service,
	notifier Notifier, sp stats.StatsProvider, cfg *config.Config) (*ChatServer, error) {
	cs := &ChatServer{
		log:      logger,
		db:       db,
		notifier: notifier,
		stats:    sp,
		resolver: newRoomResolver(db, logger),
		pipeline: &pipeline{
			translator: translator,
			db:         db,
			primary:    cfg.PrimaryLanguage,
			targets:    cfg.TargetLanguages,
			log:        logger,
			stats:      sp,
		},
		clients:        make(map[*Client]struct{}),
		rooms:          make(map[string]*Room),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}

	cs.handlers = map[string]handlerFunc{
		"register":          cs.handleRegister,
		"updatePresence":    cs.handleUpdatePresence,
		"updateSocketId":    cs.handleUpdateSocketId,
		"updateDeviceToken": cs.handleUpdateDeviceToken,
		"resolveRoom":       cs.handleResolveRoom,
		"joinRoom":          cs.handleJoinRoom,
		"sendMessage":       cs.handleSendMessage,
		"markRead":          cs.handleMarkRead,
		"typing":            cs.handleTyping,
		"stopTyping":        cs.handleStopTyping,
		"listMessages":      cs.handleListMessages,
		"updateRoomSetting": cs.handleUpdateRoomSetting,
		"listRoomSettings":  cs.handleListRoomSettings,
		"deleteRoom":        cs.handleDeleteRoom,
		"createFriend":      cs.handleCreateFriend,
		"listFriends":       cs.handleListFriends,
		"listUsers":         cs.handleListUsers,
		"getUser":           cs.handleGetUser,
		"getUserByName":     cs.handleGetUserByName,
		"getUserByDeviceId": cs.handleGetUserByDeviceId,
		"listRooms":         cs.handleListRooms,
	}

	return cs, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case client := <-cs.RegisterChan:
			cs.log.Printf("adding connection %q", client.id)
			cs.addClient(client)
			cs.stats.Incr(stats.ActiveSessions)
		case client := <-cs.deRegisterChan:
			cs.log.Printf("removing connection %q", client.id)
			cs.removeClient(client)
			cs.stats.Decr(stats.ActiveSessions)
		case <-cs.stop:
			close(cs.done)
			return
		}
	}
}

// dispatch routes an inbound event to its handler. Called on the
// sending client's read goroutine.
func (cs *ChatServer) dispatch(msg *ClientMessage) {
	handler, ok := cs.handlers[msg.Event]
	if !ok {
		msg.client.queueMessage(errMsg(msg.Id, msg.Event,
			validationError("dispatch", "unknown event "+msg.Event)))
		return
	}

	handler(msg)
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
}

func (cs *ChatServer) removeClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	delete(cs.clients, c)
}

// clientsForUser returns the live connections bound to a user id.
// Used for user-directed events such as friendAdded.
func (cs *ChatServer) clientsForUser(userId string) []*Client {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	var clients []*Client
	for c := range cs.clients {
		if c.session.UserId() == userId {
			clients = append(clients, c)
		}
	}
	return clients
}

// attachClient adds a client to a room's broadcast group, loading the
// group on first use. Lookup and membership mutation happen under the
// registry lock so a concurrent eviction of an empty group can never
// strand a joiner on an unregistered room.
func (cs *ChatServer) attachClient(roomId string, c *Client) *Room {
	cs.roomsLock.Lock()
	defer cs.roomsLock.Unlock()

	room, ok := cs.rooms[roomId]
	if !ok {
		room = newRoom(roomId, cs, cs.log)
		cs.rooms[roomId] = room
		cs.stats.Incr(stats.ActiveRooms)
	}
	room.addClient(c)
	return room
}

// detachClient removes a client from a room's group and unloads the
// group once its last member is gone.
func (cs *ChatServer) detachClient(roomId string, c *Client) {
	cs.roomsLock.Lock()
	defer cs.roomsLock.Unlock()

	room, ok := cs.rooms[roomId]
	if !ok {
		return
	}

	room.removeClient(c)
	if room.empty() {
		delete(cs.rooms, roomId)
		cs.stats.Decr(stats.ActiveRooms)
	}
}

func (cs *ChatServer) getRoom(roomId string) *Room {
	cs.roomsLock.Lock()
	defer cs.roomsLock.Unlock()
	return cs.rooms[roomId]
}

func (cs *ChatServer) unloadRoom(roomId string) {
	cs.roomsLock.Lock()
	defer cs.roomsLock.Unlock()

	if _, ok := cs.rooms[roomId]; ok {
		delete(cs.rooms, roomId)
		cs.stats.Decr(stats.ActiveRooms)
	}
}

// handleDisconnect runs when a client's read pump exits. The room
// learns the user left, but the stored online flag is not touched:
// presence is owned by explicit updatePresence events, and a reconnect
// would otherwise race the disconnect of the old socket.
func (cs *ChatServer) handleDisconnect(c *Client) {
	roomId := c.session.RoomId()
	if roomId == "" {
		return
	}

	room := cs.getRoom(roomId)
	if room == nil {
		return
	}

	msg := okMsg(0, "userLeft", UserNameResult{UserName: c.session.UserName()})
	msg.SkipClient = c
	room.broadcast(msg)

	cs.detachClient(roomId, c)
}

func (cs *ChatServer) Shutdown() {
	cs.log.Println("received shutdown signal")
	cs.clientsLock.Lock()
	for c := range cs.clients {
		c.stopClient()
	}
	cs.clientsLock.Unlock()

	close(cs.stop)

	<-cs.done
}
