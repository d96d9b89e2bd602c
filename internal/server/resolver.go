package server

import (
	"database/sql"
	"errors"
	"log"
	"sync"

	"github.com/teris-io/shortid"

	"github.com/Hana-Lee/translate-chat/internal/database"
)

// roomResolver maps an unordered user pair to its single chat room,
// creating the room on first use. A per-pair mutex covers the
// check-then-create window within this process; the unique pair key
// index closes it across processes, in which case the loser of the
// race re-fetches the winner's row.
type roomResolver struct {
	db  database.ChatRepository
	log *log.Logger

	mu sync.Mutex
	// locks holds one mutex per pair key ever resolved by this process
	// and is never pruned: entries are bare mutexes and the key space
	// is bounded by the number of distinct user pairs.
	locks map[string]*sync.Mutex
}

func newRoomResolver(db database.ChatRepository, l *log.Logger) *roomResolver {
	return &roomResolver{
		db:    db,
		log:   l,
		locks: make(map[string]*sync.Mutex),
	}
}

// pairKey returns the canonical key for an unordered user pair.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

func (r *roomResolver) lockFor(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[key]
	if !ok {
		l = &sync.Mutex{}
		r.locks[key] = l
	}
	return l
}

func (r *roomResolver) Resolve(userId, friendId string) (database.Room, *EventError) {
	key := pairKey(userId, friendId)
	l := r.lockFor(key)
	l.Lock()
	defer l.Unlock()

	room, err := r.db.GetRoomByPairKey(key)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return database.Room{}, storeError("resolve-room", err)
	}

	id, err := shortid.Generate()
	if err != nil {
		return database.Room{}, storeError("resolve-room", err)
	}

	room, err = r.db.CreateRoom(database.CreateRoomParams{
		Id:      id,
		PairKey: key,
		Members: []string{userId, friendId},
	})
	if err == nil {
		return room, nil
	}

	if database.IsUniqueViolation(err) {
		// Lost the race to another relay instance, take its room.
		r.log.Printf("room create race on pair %q, refetching", key)
		room, ferr := r.db.GetRoomByPairKey(key)
		if ferr != nil {
			return database.Room{}, concurrencyError("resolve-room", ferr)
		}
		return room, nil
	}

	return database.Room{}, storeError("resolve-room", err)
}
