package chat

import (
	"fmt"
	"hash/fnv"
	"sync"
)

// RoomNone is the forward-mapping value for a connection that has not
// joined any room.
const RoomNone int64 = -1

const registryShards = 32

type connShard struct {
	mu    sync.Mutex
	rooms map[string]int64 // connection id -> joined room, RoomNone if none
}

type roomShard struct {
	mu      sync.RWMutex
	members map[int64]map[string]struct{}
}

// Registry tracks which room each live connection has joined, plus the
// reverse index from room id to member connections. Locking is sharded
// by connection id and by room id so unrelated chats do not serialize
// against each other. All operations on one connection take its shard
// lock for their full duration, which serializes concurrent
// join/deregister for that connection and keeps the forward mapping and
// the reverse index in agreement at every operation boundary. Room shard
// locks are only acquired while holding at most one connection shard
// lock, never the other way around, so the ordering cannot deadlock.
type Registry struct {
	conns [registryShards]connShard
	rooms [registryShards]roomShard
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.conns {
		r.conns[i].rooms = make(map[string]int64)
	}
	for i := range r.rooms {
		r.rooms[i].members = make(map[int64]map[string]struct{})
	}
	return r
}

func (r *Registry) connShardFor(connID string) *connShard {
	h := fnv.New32a()
	h.Write([]byte(connID))
	return &r.conns[h.Sum32()%registryShards]
}

func (r *Registry) roomShardFor(roomID int64) *roomShard {
	return &r.rooms[uint64(roomID)%registryShards]
}

// Register creates a forward entry for a new connection with no room.
func (r *Registry) Register(connID string) error {
	s := r.connShardFor(connID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[connID]; ok {
		return ErrDuplicateConnection
	}
	s.rooms[connID] = RoomNone
	return nil
}

// Join moves the connection into roomID, leaving its previous room
// first. Joining the room it is already in is a no-op.
func (r *Registry) Join(connID string, roomID int64) error {
	s := r.connShardFor(connID)
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.rooms[connID]
	if !ok {
		return ErrUnknownConnection
	}
	if current == roomID {
		return nil
	}
	if current != RoomNone {
		r.removeMember(current, connID)
	}

	rs := r.roomShardFor(roomID)
	rs.mu.Lock()
	set := rs.members[roomID]
	if set == nil {
		set = make(map[string]struct{})
		rs.members[roomID] = set
	}
	set[connID] = struct{}{}
	rs.mu.Unlock()

	s.rooms[connID] = roomID
	return nil
}

// Members returns a snapshot of the connection ids currently joined to
// roomID. A room nobody has joined yields an empty slice.
func (r *Registry) Members(roomID int64) []string {
	rs := r.roomShardFor(roomID)
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	set := rs.members[roomID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Room reports the room the connection has joined (RoomNone if none) and
// whether the connection is registered at all.
func (r *Registry) Room(connID string) (int64, bool) {
	s := r.connShardFor(connID)
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, ok := s.rooms[connID]
	return roomID, ok
}

// Deregister removes the connection from whichever room it occupies and
// drops its forward entry. Calling it for an id that was never
// registered, or a second time for the same id, is a no-op.
func (r *Registry) Deregister(connID string) bool {
	s := r.connShardFor(connID)
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.rooms[connID]
	if !ok {
		return false
	}
	if current != RoomNone {
		r.removeMember(current, connID)
	}
	delete(s.rooms, connID)
	return true
}

// removeMember detaches connID from roomID's reverse index. The caller
// must hold the connection's shard lock and the forward mapping must say
// the connection is in roomID; any disagreement between the two indices
// is registry corruption and aborts the process.
func (r *Registry) removeMember(roomID int64, connID string) {
	rs := r.roomShardFor(roomID)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	set, ok := rs.members[roomID]
	if !ok {
		panic(fmt.Sprintf("registry corrupt: room %d absent from reverse index but connection %s maps to it", roomID, connID))
	}
	if _, ok := set[connID]; !ok {
		panic(fmt.Sprintf("registry corrupt: connection %s maps to room %d but is absent from its reverse index", connID, roomID))
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(rs.members, roomID)
	}
}
