package signaling

// PresenceTable tracks which connections are currently joined to which room,
// in join order. Owned by the hub goroutine; a transient shadow of the durable
// participant list for connections that are still open.
type PresenceTable struct {
	rooms map[string][]string
}

func NewPresenceTable() *PresenceTable {
	return &PresenceTable{
		rooms: make(map[string][]string),
	}
}

// Add appends the connection to the room's presence set. Adding a connection
// that is already present is a no-op.
func (p *PresenceTable) Add(roomID, connID string) {
	if p.Contains(roomID, connID) {
		return
	}
	p.rooms[roomID] = append(p.rooms[roomID], connID)
}

// Remove is idempotent; removing an absent connection is a no-op. Empty rooms
// are dropped from the table.
func (p *PresenceTable) Remove(roomID, connID string) {
	conns, ok := p.rooms[roomID]
	if !ok {
		return
	}
	out := conns[:0]
	for _, id := range conns {
		if id != connID {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		delete(p.rooms, roomID)
		return
	}
	p.rooms[roomID] = out
}

func (p *PresenceTable) Contains(roomID, connID string) bool {
	for _, id := range p.rooms[roomID] {
		if id == connID {
			return true
		}
	}
	return false
}

// Others returns the room's connections in insertion order, excluding one.
func (p *PresenceTable) Others(roomID, excludeConnID string) []string {
	conns := p.rooms[roomID]
	out := make([]string, 0, len(conns))
	for _, id := range conns {
		if id != excludeConnID {
			out = append(out, id)
		}
	}
	return out
}

// ConnIDs returns all connections present in the room, in insertion order.
func (p *PresenceTable) ConnIDs(roomID string) []string {
	conns := p.rooms[roomID]
	out := make([]string, len(conns))
	copy(out, conns)
	return out
}

func (p *PresenceTable) Empty(roomID string) bool {
	return len(p.rooms[roomID]) == 0
}

// RoomsOf lists every room the connection is present in. The single-room
// invariant makes this at most one entry, but disconnect cleanup iterates
// defensively.
func (p *PresenceTable) RoomsOf(connID string) []string {
	var out []string
	for roomID, conns := range p.rooms {
		for _, id := range conns {
			if id == connID {
				out = append(out, roomID)
				break
			}
		}
	}
	return out
}

func (p *PresenceTable) ActiveRooms() int {
	return len(p.rooms)
}
