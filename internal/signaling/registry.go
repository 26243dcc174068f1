package signaling

// ConnRegistry maps live connection ids to the user identity presented at
// connect time. Owned by the hub goroutine; no locking, no persistence —
// rebuilt from nothing on restart along with the connections themselves.
type ConnRegistry struct {
	users map[string]string
}

func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{
		users: make(map[string]string),
	}
}

func (r *ConnRegistry) Register(connID, userID string) {
	r.users[connID] = userID
}

func (r *ConnRegistry) Lookup(connID string) (string, bool) {
	userID, ok := r.users[connID]
	return userID, ok
}

// Unregister is idempotent.
func (r *ConnRegistry) Unregister(connID string) {
	delete(r.users, connID)
}

func (r *ConnRegistry) Len() int {
	return len(r.users)
}
