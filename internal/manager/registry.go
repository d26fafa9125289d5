package manager

import "github.com/cornelk/hashmap"

// sessions is the process-wide registry enforcing the single-link-per-identity
// invariant: at most one manager may own a given device identity at a time.
// Entries are inserted on connect and removed on disconnect or reset.
var sessions = hashmap.New[string, *Manager]()

func register(key string, m *Manager) bool {
	return sessions.Insert(key, m)
}

func deregister(key string) {
	sessions.Del(key)
}

// Registered reports whether some manager currently owns the identity key.
func Registered(key string) bool {
	_, ok := sessions.Get(key)
	return ok
}
