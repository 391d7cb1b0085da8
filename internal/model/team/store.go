package team

// Store exposes roster retrieval for HTTP handlers.
type Store interface {
	List() []Member
	FindByID(id string) (Member, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Member
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied members.
func NewMemoryStore(items []Member) *MemoryStore {
	return &MemoryStore{items: append([]Member(nil), items...)}
}

// List returns the roster in display order.
func (s *MemoryStore) List() []Member {
	return append([]Member(nil), s.items...)
}

// FindByID looks up a member by identifier.
func (s *MemoryStore) FindByID(id string) (Member, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Member{}, false
}
