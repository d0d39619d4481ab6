package models

// Store is the whole persisted client state: identifier -> UserRecord.
//
// Revision is the counter the store was read at. It is not serialized with
// the users; the repository keeps it next to the blob.
type Store struct {
	Users    map[string]*UserRecord
	Revision int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{Users: make(map[string]*UserRecord)}
}

// Get returns the record for id.
func (s *Store) Get(id string) (*UserRecord, bool) {
	if s == nil || s.Users == nil {
		return nil, false
	}
	u, ok := s.Users[id]
	return u, ok
}

// Put stores u under id, replacing any previous record.
func (s *Store) Put(id string, u *UserRecord) {
	if s.Users == nil {
		s.Users = make(map[string]*UserRecord)
	}
	s.Users[id] = u
}
