// Package authmock provides in-memory implementations of the
// authentication core's collaborator interfaces for tests.
package authmock

import (
	"fmt"
	"sync"

	"github.com/indiepub/indieback/authdef"
)

// InMemoryCredentialStore is a test implementation of
// authdef.CredentialStore.
type InMemoryCredentialStore struct {
	mu      sync.RWMutex
	byID    map[string]authdef.CredentialRecord
	byToken map[string]string
	byHash  map[string]string

	// FailInserts makes every Insert report failure.
	FailInserts bool

	// LookupErr, when set, is returned by every Find method.
	LookupErr error
}

var _ authdef.CredentialStore = (*InMemoryCredentialStore)(nil)

func NewInMemoryCredentialStore() *InMemoryCredentialStore {
	return &InMemoryCredentialStore{
		byID:    make(map[string]authdef.CredentialRecord),
		byToken: make(map[string]string),
		byHash:  make(map[string]string),
	}
}

func (s *InMemoryCredentialStore) Insert(rec authdef.CredentialRecord) bool {
	if rec.UserID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailInserts {
		return false
	}
	if prev, ok := s.byID[rec.UserID]; ok {
		if prev.AuthToken != rec.AuthToken {
			delete(s.byToken, prev.AuthToken)
		}
		if prev.PasswordHash != rec.PasswordHash {
			delete(s.byHash, prev.PasswordHash)
		}
	}
	s.byID[rec.UserID] = rec
	if rec.AuthToken != "" {
		s.byToken[rec.AuthToken] = rec.UserID
	}
	if rec.PasswordHash != "" {
		s.byHash[rec.PasswordHash] = rec.UserID
	}
	return true
}

func (s *InMemoryCredentialStore) FindByUserID(id string) (*authdef.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LookupErr != nil {
		return nil, s.LookupErr
	}
	rec, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *InMemoryCredentialStore) FindByAuthToken(token string) (*authdef.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LookupErr != nil {
		return nil, s.LookupErr
	}
	id, ok := s.byToken[token]
	if !ok {
		return nil, nil
	}
	rec := s.byID[id]
	return &rec, nil
}

func (s *InMemoryCredentialStore) FindByPasswordHash(hash string) (*authdef.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LookupErr != nil {
		return nil, s.LookupErr
	}
	id, ok := s.byHash[hash]
	if !ok {
		return nil, nil
	}
	rec := s.byID[id]
	return &rec, nil
}

// Len reports the number of stored records.
func (s *InMemoryCredentialStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// InMemoryUserDirectory is a test implementation of
// authdef.UserDirectory.
type InMemoryUserDirectory struct {
	mu      sync.RWMutex
	byID    map[string]authdef.User
	byEmail map[string]string

	// InsertErr, when set, is returned by Insert.
	InsertErr error

	// LookupErr, when set, is returned by every Find method.
	LookupErr error
}

var _ authdef.UserDirectory = (*InMemoryUserDirectory)(nil)

func NewInMemoryUserDirectory() *InMemoryUserDirectory {
	return &InMemoryUserDirectory{
		byID:    make(map[string]authdef.User),
		byEmail: make(map[string]string),
	}
}

func (d *InMemoryUserDirectory) Insert(u authdef.User) error {
	if u.ID == "" {
		return fmt.Errorf("user id is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.InsertErr != nil {
		return d.InsertErr
	}
	d.byID[u.ID] = u
	d.byEmail[u.Email] = u.ID
	return nil
}

func (d *InMemoryUserDirectory) Update(u authdef.User) error {
	if u.ID == "" {
		return fmt.Errorf("user id is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.byID[u.ID]; ok && prev.Email != u.Email {
		delete(d.byEmail, prev.Email)
	}
	d.byID[u.ID] = u
	d.byEmail[u.Email] = u.ID
	return nil
}

func (d *InMemoryUserDirectory) FindByID(id string) (*authdef.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.LookupErr != nil {
		return nil, d.LookupErr
	}
	u, ok := d.byID[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (d *InMemoryUserDirectory) FindByEmail(email string) (*authdef.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.LookupErr != nil {
		return nil, d.LookupErr
	}
	id, ok := d.byEmail[email]
	if !ok {
		return nil, nil
	}
	u := d.byID[id]
	return &u, nil
}

// Len reports the number of stored users.
func (d *InMemoryUserDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}
