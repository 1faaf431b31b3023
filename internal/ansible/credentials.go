// Package ansible runs the guest configuration playbook against freshly
// created VMs and holds the optional privilege-escalation secret.
package ansible

import "sync"

// CredentialStore holds the Ansible become password in process memory.
//
// The password is never persisted and never logged. Its lifetime is
// bounded by explicit Set/Clear calls, not by any single request. At most
// one value exists at a time. Only the playbook runner may read it.
type CredentialStore struct {
	mu       sync.Mutex
	password string
	set      bool
}

// NewCredentialStore creates an empty store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{}
}

// Set replaces the stored password.
func (s *CredentialStore) Set(password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.password = password
	s.set = true
}

// Clear removes the stored password.
func (s *CredentialStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.password = ""
	s.set = false
}

// Get returns the stored password and whether one is set.
func (s *CredentialStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.password, s.set
}
