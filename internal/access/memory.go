package access

import (
	"context"
	"fmt"
	"sync"
	"time"

	"accessflow.dev/internal/ids"
)

// MemoryStore is an in-process Store used by tests and local tooling. Reads
// return copies; mutations only take effect through Save, matching the
// read-then-write discipline of the durable store.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User
	orgs  map[string]*Organization
	invs  map[string]*Invitation
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*User),
		orgs:  make(map[string]*Organization),
		invs:  make(map[string]*Invitation),
	}
}

func (m *MemoryStore) Users(ctx context.Context) UserStore                 { return (*memUsers)(m) }
func (m *MemoryStore) Organizations(ctx context.Context) OrganizationStore { return (*memOrgs)(m) }
func (m *MemoryStore) Invitations(ctx context.Context) InvitationStore     { return (*memInvs)(m) }

type memUsers MemoryStore

func (m *memUsers) Create(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return fmt.Errorf("%w: email %s", ErrConflict, u.Email)
		}
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	m.users[u.ID] = cloneUser(u)
	return nil
}

func (m *memUsers) Find(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUsers) FindByResetToken(ctx context.Context, token string, now time.Time) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.ResetToken != "" && u.ResetToken == token && u.ResetExpiresAt.After(now) {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUsers) FindByRole(ctx context.Context, role Role) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Role == role {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUsers) List(ctx context.Context) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (m *memUsers) Save(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[u.ID] = cloneUser(u)
	return nil
}

type memOrgs MemoryStore

func (m *memOrgs) FindOrCreate(ctx context.Context, name string) (*Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, org := range m.orgs {
		if org.Name == name {
			return cloneOrg(org), nil
		}
	}
	now := time.Now().UTC()
	org := &Organization{ID: ids.New(), Name: name, CreatedAt: now, UpdatedAt: now}
	m.orgs[org.ID] = org
	return cloneOrg(org), nil
}

func (m *memOrgs) Find(ctx context.Context, id string) (*Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	org, ok := m.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrg(org), nil
}

func (m *memOrgs) FindByClientAdmin(ctx context.Context, userID string) (*Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, org := range m.orgs {
		if org.ClientAdminID == userID {
			return cloneOrg(org), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memOrgs) Save(ctx context.Context, org *Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orgs[org.ID]; !ok {
		return ErrNotFound
	}
	org.UpdatedAt = time.Now().UTC()
	m.orgs[org.ID] = cloneOrg(org)
	return nil
}

type memInvs MemoryStore

func (m *memInvs) Create(ctx context.Context, inv *Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv.ID == "" {
		inv.ID = ids.New()
	}
	inv.CreatedAt = time.Now().UTC()
	m.invs[inv.ID] = cloneInvitation(inv)
	return nil
}

func (m *memInvs) FindPending(ctx context.Context, email, token string) (*Invitation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, inv := range m.invs {
		if inv.Email == email && inv.Token == token && !inv.Accepted {
			return cloneInvitation(inv), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memInvs) Save(ctx context.Context, inv *Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invs[inv.ID]; !ok {
		return ErrNotFound
	}
	m.invs[inv.ID] = cloneInvitation(inv)
	return nil
}

func cloneUser(u *User) *User {
	c := *u
	return &c
}

func cloneOrg(org *Organization) *Organization {
	c := *org
	c.UserIDs = append([]string(nil), org.UserIDs...)
	return &c
}

func cloneInvitation(inv *Invitation) *Invitation {
	c := *inv
	return &c
}
