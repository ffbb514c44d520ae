// Package permissions maps coarse per-session roles to fixed capability
// tuples. State is striped by session so unrelated sessions never contend
// on one lock.
package permissions

import (
	"hash/fnv"
	"sync"

	"github.com/prtfnx/ttrpg-system-sub001/internal/server/models"
)

// Capability names one action a role may perform.
type Capability int

const (
	CapUpload Capability = iota
	CapDownload
	CapShare
	CapModerate
)

// roleTable is the explicit role → capability mapping. Unknown roles get
// the zero tuple (nothing allowed).
var roleTable = map[models.Role]models.Capabilities{
	models.RoleOwner:       {CanUpload: true, CanDownload: true, CanShare: true, CanModerate: true},
	models.RoleCoOwner:     {CanUpload: true, CanDownload: true, CanShare: true, CanModerate: true},
	models.RoleTrusted:     {CanUpload: true, CanDownload: true, CanShare: true},
	models.RoleParticipant: {CanUpload: true, CanDownload: true},
	models.RoleObserver:    {CanDownload: true},
}

// readOnly is the default for (session, user) tuples with no assignment.
var readOnly = models.Capabilities{CanDownload: true}

// permissive is granted to unassigned tuples when the manager runs in
// permissive mode (automated testing deployments only).
var permissive = models.Capabilities{CanUpload: true, CanDownload: true, CanShare: true}

const shardCount = 16

type shard struct {
	mu    sync.RWMutex
	roles map[string]map[string]models.Role // session -> user -> role
}

// Manager holds per-session role assignments. Permissive mode is an
// explicit constructor flag; it is never inferred from session naming.
type Manager struct {
	permissive bool
	shards     [shardCount]shard
}

func NewManager(permissiveMode bool) *Manager {
	m := &Manager{permissive: permissiveMode}
	for i := range m.shards {
		m.shards[i].roles = make(map[string]map[string]models.Role)
	}
	return m
}

func (m *Manager) shardFor(sessionID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &m.shards[h.Sum32()%shardCount]
}

// SetRole assigns a role to a user within a session.
func (m *Manager) SetRole(sessionID, userID string, role models.Role) {
	s := m.shardFor(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	users, ok := s.roles[sessionID]
	if !ok {
		users = make(map[string]models.Role)
		s.roles[sessionID] = users
	}
	users[userID] = role
}

// RoleOf returns the assigned role, if any.
func (m *Manager) RoleOf(sessionID, userID string) (models.Role, bool) {
	s := m.shardFor(sessionID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, ok := s.roles[sessionID][userID]
	return role, ok
}

// CapabilitiesFor resolves the capability tuple for a (session, user)
// tuple, applying the read-only (or permissive) default when no role is
// assigned.
func (m *Manager) CapabilitiesFor(sessionID, userID string) models.Capabilities {
	role, ok := m.RoleOf(sessionID, userID)
	if !ok {
		if m.permissive {
			return permissive
		}
		return readOnly
	}
	return roleTable[role]
}

// Can reports whether the user holds one capability within the session.
func (m *Manager) Can(sessionID, userID string, c Capability) bool {
	caps := m.CapabilitiesFor(sessionID, userID)
	switch c {
	case CapUpload:
		return caps.CanUpload
	case CapDownload:
		return caps.CanDownload
	case CapShare:
		return caps.CanShare
	case CapModerate:
		return caps.CanModerate
	default:
		return false
	}
}

// RemoveSession drops all role assignments for a finished session.
func (m *Manager) RemoveSession(sessionID string) {
	s := m.shardFor(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, sessionID)
}
