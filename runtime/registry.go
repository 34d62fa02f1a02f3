// Package runtime hosts the concurrent core of the relay: session
// lifecycle, the registry of live connections, and the broadcast loop.
// It contains no rendering or bootstrap concerns.
package runtime

import (
	"log/slog"
	"sync"

	"chat-relay/domain"
	"chat-relay/queue"
)

// Registry is the authoritative set of live sessions plus the
// insertion-ordered display names of the active ones.
//
// Sessions and participant names are mutated together under one lock, and
// the connect/disconnect notices plus the fresh roster snapshot are enqueued
// before the lock is released. No concurrent reader can therefore observe a
// roster that disagrees with the notices around it.
type Registry struct {
	mu           sync.Mutex
	sessions     []*Session
	participants []string
	outbox       *queue.Queue[domain.Item]
	log          *slog.Logger
}

func NewRegistry(outbox *queue.Queue[domain.Item], log *slog.Logger) *Registry {
	return &Registry{outbox: outbox, log: log}
}

// Add registers a freshly accepted session. The session has no name yet and
// does not appear in the participant list until it activates.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
}

// Activate records the session's display name, announces the join, and
// publishes the new roster. Duplicate and empty names are accepted: the
// original imposes no uniqueness, each entry lives and dies with its own
// session.
//
// The Connecting -> Active transition happens here, under the registry
// lock, so it arbitrates against a concurrent Close. A session that already
// left the set or left the Connecting state is refused and its name never
// enters the roster; Remove therefore always observes either a fully
// activated session or a never activated one.
func (r *Registry) Activate(s *Session, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.memberLocked(s) {
		return false
	}
	if !s.state.CompareAndSwap(int32(domain.StateConnecting), int32(domain.StateActive)) {
		return false
	}
	s.name = name
	s.activated.Store(true)

	r.participants = append(r.participants, name)
	r.outbox.Enqueue(domain.SystemNotice{Text: name + " connected"})
	r.outbox.Enqueue(domain.RosterSnapshot{Names: r.namesLocked()})
	r.log.Info("Participant joined", "session_id", s.ID(), "name", name)
	return true
}

// Remove drops the session from the set. If the session had activated, its
// name leaves the participant list (first matching entry, so duplicated
// names retire one at a time) and the departure notice plus roster snapshot
// are enqueued under the same lock.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := false
	for i, known := range r.sessions {
		if known == s {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return
	}

	if !s.Activated() {
		r.log.Debug("Unregistered session left", "session_id", s.ID())
		return
	}

	for i, name := range r.participants {
		if name == s.Name() {
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			break
		}
	}
	r.outbox.Enqueue(domain.SystemNotice{Text: s.Name() + " disconnected"})
	r.outbox.Enqueue(domain.RosterSnapshot{Names: r.namesLocked()})
	r.log.Info("Participant left", "session_id", s.ID(), "name", s.Name())
}

// Snapshot returns a consistent point-in-time copy of the live sessions in
// insertion order. No session appears twice and no half-removed session
// appears at all.
func (r *Registry) Snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, len(r.sessions))
	copy(out, r.sessions)
	return out
}

// ParticipantNames returns the insertion-ordered names of active sessions.
func (r *Registry) ParticipantNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.namesLocked()
}

// Len reports the number of live sessions, active or still registering.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) memberLocked(s *Session) bool {
	for _, known := range r.sessions {
		if known == s {
			return true
		}
	}
	return false
}

func (r *Registry) namesLocked() []string {
	out := make([]string, len(r.participants))
	copy(out, r.participants)
	return out
}
