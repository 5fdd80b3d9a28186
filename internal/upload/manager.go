package upload

import (
	"log/slog"
	"sync"
	"time"
)

// Manager keeps one upload session per browser and reaps the ones left idle.
type Manager struct {
	committer Committer
	opts      Options

	mu       sync.Mutex
	sessions map[string]*Session

	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func NewManager(committer Committer, opts Options) *Manager {
	m := &Manager{
		committer: committer,
		opts:      opts.withDefaults(),
		sessions:  make(map[string]*Session),
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go m.reapLoop(max(m.opts.IdleTimeout/2, time.Second))
	return m
}

func (m *Manager) reapLoop(interval time.Duration) {
	defer close(m.stopped)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.ReapIdle()
		}
	}
}

// Open creates and registers a new session.
func (m *Manager) Open() *Session {
	session := NewSession(m.committer, m.opts)

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	slog.Debug("upload session opened", "session_id", session.ID)
	return session
}

// Get looks up a session and marks it as used.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	m.mu.Unlock()

	if ok {
		session.Touch()
	}
	return session, ok
}

// ReapIdle closes every idle session that is not uploading and returns how many
// were closed.
func (m *Manager) ReapIdle() int {
	var idle []*Session

	m.mu.Lock()
	for id, session := range m.sessions {
		if session.Idle() {
			idle = append(idle, session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, session := range idle {
		session.Close()
		slog.Info("idle upload session reaped", "session_id", session.ID)
	}
	return len(idle)
}

// CloseSession closes and forgets a session. Unknown IDs are ignored.
func (m *Manager) CloseSession(id string) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		session.Close()
	}
}

// Close stops reaping and closes every open session.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.stopped

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
