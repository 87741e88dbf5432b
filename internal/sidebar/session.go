// Package sidebar serves the Fabric Intelligence chat sidebar over WebSocket.
// Each connection owns one chat transcript for the lifetime of the page.
package sidebar

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Conn is the part of a WebSocket connection the session manager closes.
type Conn interface {
	Close(code websocket.StatusCode, reason string) error
}

// SessionManager tracks live sidebar connections per user and tab.
type SessionManager struct {
	mu     sync.RWMutex
	active map[string]map[string]Conn
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		active: make(map[string]map[string]Conn),
	}
}

// GetActive returns the active connection for a user and session.
func (m *SessionManager) GetActive(userID, sessionID string) Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sessions, ok := m.active[userID]; ok {
		return sessions[sessionID]
	}
	return nil
}

// Count returns the number of live connections.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, sessions := range m.active {
		n += len(sessions)
	}
	return n
}

// Register adds a connection for a user/session. A previous connection for
// the same tab is closed.
func (m *SessionManager) Register(userID, sessionID string, conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[userID]; !exists {
		m.active[userID] = make(map[string]Conn)
	}

	if existing, exists := m.active[userID][sessionID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}

	m.active[userID][sessionID] = conn
	slog.Info("Chat session registered", "user_id", userID, "session_id", sessionID)
}

// Unregister removes a connection unless it has already been replaced.
func (m *SessionManager) Unregister(userID, sessionID string, conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessions, ok := m.active[userID]; ok {
		if current, exists := sessions[sessionID]; exists && current == conn {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(m.active, userID)
			}
			slog.Info("Chat session unregistered", "user_id", userID, "session_id", sessionID)
		}
	}
}

// CloseUser terminates every live session of a user.
func (m *SessionManager) CloseUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, ok := m.active[userID]
	if !ok {
		return
	}

	for sid, conn := range sessions {
		_ = conn.Close(websocket.StatusNormalClosure, "session closed")
		slog.Info("Chat session closed", "user_id", userID, "session_id", sid)
	}
	delete(m.active, userID)
}
