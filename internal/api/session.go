package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cartsmith/cartsmith/internal/log"
	"github.com/cartsmith/cartsmith/internal/turn"
)

// Idle sessions are dropped so abandoned conversations do not accumulate.
const (
	sessionTTL      = 30 * time.Minute
	cleanupInterval = 5 * time.Minute
)

// sessionEntry pairs a conversation history with its last activity time.
type sessionEntry struct {
	history  *turn.History
	lastSeen time.Time
}

// sessionRegistry hands each client session its own conversation history.
// Sessions are keyed by the client-held session id; unknown ids create a
// fresh session.
type sessionRegistry struct {
	mu            sync.Mutex
	sessions      map[string]*sessionEntry
	historyWindow int
	logger        log.Logger
}

func newSessionRegistry(historyWindow int, logger log.Logger) *sessionRegistry {
	return &sessionRegistry{
		sessions:      make(map[string]*sessionEntry),
		historyWindow: historyWindow,
		logger:        logger,
	}
}

// acquire returns the history for the given session id, creating a new
// session when the id is empty or unknown. The returned id identifies the
// session the history belongs to.
func (sr *sessionRegistry) acquire(id string) (string, *turn.History) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if id != "" {
		if entry, ok := sr.sessions[id]; ok {
			entry.lastSeen = time.Now()
			return id, entry.history
		}
	}

	if id == "" {
		id = uuid.NewString()
	}
	entry := &sessionEntry{
		history:  turn.NewHistory(sr.historyWindow),
		lastSeen: time.Now(),
	}
	sr.sessions[id] = entry
	sr.logger.Debug("session created", "session_id", id)
	return id, entry.history
}

// len reports the number of live sessions.
func (sr *sessionRegistry) len() int {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return len(sr.sessions)
}

// startCleanup prunes idle sessions until ctx is canceled.
func (sr *sessionRegistry) startCleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sr.prune(time.Now().Add(-sessionTTL))
		}
	}
}

// prune drops sessions idle since before the cutoff.
func (sr *sessionRegistry) prune(cutoff time.Time) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	for id, entry := range sr.sessions {
		if entry.lastSeen.Before(cutoff) {
			delete(sr.sessions, id)
			sr.logger.Debug("session expired", "session_id", id)
		}
	}
}
