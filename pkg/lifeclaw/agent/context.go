package agent

import (
	"sync"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/brain"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/store"
)

// session is the per-user context: the user snapshot plus a bounded
// sliding window of recent turns (oldest first, user/assistant
// alternating). The history is a read-through cache of persisted turns,
// never an independent source of truth.
//
// mu serializes whole ProcessMessage turns for one user; turns for
// different users run concurrently.
type session struct {
	mu      sync.Mutex
	user    *store.User
	history []brain.Turn
}

// rebuild reloads the window from persisted turns, oldest first.
func (s *session) rebuild(st *store.Store, maxMessages int) error {
	turns, err := st.RecentTurns(s.user.ID, maxMessages)
	if err != nil {
		return err
	}
	s.history = s.history[:0]
	for _, t := range turns {
		s.history = append(s.history,
			brain.Turn{Role: "user", Content: t.Message},
			brain.Turn{Role: "assistant", Content: t.Response},
		)
	}
	return nil
}

// appendTurn records one exchange and trims the window to at most
// 2×maxMessages entries.
func (s *session) appendTurn(message, response string, maxMessages int) {
	s.history = append(s.history,
		brain.Turn{Role: "user", Content: message},
		brain.Turn{Role: "assistant", Content: response},
	)
	if limit := 2 * maxMessages; len(s.history) > limit {
		s.history = s.history[len(s.history)-limit:]
	}
}

// recent returns the last n turns (2n entries) for the LLM prompt.
func (s *session) recent(turns int) []brain.Turn {
	limit := 2 * turns
	if len(s.history) <= limit {
		return s.history
	}
	return s.history[len(s.history)-limit:]
}
