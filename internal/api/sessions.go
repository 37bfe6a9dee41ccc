package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Aravindmodala/Bookology-sub001/internal/editor"
	"github.com/Aravindmodala/Bookology-sub001/internal/persist"
)

// liveSession pairs an open editing session with its save queue.
type liveSession struct {
	sess  *editor.Session
	queue *persist.Queue
}

// SessionStore is a thread-safe registry of open sessions with TTL
// eviction. It also drives the periodic re-offer of suppressed external
// replacements.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*liveSession
	ttl      time.Duration
	log      *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSessionStore(ttl time.Duration, log *slog.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*liveSession),
		ttl:      ttl,
		log:      log,
	}
}

// Start launches the eviction and pending-replacement tickers.
func (s *SessionStore) Start(ctx context.Context) {
	tickCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C:
				s.cleanup()
			}
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C:
				s.offerPending()
			}
		}
	}()
}

// Stop halts the tickers and flushes every session's save queue.
func (s *SessionStore) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	s.mu.Lock()
	live := make([]*liveSession, 0, len(s.sessions))
	for _, ls := range s.sessions {
		live = append(live, ls)
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, ls := range live {
		if err := ls.queue.Flush(ctx); err != nil {
			s.log.Error("flush on shutdown failed", "chapter_id", ls.sess.ChapterID(), "error", err)
		}
	}
}

func (s *SessionStore) put(ls *liveSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[ls.sess.ID()] = ls
}

func (s *SessionStore) get(id string) *liveSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func (s *SessionStore) remove(id string) *liveSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls := s.sessions[id]
	delete(s.sessions, id)
	return ls
}

// cleanup evicts sessions idle longer than the TTL. Their queues have
// long since drained or failed; either way the session no longer earns
// its memory.
func (s *SessionStore) cleanup() {
	s.mu.Lock()
	var expired []*liveSession
	now := time.Now()
	for id, ls := range s.sessions {
		if now.Sub(ls.sess.UpdatedAt()) > s.ttl {
			expired = append(expired, ls)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, ls := range expired {
		s.log.Info("evicted idle session", "session_id", ls.sess.ID(), "chapter_id", ls.sess.ChapterID())
	}
}

// offerPending re-offers each session's retained suppressed replacement.
func (s *SessionStore) offerPending() {
	s.mu.Lock()
	live := make([]*liveSession, 0, len(s.sessions))
	for _, ls := range s.sessions {
		live = append(live, ls)
	}
	s.mu.Unlock()

	for _, ls := range live {
		if d, had := ls.sess.TryPending(); had && d == editor.GuardApply {
			s.log.Info("applied deferred external replacement", "session_id", ls.sess.ID())
		}
	}
}
