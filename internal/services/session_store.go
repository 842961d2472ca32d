package services

import (
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"ledgerline/internal/models"
)

const (
	// DefaultMaxHistory is the per-session message cap; oldest messages are
	// trimmed first once it is exceeded.
	DefaultMaxHistory = 50

	// DefaultSessionTimeout is how long an idle session survives between sweeps
	DefaultSessionTimeout = 24 * time.Hour

	// DefaultPersona is assigned to lazily created sessions
	DefaultPersona = "general"
)

// sessionEntry pairs a session with its own mutex so append→trim→extract runs
// atomically per session without serializing unrelated sessions.
type sessionEntry struct {
	mu      sync.Mutex
	session *models.Session
}

// SessionStore owns all in-memory conversation state. No persistence: a
// process restart loses every session.
type SessionStore struct {
	mu         sync.RWMutex
	sessions   map[string]*sessionEntry
	maxHistory int
	timeout    time.Duration
	extractor  ContextExtractor
}

// NewSessionStore creates a session store. A nil extractor disables context
// extraction (useful in tests).
func NewSessionStore(maxHistory int, timeout time.Duration, extractor ContextExtractor) *SessionStore {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &SessionStore{
		sessions:   make(map[string]*sessionEntry),
		maxHistory: maxHistory,
		timeout:    timeout,
		extractor:  extractor,
	}
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randBase36(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36[rand.IntN(len(base36))]
	}
	return string(b)
}

// NewSessionID generates an opaque, collision-resistant session identifier
func NewSessionID() string {
	return fmt.Sprintf("sess-%d-%s", time.Now().UnixMilli(), randBase36(9))
}

func newMessageID() string {
	return fmt.Sprintf("msg-%d-%s", time.Now().UnixMilli(), randBase36(9))
}

// ensureEntry returns the entry for id, creating the session lazily with the
// default persona when unseen.
func (s *SessionStore) ensureEntry(sessionID, persona string) *sessionEntry {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return entry
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check: another request may have created it concurrently
	if entry, ok := s.sessions[sessionID]; ok {
		return entry
	}

	if persona == "" {
		persona = DefaultPersona
	}
	now := time.Now()
	entry = &sessionEntry{
		session: &models.Session{
			ID:      sessionID,
			Persona: persona,
			Context: models.SessionContext{
				ImplementationPhase: models.PhaseDiscovery,
			},
			Metadata: models.SessionMetadata{
				CreatedAt:    now,
				LastActivity: now,
			},
		},
	}
	s.sessions[sessionID] = entry
	log.Printf("🆕 [SESSION-STORE] Created session %s (persona: %s)", sessionID, persona)
	return entry
}

// AppendMessage ensures the session exists, appends a new message, trims
// history to the cap, and runs context extraction on the new message. The
// whole sequence holds the session lock.
func (s *SessionStore) AppendMessage(sessionID, role, content string) models.Message {
	entry := s.ensureEntry(sessionID, "")
	entry.mu.Lock()
	defer entry.mu.Unlock()

	sess := entry.session
	msg := models.Message{
		ID:        newMessageID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Metadata: models.MessageMetadata{
			Persona: sess.Persona,
			Phase:   sess.Context.ImplementationPhase,
		},
	}

	sess.Messages = append(sess.Messages, msg)
	sess.Metadata.MessageCount++
	sess.Metadata.LastActivity = msg.Timestamp

	// FIFO trim: drop from the head, never the tail
	if overflow := len(sess.Messages) - s.maxHistory; overflow > 0 {
		sess.Messages = append(sess.Messages[:0], sess.Messages[overflow:]...)
	}

	if s.extractor != nil {
		s.extractor.Extract(sess, &msg)
	}

	GetMetrics().RecordMessageAppended()
	return msg
}

// History returns the most recent limit messages in original order. A limit
// of 0 or less returns everything. Unknown sessions yield an empty slice,
// never an error.
func (s *SessionStore) History(sessionID string, limit int) []models.Message {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return []models.Message{}
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	msgs := entry.session.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Summary returns a read-only snapshot with the last 10 messages, or nil for
// an unknown session.
func (s *SessionStore) Summary(sessionID string) *models.SessionSummary {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	sess := entry.session
	recent := sess.Messages
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	recentCopy := make([]models.Message, len(recent))
	copy(recentCopy, recent)

	return &models.SessionSummary{
		SessionID:      sess.ID,
		Persona:        sess.Persona,
		Context:        copyContext(sess.Context),
		Metadata:       copyMetadata(sess.Metadata),
		RecentMessages: recentCopy,
	}
}

// Snapshot returns a deep copy of the full session for export, or nil for an
// unknown session. The copy is detached: later mutations don't touch it.
func (s *SessionStore) Snapshot(sessionID string) *models.Session {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	sess := entry.session
	msgs := make([]models.Message, len(sess.Messages))
	copy(msgs, sess.Messages)

	return &models.Session{
		ID:       sess.ID,
		Persona:  sess.Persona,
		Messages: msgs,
		Context:  copyContext(sess.Context),
		Metadata: copyMetadata(sess.Metadata),
	}
}

// Clear removes the session. Idempotent: clearing an unknown id is a no-op.
func (s *SessionStore) Clear(sessionID string) {
	s.mu.Lock()
	entry, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if ok {
		// Wait out any in-flight mutation before declaring it gone
		entry.mu.Lock()
		entry.mu.Unlock()
		log.Printf("🗑️  [SESSION-STORE] Cleared session %s", sessionID)
	}
}

// SetPersona switches the session's prompting profile
func (s *SessionStore) SetPersona(sessionID, persona string) {
	if persona == "" {
		return
	}
	entry := s.ensureEntry(sessionID, persona)
	entry.mu.Lock()
	entry.session.Persona = persona
	entry.mu.Unlock()
}

// SetProject records the caller-supplied project name on the session context
func (s *SessionStore) SetProject(sessionID, project string) {
	if project == "" {
		return
	}
	entry := s.ensureEntry(sessionID, "")
	entry.mu.Lock()
	entry.session.Context.CurrentProject = project
	entry.mu.Unlock()
}

// Phase returns the session's current implementation phase, or the empty
// string for unknown sessions.
func (s *SessionStore) Phase(sessionID string) string {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return ""
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session.Context.ImplementationPhase
}

// ResolveIssue flips an open issue (looked up by originating message id) to
// resolved and stamps the resolution time. Returns false when no open issue
// references the id.
func (s *SessionStore) ResolveIssue(sessionID, messageID string) bool {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	issues := entry.session.Context.OpenIssues
	for i := range issues {
		if issues[i].MessageID == messageID && issues[i].Status == models.IssueOpen {
			now := time.Now()
			issues[i].Status = models.IssueResolved
			issues[i].ResolvedAt = &now
			return true
		}
	}
	return false
}

// RecordAnalysis appends an analysis result to the session's metadata
func (s *SessionStore) RecordAnalysis(sessionID string, record models.AnalysisRecord) {
	entry := s.ensureEntry(sessionID, "")
	entry.mu.Lock()
	entry.session.Metadata.AnalysisResults = append(entry.session.Metadata.AnalysisResults, record)
	entry.session.Metadata.LastActivity = time.Now()
	entry.mu.Unlock()
}

// RecordArtifact appends a generated-artifact record (e.g. an export) to the
// session's metadata. Unknown sessions are ignored: an export must not
// resurrect a cleared session.
func (s *SessionStore) RecordArtifact(sessionID string, record models.AnalysisRecord) {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	entry.mu.Lock()
	entry.session.Metadata.GeneratedArtifacts = append(entry.session.Metadata.GeneratedArtifacts, record)
	entry.mu.Unlock()
}

// Count returns the number of live sessions
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SweepExpired removes every session whose last activity is older than the
// configured timeout relative to now, and returns how many were removed. It
// takes each victim's session lock before deletion so it never races an
// in-flight append.
func (s *SessionStore) SweepExpired(now time.Time) int {
	cutoff := now.Add(-s.timeout)

	s.mu.RLock()
	candidates := make([]string, 0)
	for id, entry := range s.sessions {
		entry.mu.Lock()
		stale := entry.session.Metadata.LastActivity.Before(cutoff)
		entry.mu.Unlock()
		if stale {
			candidates = append(candidates, id)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for _, id := range candidates {
		s.mu.Lock()
		entry, ok := s.sessions[id]
		if !ok {
			s.mu.Unlock()
			continue
		}
		entry.mu.Lock()
		// Re-check under the session lock: activity may have arrived between
		// the scan and now.
		if entry.session.Metadata.LastActivity.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
		entry.mu.Unlock()
		s.mu.Unlock()
	}

	if removed > 0 {
		log.Printf("🧹 [SESSION-STORE] Swept %d expired sessions (idle > %v)", removed, s.timeout)
	}
	GetMetrics().RecordSessionsSwept(removed)
	return removed
}

func copyContext(ctx models.SessionContext) models.SessionContext {
	out := ctx
	out.BusinessRequirements = append([]string(nil), ctx.BusinessRequirements...)
	out.TechnicalSpecs = append([]string(nil), ctx.TechnicalSpecs...)
	out.Stakeholders = append([]string(nil), ctx.Stakeholders...)
	out.Decisions = append([]models.Decision(nil), ctx.Decisions...)
	out.OpenIssues = append([]models.OpenIssue(nil), ctx.OpenIssues...)
	return out
}

func copyMetadata(md models.SessionMetadata) models.SessionMetadata {
	out := md
	out.AnalysisResults = append([]models.AnalysisRecord(nil), md.AnalysisResults...)
	out.GeneratedArtifacts = append([]models.AnalysisRecord(nil), md.GeneratedArtifacts...)
	return out
}
