package services

import (
	"context"
	"sync"
	"time"

	"github.com/SAP-F-2025/toeic-import-service/internal/metrics"
	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/google/uuid"
)

// SessionState is an immutable snapshot handed to listeners and callers
type SessionState struct {
	ID        string                          `json:"id"`
	UserID    string                          `json:"user_id"`
	FileName  string                          `json:"file_name,omitempty"`
	Records   []models.ImportedQuestionRecord `json:"records"`
	Summary   models.ImportSummary            `json:"summary"`
	Loading   bool                            `json:"loading"`
	Importing bool                            `json:"importing"`
	Progress  float64                         `json:"progress"`
	Errors    []string                        `json:"errors"`
	UpdatedAt time.Time                       `json:"updated_at"`
}

// Listener receives every state change of a session. Listeners run
// synchronously and must not mutate the session they observe.
type Listener func(SessionState)

// ImportSession holds the records of one upload-review-import cycle
type ImportSession struct {
	id     string
	userID string

	// notifyMu keeps deliveries in mutation order
	notifyMu sync.Mutex

	mu         sync.Mutex
	fileName   string
	records    []models.ImportedQuestionRecord
	loading    bool
	importing  bool
	progress   float64
	errors     []string
	updatedAt  time.Time
	listeners  map[int]Listener
	order      []int
	nextListen int
	onClose    []func()
}

func NewImportSession(id, userID string) *ImportSession {
	return &ImportSession{
		id:        id,
		userID:    userID,
		records:   make([]models.ImportedQuestionRecord, 0),
		errors:    make([]string, 0),
		updatedAt: time.Now(),
		listeners: make(map[int]Listener),
	}
}

func (s *ImportSession) ID() string     { return s.id }
func (s *ImportSession) UserID() string { return s.userID }

// Subscribe registers a listener and returns the function removing it
func (s *ImportSession) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextListen
	s.nextListen++
	s.listeners[id] = l
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (s *ImportSession) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Busy reports whether a load or an import is running
func (s *ImportSession) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading || s.importing
}

// LastActivity is the time of the latest mutation
func (s *ImportSession) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// BeginLoad clears the session for a new file
func (s *ImportSession) BeginLoad(fileName string) error {
	return s.mutate(func() error {
		if s.loading || s.importing {
			return ErrImportInProgress
		}
		s.fileName = fileName
		s.records = make([]models.ImportedQuestionRecord, 0)
		s.loading = true
		s.progress = 0
		s.errors = make([]string, 0)
		return nil
	})
}

// SetRecords installs the parsed and validated records of the current file
func (s *ImportSession) SetRecords(records []models.ImportedQuestionRecord) {
	_ = s.mutate(func() error {
		s.records = records
		s.loading = false
		return nil
	})
}

// FailLoad ends a load that produced no records
func (s *ImportSession) FailLoad(err error) {
	_ = s.mutate(func() error {
		s.loading = false
		s.records = make([]models.ImportedQuestionRecord, 0)
		s.errors = append(s.errors, err.Error())
		return nil
	})
}

// Reset drops all records and errors
func (s *ImportSession) Reset() error {
	return s.mutate(func() error {
		if s.loading || s.importing {
			return ErrImportInProgress
		}
		s.fileName = ""
		s.records = make([]models.ImportedQuestionRecord, 0)
		s.progress = 0
		s.errors = make([]string, 0)
		return nil
	})
}

// beginImport marks the session busy. Only one import may run at a time.
func (s *ImportSession) beginImport() error {
	return s.mutate(func() error {
		if s.loading || s.importing {
			return ErrImportInProgress
		}
		s.importing = true
		s.progress = 0
		s.errors = make([]string, 0)
		return nil
	})
}

func (s *ImportSession) finishImport(err error) {
	_ = s.mutate(func() error {
		s.importing = false
		if err != nil {
			s.errors = append(s.errors, err.Error())
		}
		return nil
	})
}

type indexedRecord struct {
	index  int
	record models.ImportedQuestionRecord
}

// validRecords returns copies of the valid records with their positions
func (s *ImportSession) validRecords() []indexedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]indexedRecord, 0, len(s.records))
	for i := range s.records {
		if s.records[i].ValidationStatus == models.RecordValid {
			out = append(out, indexedRecord{index: i, record: s.records[i].Clone()})
		}
	}
	return out
}

// demote marks valid records invalid with an extra reason
func (s *ImportSession) demote(reasons map[int]string) {
	if len(reasons) == 0 {
		return
	}
	_ = s.mutate(func() error {
		for idx, reason := range reasons {
			rec := &s.records[idx]
			if rec.ValidationStatus != models.RecordValid {
				continue
			}
			rec.ValidationStatus = models.RecordInvalid
			rec.Errors = append(rec.Errors, reason)
		}
		return nil
	})
}

// markImported flags a written batch and advances progress. Progress never
// moves backwards.
func (s *ImportSession) markImported(indices []int, progress float64) {
	_ = s.mutate(func() error {
		for _, idx := range indices {
			s.records[idx].ValidationStatus = models.RecordImported
		}
		if progress > s.progress {
			s.progress = progress
		}
		return nil
	})
}

// OnClose registers fn to run once the registry drops the session
func (s *ImportSession) OnClose(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClose = append(s.onClose, fn)
}

func (s *ImportSession) close() {
	s.mu.Lock()
	s.listeners = make(map[int]Listener)
	s.order = nil
	hooks := s.onClose
	s.onClose = nil
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// mutate applies fn under the lock and, when it succeeds, delivers the new
// snapshot to every listener after the lock is released
func (s *ImportSession) mutate(fn func() error) error {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if err := fn(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.updatedAt = time.Now()
	state := s.snapshotLocked()
	listeners := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
	return nil
}

func (s *ImportSession) snapshotLocked() SessionState {
	records := make([]models.ImportedQuestionRecord, len(s.records))
	for i := range s.records {
		records[i] = s.records[i].Clone()
	}
	return SessionState{
		ID:        s.id,
		UserID:    s.userID,
		FileName:  s.fileName,
		Records:   records,
		Summary:   models.Summarize(s.records),
		Loading:   s.loading,
		Importing: s.importing,
		Progress:  s.progress,
		Errors:    append([]string{}, s.errors...),
		UpdatedAt: s.updatedAt,
	}
}

// ===== SESSION REGISTRY =====

// SessionRegistry owns live sessions by ID
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*ImportSession
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionRegistry(ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*ImportSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (r *SessionRegistry) Create(userID string) *ImportSession {
	session := NewImportSession(uuid.NewString(), userID)

	r.mu.Lock()
	r.sessions[session.ID()] = session
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.SetActiveSessions(n)
	return session
}

func (r *SessionRegistry) Get(id string) (*ImportSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Dispose removes a session. A session that is still importing is kept.
func (r *SessionRegistry) Dispose(id string) error {
	r.mu.Lock()
	session, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	if session.Busy() {
		r.mu.Unlock()
		return ErrImportInProgress
	}
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	session.close()
	metrics.SetActiveSessions(n)
	return nil
}

// Evict drops idle sessions older than the TTL and returns how many went
func (r *SessionRegistry) Evict() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var evicted []*ImportSession
	for id, session := range r.sessions {
		if session.Busy() || session.LastActivity().After(cutoff) {
			continue
		}
		delete(r.sessions, id)
		evicted = append(evicted, session)
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, session := range evicted {
		session.close()
	}
	metrics.SetActiveSessions(n)
	return len(evicted)
}

// Run evicts idle sessions every interval until ctx is done
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Evict()
		}
	}
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
