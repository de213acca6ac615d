// Package review holds diary records while a person checks and edits them.
// Sessions live in memory and are gone when the process exits.
package review

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thywilljoshua/site-diary/internal/diary"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("session not found")

// ErrConflict is returned when a session changed after the caller read it.
var ErrConflict = errors.New("session changed since it was read")

// Session is one review of one uploaded report. Version increases with
// every change to the record.
type Session struct {
	ID        string        `json:"id"`
	Source    string        `json:"source"`
	Record    *diary.Record `json:"record"`
	RawText   string        `json:"raw_text"`
	Pages     int           `json:"pages"`
	Enhanced  bool          `json:"enhanced"`
	Summary   diary.Summary `json:"summary"`
	Version   int           `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Draft is what a new session starts from.
type Draft struct {
	Source  string
	Record  *diary.Record
	RawText string
	Pages   int
}

// Store keeps sessions keyed by ID. Values handed in and out are copies, so
// callers never share a record with the store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{sessions: map[string]*Session{}, now: time.Now}
}

// Create stores a new session from d. Missing fields are added empty.
func (s *Store) Create(d Draft) (Session, error) {
	if d.Record == nil {
		return Session{}, errors.New("draft has no record")
	}
	rec := d.Record.Clone()
	rec.Fill()

	now := s.now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		Source:    d.Source,
		Record:    rec,
		RawText:   d.RawText,
		Pages:     d.Pages,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess.snapshot(), nil
}

// Get returns a copy of the session.
func (s *Store) Get(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, notFound(id)
	}
	return sess.snapshot(), nil
}

// List returns copies of all sessions, newest first.
func (s *Store) List() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return notFound(id)
	}
	delete(s.sessions, id)
	return nil
}

// GetField returns the current value of one field.
func (s *Store) GetField(id, name string) (diary.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return diary.Value{}, notFound(id)
	}
	return sess.Record.Get(name)
}

// SetField replaces one field. The value must match the field's kind:
// a text field takes text and a list field takes a list.
func (s *Store) SetField(id, name string, v diary.Value) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, notFound(id)
	}
	if err := sess.Record.Set(name, v); err != nil {
		return Session{}, err
	}
	sess.Version++
	sess.UpdatedAt = s.now().UTC()
	return sess.snapshot(), nil
}

// Replace swaps in a new record, typically the result of enhancement.
// version is the Version the record was derived from; if the session has
// moved on since, nothing changes and ErrConflict is returned.
func (s *Store) Replace(id string, version int, rec *diary.Record, enhanced bool) (Session, error) {
	if rec == nil {
		return Session{}, errors.New("replace with nil record")
	}
	next := rec.Clone()
	next.Fill()

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, notFound(id)
	}
	if sess.Version != version {
		return Session{}, fmt.Errorf("%w: %s is at version %d, not %d", ErrConflict, id, sess.Version, version)
	}
	sess.Record = next
	sess.Version++
	sess.Enhanced = sess.Enhanced || enhanced
	sess.UpdatedAt = s.now().UTC()
	return sess.snapshot(), nil
}

// Validate reports whether the session's record can be rendered. A nil
// error means it is final.
func (s *Store) Validate(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return notFound(id)
	}
	return sess.Record.Validate()
}

// Prune drops sessions not updated since cutoff and returns how many went.
func (s *Store) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (sess *Session) snapshot() Session {
	out := *sess
	out.Record = sess.Record.Clone()
	out.Summary = out.Record.Summary()
	return out
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
