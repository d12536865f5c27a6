// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package session keeps placeholder mappings in memory for a limited time.
package session

import (
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a session stays resolvable after creation.
const DefaultTTL = time.Hour

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found or expired")

// Session holds the placeholder mapping for one redaction.
type Session struct {
	ID        string
	CreatedAt time.Time
	mappings  map[string]string
}

// Store is an in-memory session store. Expired sessions are removed only by
// PruneExpired; lookups do not check age.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured session lifetime.
func (s *Store) TTL() time.Duration { return s.ttl }

// Create starts an empty session and returns its id.
func (s *Store) Create() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.sessions[id] = &Session{
		ID:        id,
		CreatedAt: s.now(),
		mappings:  make(map[string]string),
	}
	return id
}

// AddMapping records placeholder -> original in the session, replacing any
// earlier value for the same placeholder.
func (s *Store) AddMapping(id, placeholder, original string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.mappings[placeholder] = original
	return nil
}

// Mappings returns a copy of the session's mapping, or nil when the session
// is unknown.
func (s *Store) Mappings(id string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	return maps.Clone(sess.mappings)
}

// Merge copies every mapping of source into target.
func (s *Store) Merge(target, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dst, ok := s.sessions[target]
	if !ok {
		return ErrNotFound
	}
	src, ok := s.sessions[source]
	if !ok {
		return ErrNotFound
	}
	maps.Copy(dst.mappings, src.mappings)
	return nil
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// PruneExpired removes sessions older than the TTL and returns how many were
// removed.
func (s *Store) PruneExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.CreatedAt) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
