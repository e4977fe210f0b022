// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionService manages in-memory login sessions for the HTTP API.
type SessionService interface {
	Create(email string) string
	Validate(id string) (string, bool)
	Delete(id string)
}

type session struct {
	email   string
	expires time.Time
}

// sessionService implements SessionService with an in-memory map.
// Sessions do not survive a restart.
type sessionService struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]session
}

// NewSessionService creates a session store with the given TTL.
func NewSessionService(ttl time.Duration) SessionService {
	return &sessionService{
		ttl:      ttl,
		sessions: make(map[string]session),
	}
}

// Create registers a new session and returns its ID.
func (s *sessionService) Create(email string) string {
	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = session{email: email, expires: time.Now().Add(s.ttl)}
	return id
}

// Validate returns the session's email if the session exists and has not
// expired. Expired sessions are removed on access.
func (s *sessionService) Validate(id string) (string, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return "", false
	}
	if time.Now().After(sess.expires) {
		s.Delete(id)
		return "", false
	}
	return sess.email, true
}

// Delete removes a session.
func (s *sessionService) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
