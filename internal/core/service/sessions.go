package service

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

type session struct {
	controller *Controller
	evicted    atomic.Bool
}

// Sessions keeps one Controller per browser session. Idle sessions expire after the TTL and the
// least recently used session is dropped once the size limit is reached.
type Sessions struct {
	controllers *expirable.LRU[string, *session]
	newFunc     func() *Controller
}

func NewSessions(size int, ttl time.Duration, newFunc func() *Controller) *Sessions {
	onEvict := func(id string, s *session) {
		if s.evicted.Swap(true) {
			return
		}
		log.Debug().Str("session", id).Msg("session expired")
		s.controller.Reset()
	}

	return &Sessions{
		controllers: expirable.NewLRU[string, *session](size, onEvict, ttl),
		newFunc:     newFunc,
	}
}

// Get returns the controller for id and refreshes its expiry.
func (s *Sessions) Get(id string) (*Controller, bool) {
	if id == "" {
		return nil, false
	}

	entry, ok := s.controllers.Get(id)
	if !ok {
		return nil, false
	}

	if entry.evicted.Load() {
		s.controllers.Remove(id)
		return nil, false
	}

	s.controllers.Add(id, entry)

	// The entry may have expired between Get and Add; an evicted session is never revived.
	if entry.evicted.Load() {
		s.controllers.Remove(id)
		return nil, false
	}

	return entry.controller, true
}

// Create starts a new session in the Empty state.
func (s *Sessions) Create() (string, *Controller, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", nil, fmt.Errorf("error creating session id: %w", err)
	}

	c := s.newFunc()
	s.controllers.Add(id.String(), &session{controller: c})

	log.Debug().Str("session", id.String()).Msg("session created")

	return id.String(), c, nil
}

// GetOrCreate returns the existing session for id, or a new one when id is unknown.
func (s *Sessions) GetOrCreate(id string) (string, *Controller, error) {
	if c, ok := s.Get(id); ok {
		return id, c, nil
	}

	return s.Create()
}

func (s *Sessions) Len() int {
	return s.controllers.Len()
}
