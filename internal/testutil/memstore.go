// Package testutil holds in-memory stand-ins used by handler tests.
package testutil

import (
	"context"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/saxenaaman628/ranker/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MemStore is a mutex-guarded poll store with the same existence and phase
// rules as the Redis repository. Returned polls are copies.
type MemStore struct {
	mu    sync.Mutex
	polls map[string]*models.Poll

	// OnDelete, if set, is called after a poll is removed.
	OnDelete func(pollID string)
}

func NewMemStore() *MemStore {
	return &MemStore{polls: make(map[string]*models.Poll)}
}

func (s *MemStore) Create(_ context.Context, _ time.Duration, pollID, topic string, votesPerVoter int, adminID string) (*models.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.polls[pollID]; ok {
		return nil, models.ErrPollAlreadyExists
	}
	p := models.NewPoll(pollID, topic, votesPerVoter, adminID)
	s.polls[pollID] = p
	return clone(p), nil
}

// Put stores p as is, replacing any existing poll with the same id.
func (s *MemStore) Put(p *models.Poll) {
	s.mu.Lock()
	s.polls[p.ID] = clone(p)
	s.mu.Unlock()
}

func (s *MemStore) Get(_ context.Context, pollID string) (*models.Poll, error) {
	return s.update(pollID, func(*models.Poll) error { return nil })
}

func (s *MemStore) SetParticipant(_ context.Context, pollID, userID, name string) (*models.Poll, error) {
	return s.update(pollID, func(p *models.Poll) error {
		p.Participants[userID] = name
		return nil
	})
}

func (s *MemStore) RemoveParticipant(_ context.Context, pollID, userID string) (*models.Poll, error) {
	return s.update(pollID, func(p *models.Poll) error {
		if p.HasStarted {
			return models.ErrPollHasStarted
		}
		delete(p.Participants, userID)
		return nil
	})
}

func (s *MemStore) AddNomination(_ context.Context, pollID string, nominationID models.NominationID, nomination models.Nomination) (*models.Poll, error) {
	return s.update(pollID, func(p *models.Poll) error {
		p.Nominations[nominationID] = nomination
		return nil
	})
}

func (s *MemStore) RemoveNomination(_ context.Context, pollID string, nominationID models.NominationID) (*models.Poll, error) {
	return s.update(pollID, func(p *models.Poll) error {
		delete(p.Nominations, nominationID)
		return nil
	})
}

func (s *MemStore) Start(_ context.Context, pollID string) (*models.Poll, error) {
	return s.update(pollID, func(p *models.Poll) error {
		p.HasStarted = true
		return nil
	})
}

func (s *MemStore) SubmitRankings(_ context.Context, pollID, userID string, rankings []models.NominationID) (*models.Poll, error) {
	return s.update(pollID, func(p *models.Poll) error {
		if !p.HasStarted {
			return models.ErrPollNoStart
		}
		p.Rankings[userID] = append([]models.NominationID(nil), rankings...)
		return nil
	})
}

func (s *MemStore) SetResults(_ context.Context, pollID string, results []models.Result) (*models.Poll, error) {
	return s.update(pollID, func(p *models.Poll) error {
		p.Results = append([]models.Result{}, results...)
		return nil
	})
}

func (s *MemStore) Delete(_ context.Context, pollID string) error {
	s.mu.Lock()
	_, ok := s.polls[pollID]
	delete(s.polls, pollID)
	s.mu.Unlock()

	if ok && s.OnDelete != nil {
		s.OnDelete(pollID)
	}
	return nil
}

// Len counts stored polls.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.polls)
}

func (s *MemStore) update(pollID string, fn func(p *models.Poll) error) (*models.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.polls[pollID]
	if !ok {
		return nil, models.ErrPollNotFound
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	return clone(p), nil
}

func clone(p *models.Poll) *models.Poll {
	b, err := json.Marshal(p)
	if err != nil {
		panic(err)
	}
	var out models.Poll
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return &out
}
