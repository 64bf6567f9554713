package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/saxenaaman628/ranker/internal/models"
)

func TestMemStorePhaseRules(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	if _, err := s.Create(ctx, 0, "AAA111", "lunch", 2, "U1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, 0, "AAA111", "lunch", 2, "U1"); !errors.Is(err, models.ErrPollAlreadyExists) {
		t.Errorf("duplicate Create() error = %v", err)
	}
	if _, err := s.SubmitRankings(ctx, "AAA111", "U1", []string{"N1"}); !errors.Is(err, models.ErrPollNoStart) {
		t.Errorf("SubmitRankings() before start error = %v", err)
	}

	s.SetParticipant(ctx, "AAA111", "U2", "amy")
	s.Start(ctx, "AAA111")
	if _, err := s.RemoveParticipant(ctx, "AAA111", "U2"); !errors.Is(err, models.ErrPollHasStarted) {
		t.Errorf("RemoveParticipant() after start error = %v", err)
	}

	p, _ := s.Get(ctx, "AAA111")
	if p.Participants["U2"] != "amy" {
		t.Error("participant removed after start")
	}
}

func TestMemStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	s.Create(ctx, 0, "AAA111", "lunch", 2, "U1")

	p, _ := s.SetParticipant(ctx, "AAA111", "U1", "ben")
	p.Participants["U1"] = "mutated"

	got, _ := s.Get(ctx, "AAA111")
	if got.Participants["U1"] != "ben" {
		t.Error("caller mutation leaked into store")
	}
}

func TestMemStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	s.Create(ctx, 0, "AAA111", "lunch", 2, "U1")

	var deleted []string
	s.OnDelete = func(id string) { deleted = append(deleted, id) }

	if err := s.Delete(ctx, "AAA111"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "AAA111"); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
	if len(deleted) != 1 {
		t.Errorf("OnDelete calls = %v, want one", deleted)
	}
	if _, err := s.Get(ctx, "AAA111"); !errors.Is(err, models.ErrPollNotFound) {
		t.Errorf("Get() after delete error = %v", err)
	}
}
