package controller

import (
	"math"
	"reflect"
	"testing"

	"github.com/saxenaaman628/ranker/internal/models"
)

func newScoredPoll(votesPerVoter int, nominations []string, rankings map[string][]string) *models.Poll {
	p := models.NewPoll("ABC123", "lunch", votesPerVoter, "U1")
	for _, id := range nominations {
		p.Nominations[id] = models.Nomination{SubmittedBy: "U1", Text: "text " + id}
	}
	for user, r := range rankings {
		p.Rankings[user] = r
	}
	return p
}

func TestScoreSingleVote(t *testing.T) {
	p := newScoredPoll(1, []string{"N1", "N2"}, map[string][]string{"U1": {"N1"}})

	got := Score(p)
	want := []models.Result{{NominationID: "N1", NominationText: "text N1", Score: 1.0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Score() = %+v, want %+v", got, want)
	}
}

func TestScoreWeights(t *testing.T) {
	p := newScoredPoll(3, []string{"A", "B", "C"}, map[string][]string{
		"U1": {"A", "B", "C"},
		"U2": {"B", "A"},
	})

	got := Score(p)
	// position weights for v=3: 1, (2.5/3)^2, (2/3)^3
	w0, w1, w2 := 1.0, math.Pow(2.5/3, 2), math.Pow(2.0/3, 3)
	want := map[string]float64{"A": w0 + w1, "B": w1 + w0, "C": w2}

	if len(got) != 3 {
		t.Fatalf("Score() returned %d results", len(got))
	}
	for _, r := range got {
		if math.Abs(r.Score-want[r.NominationID]) > 1e-12 {
			t.Errorf("score %s = %v, want %v", r.NominationID, r.Score, want[r.NominationID])
		}
	}
	if got[2].NominationID != "C" {
		t.Errorf("lowest = %s, want C", got[2].NominationID)
	}
}

func TestScoreTieBreakByNominationID(t *testing.T) {
	p := newScoredPoll(1, []string{"zeta", "alpha", "mid"}, map[string][]string{
		"U1": {"zeta"},
		"U2": {"alpha"},
		"U3": {"mid"},
	})

	got := Score(p)
	ids := []string{got[0].NominationID, got[1].NominationID, got[2].NominationID}
	if !reflect.DeepEqual(ids, []string{"alpha", "mid", "zeta"}) {
		t.Errorf("order = %v, want ascending ids", ids)
	}
}

func TestScoreDeterministic(t *testing.T) {
	p := newScoredPoll(2, []string{"A", "B", "C", "D"}, map[string][]string{
		"U1": {"A", "B"},
		"U2": {"C", "D"},
		"U3": {"D", "C"},
		"U4": {"B", "A"},
	})

	first := Score(p)
	for i := 0; i < 50; i++ {
		if got := Score(p); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: %+v != %+v", i, got, first)
		}
	}
}

func TestScoreSkipsRemovedNomination(t *testing.T) {
	p := newScoredPoll(2, []string{"A"}, map[string][]string{"U1": {"GONE", "A"}})

	got := Score(p)
	if len(got) != 1 || got[0].NominationID != "A" {
		t.Fatalf("Score() = %+v", got)
	}
	if got[0].Score != math.Pow(1.5/2, 2) {
		t.Errorf("score = %v, want position-1 weight", got[0].Score)
	}
}

func TestScoreIgnoresPositionsBeyondVotesPerVoter(t *testing.T) {
	p := newScoredPoll(1, []string{"A", "B"}, map[string][]string{"U1": {"A", "B"}})

	got := Score(p)
	if len(got) != 1 || got[0].NominationID != "A" {
		t.Errorf("Score() = %+v", got)
	}
}

func TestScoreEmpty(t *testing.T) {
	p := newScoredPoll(1, []string{"A"}, nil)
	if got := Score(p); got == nil || len(got) != 0 {
		t.Errorf("Score() = %#v, want empty non-nil", got)
	}
}
