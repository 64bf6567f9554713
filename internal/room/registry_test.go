package room

import (
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/saxenaaman628/ranker/internal/models"
)

func newTestRegistry(capacity int) *Registry {
	log, _ := test.NewNullLogger()
	return NewRegistry(capacity, log)
}

func testPoll(id string) *models.Poll {
	p := models.NewPoll(id, "lunch", 2, "U1")
	p.Nominations["N1"] = models.Nomination{SubmittedBy: "U1", Text: "pizza"}
	return p
}

func TestJoinCreatesAndSeedsRoom(t *testing.T) {
	g := newTestRegistry(8)
	r := g.Join(testPoll("AAA111"), NewClient("c1", "U1", "127.0.0.1", "ben"))

	if r.ID() != "AAA111" || r.VotesPerVoter() != 2 {
		t.Errorf("room = %s/%d", r.ID(), r.VotesPerVoter())
	}
	if !r.HasNominations([]string{"N1"}) {
		t.Error("whitelist not seeded from poll")
	}
	if r.HasNominations([]string{"N1", "N2"}) {
		t.Error("unknown nomination accepted")
	}
	if got, ok := g.Get("AAA111"); !ok || got != r {
		t.Error("Get() did not return joined room")
	}

	same := g.Join(testPoll("AAA111"), NewClient("c2", "U2", "127.0.0.1", "amy"))
	if same != r {
		t.Error("second join created a new room")
	}
	if n := len(r.Clients()); n != 2 {
		t.Errorf("Clients() = %d, want 2", n)
	}
	if !r.HasUser("U2") || r.HasUser("U3") {
		t.Error("HasUser() wrong")
	}
}

func TestLeaveLastClientClosesRoom(t *testing.T) {
	g := newTestRegistry(8)
	r := g.Join(testPoll("AAA111"), NewClient("c1", "U1", "", "ben"))
	g.Join(testPoll("AAA111"), NewClient("c2", "U2", "", "amy"))

	g.Leave(r, "unknown")
	g.Leave(r, "c1")
	if r.Closed() {
		t.Fatal("room closed with a client left")
	}
	g.Leave(r, "c2")
	if !r.Closed() {
		t.Fatal("empty room not closed")
	}
	if _, ok := g.Get("AAA111"); ok {
		t.Error("empty room still registered")
	}

	fresh := g.Join(testPoll("AAA111"), NewClient("c3", "U3", "", "joe"))
	if fresh == r || fresh.Closed() {
		t.Error("join after close reused the closed room")
	}
}

func TestTeardownDeliversFinalMessage(t *testing.T) {
	g := newTestRegistry(8)
	r := g.Join(testPoll("AAA111"), NewClient("c1", "U1", "", "ben"))
	sub := r.Subscribe()

	if !g.Teardown("AAA111", []byte(`"poll_cancelled"`)) {
		t.Fatal("Teardown() = false")
	}
	if g.Teardown("AAA111", nil) {
		t.Error("second Teardown() = true")
	}

	<-r.Done()
	if got := string(<-sub.C()); got != `"poll_cancelled"` {
		t.Errorf("final = %s", got)
	}
	if _, ok := <-sub.C(); ok {
		t.Error("subscription open after teardown")
	}
	if g.Len() != 0 {
		t.Errorf("Len() = %d", g.Len())
	}
}

func TestBroadcastStaysInRoom(t *testing.T) {
	g := newTestRegistry(8)
	a := g.Join(testPoll("AAA111"), NewClient("c1", "U1", "", "ben"))
	b := g.Join(testPoll("BBB222"), NewClient("c2", "U2", "", "amy"))
	subA, subB := a.Subscribe(), b.Subscribe()

	a.Broadcast([]byte("hello"))

	if got := string(<-subA.C()); got != "hello" {
		t.Errorf("room A got %q", got)
	}
	select {
	case msg := <-subB.C():
		t.Errorf("room B received %q", msg)
	default:
	}
}

func TestNominationWhitelist(t *testing.T) {
	g := newTestRegistry(8)
	r := g.Join(testPoll("AAA111"), NewClient("c1", "U1", "", "ben"))

	r.AddNomination("N2")
	if !r.HasNominations([]string{"N1", "N2"}) {
		t.Error("added nomination missing")
	}
	r.RemoveNomination("N1")
	if r.HasNominations([]string{"N1"}) {
		t.Error("removed nomination still present")
	}
	if !r.HasNominations(nil) {
		t.Error("empty list rejected")
	}
}

func TestConcurrentJoinLeave(t *testing.T) {
	g := newTestRegistry(8)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pollID := fmt.Sprintf("P%05d", i%5)
			clientID := fmt.Sprintf("c%d", i)
			r := g.Join(testPoll(pollID), NewClient(clientID, clientID, "", "x"))
			if r.Closed() && r.HasUser(clientID) {
				t.Errorf("joined a closed room")
			}
			g.Leave(r, clientID)
		}(i)
	}
	wg.Wait()

	if n := g.Len(); n != 0 {
		t.Errorf("Len() = %d after everyone left", n)
	}
}

func TestCommitBroadcastsOnlySnapshots(t *testing.T) {
	g := newTestRegistry(8)
	r := g.Join(testPoll("AAA111"), NewClient("c1", "U1", "", "ben"))
	sub := r.Subscribe()

	if _, err := r.Commit(func() (*models.Poll, error) { return nil, models.ErrPollNotFound }); err != models.ErrPollNotFound {
		t.Errorf("Commit() error = %v", err)
	}
	r.Commit(func() (*models.Poll, error) { return nil, nil })
	r.Commit(func() (*models.Poll, error) { return testPoll("AAA111"), nil })

	select {
	case msg := <-sub.C():
		ev, err := models.DecodeEvent(msg)
		if err != nil || ev.Kind != models.EventPollUpdated || ev.Poll.ID != "AAA111" {
			t.Errorf("broadcast = %s, %v", msg, err)
		}
	default:
		t.Fatal("snapshot not broadcast")
	}
	select {
	case msg := <-sub.C():
		t.Errorf("unexpected broadcast %s", msg)
	default:
	}
}
