package room

import (
	"sort"
	"sync"
	"time"

	"github.com/saxenaaman628/ranker/internal/models"
)

// Client is one connection joined to a room.
type Client struct {
	ID       string
	UserID   string
	Addr     string
	Name     string
	JoinTime time.Time
}

// Room is the in-process roster and fan-out for one poll.
type Room struct {
	id            string
	votesPerVoter int

	// commitMu orders store mutations with the snapshots they broadcast
	commitMu sync.Mutex

	mu      sync.Mutex
	clients map[string]Client
	closed  bool
	done    chan struct{}

	nominations sync.Map // models.NominationID -> struct{}
	bcast       *Broadcaster
}

func newRoom(poll *models.Poll, capacity int) *Room {
	r := &Room{
		id:            poll.ID,
		votesPerVoter: poll.VotesPerVoter,
		clients:       make(map[string]Client),
		done:          make(chan struct{}),
		bcast:         NewBroadcaster(capacity),
	}
	for id := range poll.Nominations {
		r.nominations.Store(id, struct{}{})
	}
	return r
}

func (r *Room) ID() string { return r.id }

func (r *Room) VotesPerVoter() int { return r.votesPerVoter }

// Done is closed when the room is torn down.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) Closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func (r *Room) Subscribe() *Subscription {
	return r.bcast.Subscribe()
}

func (r *Room) Broadcast(msg []byte) int {
	return r.bcast.Send(msg)
}

// Commit runs one store mutation and broadcasts the snapshot it returns
// while holding the room's commit lock, so members see snapshots in the
// order they were committed. A nil snapshot is not broadcast.
func (r *Room) Commit(mutate func() (*models.Poll, error)) (*models.Poll, error) {
	r.commitMu.Lock()
	defer r.commitMu.Unlock()

	poll, err := mutate()
	if err != nil || poll == nil {
		return poll, err
	}
	r.Broadcast(models.PollUpdated(poll).Encode())
	return poll, nil
}

func (r *Room) AddNomination(id models.NominationID) {
	r.nominations.Store(id, struct{}{})
}

func (r *Room) RemoveNomination(id models.NominationID) {
	r.nominations.Delete(id)
}

// HasNominations reports whether every id is currently nominated.
func (r *Room) HasNominations(ids []models.NominationID) bool {
	for _, id := range ids {
		if _, ok := r.nominations.Load(id); !ok {
			return false
		}
	}
	return true
}

// Clients returns the roster ordered by join time.
func (r *Room) Clients() []Client {
	r.mu.Lock()
	out := make([]Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].JoinTime.Before(out[j].JoinTime) })
	return out
}

// HasUser reports whether any joined client belongs to userID.
func (r *Room) HasUser(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

func (r *Room) add(c Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.clients[c.ID] = c
	return true
}

// remove drops the client and closes the room if it was the last one.
// It reports whether the room was closed by this call.
func (r *Room) remove(clientID string) (Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[clientID]
	if !ok {
		return c, false
	}
	delete(r.clients, clientID)
	if len(r.clients) > 0 || r.closed {
		return c, false
	}
	r.closeLocked(nil)
	return c, true
}

func (r *Room) close(final []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.closeLocked(final)
	return true
}

func (r *Room) closeLocked(final []byte) {
	r.closed = true
	r.bcast.Close(final)
	close(r.done)
}
