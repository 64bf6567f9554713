package room

import (
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/saxenaaman628/ranker/internal/models"
)

// Registry owns every live Room, keyed by poll id. Rooms are created on the
// first join and removed when the last client leaves or on Teardown.
type Registry struct {
	rooms    sync.Map // poll id -> *Room
	capacity int
	log      *logrus.Entry
}

func NewRegistry(capacity int, log logrus.FieldLogger) *Registry {
	return &Registry{capacity: capacity, log: log.WithField("module", "room")}
}

// Join adds client to the room for poll, creating the room from the poll
// snapshot if none exists.
func (g *Registry) Join(poll *models.Poll, client Client) *Room {
	for {
		v, ok := g.rooms.Load(poll.ID)
		if !ok {
			v, ok = g.rooms.LoadOrStore(poll.ID, newRoom(poll, g.capacity))
			if !ok {
				g.log.WithField("poll_id", poll.ID).Debug("room created")
			}
		}
		r := v.(*Room)
		if r.add(client) {
			g.log.WithFields(logrus.Fields{"poll_id": poll.ID, "client": client.ID}).Debug("client joined")
			return r
		}
		// lost a race with the room closing; retry with a fresh one
		g.rooms.CompareAndDelete(poll.ID, r)
	}
}

// Leave removes a client from r. An emptied room is closed and forgotten.
func (g *Registry) Leave(r *Room, clientID string) {
	c, emptied := r.remove(clientID)

	entry := g.log.WithFields(logrus.Fields{"poll_id": r.id, "client": clientID})
	if !c.JoinTime.IsZero() {
		entry = entry.WithField("joined", humanize.Time(c.JoinTime))
	}
	entry.Debug("client left")

	if emptied {
		g.rooms.CompareAndDelete(r.id, r)
		entry.Debug("room closed (empty)")
	}
}

// Teardown closes the room for pollID after queueing final, if non-nil, to
// each member. It reports whether a room was torn down.
func (g *Registry) Teardown(pollID string, final []byte) bool {
	v, ok := g.rooms.LoadAndDelete(pollID)
	if !ok {
		return false
	}
	if !v.(*Room).close(final) {
		return false
	}
	g.log.WithField("poll_id", pollID).Info("room torn down")
	return true
}

func (g *Registry) Get(pollID string) (*Room, bool) {
	v, ok := g.rooms.Load(pollID)
	if !ok {
		return nil, false
	}
	return v.(*Room), true
}

// Len counts live rooms.
func (g *Registry) Len() int {
	n := 0
	g.rooms.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// NewClient builds a roster entry stamped with the current time.
func NewClient(id, userID, addr, name string) Client {
	return Client{ID: id, UserID: userID, Addr: addr, Name: name, JoinTime: time.Now()}
}
