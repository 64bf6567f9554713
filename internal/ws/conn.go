package ws

import (
	"context"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/saxenaaman628/ranker/internal/models"
	"github.com/saxenaaman628/ranker/internal/room"
	"github.com/saxenaaman628/ranker/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// how long a torn-down connection may spend flushing the room's last message
	flushWait = time.Second
	// budget for the participant cleanup after the socket is gone
	leaveTimeout = 5 * time.Second
)

type endReason int

const (
	endPeerClosed endReason = iota
	endSendFailed
	endLagged
	endRoomClosed
	endCancelled
)

func (r endReason) String() string {
	switch r {
	case endPeerClosed:
		return "peer closed"
	case endSendFailed:
		return "send failed"
	case endLagged:
		return "lagged"
	case endRoomClosed:
		return "room closed"
	}
	return "cancelled"
}

// connection runs the protocol for one socket: join, then three tasks
// (read/dispatch, room relay, teardown watch) until the first one ends.
type connection struct {
	h        *Handler
	ws       *websocket.Conn
	identity models.Identity
	clientID string
	addr     string

	room    *room.Room
	sub     *room.Subscription
	private chan []byte
	flushed chan struct{}

	log *logrus.Entry
}

func newConnection(h *Handler, ws *websocket.Conn, id models.Identity, addr string) *connection {
	clientID := utils.CreateUserID()
	return &connection{
		h:        h,
		ws:       ws,
		identity: id,
		clientID: clientID,
		addr:     addr,
		private:  make(chan []byte, 16),
		flushed:  make(chan struct{}),
		log: h.log.WithFields(logrus.Fields{
			"poll_id": id.PollID,
			"user_id": id.UserID,
			"client":  clientID,
		}),
	}
}

func (c *connection) serve(ctx context.Context) {
	defer c.ws.Close()
	started := time.Now()

	if err := c.join(ctx); err != nil {
		c.log.WithError(err).Warn("join failed")
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.ws.WriteMessage(websocket.TextMessage, models.Exception(err).Encode())
		c.closeWith(websocket.ClosePolicyViolation, err.Error())
		return
	}
	c.log.WithField("members", len(c.room.Clients())).Info("joined")

	ctx, cancel := context.WithCancel(ctx)
	ended := make(chan endReason, 3)
	var wg sync.WaitGroup
	for _, task := range []func(context.Context) endReason{c.readLoop, c.writeLoop, c.watchTeardown} {
		wg.Add(1)
		go func(task func(context.Context) endReason) {
			defer wg.Done()
			ended <- task(ctx)
		}(task)
	}

	reason := <-ended
	cancel()
	c.sub.Close()
	switch reason {
	case endRoomClosed:
		c.closeWith(websocket.CloseNormalClosure, "poll cancelled")
	case endLagged:
		c.closeWith(websocket.CloseTryAgainLater, "client too slow")
	default:
		c.closeWith(websocket.CloseNormalClosure, "")
	}
	// unblocks the reader and any pending write
	c.ws.Close()
	wg.Wait()

	c.leave()
	c.log.WithFields(logrus.Fields{
		"reason":    reason.String(),
		"connected": humanize.Time(started),
	}).Info("disconnected")
}

func (c *connection) join(ctx context.Context) error {
	poll, err := c.h.store.SetParticipant(ctx, c.identity.PollID, c.identity.UserID, c.identity.Name)
	if err != nil {
		return err
	}

	c.room = c.h.rooms.Join(poll, room.NewClient(c.clientID, c.identity.UserID, c.addr, c.identity.Name))
	// subscribe before broadcasting so the joiner sees its own snapshot
	c.sub = c.room.Subscribe()
	// re-read under the commit lock so a mutation committed since
	// SetParticipant is not overwritten by an older snapshot
	if _, err := c.room.Commit(func() (*models.Poll, error) {
		return c.h.store.Get(ctx, c.identity.PollID)
	}); err != nil {
		c.sub.Close()
		c.h.rooms.Leave(c.room, c.clientID)
		return err
	}

	if c.h.notify != nil {
		n := models.Notification{
			NotifyType: models.NotifyJoinPoll,
			Username:   c.identity.Name,
			PollID:     poll.ID,
			Topic:      poll.Topic,
		}
		if b, err := json.Marshal(n); err == nil {
			c.h.notify.Send(b)
		}
	}
	return nil
}

// leave deregisters the client and, unless the poll itself went away,
// removes the participant from the document.
func (c *connection) leave() {
	tornDown := c.room.Closed()
	c.h.rooms.Leave(c.room, c.clientID)
	if tornDown || c.room.HasUser(c.identity.UserID) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	_, err := c.room.Commit(func() (*models.Poll, error) {
		return c.h.store.RemoveParticipant(ctx, c.identity.PollID, c.identity.UserID)
	})
	if err != nil {
		c.log.WithError(err).Debug("participant kept")
	}
}

func (c *connection) readLoop(ctx context.Context) endReason {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Debug("read failed")
			}
			return endPeerClosed
		}

		ev, err := models.DecodeEvent(data)
		if err == nil {
			err = c.dispatch(ctx, ev)
		}
		if err != nil {
			if ctx.Err() != nil {
				return endCancelled
			}
			c.log.WithError(err).WithField("event", string(ev.Kind)).Debug("event rejected")
			c.sendPrivate(ctx, models.Exception(err).Encode())
		}
	}
}

func (c *connection) writeLoop(ctx context.Context) endReason {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return endCancelled
		case msg, ok := <-c.sub.C():
			if !ok {
				close(c.flushed)
				if c.sub.Lagged() {
					return endLagged
				}
				return endRoomClosed
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return endSendFailed
			}
		case msg := <-c.private:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return endSendFailed
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return endSendFailed
			}
		}
	}
}

// watchTeardown ends the connection when the room is torn down externally,
// after giving the relay a moment to deliver the room's final message.
func (c *connection) watchTeardown(ctx context.Context) endReason {
	select {
	case <-ctx.Done():
		return endCancelled
	case <-c.room.Done():
	}

	timer := time.NewTimer(flushWait)
	defer timer.Stop()
	select {
	case <-c.flushed:
	case <-timer.C:
	case <-ctx.Done():
	}
	return endRoomClosed
}

func (c *connection) write(messageType int, data []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(messageType, data)
}

func (c *connection) sendPrivate(ctx context.Context, msg []byte) {
	select {
	case c.private <- msg:
	case <-ctx.Done():
	}
}

func (c *connection) closeWith(code int, text string) {
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
}
