package redis

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// E: keyevent notifications, g: generic commands (del), x: expired.
const keyspaceEventFlags = "Egx"

var keyeventPatterns = []string{"__keyevent@*__:expired", "__keyevent@*__:del"}

// KeyParser maps a key to the id it stores, reporting false for keys the
// notifier should ignore.
type KeyParser func(key string) (string, bool)

// Notifier reports keys that were deleted or expired.
type Notifier struct {
	rdb   *redis.Client
	parse KeyParser
	log   *logrus.Entry
}

func NewNotifier(rdb *redis.Client, parse KeyParser, log logrus.FieldLogger) *Notifier {
	return &Notifier{rdb: rdb, parse: parse, log: log.WithField("module", "notifier")}
}

// Run enables keyspace events and calls fn with the id of every removed key
// the parser accepts. It blocks until ctx is done.
func (n *Notifier) Run(ctx context.Context, fn func(id string)) error {
	if err := n.rdb.ConfigSet(ctx, "notify-keyspace-events", keyspaceEventFlags).Err(); err != nil {
		return errors.Wrap(err, "enable keyspace events")
	}

	sub := n.rdb.PSubscribe(ctx, keyeventPatterns...)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrap(err, "subscribe keyspace events")
	}
	n.log.Info("Listening for expired and deleted polls")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("keyspace subscription closed")
			}
			n.handle(msg, fn)
		}
	}
}

func (n *Notifier) handle(msg *redis.Message, fn func(id string)) {
	id, ok := n.parse(msg.Payload)
	if !ok {
		return
	}
	n.log.WithField("poll_id", id).Debugf("poll removed (%s)", eventName(msg.Channel))
	fn(id)
}

func eventName(channel string) string {
	if i := strings.LastIndexByte(channel, ':'); i >= 0 {
		return channel[i+1:]
	}
	return channel
}
