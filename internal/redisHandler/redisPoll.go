package redishandler

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/saxenaaman628/ranker/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// KeyPrefix namespaces poll documents in the keyspace.
const KeyPrefix = "polls:"

// Phase guards understood by mutateScript.
const (
	guardNone       = ""
	guardNotStarted = "not_started"
	guardStarted    = "started"
)

// Script replies that map to domain errors.
const (
	replyExists     = "EXISTS"
	replyNotFound   = "NOT_FOUND"
	replyHasStarted = "HAS_STARTED"
	replyNoStart    = "NO_START"
)

var createScript = redis.NewScript(`
local key = KEYS[1]
if redis.call('EXISTS', key) == 1 then
	return redis.error_reply('EXISTS')
end
redis.call('JSON.SET', key, '.', ARGV[1])
redis.call('EXPIRE', key, ARGV[2])
return redis.call('JSON.GET', key, '.')
`)

// mutateScript checks existence and phase, applies one path write and
// returns the whole document, all inside one server-side execution.
var mutateScript = redis.NewScript(`
local key = KEYS[1]
local op = ARGV[1]
local path = ARGV[2]
local guard = ARGV[3]
if redis.call('EXISTS', key) == 0 then
	return redis.error_reply('NOT_FOUND')
end
if guard ~= '' then
	local started = redis.call('JSON.GET', key, '.hasStarted')
	if guard == 'not_started' and started == 'true' then
		return redis.error_reply('HAS_STARTED')
	end
	if guard == 'started' and started ~= 'true' then
		return redis.error_reply('NO_START')
	end
end
if op == 'set' then
	redis.call('JSON.SET', key, path, ARGV[4])
else
	redis.call('JSON.DEL', key, path)
end
return redis.call('JSON.GET', key, '.')
`)

// PollRepository applies atomic conditional operations to poll documents
// stored as RedisJSON values.
type PollRepository struct {
	rdb redis.UniversalClient
}

func NewPollRepository(rdb redis.UniversalClient) *PollRepository {
	return &PollRepository{rdb: rdb}
}

func (r *PollRepository) Create(ctx context.Context, ttl time.Duration, pollID, topic string, votesPerVoter int, adminID string) (*models.Poll, error) {
	poll := models.NewPoll(pollID, topic, votesPerVoter, adminID)
	value, err := json.Marshal(poll)
	if err != nil {
		return nil, errors.Wrap(err, "encode poll")
	}

	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	res, err := createScript.Run(ctx, r.rdb, []string{PollKey(pollID)}, string(value), seconds).Text()
	if err != nil {
		return nil, scriptError(err)
	}
	return decodePoll(res)
}

func (r *PollRepository) Get(ctx context.Context, pollID string) (*models.Poll, error) {
	res, err := r.rdb.Do(ctx, "JSON.GET", PollKey(pollID), ".").Text()
	if err == redis.Nil {
		return nil, models.ErrPollNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get poll")
	}
	return decodePoll(res)
}

func (r *PollRepository) SetParticipant(ctx context.Context, pollID, userID, name string) (*models.Poll, error) {
	return r.set(ctx, pollID, participantPath(userID), name, guardNone)
}

// RemoveParticipant fails with ErrPollHasStarted once voting has begun.
func (r *PollRepository) RemoveParticipant(ctx context.Context, pollID, userID string) (*models.Poll, error) {
	return r.mutate(ctx, pollID, "del", participantPath(userID), guardNotStarted, "")
}

func (r *PollRepository) AddNomination(ctx context.Context, pollID string, nominationID models.NominationID, nomination models.Nomination) (*models.Poll, error) {
	return r.set(ctx, pollID, nominationPath(nominationID), nomination, guardNone)
}

func (r *PollRepository) RemoveNomination(ctx context.Context, pollID string, nominationID models.NominationID) (*models.Poll, error) {
	return r.mutate(ctx, pollID, "del", nominationPath(nominationID), guardNone, "")
}

func (r *PollRepository) Start(ctx context.Context, pollID string) (*models.Poll, error) {
	return r.set(ctx, pollID, ".hasStarted", true, guardNone)
}

// SubmitRankings fails with ErrPollNoStart during the nomination phase.
func (r *PollRepository) SubmitRankings(ctx context.Context, pollID, userID string, rankings []models.NominationID) (*models.Poll, error) {
	return r.set(ctx, pollID, rankingsPath(userID), rankings, guardStarted)
}

func (r *PollRepository) SetResults(ctx context.Context, pollID string, results []models.Result) (*models.Poll, error) {
	if results == nil {
		results = []models.Result{}
	}
	return r.set(ctx, pollID, ".results", results, guardNone)
}

// Delete removes the document. Deleting an absent poll is not an error.
func (r *PollRepository) Delete(ctx context.Context, pollID string) error {
	if err := r.rdb.Del(ctx, PollKey(pollID)).Err(); err != nil {
		return errors.Wrap(err, "delete poll")
	}
	return nil
}

func (r *PollRepository) set(ctx context.Context, pollID, path string, v interface{}, guard string) (*models.Poll, error) {
	value, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode value")
	}
	return r.mutate(ctx, pollID, "set", path, guard, string(value))
}

func (r *PollRepository) mutate(ctx context.Context, pollID, op, path, guard, value string) (*models.Poll, error) {
	res, err := mutateScript.Run(ctx, r.rdb, []string{PollKey(pollID)}, op, path, guard, value).Text()
	if err != nil {
		return nil, scriptError(err)
	}
	return decodePoll(res)
}

func decodePoll(raw string) (*models.Poll, error) {
	var poll models.Poll
	if err := json.Unmarshal([]byte(raw), &poll); err != nil {
		return nil, errors.Wrap(err, "decode poll")
	}
	return &poll, nil
}

func scriptError(err error) error {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, replyNotFound):
		return models.ErrPollNotFound
	case strings.HasPrefix(msg, replyExists):
		return models.ErrPollAlreadyExists
	case strings.HasPrefix(msg, replyHasStarted):
		return models.ErrPollHasStarted
	case strings.HasPrefix(msg, replyNoStart):
		return models.ErrPollNoStart
	}
	return errors.Wrap(err, "poll script")
}

func PollKey(pollID string) string {
	return KeyPrefix + pollID
}

// PollIDFromKey is the inverse of PollKey.
func PollIDFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, KeyPrefix) || len(key) == len(KeyPrefix) {
		return "", false
	}
	return key[len(KeyPrefix):], true
}

func participantPath(userID string) string {
	return fmt.Sprintf(".participants[%q]", userID)
}

func nominationPath(nominationID models.NominationID) string {
	return fmt.Sprintf(".nominations[%q]", nominationID)
}

func rankingsPath(userID string) string {
	return fmt.Sprintf(".rankings[%q]", userID)
}
